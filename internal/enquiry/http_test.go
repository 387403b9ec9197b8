package enquiry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"crm-service/internal/auth"
	"crm-service/internal/counselor"
	"crm-service/internal/enquiry"
	"crm-service/internal/metrics"
	"crm-service/internal/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// newTestRouter wires the handlers the way the app does, without NATS.
func newTestRouter(db *bun.DB) (chi.Router, *auth.TokenService, counselor.Repository) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mockMetrics := metrics.NewMock()
	tokens := auth.NewTokenService("test-secret-key", time.Hour)

	counselorRepo := counselor.NewRepository(db, mockMetrics)
	authService := auth.NewService(counselorRepo, tokens)
	authHandler := auth.NewHandler(authService, logger, mockMetrics)

	enquiryRepo := enquiry.NewRepository(db, mockMetrics)
	enquiryService := enquiry.NewService(enquiryRepo, nil, logger)
	enquiryHandler := enquiry.NewHandler(enquiryService, logger, mockMetrics)

	router := chi.NewRouter()
	authHandler.RegisterRoutes(router)
	enquiryHandler.RegisterPublicRoutes(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, logger))
		enquiryHandler.RegisterProtectedRoutes(r)
	})
	return router, tokens, counselorRepo
}

func createCounselor(t *testing.T, repo counselor.Repository, name, email string) *counselor.Counselor {
	t.Helper()
	created, err := repo.Create(context.Background(), &counselor.Counselor{
		Name:     name,
		Email:    email,
		Password: "irrelevant-hash",
	})
	require.NoError(t, err)
	return created
}

func submitEnquiry(t *testing.T, router chi.Router, name, email, courseInterest string) enquiry.Enquiry {
	t.Helper()
	payload := map[string]string{"name": name, "email": email, "courseInterest": courseInterest}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/enquiries/public", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var response enquiry.EnquiryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.NotNil(t, response.Enquiry)
	return *response.Enquiry
}

func TestEnquiryHandler_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t)

	router, tokens, counselorRepo := newTestRouter(pgContainer.DB)

	t.Run("Submit_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		created := submitEnquiry(t, router, "Alice", "alice@x.com", "Go")

		assert.NotZero(t, created.ID)
		assert.False(t, created.Claimed)
		assert.Nil(t, created.CounselorID)
		assert.Equal(t, "Go", created.CourseInterest)
	})

	t.Run("Submit_ValidationError", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		payloads := []map[string]string{
			{"email": "alice@x.com", "courseInterest": "Go"}, // missing name
			{"name": "Alice", "courseInterest": "Go"},        // missing email
			{"name": "Alice", "email": "alice@x.com"},        // missing courseInterest
			{"name": "A", "email": "alice@x.com", "courseInterest": "Go"},          // name too short
			{"name": "Alice", "email": "not-an-email", "courseInterest": "Go"},     // bad email
		}
		for _, payload := range payloads {
			body, _ := json.Marshal(payload)
			req := httptest.NewRequest(http.MethodPost, "/enquiries/public", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, "payload %v", payload)
		}
	})

	t.Run("ProtectedEndpoints_RequireAuth", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		created := submitEnquiry(t, router, "Alice", "alice@x.com", "Go")

		requests := []struct {
			method string
			path   string
		}{
			{http.MethodGet, "/enquiries/public"},
			{http.MethodGet, "/enquiries/private"},
			{http.MethodPatch, fmt.Sprintf("/enquiries/%d/claim", created.ID)},
		}
		for _, tc := range requests {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s without token", tc.method, tc.path)
		}

		// The claim must not have executed
		fresh := new(enquiry.Enquiry)
		err := pgContainer.DB.NewSelect().Model(fresh).Where("id = ?", created.ID).Scan(context.Background())
		require.NoError(t, err)
		assert.False(t, fresh.Claimed)
		assert.Nil(t, fresh.CounselorID)
	})

	t.Run("ClaimScenario", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		created := submitEnquiry(t, router, "Alice", "alice@x.com", "Go")

		bob := createCounselor(t, counselorRepo, "Bob", "bob@x.com")
		bobToken, err := tokens.Issue(bob.ID)
		require.NoError(t, err)

		// Bob claims the lead
		req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/enquiries/%d/claim", created.ID), nil)
		req.Header.Set("Authorization", "Bearer "+bobToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var claimResp enquiry.EnquiryResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&claimResp))
		require.NotNil(t, claimResp.Enquiry)
		assert.True(t, claimResp.Enquiry.Claimed)
		require.NotNil(t, claimResp.Enquiry.CounselorID)
		assert.Equal(t, bob.ID, *claimResp.Enquiry.CounselorID)
		require.NotNil(t, claimResp.Enquiry.Counselor, "owner details must be resolved")
		assert.Equal(t, "Bob", claimResp.Enquiry.Counselor.Name)

		// A second claim attempt, by anyone, conflicts and names Bob
		carol := createCounselor(t, counselorRepo, "Carol", "carol@x.com")
		carolToken, err := tokens.Issue(carol.ID)
		require.NoError(t, err)

		req = httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/enquiries/%d/claim", created.ID), nil)
		req.Header.Set("Authorization", "Bearer "+carolToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)
		var conflict enquiry.ConflictResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&conflict))
		require.NotNil(t, conflict.Enquiry.ClaimedBy)
		assert.Equal(t, bob.ID, *conflict.Enquiry.ClaimedBy)

		// Bob sees the lead in his private list
		req = httptest.NewRequest(http.MethodGet, "/enquiries/private", nil)
		req.Header.Set("Authorization", "Bearer "+bobToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var mine enquiry.ListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&mine))
		assert.Equal(t, 1, mine.Count)

		// Carol does not
		req = httptest.NewRequest(http.MethodGet, "/enquiries/private", nil)
		req.Header.Set("Authorization", "Bearer "+carolToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var hers enquiry.ListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&hers))
		assert.Equal(t, 0, hers.Count)
	})

	t.Run("Claim_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		bob := createCounselor(t, counselorRepo, "Bob", "bob@x.com")
		bobToken, err := tokens.Issue(bob.ID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPatch, "/enquiries/99999/claim", nil)
		req.Header.Set("Authorization", "Bearer "+bobToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Claim_Concurrent_ExactlyOneWinner", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		created := submitEnquiry(t, router, "Alice", "alice@x.com", "Go")

		const attempts = 20
		type counselorToken struct {
			id    int
			token string
		}
		claimers := make([]counselorToken, attempts)
		for i := 0; i < attempts; i++ {
			c := createCounselor(t, counselorRepo, fmt.Sprintf("Counselor %d", i), fmt.Sprintf("c%d@x.com", i))
			token, err := tokens.Issue(c.ID)
			require.NoError(t, err)
			claimers[i] = counselorToken{id: c.ID, token: token}
		}

		var wg sync.WaitGroup
		codes := make(chan int, attempts)
		winners := make(chan int, attempts)
		reportedWinners := make(chan int, attempts)

		for _, claimer := range claimers {
			wg.Add(1)
			go func(ct counselorToken) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/enquiries/%d/claim", created.ID), nil)
				req.Header.Set("Authorization", "Bearer "+ct.token)
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)

				codes <- w.Code
				switch w.Code {
				case http.StatusOK:
					winners <- ct.id
				case http.StatusConflict:
					var conflict enquiry.ConflictResponse
					if json.NewDecoder(w.Body).Decode(&conflict) == nil && conflict.Enquiry.ClaimedBy != nil {
						reportedWinners <- *conflict.Enquiry.ClaimedBy
					}
				}
			}(claimer)
		}
		wg.Wait()
		close(codes)
		close(winners)
		close(reportedWinners)

		var okCount, conflictCount int
		for code := range codes {
			switch code {
			case http.StatusOK:
				okCount++
			case http.StatusConflict:
				conflictCount++
			default:
				t.Errorf("unexpected status code %d", code)
			}
		}
		assert.Equal(t, 1, okCount, "exactly one claim may succeed")
		assert.Equal(t, attempts-1, conflictCount)

		require.Len(t, winners, 1)
		winner := <-winners
		for reported := range reportedWinners {
			assert.Equal(t, winner, reported, "conflict responses must name the winner")
		}

		// The record holds the winner and the invariant
		final := new(enquiry.Enquiry)
		err := pgContainer.DB.NewSelect().Model(final).Where("id = ?", created.ID).Scan(context.Background())
		require.NoError(t, err)
		assert.True(t, final.Claimed)
		require.NotNil(t, final.CounselorID)
		assert.Equal(t, winner, *final.CounselorID)
	})

	t.Run("ListUnclaimed_EmptyPool", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		bob := createCounselor(t, counselorRepo, "Bob", "bob@x.com")
		bobToken, err := tokens.Issue(bob.ID)
		require.NoError(t, err)

		for _, path := range []string{"/enquiries/public", "/enquiries/private"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+bobToken)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			rawBody := w.Body.String()

			// An empty list must serialize as [], never null
			assert.Contains(t, rawBody, `"enquiries":[]`, "GET %s", path)

			var pool enquiry.ListResponse
			require.NoError(t, json.Unmarshal([]byte(rawBody), &pool))
			assert.Equal(t, 0, pool.Count)
			assert.NotNil(t, pool.Enquiries)
		}
	})

	t.Run("ListUnclaimed_OrderedNewestFirst", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "enquiries", "counselors")

		ctx := context.Background()
		older := &enquiry.Enquiry{Name: "Older", Email: "older@x.com", CourseInterest: "Go",
			CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour)}
		newer := &enquiry.Enquiry{Name: "Newer", Email: "newer@x.com", CourseInterest: "Go",
			CreatedAt: time.Now(), UpdatedAt: time.Now()}
		_, err := pgContainer.DB.NewInsert().Model(older).Exec(ctx)
		require.NoError(t, err)
		_, err = pgContainer.DB.NewInsert().Model(newer).Exec(ctx)
		require.NoError(t, err)

		bob := createCounselor(t, counselorRepo, "Bob", "bob@x.com")
		bobToken, err := tokens.Issue(bob.ID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/enquiries/public", nil)
		req.Header.Set("Authorization", "Bearer "+bobToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var pool enquiry.ListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&pool))
		require.Equal(t, 2, pool.Count)
		assert.Equal(t, "Newer", pool.Enquiries[0].Name)
		assert.Equal(t, "Older", pool.Enquiries[1].Name)
	})
}
