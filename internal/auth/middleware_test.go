package auth_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"crm-service/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(tokens *auth.TokenService, called *bool, gotID *int) chi.Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, logger))
		r.Get("/protected", func(w http.ResponseWriter, req *http.Request) {
			*called = true
			if id, ok := auth.CounselorID(req.Context()); ok {
				*gotID = id
			}
			w.WriteHeader(http.StatusOK)
		})
	})
	return router
}

func TestMiddleware_ValidToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key", time.Hour)
	token, err := tokens.Issue(7)
	require.NoError(t, err)

	var called bool
	var gotID int
	router := newProtectedRouter(tokens, &called, &gotID)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	assert.Equal(t, 7, gotID)
}

func TestMiddleware_Rejections(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key", time.Hour)
	expired := auth.NewTokenService("test-secret-key", -time.Minute)
	expiredToken, err := expired.Issue(7)
	require.NoError(t, err)

	otherKey := auth.NewTokenService("other-secret", time.Hour)
	foreignToken, err := otherKey.Issue(7)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"bearer without token", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expiredToken},
		{"wrong signing key", "Bearer " + foreignToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var gotID int
			router := newProtectedRouter(tokens, &called, &gotID)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, called, "protected handler must not execute")
		})
	}
}
