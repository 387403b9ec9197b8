package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"crm-service/internal/httputil"
)

type contextKey string

// counselorIDKey is the context key for the authenticated counselor id.
const counselorIDKey contextKey = "counselor_id"

// Middleware verifies the bearer token on inbound requests and attaches the
// resolved counselor id to the request context. Missing, malformed, and
// failed-verification tokens all produce the same 401 outcome; the reason is
// logged, not returned.
func Middleware(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				logger.WarnContext(r.Context(), "missing authorization header", "path", r.URL.Path)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Not authorized, no token provided")
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				logger.WarnContext(r.Context(), "malformed authorization header", "path", r.URL.Path)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			counselorID, err := tokens.Verify(tokenString)
			if err != nil {
				logger.WarnContext(r.Context(), "token verification failed", "path", r.URL.Path, "error", err)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			// Identity lives only for the duration of this request.
			ctx := context.WithValue(r.Context(), counselorIDKey, counselorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CounselorID extracts the authenticated counselor id from the request context.
func CounselorID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(counselorIDKey).(int)
	return id, ok
}
