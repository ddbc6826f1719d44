package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"reunite/pkg/requestcontext"
)

// AdminTokenValidator validates an admin bearer token and returns the
// administrator identity it carries. Authentication internals live outside
// the core; the middleware only consumes this boundary contract.
type AdminTokenValidator interface {
	ValidateAdminToken(tokenString string) (adminID string, err error)
}

// RequireAdmin guards admin routes. On success the admin ID is available via
// requestcontext.AdminID.
func RequireAdmin(validator AdminTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			adminID, err := validator.ValidateAdminToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "admin token rejected",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"invalid admin token"}`))
				return
			}
			ctx := requestcontext.WithAdminID(r.Context(), adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
