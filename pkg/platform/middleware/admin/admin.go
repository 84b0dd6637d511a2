// Package admin gates administrative endpoints.
//
// Two credentials are accepted: the static X-Admin-Token header, or a Bearer
// token issued by the admin login endpoint. Every failure path returns the
// same generic unauthorized body so callers can't distinguish a bad
// credential from a missing one.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"addongate/pkg/requestcontext"
)

// TokenValidator validates bearer tokens minted by the admin login flow.
type TokenValidator interface {
	ValidateToken(tokenString string) (subject string, err error)
}

// RequireAdmin authenticates the request as an administrator and records the
// acting principal in the context.
func RequireAdmin(expectedToken string, validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := r.Header.Get("X-Admin-Token"); token != "" && expectedToken != "" {
				// Constant-time comparison to prevent timing attacks.
				if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1 {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminActor(ctx, "admin")))
					return
				}
			}

			if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && validator != nil {
				subject, err := validator.ValidateToken(after)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminActor(ctx, subject)))
					return
				}
			}

			logger.WarnContext(ctx, "admin credential rejected",
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin credential required"}`))
		})
	}
}
