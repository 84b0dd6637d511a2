// Package request assigns each request a correlation ID.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"addongate/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID when present, otherwise generates
// one, and echoes it on the response so callers can correlate logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
