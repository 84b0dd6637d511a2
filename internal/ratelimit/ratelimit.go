// Package ratelimit provides per-IP request limiting middleware.
package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"addongate/internal/ratelimit/bucket"
	dErrors "addongate/pkg/domain-errors"
	"addongate/pkg/platform/httputil"
	"addongate/pkg/requestcontext"
)

// Limiter applies per-IP sliding window limits. One Limiter is shared across
// routes; each route class picks its own limit via Middleware.
type Limiter struct {
	store    *bucket.Store
	logger   *slog.Logger
	disabled bool
}

// New builds a limiter. When disabled, Middleware passes everything through.
func New(logger *slog.Logger, disabled bool) *Limiter {
	return &Limiter{
		store:    bucket.NewStore(),
		logger:   logger,
		disabled: disabled,
	}
}

// Middleware limits each client IP to limit requests per window under the
// given class label.
func (l *Limiter) Middleware(class string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := requestcontext.ClientIP(r.Context())
			if ip == "" {
				ip = r.RemoteAddr
			}
			res := l.store.Allow(fmt.Sprintf("%s:%s", class, ip), limit, window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(time.Until(res.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				l.logger.Warn("rate limit exceeded", "class", class, "ip", ip)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RunPruner drops idle buckets every interval until stop is closed.
func (l *Limiter) RunPruner(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.store.Prune()
		}
	}
}
