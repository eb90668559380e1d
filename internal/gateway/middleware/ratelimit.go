package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/textmine/knowledge-extractor/internal/auth/ratelimit"
)

// RateLimit enforces each key's configured per-window request budget. It
// relies on Auth having stored the KeyInfo; requests without one pass
// through untouched (Auth is the layer that rejects those). Window sizes the
// Retry-After hint sent with 429 responses.
func RateLimit(limiter *ratelimit.Limiter, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := GetKeyInfo(r.Context())
			if info == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(info.ID, info.RateLimit) {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
