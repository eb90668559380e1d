package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Timeout bounds each request with a context deadline. When the handler has
// not produced output by the deadline, the client gets a 504 and the handler
// keeps running against its cancelled context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			rw := &deadlineWriter{ResponseWriter: w}
			finished := make(chan struct{})
			go func() {
				next.ServeHTTP(rw, r.WithContext(ctx))
				close(finished)
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				if rw.wrote.Load() {
					return
				}
				slog.Warn("request deadline exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", d,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				w.Write([]byte(`{"error":"request timeout"}`))
			}
		})
	}
}

// deadlineWriter flags whether the handler beat the deadline to the response.
type deadlineWriter struct {
	http.ResponseWriter
	wrote atomic.Bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.wrote.Store(true)
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.wrote.Store(true)
	return dw.ResponseWriter.Write(b)
}
