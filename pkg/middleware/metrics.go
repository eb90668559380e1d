package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/textmine/knowledge-extractor/pkg/metrics"
)

// Metrics records request count, latency, and the in-flight gauge for every
// request passing through.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(&rec, r)
			elapsed := time.Since(start)

			path := metricPath(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())
		})
	}
}

// statusRecorder captures the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status int
	done   bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.done {
		rec.status = code
		rec.done = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.done = true
	return rec.ResponseWriter.Write(b)
}

// metricPath keeps the path label low-cardinality by collapsing per-analysis
// IDs into a placeholder.
func metricPath(path string) string {
	const prefix = "/api/v1/analyses/"
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return prefix + "{id}"
	}
	return path
}
