package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder is the narrow slice of internal/metrics.Metrics this
// middleware needs, so it doesn't import the metrics package directly and
// tests can supply a fake.
type MetricsRecorder interface {
	RecordHTTPRequest(route, method, status string, duration float64)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records request count and latency for every route, labeled by
// the mux route pattern (not the raw path, to keep cardinality bounded).
func Instrument(m MetricsRecorder, routePattern string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RecordHTTPRequest(routePattern, r.Method, strconv.Itoa(rec.status), time.Since(start).Seconds())
		})
	}
}
