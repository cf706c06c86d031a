// Package middleware holds the cross-cutting HTTP wrappers the API server
// (internal/api) applies to every route: a request-scoped timeout and
// Prometheus instrumentation.
package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout wraps next with a context deadline of d. Handlers that read
// ctx.Done() (or pass the request context down to a blocking cache call)
// get canceled once d elapses; handlers that don't still return once the
// underlying work finishes, so this is a cooperative bound, not a forced
// abort of in-flight work.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORS is a permissive development CORS policy: this is a read-only query
// API with no cookie-based auth, so an open origin policy doesn't widen
// the attack surface the way it would for a mutating endpoint.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
