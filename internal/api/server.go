// Package api exposes the distributor's read-side state over HTTP/JSON:
// the proof cache (C5), the claim-status cache (C6), and the program's own
// distributor index, behind a small set of GET routes and one WebSocket
// push endpoint. Nothing here mutates state — every write goes through
// internal/distributor directly, driven by whatever submits transactions
// to the underlying runtime.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tokendrop/distributor/internal/cache"
	"github.com/tokendrop/distributor/internal/distributor"
	"github.com/tokendrop/distributor/internal/events"
	"github.com/tokendrop/distributor/internal/metrics"
	"github.com/tokendrop/distributor/internal/middleware"
)

// Server is the API Gateway for a running distributor deployment.
type Server struct {
	program    *distributor.Program
	proofCache *cache.ProofCache
	claimCache *cache.ClaimCache
	bus        *events.EventBus
	metrics    *metrics.Metrics
	logger     *slog.Logger
	limiter    *middleware.RateLimiter

	requestTimeout time.Duration
}

// NewServer wires a Server to its dependencies. bus is used only by the
// WebSocket endpoint to learn about claim events live; it may be nil, in
// which case that endpoint pushes only an initial snapshot and never
// updates it.
func NewServer(program *distributor.Program, proofCache *cache.ProofCache, claimCache *cache.ClaimCache, bus *events.EventBus, m *metrics.Metrics, requestTimeout time.Duration) *Server {
	return &Server{
		program:        program,
		proofCache:     proofCache,
		claimCache:     claimCache,
		bus:            bus,
		metrics:        m,
		logger:         slog.Default().With("component", "api.server"),
		limiter:        middleware.NewRateLimiter(middleware.RateLimitConfig{MaxCallsPerMinute: 120, BurstSize: 240}),
		requestTimeout: requestTimeout,
	}
}

// Router builds the mux.Router this server serves. Exported separately
// from Start so tests can drive it with httptest without binding a port.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS())

	get := func(path string, handler http.HandlerFunc) {
		wrapped := middleware.Instrument(s.metrics, path)(middleware.Timeout(s.requestTimeout)(s.limiter.PerClaimant(handler)))
		r.Handle(path, wrapped).Methods(http.MethodGet, http.MethodOptions)
	}

	get("/distributors", s.handleListDistributors)
	get("/distributors/{version}/claims", s.handleListClaimsForDistributor)
	get("/user/{id}", s.handleUser)
	get("/claim/{id}", s.handleClaim)
	get("/eligibility/{id}", s.handleEligibility)

	// The WebSocket handshake does its own upgrade and keepalive loop; it
	// isn't wrapped in the request-scoped timeout middleware, which would
	// cancel a long-lived connection. It still gets the per-claimant rate
	// limit, since a reconnect storm against this endpoint is exactly the
	// kind of abuse the limiter exists to bound.
	r.Handle("/ws/eligibility/{id}", s.limiter.PerClaimant(http.HandlerFunc(s.handleEligibilityWS))).Methods(http.MethodGet)

	return r
}

// Start binds the server to port and blocks serving HTTP.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("api server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}
