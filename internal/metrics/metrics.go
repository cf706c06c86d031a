// Package metrics holds the Prometheus instrumentation for the distributor
// service: state-machine operation outcomes and the two read caches'
// freshness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the distributor service.
type Metrics struct {
	// Claim metrics
	ClaimsTotal    *prometheus.CounterVec
	ClaimAmount    *prometheus.HistogramVec
	ClaimDuration  *prometheus.HistogramVec

	// Clawback metrics
	ClawbacksTotal  *prometheus.CounterVec
	ClawbackAmount  *prometheus.GaugeVec

	// Distributor metrics
	DistributorsActive *prometheus.GaugeVec
	TotalClaimed       *prometheus.GaugeVec
	NodesClaimed       *prometheus.GaugeVec

	// Cache metrics
	ProofCacheClaimants  prometheus.Gauge
	ProofCacheShards     prometheus.Gauge
	ClaimCacheStaleness  prometheus.Gauge
	ClaimCacheConnected  prometheus.Gauge

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics against reg. A
// fresh prometheus.NewRegistry() per Program/Server instance keeps
// multiple instances (as in tests) from colliding on metric names; the
// process entrypoint registers one against prometheus.DefaultRegisterer
// for /metrics to scrape.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ClaimsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distributor_claims_total",
				Help: "Total number of claim operations processed",
			},
			[]string{"mint", "operation", "result"}, // operation: new_claim, claim_locked; result: ok, error
		),
		ClaimAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributor_claim_amount",
				Help:    "Token amount transferred per successful claim operation",
				Buckets: prometheus.ExponentialBuckets(1, 10, 10),
			},
			[]string{"mint", "operation"},
		),
		ClaimDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributor_claim_duration_seconds",
				Help:    "Duration of claim operation handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ClawbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distributor_clawbacks_total",
				Help: "Total number of clawback operations processed",
			},
			[]string{"mint", "result"},
		),
		ClawbackAmount: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "distributor_clawback_amount",
				Help: "Amount swept by the most recent clawback for a distributor",
			},
			[]string{"mint"},
		),
		DistributorsActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "distributor_active",
				Help: "Whether a distributor account is open (1) or closed (0)",
			},
			[]string{"mint"},
		),
		TotalClaimed: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "distributor_total_claimed",
				Help: "Cumulative amount claimed from a distributor",
			},
			[]string{"mint"},
		),
		NodesClaimed: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "distributor_nodes_claimed",
				Help: "Number of leaves that have called new_claim",
			},
			[]string{"mint"},
		),
		ProofCacheClaimants: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "distributor_proof_cache_claimants",
				Help: "Number of claimants indexed in the proof cache",
			},
		),
		ProofCacheShards: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "distributor_proof_cache_shards",
				Help: "Number of shard artifacts loaded into the proof cache",
			},
		),
		ClaimCacheStaleness: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "distributor_claim_cache_staleness_seconds",
				Help: "Seconds since the claim-status cache last absorbed an account update",
			},
		),
		ClaimCacheConnected: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "distributor_claim_cache_connected",
				Help: "Whether the claim-status cache's account subscription is currently connected (1) or not (0)",
			},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distributor_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributor_http_request_duration_seconds",
				Help:    "Duration of HTTP request handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// RecordClaim records a new_claim or claim_locked outcome.
func (m *Metrics) RecordClaim(mint, operation string, err error, amount uint64, duration float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ClaimsTotal.WithLabelValues(mint, operation, result).Inc()
	m.ClaimDuration.WithLabelValues(operation).Observe(duration)
	if err == nil {
		m.ClaimAmount.WithLabelValues(mint, operation).Observe(float64(amount))
	}
}

// RecordClawback records a clawback outcome.
func (m *Metrics) RecordClawback(mint string, err error, amount uint64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ClawbacksTotal.WithLabelValues(mint, result).Inc()
	if err == nil {
		m.ClawbackAmount.WithLabelValues(mint).Set(float64(amount))
	}
}

// UpdateDistributorGauges syncs the per-distributor gauges to a snapshot.
func (m *Metrics) UpdateDistributorGauges(mint string, active bool, totalClaimed, nodesClaimed uint64) {
	activeValue := 0.0
	if active {
		activeValue = 1.0
	}
	m.DistributorsActive.WithLabelValues(mint).Set(activeValue)
	m.TotalClaimed.WithLabelValues(mint).Set(float64(totalClaimed))
	m.NodesClaimed.WithLabelValues(mint).Set(float64(nodesClaimed))
}

// UpdateCacheGauges syncs the cache freshness gauges.
func (m *Metrics) UpdateCacheGauges(proofClaimants, proofShards int, staleness float64, connected bool) {
	m.ProofCacheClaimants.Set(float64(proofClaimants))
	m.ProofCacheShards.Set(float64(proofShards))
	m.ClaimCacheStaleness.Set(staleness)
	connectedValue := 0.0
	if connected {
		connectedValue = 1.0
	}
	m.ClaimCacheConnected.Set(connectedValue)
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration)
}
