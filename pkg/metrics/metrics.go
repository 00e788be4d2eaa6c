// Package metrics defines the Prometheus metric collectors used across the
// services and serves them on a dedicated scrape port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the matching service.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	MatchRequestsTotal     *prometheus.CounterVec
	MatchLatency           *prometheus.HistogramVec
	MatchCandidatesCount   prometheus.Histogram
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	CacheWriteFailures     prometheus.Counter
	BoundaryFailuresTotal  *prometheus.CounterVec
	FeedbackSubmittedTotal *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
	RateLimitedTotal       prometheus.Counter
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in services and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		MatchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_requests_total",
				Help: "Total match requests by result (hit, miss, degraded, not_found, error).",
			},
			[]string{"result"},
		),
		MatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "match_latency_seconds",
				Help:    "Match request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"cache_status"},
		),
		MatchCandidatesCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "match_candidates_count",
				Help:    "Number of candidate cases retrieved per computed match.",
				Buckets: []float64{0, 1, 5, 10, 30, 60, 150},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "match_cache_hits_total",
				Help: "Total number of match cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "match_cache_misses_total",
				Help: "Total number of match cache misses.",
			},
		),
		CacheWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "match_cache_write_failures_total",
				Help: "Match cache writes that failed and were ignored.",
			},
		),
		BoundaryFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boundary_failures_total",
				Help: "External boundary failures recovered with a degraded result.",
			},
			[]string{"boundary"},
		),
		FeedbackSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_feedback_total",
				Help: "Match feedback submissions by helpfulness.",
			},
			[]string{"helpful"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by the per-principal rate limiter.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.MatchRequestsTotal,
		m.MatchLatency,
		m.MatchCandidatesCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheWriteFailures,
		m.BoundaryFailuresTotal,
		m.FeedbackSubmittedTotal,
		m.CircuitBreakerState,
		m.RateLimitedTotal,
	)

	return m
}

// NewNop returns collectors registered with a private registry, for
// components whose caller does not export metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
