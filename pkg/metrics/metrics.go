// Package metrics provides Prometheus metrics for Launchpad.
//
// # Overview
//
// The package registers its collectors with the default Prometheus registry
// through promauto, so importing it is enough to have them exposed by the
// API server's /metrics endpoint.
//
// # Basic Usage
//
//	// Record a cache hit for a datasource
//	metrics.CacheRequests.WithLabelValues("petals", "frame", metrics.OutcomeHit).Inc()
//
//	// Track fetch latency
//	timer := metrics.NewTimer("fetch")
//	frame, err := source.GetFrame(ctx, params)
//	metrics.FetchLatency.WithLabelValues("petals", "frame").Observe(timer.Stop().Seconds())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache request outcomes
const (
	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeBypass = "bypass"
)

var (
	// CacheRequests counts datasource fetch requests by cache outcome.
	// Labels: connector, kind (frame/raw), outcome (hit/miss/bypass)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchpad_cache_requests_total",
			Help: "Datasource fetch requests by cache outcome",
		},
		[]string{"connector", "kind", "outcome"},
	)

	// CacheEvictions counts entries evicted because the cache size bound was exceeded.
	// Labels: connector
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchpad_cache_evictions_total",
			Help: "Cache entries evicted by the size bound",
		},
		[]string{"connector"},
	)

	// FetchLatency tracks the latency of underlying (uncached) fetches in seconds.
	// Labels: connector, kind
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launchpad_fetch_latency_seconds",
			Help:    "Latency of underlying datasource fetches",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		},
		[]string{"connector", "kind"},
	)

	// FetchErrors counts failed underlying fetches.
	// Labels: connector, kind
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchpad_fetch_errors_total",
			Help: "Failed underlying datasource fetches",
		},
		[]string{"connector", "kind"},
	)

	// PhaseRuns counts lifecycle phase executions.
	// Labels: model, phase (train/test/predict), status (success/failure)
	PhaseRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchpad_phase_runs_total",
			Help: "Model lifecycle phase executions",
		},
		[]string{"model", "phase", "status"},
	)

	// PhaseLatency tracks lifecycle phase duration in seconds.
	// Labels: model, phase
	PhaseLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launchpad_phase_latency_seconds",
			Help:    "Model lifecycle phase duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "phase"},
	)

	// APIRequests counts prediction API requests.
	// Labels: method, status (HTTP status code class)
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchpad_api_requests_total",
			Help: "Prediction API requests",
		},
		[]string{"method", "status"},
	)

	// ActiveConnectors tracks the number of constructed connectors.
	// Labels: kind (source/sink)
	ActiveConnectors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "launchpad_active_connectors",
			Help: "Number of constructed datasources and datasinks",
		},
		[]string{"kind"},
	)
)

// Status returns the status label for an error
func Status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation.
// The timer can be stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
