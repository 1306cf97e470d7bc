// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Ranking computations
	ComputationsTotal   *prometheus.CounterVec // by component/view
	ComputationDuration *prometheus.HistogramVec
	ComputationErrors   *prometheus.CounterVec

	// Snapshot cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Featured-slot snapshot writes
	SnapshotWrites prometheus.Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "listrank"
	}

	return &Metrics{
		ComputationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "computations_total",
			Help:      "Total ranking computations by component and view",
		}, []string{"component", "view"}),
		ComputationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "computation_duration_seconds",
			Help:      "Ranking computation duration by component",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component"}),
		ComputationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "computation_errors_total",
			Help:      "Failed ranking computations by component",
		}, []string{"component"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Trending snapshot cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Trending snapshot cache misses (absent, stale or bypassed)",
		}),
		SnapshotWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "featured",
			Name:      "snapshot_writes_total",
			Help:      "Featured slot baseline/peak score writes",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
