package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_cache"

// Metrics holds the Prometheus collectors for the cache and upstream calls.
type Metrics struct {
	CacheLookups *prometheus.CounterVec // labels: category, result={hit,miss,bypass}
	CacheWrites  *prometheus.CounterVec // labels: category, result={stored,skipped,error}
	CacheErrors  *prometheus.CounterVec // labels: op={get,set,delete}
	CacheCleared *prometheus.CounterVec // labels: category
	CacheEnabled prometheus.Gauge

	UpstreamRequests *prometheus.CounterVec   // labels: source, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: source
}

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key category and result.",
		}, []string{"category", "result"}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Cache writes by key category and result.",
		}, []string{"category", "result"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Cache backend failures absorbed by the store, by operation.",
		}, []string{"op"}),
		CacheCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_cleared_keys_total",
			Help:      "Keys removed through bulk invalidation, by category.",
		}, []string{"category"}),
		CacheEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_enabled",
			Help:      "1 when caching is switched on, 0 otherwise.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API calls by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.CacheLookups,
		m.CacheWrites,
		m.CacheErrors,
		m.CacheCleared,
		m.CacheEnabled,
		m.UpstreamRequests,
		m.UpstreamDuration,
	)

	return m
}

// NewMetricsForTesting registers against a throwaway registry so tests can
// build as many instances as they like.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
