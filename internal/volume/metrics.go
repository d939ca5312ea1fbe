package volume

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricCacheLookupsTotal   = "volume_cache_lookups_total"
	MetricSourceCallsTotal    = "volume_source_calls_total"
	MetricSourceCallDuration  = "volume_source_call_duration_seconds"
	MetricUpsertFailuresTotal = "volume_cache_upsert_failures_total"
)

// Lookup outcome labels.
const (
	OutcomeFresh = "fresh"
	OutcomeStale = "stale"
	OutcomeMiss  = "miss"
)

// PromMetrics contains Prometheus metrics for volume resolution.
// All operations are thread-safe.
type PromMetrics struct {
	cacheLookups   *prometheus.CounterVec
	sourceCalls    *prometheus.CounterVec
	sourceDuration prometheus.Histogram
	upsertFailures prometheus.Counter
}

// NewPromMetrics creates a new PromMetrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewPromMetrics() *PromMetrics {
	return &PromMetrics{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheLookupsTotal,
				Help: "Total volume cache lookups by outcome (fresh, stale, miss)",
			},
			[]string{"outcome"},
		),
		sourceCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSourceCallsTotal,
				Help: "Total external volume source batch calls by status",
			},
			[]string{"status"},
		),
		sourceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricSourceCallDuration,
				Help:    "Histogram of external volume source call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
		),
		upsertFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricUpsertFailuresTotal,
				Help: "Total failed volume cache upserts",
			},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *PromMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.cacheLookups, m.sourceCalls, m.sourceDuration, m.upsertFailures,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncLookup records one cache lookup outcome.
func (m *PromMetrics) IncLookup(outcome string) {
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// IncSourceCall records one external batch call with its status label.
func (m *PromMetrics) IncSourceCall(status string) {
	m.sourceCalls.WithLabelValues(status).Inc()
}

// ObserveSourceDuration records an external batch call duration.
func (m *PromMetrics) ObserveSourceDuration(seconds float64) {
	m.sourceDuration.Observe(seconds)
}

// IncUpsertFailure records a failed cache write.
func (m *PromMetrics) IncUpsertFailure() {
	m.upsertFailures.Inc()
}
