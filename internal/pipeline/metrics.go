// Package pipeline orchestrates the keyword tiering stages for one
// (post, seed keyword) run.
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRunsTotal       = "tiering_runs_total"
	MetricRunDuration     = "tiering_run_duration_seconds"
	MetricTiersProduced   = "tiering_tiers_produced"
	MetricPersistFailures = "tiering_persist_failures_total"
)

// Run status labels.
const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Metrics contains Prometheus metrics for pipeline runs.
// All operations are thread-safe.
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	tiersProduced   prometheus.Histogram
	persistFailures prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total tiering pipeline runs by status",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Histogram of tiering run duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
		),
		tiersProduced: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricTiersProduced,
				Help:    "Histogram of tiers produced per run",
				Buckets: []float64{0, 1, 2, 3, 4},
			},
		),
		persistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPersistFailures,
				Help: "Total failed tier persistence attempts",
			},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.runsTotal, m.runDuration, m.tiersProduced, m.persistFailures,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRun records one completed run.
func (m *Metrics) ObserveRun(status string, seconds float64, tiers int) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
	m.tiersProduced.Observe(float64(tiers))
}

// IncPersistFailure records one failed sink write.
func (m *Metrics) IncPersistFailure() {
	m.persistFailures.Inc()
}
