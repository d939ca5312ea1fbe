package jobs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	var m dto.Metric
	if err := c.(prometheus.Counter).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsRegister(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}

	// Double registration must fail.
	if err := m.Register(reg); err == nil {
		t.Error("expected an error registering twice")
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncJobsTotal(JobTypeCacheSweep, StatusSuccess)
	m.IncJobsTotal(JobTypeCacheSweep, StatusSuccess)
	m.IncJobsTotal(JobTypeCacheSweep, StatusFailure)
	m.IncJobErrors(JobTypeCacheSweep, "store_error")
	m.ObserveJobDuration(JobTypeCacheSweep, 0.25)

	if got := counterValue(t, m.jobsTotal, JobTypeCacheSweep, StatusSuccess); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := counterValue(t, m.jobsTotal, JobTypeCacheSweep, StatusFailure); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := counterValue(t, m.jobErrors, JobTypeCacheSweep, "store_error"); got != 1 {
		t.Errorf("expected 1 store error, got %v", got)
	}
}

func TestMetricsCollectors(t *testing.T) {
	m := NewMetrics()
	if got := len(m.Collectors()); got != 3 {
		t.Errorf("expected 3 collectors, got %d", got)
	}
}
