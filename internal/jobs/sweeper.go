package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jwkoo/keytier/internal/volume"
)

// DefaultSweepInterval is how often the cache sweep runs.
const DefaultSweepInterval = 24 * time.Hour

// Sweeper periodically purges volume cache records long past their freshness
// window. The resolver already treats stale records as misses; the sweep only
// reclaims storage and keeps table scans bounded.
type Sweeper struct {
	store     volume.Store
	retention time.Duration
	interval  time.Duration
	metrics   *Metrics // optional
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper. metrics may be nil; a non-positive interval
// falls back to DefaultSweepInterval.
func NewSweeper(store volume.Store, retention, interval time.Duration,
	metrics *Metrics, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run sweeps once immediately and then on every interval tick until the
// context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce runs a single sweep, returning the number of records deleted.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.store.DeleteOlderThan(ctx, s.retention)
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	deleted, err := s.SweepOnce(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveJobDuration(JobTypeCacheSweep, elapsed.Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncJobsTotal(JobTypeCacheSweep, StatusFailure)
			s.metrics.IncJobErrors(JobTypeCacheSweep, "store_error")
		}
		s.logger.Error("volume cache sweep failed", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncJobsTotal(JobTypeCacheSweep, StatusSuccess)
	}
	s.logger.Info("volume cache sweep completed",
		"deleted", deleted,
		"retention", s.retention,
		"duration_ms", elapsed.Milliseconds(),
	)
}
