// Package stats provides utilities for tracking volume-resolution statistics.
package stats

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ResolutionStats tracks cumulative statistics for cache-first volume
// resolution. All operations are thread-safe using atomic counters.
type ResolutionStats struct {
	fresh         int64 // Lookups served from the fresh cache
	stale         int64 // Lookups that hit a stale record
	misses        int64 // Lookups with no record at all
	refreshed     int64 // Records refreshed from the external source
	writeFailures int64 // Best-effort cache writes that failed
}

// NewResolutionStats creates a new ResolutionStats instance.
func NewResolutionStats() *ResolutionStats {
	return &ResolutionStats{}
}

// RecordFresh increments the fresh-hit counter by n.
func (s *ResolutionStats) RecordFresh(n int64) {
	atomic.AddInt64(&s.fresh, n)
}

// RecordStale increments the stale counter by n.
func (s *ResolutionStats) RecordStale(n int64) {
	atomic.AddInt64(&s.stale, n)
}

// RecordMiss increments the miss counter by n.
func (s *ResolutionStats) RecordMiss(n int64) {
	atomic.AddInt64(&s.misses, n)
}

// RecordRefreshed increments the refreshed counter by n.
func (s *ResolutionStats) RecordRefreshed(n int64) {
	atomic.AddInt64(&s.refreshed, n)
}

// RecordWriteFailure increments the write-failure counter.
func (s *ResolutionStats) RecordWriteFailure() {
	atomic.AddInt64(&s.writeFailures, 1)
}

// Fresh returns the total fresh-cache hits.
func (s *ResolutionStats) Fresh() int64 {
	return atomic.LoadInt64(&s.fresh)
}

// Stale returns the total stale lookups.
func (s *ResolutionStats) Stale() int64 {
	return atomic.LoadInt64(&s.stale)
}

// Misses returns the total cache misses.
func (s *ResolutionStats) Misses() int64 {
	return atomic.LoadInt64(&s.misses)
}

// Refreshed returns the total externally refreshed records.
func (s *ResolutionStats) Refreshed() int64 {
	return atomic.LoadInt64(&s.refreshed)
}

// WriteFailures returns the total failed cache writes.
func (s *ResolutionStats) WriteFailures() int64 {
	return atomic.LoadInt64(&s.writeFailures)
}

// Reset resets all counters to zero.
func (s *ResolutionStats) Reset() {
	atomic.StoreInt64(&s.fresh, 0)
	atomic.StoreInt64(&s.stale, 0)
	atomic.StoreInt64(&s.misses, 0)
	atomic.StoreInt64(&s.refreshed, 0)
	atomic.StoreInt64(&s.writeFailures, 0)
}

// String returns a human-readable summary of the statistics.
func (s *ResolutionStats) String() string {
	return fmt.Sprintf("fresh=%d stale=%d misses=%d refreshed=%d write_failures=%d",
		s.Fresh(), s.Stale(), s.Misses(), s.Refreshed(), s.WriteFailures())
}

// LogSummary logs a summary of resolution statistics at INFO level.
// Useful for periodic reporting.
func (s *ResolutionStats) LogSummary(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("volume resolution summary",
		"fresh", s.Fresh(),
		"stale", s.Stale(),
		"misses", s.Misses(),
		"refreshed", s.Refreshed(),
		"write_failures", s.WriteFailures(),
	)
}
