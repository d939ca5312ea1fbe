package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jwkoo/keytier/internal/volume"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepOnce_DeletesStaleRecords(t *testing.T) {
	store := volume.NewInMemoryStore()
	now := time.Now()
	store.Seed(&volume.CacheRecord{Text: "홍삼스틱", Volume: 5000, UpdatedAt: now.Add(-40 * 24 * time.Hour)})
	store.Seed(&volume.CacheRecord{Text: "오메가3", Volume: 3200, UpdatedAt: now})

	sweeper := NewSweeper(store, 30*24*time.Hour, 0, NewMetrics(), testLogger())

	deleted, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 record deleted, got %d", deleted)
	}
}

func TestSweepOnce_NothingStale(t *testing.T) {
	store := volume.NewInMemoryStore()
	store.Seed(&volume.CacheRecord{Text: "유산균", Volume: 100, UpdatedAt: time.Now()})

	sweeper := NewSweeper(store, 30*24*time.Hour, 0, nil, testLogger())

	deleted, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected no deletions, got %d", deleted)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := volume.NewInMemoryStore()
	m := NewMetrics()
	sweeper := NewSweeper(store, 30*24*time.Hour, time.Hour, m, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}

	// The initial sweep fired before the cancel took effect.
	if got := counterValue(t, m.jobsTotal, JobTypeCacheSweep, StatusSuccess); got != 1 {
		t.Errorf("expected 1 sweep, got %v", got)
	}
}
