package algoconfig

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolverFallsBackToDefaults(t *testing.T) {
	store := NewInMemoryStore()
	store.LoadErr = errors.New("store down")

	r := NewResolver(store, time.Minute, nil)
	cfg := r.Get(context.Background())
	if cfg == nil {
		t.Fatal("expected a config, got nil")
	}
	def := Default()
	if cfg.ScoreWeights != def.ScoreWeights {
		t.Errorf("expected default score weights, got %+v", cfg.ScoreWeights)
	}
}

func TestResolverCachesWithinTTL(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Save(context.Background(), KeyPrimary, Default()); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, time.Minute, nil)
	r.Get(context.Background())
	first := store.LoadCount()
	r.Get(context.Background())
	r.Get(context.Background())
	if store.LoadCount() != first {
		t.Errorf("expected no additional loads within TTL, got %d -> %d",
			first, store.LoadCount())
	}
}

func TestResolverReloadsAfterTTL(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Save(context.Background(), KeyPrimary, Default()); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, 30*time.Second, nil)
	now := time.Now()
	r.now = func() time.Time { return now }

	r.Get(context.Background())
	first := store.LoadCount()

	now = now.Add(31 * time.Second)
	r.Get(context.Background())
	if store.LoadCount() <= first {
		t.Error("expected a reload after the TTL expired")
	}
}

func TestResolverInvalidateForcesReload(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Save(context.Background(), KeyPrimary, Default()); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, time.Hour, nil)
	r.Get(context.Background())
	first := store.LoadCount()

	r.Invalidate()
	r.Get(context.Background())
	if store.LoadCount() <= first {
		t.Error("expected Invalidate to force a reload")
	}
}

func TestResolverKeepsLastKnownGood(t *testing.T) {
	store := NewInMemoryStore()
	custom := Default()
	custom.TiersPerPost = 3
	if err := store.Save(context.Background(), KeyPrimary, custom); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, time.Hour, nil)
	got := r.Get(context.Background())
	if got.TiersPerPost != 3 {
		t.Fatalf("expected stored config, got %+v", got)
	}

	// Store goes down; the cached value must survive invalidation.
	store.LoadErr = errors.New("store down")
	r.Invalidate()
	got = r.Get(context.Background())
	if got.TiersPerPost != 3 {
		t.Errorf("expected last known good config, got tiers=%d", got.TiersPerPost)
	}
}

func TestResolverRejectsInvalidStoredConfig(t *testing.T) {
	store := NewInMemoryStore()
	bad := Default()
	bad.ScoreWeights = ScoreWeights{Volume: 0.9, Content: 0.9}
	if err := store.Save(context.Background(), KeyPrimary, bad); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, time.Hour, nil)
	got := r.Get(context.Background())
	if got.ScoreWeights != Default().ScoreWeights {
		t.Errorf("expected defaults for invalid stored config, got %+v", got.ScoreWeights)
	}
}

func TestPickVariant(t *testing.T) {
	tests := []struct {
		name     string
		keyword  string
		canary   CanaryConfig
		draw     float64
		expected Variant
	}{
		{
			name:     "disabled",
			keyword:  "홍삼스틱",
			canary:   CanaryConfig{Enabled: false, Ratio: 1.0},
			draw:     0.0,
			expected: VariantPrimary,
		},
		{
			name:     "draw below ratio",
			keyword:  "홍삼스틱",
			canary:   CanaryConfig{Enabled: true, Ratio: 0.5},
			draw:     0.49,
			expected: VariantCanary,
		},
		{
			name:     "draw at ratio",
			keyword:  "홍삼스틱",
			canary:   CanaryConfig{Enabled: true, Ratio: 0.5},
			draw:     0.5,
			expected: VariantPrimary,
		},
		{
			name:     "keyword not in filter",
			keyword:  "비타민",
			canary:   CanaryConfig{Enabled: true, Ratio: 1.0, KeywordFilter: []string{"홍삼스틱"}},
			draw:     0.0,
			expected: VariantPrimary,
		},
		{
			name:     "keyword in filter",
			keyword:  "홍삼스틱",
			canary:   CanaryConfig{Enabled: true, Ratio: 1.0, KeywordFilter: []string{"홍삼스틱"}},
			draw:     0.0,
			expected: VariantCanary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickVariant(tt.keyword, tt.canary, tt.draw)
			if got != tt.expected {
				t.Errorf("PickVariant() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestDrawDeterministic verifies the hash bucket is stable and in [0, 1).
func TestDrawDeterministic(t *testing.T) {
	a := Draw("run-1", "홍삼스틱")
	b := Draw("run-1", "홍삼스틱")
	if a != b {
		t.Errorf("Draw is not deterministic: %f vs %f", a, b)
	}
	if a < 0 || a >= 1 {
		t.Errorf("Draw out of range: %f", a)
	}
	if Draw("run-2", "홍삼스틱") == a && Draw("run-3", "홍삼스틱") == a {
		t.Error("distinct runs should not all share one bucket")
	}
}

func TestValidate(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Fatalf("default config must validate, got %v", errs)
	}

	bad := Default()
	bad.Gate.Mode = "loose"
	bad.TiersPerPost = 9
	bad.Canary.Ratio = 1.5
	errs := bad.Validate()
	if len(errs) != 3 {
		t.Errorf("expected 3 validation errors, got %d: %v", len(errs), errs)
	}
}
