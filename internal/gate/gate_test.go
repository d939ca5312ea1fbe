package gate

import (
	"testing"

	"github.com/jwkoo/keytier/internal/algoconfig"
	"github.com/jwkoo/keytier/internal/keyword"
)

func candidate(text string, volume int64, source string, adEligible bool, score float64) *keyword.Candidate {
	return &keyword.Candidate{
		Text:          text,
		NormalizedKey: keyword.NormalizeKey(text),
		Volume:        volume,
		Source:        source,
		AdEligible:    adEligible,
		TotalScore:    score,
	}
}

func hardGate() algoconfig.GateConfig {
	return algoconfig.GateConfig{Mode: algoconfig.GateModeHard, MinScore: 40, MinVolume: 100}
}

func softGate() algoconfig.GateConfig {
	return algoconfig.GateConfig{Mode: algoconfig.GateModeSoft, MinScore: 40, MinVolume: 100}
}

// TestEvaluate tests the per-candidate gate rules.
func TestEvaluate(t *testing.T) {
	e := NewEvaluator(hardGate(), nil)
	tests := []struct {
		name       string
		candidate  *keyword.Candidate
		eligible   bool
		skipReason string
	}{
		{
			name:      "commercially eligible",
			candidate: candidate("홍삼스틱", 5000, keyword.SourceAPIOK, true, 70),
			eligible:  true,
		},
		{
			name:       "banned connective",
			candidate:  candidate("vs", 5000, keyword.SourceAPIOK, true, 70),
			eligible:   false,
			skipReason: ReasonBannedConnective,
		},
		{
			name:       "purely numeric",
			candidate:  candidate("2024", 5000, keyword.SourceAPIOK, true, 70),
			eligible:   false,
			skipReason: ReasonNumericOnly,
		},
		{
			name:       "fallback source fails the commercial test",
			candidate:  candidate("홍삼스틱", 5000, keyword.SourceFallback, true, 70),
			eligible:   false,
			skipReason: ReasonNoAdSignal,
		},
		{
			name:       "no ad depth fails the commercial test",
			candidate:  candidate("홍삼스틱", 5000, keyword.SourceAPIOK, false, 70),
			eligible:   false,
			skipReason: ReasonNoAdSignal,
		},
		{
			name:       "below the volume floor stays eligible",
			candidate:  candidate("홍삼스틱", 50, keyword.SourceAPIOK, true, 70),
			eligible:   true,
			skipReason: ReasonLowVolume,
		},
		{
			name:       "below the score floor stays eligible",
			candidate:  candidate("홍삼스틱", 5000, keyword.SourceAPIOK, true, 30),
			eligible:   true,
			skipReason: ReasonLowScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.candidate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Eligible != tt.eligible {
				t.Errorf("Eligible = %v, want %v", got.Eligible, tt.eligible)
			}
			if got.SkipReason != tt.skipReason {
				t.Errorf("SkipReason = %q, want %q", got.SkipReason, tt.skipReason)
			}
		})
	}
}

// TestApplyHardMode: ineligible candidates are dropped entirely; no
// fallback-source candidate ever survives.
func TestApplyHardMode(t *testing.T) {
	e := NewEvaluator(hardGate(), nil)
	pool := []*keyword.Candidate{
		candidate("홍삼스틱", 5000, keyword.SourceAPIOK, true, 70),
		candidate("비타민", 3000, keyword.SourceFallback, true, 60),
		candidate("유산균", 2000, keyword.SourceAPIOK, false, 50),
	}

	kept := e.Apply(pool)
	if len(kept) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(kept))
	}
	if kept[0].Text != "홍삼스틱" {
		t.Errorf("unexpected survivor %q", kept[0].Text)
	}
	for _, c := range kept {
		if c.Source != keyword.SourceAPIOK {
			t.Errorf("hard mode let through a %q candidate", c.Source)
		}
	}
}

// TestApplyHardModeKeepsLowVolume: the volume floor is advisory, so a
// keyword with a real ad signal survives hard mode at any volume, carrying
// the low_volume reason.
func TestApplyHardModeKeepsLowVolume(t *testing.T) {
	e := NewEvaluator(hardGate(), nil)
	pool := []*keyword.Candidate{
		candidate("홍삼스틱", 50, keyword.SourceAPIOK, true, 70),
	}

	kept := e.Apply(pool)
	if len(kept) != 1 {
		t.Fatalf("expected the low-volume candidate to survive, got %d", len(kept))
	}
	if !kept[0].Eligible || kept[0].SkipReason != ReasonLowVolume {
		t.Errorf("expected eligible with low_volume, got eligible=%v reason=%q",
			kept[0].Eligible, kept[0].SkipReason)
	}
}

// TestApplyHardModeKeepsLowScore: the score floor is advisory in the same
// way as the volume floor.
func TestApplyHardModeKeepsLowScore(t *testing.T) {
	e := NewEvaluator(hardGate(), nil)
	pool := []*keyword.Candidate{
		candidate("유산균", 5000, keyword.SourceAPIOK, true, 25),
	}

	kept := e.Apply(pool)
	if len(kept) != 1 {
		t.Fatalf("expected the low-score candidate to survive, got %d", len(kept))
	}
	if kept[0].SkipReason != ReasonLowScore {
		t.Errorf("SkipReason = %q, want %q", kept[0].SkipReason, ReasonLowScore)
	}
}

// TestApplySoftModeRescue: when the commercial test would eliminate every
// candidate, the best-scoring one is kept with the not-applicable rank.
func TestApplySoftModeRescue(t *testing.T) {
	e := NewEvaluator(softGate(), nil)
	pool := []*keyword.Candidate{
		candidate("비타민", 3000, keyword.SourceFallback, false, 60),
		candidate("유산균", 2000, keyword.SourceFallback, false, 75),
		candidate("오메가3", 1000, keyword.SourceFallback, false, 50),
	}

	kept := e.Apply(pool)
	if len(kept) != 1 {
		t.Fatalf("expected exactly 1 rescued candidate, got %d", len(kept))
	}
	best := kept[0]
	if best.Text != "유산균" {
		t.Errorf("expected the highest-scoring candidate, got %q", best.Text)
	}
	if best.SkipReason != ReasonSoftKept {
		t.Errorf("SkipReason = %q, want %q", best.SkipReason, ReasonSoftKept)
	}
	if best.Rank == nil || *best.Rank != keyword.RankNotApplicable {
		t.Errorf("expected the not-applicable rank sentinel, got %v", best.Rank)
	}
}

// TestApplySoftModeNoRescueNeeded: eligible candidates pass through soft
// mode unchanged, with no rescue.
func TestApplySoftModeNoRescueNeeded(t *testing.T) {
	e := NewEvaluator(softGate(), nil)
	pool := []*keyword.Candidate{
		candidate("홍삼스틱", 5000, keyword.SourceAPIOK, true, 70),
		candidate("비타민", 3000, keyword.SourceFallback, false, 90),
	}

	kept := e.Apply(pool)
	if len(kept) != 1 || kept[0].Text != "홍삼스틱" {
		t.Fatalf("expected only the eligible candidate, got %v", kept)
	}
}

// TestApplySoftModeNeverRescuesHardRejects: banned connectives stay out even
// when they are the only candidates.
func TestApplySoftModeNeverRescuesHardRejects(t *testing.T) {
	e := NewEvaluator(softGate(), nil)
	pool := []*keyword.Candidate{
		candidate("vs", 5000, keyword.SourceAPIOK, true, 99),
		candidate("2024", 1000, keyword.SourceAPIOK, true, 88),
	}

	kept := e.Apply(pool)
	if len(kept) != 0 {
		t.Errorf("expected no survivors, got %v", kept)
	}
}

// TestApplyFailOpen: an evaluation error keeps the candidate with a
// recorded gate_failed reason instead of silently dropping it.
func TestApplyFailOpen(t *testing.T) {
	e := NewEvaluator(algoconfig.GateConfig{Mode: "broken"}, nil)
	pool := []*keyword.Candidate{
		candidate("홍삼스틱", 5000, keyword.SourceAPIOK, true, 70),
	}

	kept := e.Apply(pool)
	if len(kept) != 1 {
		t.Fatalf("expected the candidate to be kept, got %d", len(kept))
	}
	if !kept[0].Eligible || kept[0].SkipReason != ReasonGateFailed {
		t.Errorf("expected fail-open with gate_failed, got eligible=%v reason=%q",
			kept[0].Eligible, kept[0].SkipReason)
	}
}
