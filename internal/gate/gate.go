// Package gate implements the commercial eligibility filter applied to
// enriched, scored candidates before tier selection.
package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jwkoo/keytier/internal/algoconfig"
	"github.com/jwkoo/keytier/internal/keyword"
)

// Skip reasons recorded on gated candidates.
const (
	ReasonBannedConnective = "banned_connective"
	ReasonNumericOnly      = "numeric_only"
	ReasonNoAdSignal       = "no_ad_signal"
	ReasonLowVolume        = "low_volume"
	ReasonLowScore         = "low_score"
	ReasonSoftKept         = "soft_kept"
	ReasonGateFailed       = "gate_failed"
)

// bannedConnectives hard-reject a candidate regardless of gate mode; these
// are comparison/conjunction fragments that leak in from list-style titles.
var bannedConnectives = []string{"vs", "그리고", "또는", "하지만", "및"}

// ErrNilCandidate is returned when evaluation receives a nil candidate.
var ErrNilCandidate = errors.New("cannot evaluate nil candidate")

// Eligibility is an explicit evaluation outcome. Callers match on the
// returned (Eligibility, error) pair rather than a bare boolean, so an
// evaluation failure is a visible fail-open decision at the call site
// instead of a silently flipped flag.
type Eligibility struct {
	Eligible   bool
	SkipReason string
}

// Evaluator applies the gate rules under one configuration.
type Evaluator struct {
	cfg    algoconfig.GateConfig
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator for the given gate configuration.
func NewEvaluator(cfg algoconfig.GateConfig, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{cfg: cfg, logger: logger}
}

// Evaluate applies the gate rules to one candidate:
//   - hard rejects (banned connective, purely numeric) regardless of mode;
//   - the commercial test: eligible iff the record came from a genuine
//     external signal (api_ok) with nonzero ad depth.
//
// MinVolume and MinScore are advisory: they only refine the skip reason,
// since low-volume or low-score keywords with real ad signal are still
// sellable.
func (e *Evaluator) Evaluate(c *keyword.Candidate) (Eligibility, error) {
	if c == nil {
		return Eligibility{}, ErrNilCandidate
	}
	if e.cfg.Mode != algoconfig.GateModeHard && e.cfg.Mode != algoconfig.GateModeSoft {
		return Eligibility{}, fmt.Errorf("unknown gate mode %q", e.cfg.Mode)
	}

	if isBannedConnective(c.Text) {
		return Eligibility{Eligible: false, SkipReason: ReasonBannedConnective}, nil
	}
	if isNumericOnly(c.Text) {
		return Eligibility{Eligible: false, SkipReason: ReasonNumericOnly}, nil
	}

	if c.Source != keyword.SourceAPIOK || !c.AdEligible {
		return Eligibility{Eligible: false, SkipReason: ReasonNoAdSignal}, nil
	}
	if c.Volume < e.cfg.MinVolume {
		return Eligibility{Eligible: true, SkipReason: ReasonLowVolume}, nil
	}
	if c.TotalScore < e.cfg.MinScore {
		return Eligibility{Eligible: true, SkipReason: ReasonLowScore}, nil
	}
	return Eligibility{Eligible: true}, nil
}

// Apply evaluates the whole pool and returns the surviving candidates.
//
// In hard mode ineligible candidates are dropped. In soft mode, if the
// commercial test would eliminate every candidate, the single highest
// TotalScore candidate is kept with its rank forced to the not-applicable
// sentinel, so the pipeline never returns zero tiers when at least one
// candidate was generated.
//
// An evaluation error fails open: the candidate stays eligible with
// SkipReason set to gate_failed.
func (e *Evaluator) Apply(candidates []*keyword.Candidate) []*keyword.Candidate {
	var kept []*keyword.Candidate
	var hardRejected int

	for _, c := range candidates {
		elig, err := e.Evaluate(c)
		if err != nil {
			// Fail open: an internal gate error must not silently drop a
			// candidate.
			e.logger.Warn("gate evaluation failed, keeping candidate",
				"candidate", c.Text, "error", err)
			c.Eligible = true
			c.SkipReason = ReasonGateFailed
			kept = append(kept, c)
			continue
		}

		c.Eligible = elig.Eligible
		c.SkipReason = elig.SkipReason

		switch {
		case elig.Eligible:
			kept = append(kept, c)
		case elig.SkipReason == ReasonBannedConnective || elig.SkipReason == ReasonNumericOnly:
			// Hard rejects never survive, in either mode.
			hardRejected++
		case e.cfg.Mode == algoconfig.GateModeSoft:
			// Commercially ineligible but a soft-mode rescue candidate.
		}
	}

	if len(kept) > 0 || e.cfg.Mode != algoconfig.GateModeSoft {
		return kept
	}

	// Soft rescue: keep the single best-scoring non-hard-rejected candidate.
	var best *keyword.Candidate
	for _, c := range candidates {
		if c.SkipReason == ReasonBannedConnective || c.SkipReason == ReasonNumericOnly {
			continue
		}
		if best == nil || c.TotalScore > best.TotalScore {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	na := keyword.RankNotApplicable
	best.Eligible = true
	best.SkipReason = ReasonSoftKept
	best.Rank = &na
	e.logger.Info("soft gate kept best candidate despite missing ad signal",
		"candidate", best.Text, "score", best.TotalScore)
	return []*keyword.Candidate{best}
}

func isBannedConnective(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, banned := range bannedConnectives {
		if lowered == banned {
			return true
		}
	}
	return false
}

func isNumericOnly(text string) bool {
	seen := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
		seen = true
	}
	return seen
}
