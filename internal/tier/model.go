// Package tier provides tier selection over scored keyword candidates:
// the best unigram becomes tier 1, prioritized bigrams fill the rest, and
// auto-fill pads the list from the remaining eligible pool.
package tier

import (
	"github.com/jwkoo/keytier/internal/keyword"
)

// Tier is one ranked slot in the final output. Tier numbers are contiguous
// starting at 1.
type Tier struct {
	TierNumber int
	Candidate  *keyword.Candidate
	Score      float64
}

// View is the externally visible projection of a tier, as returned to the
// job orchestrator and persisted by the result sink.
type View struct {
	Tier       int     `json:"tier"`
	Text       string  `json:"text"`
	Volume     int64   `json:"volume"`
	Rank       *int    `json:"rank"`
	Score      float64 `json:"score"`
	AdScore    float64 `json:"ad_score"`
	Eligible   bool    `json:"eligible"`
	SkipReason string  `json:"skip_reason,omitempty"`
}

// NewView projects a tier into its view.
func NewView(t Tier) View {
	c := t.Candidate
	return View{
		Tier:       t.TierNumber,
		Text:       c.Text,
		Volume:     c.Volume,
		Rank:       c.Rank,
		Score:      t.Score,
		AdScore:    c.AdScore,
		Eligible:   c.Eligible,
		SkipReason: c.SkipReason,
	}
}
