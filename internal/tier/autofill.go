package tier

import (
	"sort"

	"github.com/jwkoo/keytier/internal/keyword"
)

// AutoFill pads the tier list to target from the remaining eligible pool,
// highest TotalScore first, skipping candidates already used. It stops at
// the target count or pool exhaustion, whichever comes first, and never
// fabricates candidates. Returns the padded list and the number of tiers
// added; numbering stays contiguous.
func AutoFill(tiers []Tier, pool []*keyword.Candidate, target int) ([]Tier, int) {
	if len(tiers) >= target {
		return tiers, 0
	}

	used := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		used[t.Candidate.NormalizedKey] = struct{}{}
	}

	remaining := make([]*keyword.Candidate, 0, len(pool))
	for _, c := range pool {
		if !c.Eligible {
			continue
		}
		if _, ok := used[c.NormalizedKey]; ok {
			continue
		}
		remaining = append(remaining, c)
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		if remaining[i].TotalScore != remaining[j].TotalScore {
			return remaining[i].TotalScore > remaining[j].TotalScore
		}
		return remaining[i].Text < remaining[j].Text
	})

	added := 0
	for _, c := range remaining {
		if len(tiers) >= target {
			break
		}
		used[c.NormalizedKey] = struct{}{}
		tiers = append(tiers, Tier{TierNumber: len(tiers) + 1, Candidate: c, Score: c.TotalScore})
		added++
	}
	return tiers, added
}
