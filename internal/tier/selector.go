package tier

import (
	"sort"
	"strings"

	"github.com/jwkoo/keytier/internal/keyword"
)

// reservedTerm is the fixed high-commercial-value token reserved for bigram
// prioritization. It never becomes tier 1 on its own.
const reservedTerm = "맛집"

// Selector performs deterministic tier selection. No randomness: equal
// inputs always produce equal tiers.
type Selector struct {
	tiersPerPost int
}

// NewSelector creates a Selector producing at most tiersPerPost tiers.
func NewSelector(tiersPerPost int) *Selector {
	if tiersPerPost < 1 {
		tiersPerPost = 1
	}
	return &Selector{tiersPerPost: tiersPerPost}
}

// SelectBase picks the tier-1 candidate among unigrams: the highest volume
// wins, ties broken by longer token length, then by earlier position in the
// title. Place-name tokens and the reserved term are excluded; they only
// add value inside bigrams. Returns nil when no unigram qualifies.
func (s *Selector) SelectBase(unigrams []*keyword.Candidate) *keyword.Candidate {
	var best *keyword.Candidate
	for _, c := range unigrams {
		if c.IsCompound {
			continue
		}
		if c.Text == reservedTerm || keyword.IsPlaceName(c.Text) {
			continue
		}
		if best == nil || baseLess(best, c) {
			best = c
		}
	}
	return best
}

// baseLess reports whether challenger should replace current as tier 1.
func baseLess(current, challenger *keyword.Candidate) bool {
	if challenger.Volume != current.Volume {
		return challenger.Volume > current.Volume
	}
	if challenger.Length != current.Length {
		return challenger.Length > current.Length
	}
	return challenger.Position < current.Position
}

// OrderBigrams sorts bigrams into selection priority:
//  1. contains the reserved term,
//  2. contains a place name,
//  3. descending combined score of the constituent tokens,
//
// with lexicographic text order as the final tie-break. tokenScores maps a
// token's text to its unigram TotalScore; absent tokens count as zero.
func OrderBigrams(bigrams []*keyword.Candidate, tokenScores map[string]float64) {
	sort.SliceStable(bigrams, func(i, j int) bool {
		bi, bj := bigrams[i], bigrams[j]

		ri, rj := containsReserved(bi), containsReserved(bj)
		if ri != rj {
			return ri
		}
		pi, pj := keyword.ContainsPlaceName(bi.Text), keyword.ContainsPlaceName(bj.Text)
		if pi != pj {
			return pi
		}
		si, sj := combinedScore(bi, tokenScores), combinedScore(bj, tokenScores)
		if si != sj {
			return si > sj
		}
		return bi.Text < bj.Text
	})
}

// Select assembles the tier list: tier 1 from the base unigram, tiers 2..k
// from the ordered bigrams. Tier numbers come out contiguous from 1.
func (s *Selector) Select(base *keyword.Candidate, bigrams []*keyword.Candidate,
	tokenScores map[string]float64) []Tier {
	if base == nil {
		return nil
	}

	tiers := []Tier{{TierNumber: 1, Candidate: base, Score: base.TotalScore}}

	ordered := append([]*keyword.Candidate(nil), bigrams...)
	OrderBigrams(ordered, tokenScores)

	seen := map[string]struct{}{base.NormalizedKey: {}}
	for _, c := range ordered {
		if len(tiers) >= s.tiersPerPost {
			break
		}
		if _, dup := seen[c.NormalizedKey]; dup {
			continue
		}
		seen[c.NormalizedKey] = struct{}{}
		tiers = append(tiers, Tier{TierNumber: len(tiers) + 1, Candidate: c, Score: c.TotalScore})
	}
	return tiers
}

func containsReserved(c *keyword.Candidate) bool {
	return strings.Contains(c.Text, reservedTerm)
}

func combinedScore(c *keyword.Candidate, tokenScores map[string]float64) float64 {
	total := 0.0
	for _, tok := range c.Tokens {
		total += tokenScores[tok]
	}
	return total
}
