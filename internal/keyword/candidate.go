package keyword

// Source tags describing where a candidate's commercial metrics came from.
const (
	// SourceAPIOK marks metrics backed by a genuine non-zero external signal.
	SourceAPIOK = "api_ok"
	// SourceFallback marks all-zero or synthesized metrics.
	SourceFallback = "fallback"
)

// RankNotApplicable is the sentinel rank recorded when a candidate is kept by
// the soft gate despite failing the commercial test; rank verification is
// skipped for it, which is distinct from "looked up and not found" (nil).
const RankNotApplicable = -1

// Candidate is a single keyword phrase (unigram or bigram) derived from a
// title, together with its enrichment and scoring metadata. Candidates are
// created and owned by one pipeline run and never shared across runs.
type Candidate struct {
	Text          string
	NormalizedKey string
	Tokens        []string
	IsCompound    bool

	// Position is the index of the originating token in the title; bigrams
	// inherit the position of their non-base token.
	Position int
	// Length is the phrase length in runes, whitespace excluded.
	Length int

	// Enrichment, populated by the volume resolver.
	Volume           int64
	CompetitionScore float64
	AdDepth          int
	CPC              int64
	Source           string
	AdEligible       bool

	// Scoring, populated by the commercial scorer.
	AdScore    float64
	TotalScore float64

	// Gate outcome.
	Eligible   bool
	SkipReason string

	// Rank is the live search position, nil until verified or when the
	// lookup found nothing / failed.
	Rank *int
}

// NewUnigram builds a single-token candidate.
func NewUnigram(tok Token) *Candidate {
	return &Candidate{
		Text:          tok.Text,
		NormalizedKey: NormalizeKey(tok.Text),
		Tokens:        []string{tok.Text},
		IsCompound:    false,
		Position:      tok.Position,
		Length:        runeLen(tok.Text),
	}
}

// NewBigram builds a compound candidate "<base> <other>". The bigram inherits
// the other token's title position for tie-breaking.
func NewBigram(base string, other Token) *Candidate {
	text := base + " " + other.Text
	return &Candidate{
		Text:          text,
		NormalizedKey: NormalizeKey(text),
		Tokens:        []string{base, other.Text},
		IsCompound:    true,
		Position:      other.Position,
		Length:        runeLen(base) + runeLen(other.Text),
	}
}

// NewSeedCandidate wraps a seed keyword as an emergency unigram used when
// extraction yields nothing. Volume stays unset.
func NewSeedCandidate(seed string) *Candidate {
	return &Candidate{
		Text:          seed,
		NormalizedKey: NormalizeKey(seed),
		Tokens:        []string{seed},
		IsCompound:    false,
		Position:      0,
		Length:        runeLen(seed),
	}
}

// Dedupe removes candidates whose NormalizedKey was already seen, preserving
// order. First-seen wins.
func Dedupe(candidates []*Candidate) []*Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c.NormalizedKey]; dup {
			continue
		}
		seen[c.NormalizedKey] = struct{}{}
		out = append(out, c)
	}
	return out
}
