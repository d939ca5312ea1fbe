package keyword

import (
	"sort"
	"strings"
)

// DefaultMaxTokens is the cap on candidate tokens extracted from one title.
const DefaultMaxTokens = 6

// MinTokenLength is the minimum token length in runes after particle stripping.
const MinTokenLength = 2

// particleSuffixes are trailing Korean grammatical particles stripped from
// tokens before filtering. Ordered longest-first at init so a single
// longest-match pass is enough.
var particleSuffixes = []string{
	"은", "는", "이", "가", "을", "를", "의", "와", "과",
	"도", "만", "에", "에서", "으로", "로", "까지", "부터",
	"처럼", "보다", "에게", "한테",
}

// bannedSingles are generic blog-title fillers that carry no search value on
// their own. They are excluded from unigram candidates but may still appear
// inside compound tokens.
var bannedSingles = map[string]struct{}{
	"맛집":   {},
	"추천":   {},
	"후기":   {},
	"리뷰":   {},
	"내돈내산": {},
	"솔직후기": {},
	"가격":   {},
	"효능":   {},
	"비교":   {},
	"정리":   {},
	"방법":   {},
	"이유":   {},
}

// placeSuffixes are Korean administrative-division endings that mark a token
// as a place name (서울시, 강남구, 판교역, ...).
var placeSuffixes = []string{"시", "군", "구", "동", "읍", "면", "리", "역"}

// metroNames are well-known region and district names matched exactly.
var metroNames = map[string]struct{}{
	"서울": {}, "부산": {}, "대구": {}, "인천": {}, "광주": {},
	"대전": {}, "울산": {}, "강남": {}, "홍대": {}, "잠실": {},
	"판교": {}, "분당": {}, "일산": {}, "수원": {},
}

func init() {
	sort.Slice(particleSuffixes, func(i, j int) bool {
		return len(particleSuffixes[i]) > len(particleSuffixes[j])
	})
}

// StripParticle removes one trailing grammatical particle from the token,
// longest match first. The particle is only stripped when at least
// MinTokenLength runes would remain, so short standalone words like "이유"
// are not mangled into droppable fragments.
func StripParticle(token string) string {
	for _, p := range particleSuffixes {
		if strings.HasSuffix(token, p) {
			rest := strings.TrimSuffix(token, p)
			if runeLen(rest) >= MinTokenLength {
				return rest
			}
		}
	}
	return token
}

// IsBannedSingle reports whether the token is in the banned standalone list.
func IsBannedSingle(token string) bool {
	_, ok := bannedSingles[token]
	return ok
}

// IsPlaceName reports whether the token is a place name: either a known
// metro/district name, or a token of 3+ runes ending in an administrative
// division suffix.
func IsPlaceName(token string) bool {
	if _, ok := metroNames[token]; ok {
		return true
	}
	for _, suf := range placeSuffixes {
		if strings.HasSuffix(token, suf) && runeLen(strings.TrimSuffix(token, suf)) >= MinTokenLength {
			return true
		}
	}
	return false
}

// ContainsPlaceName reports whether any place name appears inside the text.
// Unlike IsPlaceName this matches embedded region names (e.g. "강남맛집"),
// which is used for bigram prioritization rather than token filtering.
func ContainsPlaceName(text string) bool {
	for name := range metroNames {
		if strings.Contains(text, name) {
			return true
		}
	}
	for _, part := range strings.Fields(text) {
		if IsPlaceName(part) {
			return true
		}
	}
	return false
}

// Token is a surviving title token with its original position.
type Token struct {
	Text     string
	Position int
}

// Extractor converts a raw post title into an ordered, deduplicated token
// list suitable for candidate construction.
type Extractor struct {
	maxTokens int
}

// NewExtractor creates an Extractor. A non-positive maxTokens falls back to
// DefaultMaxTokens.
func NewExtractor(maxTokens int) *Extractor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Extractor{maxTokens: maxTokens}
}

// Extract tokenizes the title and applies the filtering rules:
// punctuation becomes a token boundary, trailing particles are stripped,
// and tokens that are too short, purely numeric, banned standalone words,
// or place names are dropped. Duplicates keep their first occurrence.
// The result is capped at the configured maximum and may be empty; the
// caller is responsible for the seed-keyword fallback.
func (e *Extractor) Extract(title string) []Token {
	fields := strings.Fields(cleanTitle(title))

	var tokens []Token
	seen := make(map[string]struct{}, len(fields))
	for pos, raw := range fields {
		tok := StripParticle(raw)
		if runeLen(tok) < MinTokenLength {
			continue
		}
		if isPureNumeric(tok) {
			continue
		}
		if IsBannedSingle(tok) {
			continue
		}
		if IsPlaceName(tok) {
			continue
		}
		key := NormalizeKey(tok)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tokens = append(tokens, Token{Text: tok, Position: pos})
		if len(tokens) >= e.maxTokens {
			break
		}
	}
	return tokens
}
