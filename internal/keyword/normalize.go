// Package keyword provides title tokenization and candidate construction for
// the keyword tiering pipeline.
package keyword

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey converts a keyword phrase into its canonical cache key.
// The key is a pure function of the input: NFKC-normalized, case-folded,
// with whitespace and punctuation stripped. Normalization is idempotent,
// so NormalizeKey(NormalizeKey(s)) == NormalizeKey(s) for all s.
func NormalizeKey(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cleanTitle replaces every rune outside {letters, digits, whitespace} with a
// space so that punctuation acts as a token boundary rather than glue.
func cleanTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, title)
}

// isPureNumeric reports whether every rune in the token is a digit.
func isPureNumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// runeLen returns the length of s in runes, not bytes. Korean tokens are
// multi-byte, so byte length would over-count.
func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
