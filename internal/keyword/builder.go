package keyword

// BuildUnigrams converts surviving title tokens into unigram candidates,
// deduplicated by normalized key.
func BuildUnigrams(tokens []Token) []*Candidate {
	candidates := make([]*Candidate, 0, len(tokens))
	for _, tok := range tokens {
		candidates = append(candidates, NewUnigram(tok))
	}
	return Dedupe(candidates)
}

// BuildBigrams builds "<base> <token>" compounds pairwise against the
// selected tier-1 base only. Pairing against the base rather than the full
// cross-product keeps the candidate count linear in the token count.
// Tokens whose text equals the base are skipped, as are bigrams that
// normalize to an already-seen key.
func BuildBigrams(base string, tokens []Token) []*Candidate {
	baseKey := NormalizeKey(base)
	bigrams := make([]*Candidate, 0, len(tokens))
	for _, tok := range tokens {
		if NormalizeKey(tok.Text) == baseKey {
			continue
		}
		bigrams = append(bigrams, NewBigram(base, tok))
	}
	return Dedupe(bigrams)
}
