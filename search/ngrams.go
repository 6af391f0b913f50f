package search

import "strings"

// NGrams returns the set of contiguous n-word phrases in text.
// Words are lowercased and split on whitespace; punctuation is kept.
// Text with fewer than n words yields an empty set.
func NGrams(text string, n int) TokenSet {
	if n < 1 {
		return TokenSet{}
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) < n {
		return TokenSet{}
	}

	grams := make(TokenSet, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		grams[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return grams
}
