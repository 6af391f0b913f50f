package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenSet is an unordered set of normalized tokens or phrases.
type TokenSet map[string]struct{}

// Has reports whether s is in the set.
func (ts TokenSet) Has(s string) bool {
	_, ok := ts[s]
	return ok
}

// IntersectionSize returns the number of elements present in both sets.
func (ts TokenSet) IntersectionSize(other TokenSet) int {
	small, large := ts, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for s := range small {
		if large.Has(s) {
			n++
		}
	}
	return n
}

// Markdown and quote decorations removed before splitting.
var decorationReplacer = strings.NewReplacer(
	"**", "",
	"“", "",
	"”", "",
	"‘", "",
	"’", "",
	`"`, "",
	"'", "",
)

const trimPunctuation = ".,;:?!"

// Tokenize normalizes text into a set of word tokens.
//
// Text is lowercased, stripped of bold markers and quote characters, and split
// on whitespace and parentheses. Leading and trailing .,;:?! are trimmed from
// each word. Empty words, single characters and pure numerals are dropped.
func Tokenize(text string) TokenSet {
	cleaned := decorationReplacer.Replace(strings.ToLower(text))
	words := strings.FieldsFunc(cleaned, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == ')'
	})

	tokens := make(TokenSet, len(words))
	for _, word := range words {
		word = strings.Trim(word, trimPunctuation)
		if utf8.RuneCountInString(word) <= 1 || isNumeric(word) {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

// KeyTerms returns the question's case-folded words longer than three characters.
// Words are split on whitespace only and repeated words are kept.
func KeyTerms(question string) []string {
	words := strings.Fields(strings.ToLower(question))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) > 3 {
			terms = append(terms, word)
		}
	}
	return terms
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return word != ""
}
