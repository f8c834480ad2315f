package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize lower-cases text and splits it into runs of letters, digits and underscores.
// Tokens shorter than two characters are dropped.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	tokens := []string{}
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = appendToken(tokens, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = appendToken(tokens, text[start:])
	}

	return tokens
}

// TermFrequency counts occurrences of each token.
func TermFrequency(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freqs[token]++
	}
	return freqs
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func appendToken(tokens []string, token string) []string {
	if utf8.RuneCountInString(token) <= 1 {
		return tokens
	}
	return append(tokens, token)
}
