package search_test

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"sprintboard/src/core/search"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "drops single characters and punctuation",
			text: "Hello, World! a I",
			want: []string{"hello", "world"},
		},
		{
			name: "keeps underscores and digits",
			text: "fix user_id in v2 API (OAuth2)",
			want: []string{"fix", "user_id", "in", "v2", "api", "oauth2"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "only separators",
			text: "  -- !! ,, ",
			want: []string{},
		},
		{
			name: "repeated tokens kept",
			text: "login LOGIN Login",
			want: []string{"login", "login", "login"},
		},
		{
			name: "unicode letters",
			text: "Über größe é",
			want: []string{"über", "größe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, search.Tokenize(tt.text))
		})
	}
}

func TestTokenize_Properties(t *testing.T) {
	inputs := []string{
		"Implement user login with OAuth",
		"As a PO I want a burndown-chart, so that I can track sprint #12!",
		"\tTabs\nand\r\nnewlines... x y z",
		"snake_case and CamelCase and kebab-case",
	}

	for _, in := range inputs {
		for _, token := range search.Tokenize(in) {
			assert.Equal(t, strings.ToLower(token), token)
			assert.GreaterOrEqual(t, utf8.RuneCountInString(token), 2)
			for _, r := range token {
				assert.False(t, unicode.IsSpace(r), "token %q contains whitespace", token)
				assert.True(t, r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r), "token %q contains %q", token, r)
			}
		}
	}
}

func TestTermFrequency(t *testing.T) {
	freqs := search.TermFrequency([]string{"login", "page", "login"})
	assert.Equal(t, map[string]int{"login": 2, "page": 1}, freqs)
}
