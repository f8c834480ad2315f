package embedding

import (
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultMaxChars = 8000
	TruncatedMarker = "\n...[truncated]"
)

// clip shortens text to at most maxChars runes, marker included. The cut lands on the last
// paragraph, line or word boundary the splitter finds before the limit.
func clip(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	budget := maxChars - utf8.RuneCountInString(TruncatedMarker)
	if budget <= 0 {
		return truncateRunes(text, maxChars)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(budget),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	head := ""
	if chunks, err := splitter.SplitText(text); err == nil && len(chunks) > 0 {
		head = chunks[0]
	}
	if head == "" || utf8.RuneCountInString(head) > budget {
		head = truncateRunes(text, budget)
	}

	return head + TruncatedMarker
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
