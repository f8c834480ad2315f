package search

import (
	"math"
	"strings"
)

// BM25 parameters (standard values)
const (
	DefaultK1 = 1.5  // Term frequency saturation
	DefaultB  = 0.75 // Length normalization
)

// BM25Scorer scores a document against query terms with Okapi BM25.
//
// IDF is the unbounded Robertson-Sparck-Jones form, so a term present in more than half of the
// corpus contributes negatively. Only the final sum is floored at zero.
type BM25Scorer struct {
	K1 float64
	B  float64
}

// NewBM25Scorer creates a scorer with the standard parameters.
func NewBM25Scorer() BM25Scorer {
	return BM25Scorer{K1: DefaultK1, B: DefaultB}
}

// Score returns the BM25 score of text for queryTerms under stats. The result is never negative.
func (s BM25Scorer) Score(queryTerms []string, text string, stats CorpusStats) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	docLength := float64(len(tokens))
	termFreqs := TermFrequency(tokens)

	avgDocLength := stats.AverageDocumentLength
	if avgDocLength <= 0 {
		avgDocLength = DefaultAverageDocumentLength
	}
	totalDocs := float64(stats.DocumentCount)

	score := 0.0
	for _, term := range queryTerms {
		tf := float64(termFreqs[strings.ToLower(term)])
		if tf == 0 {
			continue
		}

		// Unseen terms count as appearing in one document
		df := 1.0
		if n, ok := stats.DocumentFrequency[strings.ToLower(term)]; ok {
			df = float64(n)
		}

		// IDF calculation: ln((N - df + 0.5) / (df + 0.5))
		idf := math.Log((totalDocs - df + 0.5) / (df + 0.5))
		if math.IsNaN(idf) || math.IsInf(idf, 0) {
			// Statistics from a different candidate set can report df > N
			continue
		}

		// TF normalization with length penalty
		numerator := tf * (s.K1 + 1)
		denominator := tf + s.K1*(1-s.B+s.B*(docLength/avgDocLength))

		score += idf * numerator / denominator
	}

	return math.Max(0, score)
}
