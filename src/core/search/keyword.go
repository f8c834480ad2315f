package search

import (
	"sort"
)

// KeywordSearcher ranks candidates with BM25, using statistics computed over the candidate set itself.
type KeywordSearcher struct {
	scorer BM25Scorer
}

// NewKeywordSearcher creates a KeywordSearcher with the given scorer.
func NewKeywordSearcher(scorer BM25Scorer) *KeywordSearcher {
	return &KeywordSearcher{scorer: scorer}
}

// Search scores every candidate for query and returns those with a positive score, best first,
// at most limit of them. Equal scores keep candidate order.
func (k *KeywordSearcher) Search(query string, candidates []Document, limit int) []RankedResult {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 || len(candidates) == 0 || limit <= 0 {
		return []RankedResult{}
	}

	stats := ComputeCorpusStats(candidates)

	results := make([]RankedResult, 0, len(candidates))
	for _, doc := range candidates {
		score := k.scorer.Score(queryTerms, doc.SearchableContent(), stats)
		if score <= 0 {
			continue
		}
		results = append(results, RankedResult{Document: doc, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results
}
