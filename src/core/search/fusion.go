package search

import (
	"fmt"
	"math"
	"sort"
)

const (
	// DefaultRRFConstant is the standard k of Reciprocal Rank Fusion.
	DefaultRRFConstant = 60.0

	// bm25NormalizationScale maps raw BM25 onto [0, 1] for weighted blending: min(1, score/10).
	bm25NormalizationScale = 10.0

	weightSumTolerance = 1e-9
)

// Weights are the blend factors of weighted fusion.
type Weights struct {
	Semantic float64
	Keyword  float64
}

// DefaultWeights is the legacy 70/30 split.
var DefaultWeights = Weights{Semantic: 0.7, Keyword: 0.3}

// Validate reports ErrInvalidWeights unless both weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Keyword < 0 || math.Abs(w.Semantic+w.Keyword-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: got semantic=%g keyword=%g", ErrInvalidWeights, w.Semantic, w.Keyword)
	}
	return nil
}

// fusionEntry accumulates one document's contributions, remembering first-seen order so output is
// deterministic for equal scores.
type fusionEntry struct {
	result FusedResult
	order  int
}

type fusionTable struct {
	entries map[string]*fusionEntry
	next    int
}

func newFusionTable(size int) *fusionTable {
	return &fusionTable{entries: make(map[string]*fusionEntry, size)}
}

func (t *fusionTable) get(doc Document) *fusionEntry {
	id := doc.DocumentID()
	entry, ok := t.entries[id]
	if !ok {
		entry = &fusionEntry{result: FusedResult{Document: doc}, order: t.next}
		t.next++
		t.entries[id] = entry
	}
	return entry
}

func (t *fusionTable) ranked(limit int) []FusedResult {
	entries := make([]*fusionEntry, 0, len(t.entries))
	for _, entry := range t.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].result.Score != entries[j].result.Score {
			return entries[i].result.Score > entries[j].result.Score
		}
		return entries[i].order < entries[j].order
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	results := make([]FusedResult, len(entries))
	for i, entry := range entries {
		results[i] = entry.result
	}
	return results
}

// ReciprocalRankFusion merges two ranked lists. An item at 0-based rank r of a list contributes
// 1/(k+r+1); items found in both lists accumulate both contributions. k <= 0 means DefaultRRFConstant,
// limit <= 0 means no truncation.
func ReciprocalRankFusion(semantic, keyword []RankedResult, k float64, limit int) []FusedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	table := newFusionTable(len(semantic) + len(keyword))
	for rank, r := range semantic {
		entry := table.get(r.Document)
		entry.result.Score += 1.0 / (k + float64(rank+1))
		entry.result.SemanticScore = floatPtr(r.Score)
	}
	for rank, r := range keyword {
		entry := table.get(r.Document)
		entry.result.Score += 1.0 / (k + float64(rank+1))
		entry.result.BM25Score = floatPtr(r.Score)
	}

	return table.ranked(limit)
}

// WeightedFusion blends semantic similarity with normalized BM25:
// semantic_weight*similarity + keyword_weight*min(1, bm25/10). A document missing from a list gets 0
// for that component. Weights must pass Validate.
func WeightedFusion(semantic, keyword []RankedResult, weights Weights, limit int) ([]FusedResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	table := newFusionTable(len(semantic) + len(keyword))
	for _, r := range semantic {
		entry := table.get(r.Document)
		entry.result.SemanticScore = floatPtr(r.Score)
	}
	for _, r := range keyword {
		entry := table.get(r.Document)
		entry.result.BM25Score = floatPtr(r.Score)
	}

	for _, entry := range table.entries {
		var similarity, bm25 float64
		if entry.result.SemanticScore != nil {
			similarity = *entry.result.SemanticScore
		}
		if entry.result.BM25Score != nil {
			bm25 = NormalizeBM25(*entry.result.BM25Score)
		}
		entry.result.Score = weights.Semantic*similarity + weights.Keyword*bm25
	}

	return table.ranked(limit), nil
}

// NormalizeBM25 maps a BM25 score onto [0, 1] with a fixed scale.
func NormalizeBM25(score float64) float64 {
	return math.Min(1.0, score/bm25NormalizationScale)
}

func floatPtr(v float64) *float64 {
	return &v
}
