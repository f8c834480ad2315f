package search

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// SemanticSearcher ranks candidates by cosine similarity between their stored embedding and the
// query embedding.
type SemanticSearcher struct {
	embedder Embedder
	timeout  time.Duration
	logger   logr.Logger
}

// SemanticOption configures a SemanticSearcher.
type SemanticOption func(*SemanticSearcher)

// WithEmbedTimeout bounds how long a query embedding may take. Zero disables the bound.
func WithEmbedTimeout(d time.Duration) SemanticOption {
	return func(s *SemanticSearcher) {
		s.timeout = d
	}
}

// WithSemanticLogger sets the logger.
func WithSemanticLogger(l logr.Logger) SemanticOption {
	return func(s *SemanticSearcher) {
		s.logger = l
	}
}

// NewSemanticSearcher creates a SemanticSearcher. embedder may be nil, in which case every search
// returns no results.
func NewSemanticSearcher(embedder Embedder, opts ...SemanticOption) *SemanticSearcher {
	s := &SemanticSearcher{
		embedder: embedder,
		logger:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SemanticQuery holds the parameters of a semantic search.
type SemanticQuery struct {
	Query      string
	Candidates []Document
	Threshold  float64
	Limit      int
	// Embedding picks the stored vector to compare; nil means DefaultEmbedding.
	Embedding EmbeddingFunc
}

// Search embeds the query and returns candidates with similarity >= Threshold, best first, at most
// Limit of them. Candidates without an embedding are skipped, not scored as zero. When the query
// cannot be embedded the result is empty.
func (s *SemanticSearcher) Search(ctx context.Context, q SemanticQuery) []RankedResult {
	if len(q.Candidates) == 0 || q.Limit <= 0 {
		return []RankedResult{}
	}

	queryVec := s.embedQuery(ctx, q.Query)
	if queryVec == nil {
		s.logger.V(1).Info("query embedding unavailable, semantic search contributes nothing")
		return []RankedResult{}
	}

	embeddingOf := q.Embedding
	if embeddingOf == nil {
		embeddingOf = DefaultEmbedding
	}

	results := make([]RankedResult, 0, len(q.Candidates))
	for _, doc := range q.Candidates {
		docVec := embeddingOf(doc)
		if len(docVec) == 0 {
			continue
		}
		similarity, ok := CosineSimilarity(queryVec, docVec)
		if !ok || similarity < q.Threshold {
			continue
		}
		results = append(results, RankedResult{Document: doc, Score: similarity})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}

	return results
}

func (s *SemanticSearcher) embedQuery(ctx context.Context, query string) []float32 {
	if s.embedder == nil {
		return nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan []float32, 1)
	go func() {
		done <- s.embedder.Embed(ctx, query)
	}()

	select {
	case vec := <-done:
		return vec
	case <-ctx.Done():
		s.logger.Info("query embedding timed out", "err", ctx.Err())
		return nil
	}
}

// CosineSimilarity returns 1 - cosine distance of a and b. ok is false when the vectors differ in
// length or either has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
