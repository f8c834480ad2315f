package search

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// CandidateSet holds the already-materialized documents each signal may rank. Selecting them
// (project scope, prefiltering) is the caller's job.
type CandidateSet struct {
	Semantic []Document
	Keyword  []Document
}

// Uniform uses the same documents for both signals.
func Uniform(docs []Document) CandidateSet {
	return CandidateSet{Semantic: docs, Keyword: docs}
}

// Request contains parameters for a search operation
type Request struct {
	Query      string
	Candidates CandidateSet
	Limit      int
	Mode       Mode
	Fusion     FusionMode
	// SimilarityThreshold is the minimum cosine similarity of a semantic hit.
	SimilarityThreshold float64
	// Weights are only read in weighted fusion.
	Weights Weights
	// RRFConstant is the k of Reciprocal Rank Fusion (default 60).
	RRFConstant float64
	// Embedding picks the stored vector to compare; nil means DefaultEmbedding.
	Embedding EmbeddingFunc
}

// Response contains search results and metadata
type Response struct {
	Results      []FusedResult
	Mode         Mode
	Fusion       FusionMode
	SemanticHits int
	KeywordHits  int
	Duration     time.Duration
}

// HybridSearcher coordinates semantic and keyword search and fuses their rankings.
type HybridSearcher struct {
	semantic *SemanticSearcher
	keyword  *KeywordSearcher
	logger   logr.Logger
}

// NewHybridSearcher creates a HybridSearcher.
func NewHybridSearcher(semantic *SemanticSearcher, keyword *KeywordSearcher, logger logr.Logger) *HybridSearcher {
	return &HybridSearcher{
		semantic: semantic,
		keyword:  keyword,
		logger:   logger,
	}
}

// Search validates req, runs the sub-searches its mode needs concurrently, each over-fetching
// 2*Limit, and fuses them into at most Limit results. Embedding failures only shrink the semantic
// list; the only errors returned are input errors.
func (h *HybridSearcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := h.validateRequest(&req); err != nil {
		return nil, err
	}

	resp := &Response{
		Results: []FusedResult{},
		Mode:    req.Mode,
		Fusion:  req.Fusion,
	}
	if req.Limit <= 0 {
		resp.Duration = time.Since(startTime)
		return resp, nil
	}

	fetch := req.Limit * 2
	var semanticResults, keywordResults []RankedResult

	g, gctx := errgroup.WithContext(ctx)
	if req.Mode != ModeKeyword {
		g.Go(func() error {
			semanticResults = h.semantic.Search(gctx, SemanticQuery{
				Query:      req.Query,
				Candidates: req.Candidates.Semantic,
				Threshold:  req.SimilarityThreshold,
				Limit:      fetch,
				Embedding:  req.Embedding,
			})
			return nil
		})
	}
	if req.Mode != ModeSemantic {
		g.Go(func() error {
			keywordResults = h.keyword.Search(req.Query, req.Candidates.Keyword, fetch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp.SemanticHits = len(semanticResults)
	resp.KeywordHits = len(keywordResults)

	switch {
	case req.Mode == ModeSemantic:
		resp.Results = single(semanticResults, true, req.Limit)
	case req.Mode == ModeKeyword:
		resp.Results = single(keywordResults, false, req.Limit)
	case req.Fusion == FusionWeighted:
		fused, err := WeightedFusion(semanticResults, keywordResults, req.Weights, req.Limit)
		if err != nil {
			return nil, err
		}
		resp.Results = fused
	default:
		resp.Results = ReciprocalRankFusion(semanticResults, keywordResults, req.RRFConstant, req.Limit)
	}

	resp.Duration = time.Since(startTime)
	h.logger.V(1).Info("search completed",
		"mode", resp.Mode,
		"fusion", resp.Fusion,
		"semanticHits", resp.SemanticHits,
		"keywordHits", resp.KeywordHits,
		"results", len(resp.Results),
		"duration", resp.Duration)

	return resp, nil
}

// validateRequest rejects malformed modes and weights and fills defaults.
func (h *HybridSearcher) validateRequest(req *Request) error {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return err
	}
	req.Mode = mode

	fusion, err := ParseFusionMode(string(req.Fusion))
	if err != nil {
		return err
	}
	req.Fusion = fusion

	if req.Mode == ModeHybrid && req.Fusion == FusionWeighted {
		if err := req.Weights.Validate(); err != nil {
			return err
		}
	}

	if req.RRFConstant <= 0 {
		req.RRFConstant = DefaultRRFConstant
	}

	return nil
}

// single converts one ranked list into fused results without re-scoring.
func single(results []RankedResult, semantic bool, limit int) []FusedResult {
	if len(results) > limit {
		results = results[:limit]
	}
	fused := make([]FusedResult, len(results))
	for i, r := range results {
		fused[i] = FusedResult{Document: r.Document, Score: r.Score}
		if semantic {
			fused[i].SemanticScore = floatPtr(r.Score)
		} else {
			fused[i].BM25Score = floatPtr(r.Score)
		}
	}
	return fused
}
