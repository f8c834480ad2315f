// Package search implements hybrid backlog search combining embedding similarity and BM25 keyword
// ranking.
//
// The package provides three search modes:
//   - Hybrid: semantic + BM25, merged with Reciprocal Rank Fusion or weighted blending (default RRF)
//   - Semantic: cosine similarity between the query embedding and stored document embeddings
//   - Keyword: BM25 over the candidate set
//
// # Candidates
//
// The package never queries storage. Callers hand it a CandidateSet of materialized documents;
// corpus statistics for BM25 are recomputed from the keyword candidates on every call, so IDF values
// depend on which candidates were fetched.
//
// # Reciprocal Rank Fusion
//
//	For each list L, for each document d at 0-based rank r in L:
//	    rrf_score[d] += 1 / (k + r + 1)
//
//	Sort by rrf_score descending, equal scores keep first-seen order.
//
// Where k = 60 by default. A document missing from a list simply gets no contribution from it.
//
// # Weighted fusion
//
//	score(d) = w_semantic * similarity(d) + w_keyword * min(1, bm25(d) / 10)
//
// Weights must sum to 1.0; anything else is rejected with ErrInvalidWeights.
//
// # Degradation
//
// When the query cannot be embedded (provider down, timeout, empty query) the semantic list is empty
// and hybrid results reduce to the keyword ranking.
package search
