package backlog

import (
	"context"
	"fmt"

	"sprintboard/src/core/search"
)

// SearchParams are the caller-facing knobs of a project search.
type SearchParams struct {
	ProjectID int64
	SprintID  *int64
	// BacklogItemID limits task searches to one backlog item.
	BacklogItemID       int64
	Query               string
	Limit               int
	SimilarityThreshold *float64
	Mode                string
	Fusion              string
	// Weights are required for weighted fusion; nil means search.DefaultWeights.
	Weights *search.Weights
}

// SearchBacklog ranks the project's backlog items against the query.
func (s *Service) SearchBacklog(ctx context.Context, params SearchParams) (*search.Response, error) {
	req, err := s.prepare(ctx, params)
	if err != nil {
		return nil, err
	}

	base := CandidateFilter{ProjectID: params.ProjectID, SprintID: params.SprintID}
	req.Candidates, err = gatherCandidates(ctx, s, s.repo.BacklogCandidates, base, req,
		func(b BacklogItem) int64 { return b.ID },
		func(b BacklogItem) search.Document { return b })
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, req)
}

// SearchTasks ranks the project's tasks against the query.
func (s *Service) SearchTasks(ctx context.Context, params SearchParams) (*search.Response, error) {
	req, err := s.prepare(ctx, params)
	if err != nil {
		return nil, err
	}

	base := CandidateFilter{ProjectID: params.ProjectID, BacklogItemID: params.BacklogItemID}
	req.Candidates, err = gatherCandidates(ctx, s, s.repo.TaskCandidates, base, req,
		func(t Task) int64 { return t.ID },
		func(t Task) search.Document { return t })
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, req)
}

// FieldMatch is a documentation page seen through one field: keyword scoring reads only that field's
// text and semantic scoring only that field's vector.
type FieldMatch struct {
	Documentation
	Field search.Field `json:"-"`
}

func (f FieldMatch) SearchableContent() string {
	return f.FieldText(f.Field)
}

// SearchDocumentation ranks the project's documentation by one field.
func (s *Service) SearchDocumentation(ctx context.Context, params SearchParams, field search.Field) (*search.Response, error) {
	if _, err := search.ParseField(field.String()); err != nil {
		return nil, err
	}
	req, err := s.prepare(ctx, params)
	if err != nil {
		return nil, err
	}
	req.Embedding = search.FieldEmbedding(field)

	base := CandidateFilter{ProjectID: params.ProjectID, Field: field}
	req.Candidates, err = gatherCandidates(ctx, s, s.repo.DocumentationCandidates, base, req,
		func(d Documentation) int64 { return d.ID },
		func(d Documentation) search.Document { return FieldMatch{Documentation: d, Field: field} })
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, req)
}

// prepare validates params before touching storage and turns them into a search request without
// candidates.
func (s *Service) prepare(ctx context.Context, params SearchParams) (search.Request, error) {
	mode, err := search.ParseMode(params.Mode)
	if err != nil {
		return search.Request{}, err
	}
	fusion, err := search.ParseFusionMode(params.Fusion)
	if err != nil {
		return search.Request{}, err
	}
	weights := search.DefaultWeights
	if params.Weights != nil {
		weights = *params.Weights
	}
	if mode == search.ModeHybrid && fusion == search.FusionWeighted {
		if err := weights.Validate(); err != nil {
			return search.Request{}, err
		}
	}

	if _, err := s.repo.GetProject(ctx, params.ProjectID); err != nil {
		return search.Request{}, err
	}

	threshold := s.cfg.SimilarityThreshold
	if params.SimilarityThreshold != nil {
		threshold = *params.SimilarityThreshold
	}

	return search.Request{
		Query:               params.Query,
		Limit:               s.clampLimit(params.Limit),
		Mode:                mode,
		Fusion:              fusion,
		SimilarityThreshold: threshold,
		Weights:             weights,
		RRFConstant:         s.cfg.RRFConstant,
	}, nil
}

// gatherCandidates loads both candidate lists for req. Semantic candidates are the scope's rows with
// a vector, up to the fallback cap. Keyword candidates come from a substring prefilter sized
// CandidateMultiplier*2*limit, topped up with other rows of the scope so corpus statistics are not
// computed over matches alone. An empty prefilter falls back to the whole scope, up to the cap.
func gatherCandidates[T any](
	ctx context.Context,
	s *Service,
	find func(context.Context, CandidateFilter) ([]T, error),
	base CandidateFilter,
	req search.Request,
	idOf func(T) int64,
	asDoc func(T) search.Document,
) (search.CandidateSet, error) {
	var set search.CandidateSet
	fallbackCap := s.cfg.FallbackCap
	if fallbackCap <= 0 {
		fallbackCap = DefaultSearchConfig().FallbackCap
	}

	if req.Mode != search.ModeKeyword {
		f := base
		f.WithEmbedding = true
		f.Limit = fallbackCap
		rows, err := find(ctx, f)
		if err != nil {
			return set, fmt.Errorf("failed to load semantic candidates: %w", err)
		}
		set.Semantic = toDocuments(rows, asDoc)
	}

	if req.Mode != search.ModeSemantic {
		terms := search.Tokenize(req.Query)
		if len(terms) == 0 {
			return set, nil
		}

		multiplier := s.cfg.CandidateMultiplier
		if multiplier <= 0 {
			multiplier = DefaultSearchConfig().CandidateMultiplier
		}
		pool := multiplier * 2 * req.Limit
		if pool > fallbackCap {
			pool = fallbackCap
		}

		f := base
		f.Terms = terms
		f.Limit = pool
		matches, err := find(ctx, f)
		if err != nil {
			return set, fmt.Errorf("failed to load keyword candidates: %w", err)
		}

		rows := matches
		switch {
		case len(matches) == 0:
			f := base
			f.Limit = fallbackCap
			if rows, err = find(ctx, f); err != nil {
				return set, fmt.Errorf("failed to load fallback candidates: %w", err)
			}
		case len(matches) < pool:
			f := base
			f.ExcludeIDs = make([]int64, len(matches))
			for i, m := range matches {
				f.ExcludeIDs[i] = idOf(m)
			}
			f.Limit = pool - len(matches)
			rest, err := find(ctx, f)
			if err != nil {
				return set, fmt.Errorf("failed to load keyword candidates: %w", err)
			}
			rows = append(rows, rest...)
		}
		set.Keyword = toDocuments(rows, asDoc)
	}

	return set, nil
}

func toDocuments[T any](rows []T, asDoc func(T) search.Document) []search.Document {
	docs := make([]search.Document, len(rows))
	for i, r := range rows {
		docs[i] = asDoc(r)
	}
	return docs
}
