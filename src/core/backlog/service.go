package backlog

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"sprintboard/src/core/search"
)

// SearchConfig holds the tunables of backlog search.
type SearchConfig struct {
	DefaultLimit        int
	MaxLimit            int
	SimilarityThreshold float64
	RRFConstant         float64
	// CandidateMultiplier sizes the keyword prefilter pool at CandidateMultiplier * 2 * limit.
	CandidateMultiplier int
	// FallbackCap bounds whole-scope candidate loads.
	FallbackCap  int
	EmbedTimeout time.Duration
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:        10,
		MaxLimit:            100,
		SimilarityThreshold: 0.7,
		RRFConstant:         search.DefaultRRFConstant,
		CandidateMultiplier: 4,
		FallbackCap:         500,
		EmbedTimeout:        10 * time.Second,
	}
}

// Service implements projects, backlog items, tasks, documentation, attachments and their search.
type Service struct {
	repo      Repository
	objects   ObjectStore
	embedder  Embedder
	scheduler Scheduler
	searcher  *search.HybridSearcher
	cfg       SearchConfig
	logger    logr.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithEmbedder(e Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

func WithScheduler(sch Scheduler) Option {
	return func(s *Service) { s.scheduler = sch }
}

func WithObjectStore(o ObjectStore) Option {
	return func(s *Service) { s.objects = o }
}

func WithSearchConfig(cfg SearchConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithLogger(l logr.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		cfg:    DefaultSearchConfig(),
		logger: logr.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var embedder search.Embedder
	if s.embedder != nil {
		embedder = s.embedder
	}
	s.searcher = search.NewHybridSearcher(
		search.NewSemanticSearcher(embedder,
			search.WithEmbedTimeout(s.cfg.EmbedTimeout),
			search.WithSemanticLogger(s.logger.WithName("semantic"))),
		search.NewKeywordSearcher(search.NewBM25Scorer()),
		s.logger.WithName("hybrid"),
	)
	return s
}

// Ping checks the repository.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if limit <= 0 {
		limit = 1
	}
	return limit
}
