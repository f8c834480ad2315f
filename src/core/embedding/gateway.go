package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const DefaultTimeout = 10 * time.Second

// Gateway wraps a Provider and never fails: every problem (blank input, missing provider, provider
// error, wrong dimension) is logged and reported as a nil vector.
type Gateway struct {
	provider  Provider
	cache     *Cache
	retry     RetryConfig
	maxChars  int
	dimension int
	timeout   time.Duration
	logger    logr.Logger
}

type Option func(*Gateway)

func WithCache(c *Cache) Option {
	return func(g *Gateway) { g.cache = c }
}

func WithRetry(cfg RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithMaxChars sets the soft limit above which texts are clipped before embedding.
func WithMaxChars(n int) Option {
	return func(g *Gateway) { g.maxChars = n }
}

// WithDimension rejects vectors of any other length. 0 accepts whatever the provider returns.
func WithDimension(n int) Option {
	return func(g *Gateway) { g.dimension = n }
}

// WithTimeout bounds every provider call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func WithLogger(l logr.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates a Gateway. provider may be nil, in which case every call yields nil vectors.
func NewGateway(provider Provider, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		retry:    DefaultRetryConfig(),
		maxChars: DefaultMaxChars,
		timeout:  DefaultTimeout,
		logger:   logr.Discard(),
	}
	if provider != nil {
		g.dimension = provider.Dimension()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the provider name, or "none".
func (g *Gateway) Name() string {
	if g == nil || g.provider == nil {
		return "none"
	}
	return g.provider.Name()
}

// Dimension returns the expected vector length.
func (g *Gateway) Dimension() int {
	if g == nil {
		return 0
	}
	return g.dimension
}

// Ping reports whether the provider is configured and, when it supports it, reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	if g == nil || g.provider == nil {
		return ErrNoProvider
	}
	if p, ok := g.provider.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Embed returns the vector for text or nil.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	if g == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	if g.provider == nil {
		g.logger.V(1).Info("embedding skipped", "reason", ErrNoProvider.Error())
		return nil
	}

	clipped := clip(text, g.maxChars)
	key := cacheKey(g.provider.Name(), clipped)
	if v, ok := g.cache.Get(key); ok {
		return v
	}

	vectors, err := g.call(ctx, []string{clipped})
	if err != nil {
		g.logger.Error(err, "embedding unavailable",
			"provider", g.provider.Name(),
			"textLength", len(text))
		return nil
	}

	g.cache.Set(key, vectors[0])
	return vectors[0]
}

// EmbedBatch returns one entry per text, in order. Blank texts map to nil without being sent; a
// failed provider call makes every entry nil.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	if g == nil || len(texts) == 0 {
		return out
	}
	if g.provider == nil {
		g.logger.V(1).Info("batch embedding skipped", "reason", ErrNoProvider.Error(), "texts", len(texts))
		return out
	}

	var (
		pending []string
		keys    []string
		slots   []int
	)
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		clipped := clip(text, g.maxChars)
		key := cacheKey(g.provider.Name(), clipped)
		if v, ok := g.cache.Get(key); ok {
			out[i] = v
			continue
		}
		pending = append(pending, clipped)
		keys = append(keys, key)
		slots = append(slots, i)
	}
	if len(pending) == 0 {
		return out
	}

	vectors, err := g.call(ctx, pending)
	if err != nil {
		g.logger.Error(err, "batch embedding unavailable",
			"provider", g.provider.Name(),
			"texts", len(texts),
			"sent", len(pending))
		return make([][]float32, len(texts))
	}

	for j, v := range vectors {
		g.cache.Set(keys[j], v)
		out[slots[j]] = v
	}
	return out
}

// call sends texts to the provider with retry and validates the response shape.
func (g *Gateway) call(ctx context.Context, texts []string) ([][]float32, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vectors, err := retryWithBackoff(ctx, g.retry, func() ([][]float32, error) {
		return g.provider.Embed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrResponseMismatch, len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector at %d", ErrResponseMismatch, i)
		}
		if g.dimension > 0 && len(v) != g.dimension {
			return nil, fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, g.dimension, len(v))
		}
	}
	return vectors, nil
}
