package embedding

import (
	"context"
	"errors"
)

var (
	ErrNoProvider        = errors.New("no embedding provider configured")
	ErrResponseMismatch  = errors.New("embedding provider returned an unexpected number of vectors")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider turns texts into vectors. Implementations return exactly one vector per input text, in
// input order, or an error for the whole call.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector length the provider produces; 0 if unknown.
	Dimension() int
	Name() string
}

// Pinger is implemented by providers that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
