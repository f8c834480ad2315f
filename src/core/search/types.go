package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors returned for malformed caller input. They are raised before any scoring work starts.
var (
	ErrInvalidWeights    = errors.New("semantic and keyword weights must be non-negative and sum to 1.0")
	ErrInvalidField      = errors.New("invalid search field")
	ErrInvalidFusionMode = errors.New("invalid fusion mode")
	ErrInvalidSearchMode = errors.New("invalid search mode")
)

// Document is anything exposed to search: a backlog item, a task, a documentation page.
type Document interface {
	// DocumentID returns a stable identifier used to merge ranked lists.
	DocumentID() string
	// SearchableContent returns the concatenated text of the entity's salient fields.
	SearchableContent() string
	// Embedding returns the stored vector, or nil when none has been generated yet.
	Embedding() []float32
}

// FieldDocument is a Document that keeps one embedding per text field.
type FieldDocument interface {
	Document
	FieldEmbedding(field Field) []float32
}

// Embedder turns text into a vector. A nil vector means "no embedding"; implementations never fail loudly.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// EmbeddingFunc selects which stored vector of a document is compared with the query.
type EmbeddingFunc func(doc Document) []float32

// DefaultEmbedding reads Document.Embedding.
func DefaultEmbedding(doc Document) []float32 {
	return doc.Embedding()
}

// RankedResult is a document paired with the score one ranking stage assigned to it.
type RankedResult struct {
	Document Document
	Score    float64
}

// FusedResult is the output of rank fusion. SemanticScore and BM25Score are kept for debugging and
// are nil when the document was absent from that list.
type FusedResult struct {
	Document      Document
	Score         float64
	SemanticScore *float64
	BM25Score     *float64
}

// Field names a text field whose embedding column can be searched.
type Field int

const (
	FieldTitle Field = iota
	FieldDescription
	FieldContent
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldDescription:
		return "description"
	case FieldContent:
		return "content"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField converts a request value into a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title":
		return FieldTitle, nil
	case "description":
		return FieldDescription, nil
	case "content":
		return FieldContent, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected title, description or content)", ErrInvalidField, s)
	}
}

// FieldEmbedding returns an EmbeddingFunc reading the given field's vector. Documents that do not keep
// per-field vectors have no embedding for the field.
func FieldEmbedding(field Field) EmbeddingFunc {
	return func(doc Document) []float32 {
		fd, ok := doc.(FieldDocument)
		if !ok {
			return nil
		}
		return fd.FieldEmbedding(field)
	}
}

// FusionMode selects how semantic and keyword rankings are merged.
type FusionMode string

const (
	FusionRRF      FusionMode = "rrf"      // Reciprocal Rank Fusion (default)
	FusionWeighted FusionMode = "weighted" // Legacy weighted score blending
)

// ParseFusionMode converts a request value into a FusionMode. Empty means RRF.
func ParseFusionMode(s string) (FusionMode, error) {
	switch FusionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FusionRRF:
		return FusionRRF, nil
	case FusionWeighted:
		return FusionWeighted, nil
	default:
		return "", fmt.Errorf("%w: %q (expected rrf or weighted)", ErrInvalidFusionMode, s)
	}
}

// Mode selects which signals a search uses.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"   // Semantic + BM25, fused
	ModeSemantic Mode = "semantic" // Embedding similarity only
	ModeKeyword  Mode = "keyword"  // BM25 only
)

// ParseMode converts a request value into a Mode. Empty means hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeSemantic:
		return ModeSemantic, nil
	case ModeKeyword:
		return ModeKeyword, nil
	default:
		return "", fmt.Errorf("%w: %q (expected hybrid, semantic or keyword)", ErrInvalidSearchMode, s)
	}
}
