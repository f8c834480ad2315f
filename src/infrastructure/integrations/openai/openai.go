package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultModel     = "text-embedding-3-small"
	DefaultDimension = 1536
)

var ErrMissingAPIKey = errors.New("openai api key not set")

// Client is an embedding provider backed by the OpenAI embeddings API.
type Client struct {
	llm       *openai.LLM
	model     string
	dimension int
}

// NewClient creates an OpenAI embedding client. baseURL is optional and only set for compatible
// gateways.
func NewClient(apiKey, model, baseURL string, dimension int) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &Client{llm: llm, model: model, dimension: dimension}, nil
}

func (c *Client) Name() string   { return "openai" }
func (c *Client) Dimension() int { return c.dimension }

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai %s embedding: %w", c.model, err)
	}
	return vectors, nil
}
