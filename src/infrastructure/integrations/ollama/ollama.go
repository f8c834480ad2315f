package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "nomic-embed-text"
)

// Client is an embedding provider backed by a local Ollama server.
type Client struct {
	api       *api.Client
	model     string
	dimension int
}

// NewClient creates a new Ollama embedding client. dimension may be 0 when the model's vector length is
// not known up front.
func NewClient(baseURL string, c *http.Client, model string, dimension int) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if c == nil {
		c = http.DefaultClient
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}

	return &Client{
		api:       api.NewClient(base, c),
		model:     model,
		dimension: dimension,
	}, nil
}

func (c *Client) Name() string   { return "ollama" }
func (c *Client) Dimension() int { return c.dimension }

// Embed generates one embedding per text with a single /api/embed call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.Embed(ctx, &api.EmbedRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating embeddings: %w", err)
	}
	return resp.Embeddings, nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
