package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"sprintboard/src/core/embedding"
	"sprintboard/src/infrastructure/integrations/ollama"
	"sprintboard/src/infrastructure/integrations/openai"
)

const (
	providerOpenAI = "openai"
	providerOllama = "ollama"
	providerNone   = "none"
)

// newEmbeddingProvider returns nil for "none"; the gateway then yields no vectors and search runs keyword-only.
func newEmbeddingProvider() (embedding.Provider, error) {
	name := strings.ToLower(strings.TrimSpace(viper.GetString("embedding.provider")))
	model := viper.GetString("embedding.model")
	dimension := viper.GetInt("embedding.dimension")

	switch name {
	case providerOpenAI:
		return openai.NewClient(
			viper.GetString("embedding.api_key"),
			model,
			viper.GetString("embedding.base_url"),
			dimension,
		)
	case providerOllama:
		return ollama.NewClient(
			viper.GetString("embedding.ollama_url"),
			&http.Client{Timeout: 30 * time.Second},
			model,
			dimension,
		)
	case providerNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (expected openai, ollama or none)", name)
	}
}

// newEmbeddingGateway fails only on an unknown provider name. Missing credentials leave the gateway
// without a provider so search degrades to keyword-only.
func newEmbeddingGateway(logger logr.Logger) (*embedding.Gateway, error) {
	provider, err := newEmbeddingProvider()
	if errors.Is(err, openai.ErrMissingAPIKey) {
		logger.Error(err, "Embedding provider misconfigured, semantic search disabled",
			"provider", viper.GetString("embedding.provider"))
		provider, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	return embedding.NewGateway(provider,
		embedding.WithCache(embedding.NewCache(viper.GetInt("embedding.cache_size"))),
		embedding.WithMaxChars(viper.GetInt("embedding.max_chars")),
		embedding.WithTimeout(viper.GetDuration("embedding.timeout")),
		embedding.WithLogger(logger),
	), nil
}
