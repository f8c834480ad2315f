package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "", "", 0)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := NewClient("sk-test", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, DefaultDimension, c.Dimension())
	assert.Equal(t, DefaultModel, c.model)

	c, err = NewClient("sk-test", "text-embedding-3-large", "", 3072)
	require.NoError(t, err)
	assert.Equal(t, 3072, c.Dimension())
}

func TestClient_Embed(t *testing.T) {
	var got struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  got.Model,
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.5, 0.5}},
				{"object": "embedding", "index": 1, "embedding": []float32{0.25, 0.75}},
			},
		})
	}))
	defer server.Close()

	c, err := NewClient("sk-test", "", server.URL, 2)
	require.NoError(t, err)

	vectors, err := c.Embed(context.Background(), []string{"login page", "oauth flow"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}, {0.25, 0.75}}, vectors)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, []string{"login page", "oauth flow"}, got.Input)
}

func TestClient_EmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c, err := NewClient("sk-test", "", server.URL, 2)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"login"})
	assert.Error(t, err)
}
