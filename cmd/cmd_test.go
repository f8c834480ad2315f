package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintboard/src/core/backlog"
	"sprintboard/src/core/embedding"
	"sprintboard/src/infrastructure/integrations/openai"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	settingDefaultConfig()
	t.Cleanup(func() {
		viper.Reset()
		settingDefaultConfig()
	})
}

type passes struct {
	stats   []backlog.RefreshStats
	err     error
	cursors []int64
}

func (p *passes) RefreshStaleEmbeddings(_ context.Context, _ backlog.Kind, afterID int64, _ int) (backlog.RefreshStats, error) {
	pass := len(p.cursors)
	p.cursors = append(p.cursors, afterID)
	if pass >= len(p.stats) {
		return backlog.RefreshStats{}, p.err
	}
	return p.stats[pass], nil
}

func TestReindex_PagesUntilNothingScanned(t *testing.T) {
	p := &passes{stats: []backlog.RefreshStats{
		{Scanned: 32, Refreshed: 32, LastID: 40},
		{Scanned: 32, Refreshed: 31, LastID: 90},
		{Scanned: 1, Refreshed: 0, LastID: 95},
	}}
	var progressed int

	refreshed, stale, err := reindex(context.Background(), p, backlog.KindTask, 32, func(n int) { progressed += n })
	require.NoError(t, err)
	assert.Equal(t, 63, refreshed)
	assert.Equal(t, 2, stale)
	assert.Equal(t, 63, progressed)
	assert.Equal(t, []int64{0, 40, 90, 95}, p.cursors)
}

func TestReindex_ContinuesPastRejectedBatch(t *testing.T) {
	p := &passes{stats: []backlog.RefreshStats{
		{Scanned: 8, Refreshed: 0, LastID: 8},
		{Scanned: 3, Refreshed: 3, LastID: 11},
	}}

	refreshed, stale, err := reindex(context.Background(), p, backlog.KindBacklogItem, 8, func(int) {})
	require.NoError(t, err)
	assert.Equal(t, 3, refreshed)
	assert.Equal(t, 8, stale)
	assert.Equal(t, []int64{0, 8, 11}, p.cursors)
}

func TestReindex_PropagatesErrors(t *testing.T) {
	p := &passes{err: errors.New("db down")}
	_, _, err := reindex(context.Background(), p, backlog.KindBacklogItem, 8, func(int) {})
	assert.EqualError(t, err, "db down")
}

func TestReindexKinds(t *testing.T) {
	kinds, err := reindexKinds("all")
	require.NoError(t, err)
	assert.Len(t, kinds, 3)

	kinds, err = reindexKinds("task")
	require.NoError(t, err)
	assert.Equal(t, []backlog.Kind{backlog.KindTask}, kinds)

	_, err = reindexKinds("epic")
	assert.ErrorIs(t, err, backlog.ErrInvalidInput)
}

func TestNewEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		wantName string
		wantErr  error
		anyErr   bool
	}{
		{name: "none", settings: map[string]interface{}{"embedding.provider": "none"}},
		{name: "ollama", settings: map[string]interface{}{"embedding.provider": "ollama"}, wantName: "ollama"},
		{name: "openai", settings: map[string]interface{}{"embedding.provider": "OpenAI", "embedding.api_key": "sk-test"}, wantName: "openai"},
		{name: "openai without key", settings: map[string]interface{}{"embedding.provider": "openai", "embedding.api_key": ""}, wantErr: openai.ErrMissingAPIKey},
		{name: "unknown", settings: map[string]interface{}{"embedding.provider": "cohere"}, anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t)
			for k, v := range tt.settings {
				viper.Set(k, v)
			}

			provider, err := newEmbeddingProvider()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			case tt.wantName == "":
				require.NoError(t, err)
				assert.Nil(t, provider)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, provider.Name())
			}
		})
	}
}

func TestNewEmbeddingGateway_MissingKeyDegrades(t *testing.T) {
	resetConfig(t)
	viper.Set("embedding.provider", "openai")
	viper.Set("embedding.api_key", "")

	gateway, err := newEmbeddingGateway(logr.Discard())
	require.NoError(t, err)
	require.NotNil(t, gateway)
	assert.Equal(t, "none", gateway.Name())
	assert.Nil(t, gateway.Embed(context.Background(), "login"))
	assert.ErrorIs(t, gateway.Ping(context.Background()), embedding.ErrNoProvider)
}

func TestNewEmbeddingGateway_UnknownProvider(t *testing.T) {
	resetConfig(t)
	viper.Set("embedding.provider", "cohere")

	_, err := newEmbeddingGateway(logr.Discard())
	assert.Error(t, err)
}

func TestSearchConfigDefaults(t *testing.T) {
	resetConfig(t)

	cfg := searchConfig()
	assert.Equal(t, backlog.DefaultSearchConfig(), cfg)
	assert.Equal(t, 10*time.Second, viper.GetDuration("embedding.timeout"))
	assert.Equal(t, "embedding-jobs", viper.GetString("jobs.topic"))
}
