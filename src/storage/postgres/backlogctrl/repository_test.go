package backlogctrl

import (
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sprintboard/src/core/backlog"
	"sprintboard/src/core/search"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=sprintboard dbname=sprintboard sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestVectorConversion(t *testing.T) {
	assert.Nil(t, toVector(nil))
	assert.Nil(t, toVector([]float32{}))
	assert.Nil(t, fromVector(nil))

	v := toVector([]float32{0.5, -1})
	require.NotNil(t, v)
	value, err := v.Value()
	require.NoError(t, err)
	assert.Equal(t, "[0.5,-1]", value)
	assert.Equal(t, []float32{0.5, -1}, fromVector(v))

	var scanned pgvector.Vector
	require.NoError(t, scanned.Scan([]byte("[0.25,0.75]")))
	assert.Equal(t, []float32{0.25, 0.75}, fromVector(&scanned))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `user\_id`, escapeLike("user_id"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, "login", escapeLike("login"))
}

func TestApplyCandidateFilter(t *testing.T) {
	db := dryRunDB(t)

	tests := []struct {
		name     string
		filter   backlog.CandidateFilter
		contains []string
		excludes []string
	}{
		{
			name:     "semantic",
			filter:   backlog.CandidateFilter{WithEmbedding: true, Limit: 500},
			contains: []string{"embedding IS NOT NULL"},
			excludes: []string{"ILIKE"},
		},
		{
			name:     "prefilter",
			filter:   backlog.CandidateFilter{Terms: []string{"login", "oauth"}, Limit: 40},
			contains: []string{"title ILIKE", "description ILIKE", " OR "},
			excludes: []string{"IS NOT NULL"},
		},
		{
			name:     "padding",
			filter:   backlog.CandidateFilter{ExcludeIDs: []int64{1, 2}, Limit: 38},
			contains: []string{"NOT IN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []BacklogItem
			q := applyCandidateFilter(db.Where("project_id = ?", 1), tt.filter, "embedding", "title", "description")
			stmt := q.Find(&rows).Statement
			sql := stmt.SQL.String()

			for _, want := range tt.contains {
				assert.Contains(t, sql, want)
			}
			assert.Contains(t, sql, "LIMIT $")
			require.NotEmpty(t, stmt.Vars)
			assert.Equal(t, tt.filter.Limit, stmt.Vars[len(stmt.Vars)-1])
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, sql, unwanted)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	sprint := int64(3)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item := backlog.BacklogItem{
		ID:                 9,
		ProjectID:          1,
		SprintID:           &sprint,
		Title:              "Login",
		Status:             backlog.StatusDone,
		Priority:           backlog.PriorityLow,
		Vector:             []float32{1, 2},
		EmbeddingUpdatedAt: &at,
	}
	assert.Equal(t, item, itemToDomain(itemFromDomain(&item)))

	doc := documentationToDomain(Documentation{ID: 4, Title: "Guide", TitleEmbedding: toVector([]float32{1})})
	assert.Equal(t, []float32{1}, doc.FieldEmbedding(search.FieldTitle))
	assert.Nil(t, doc.FieldEmbedding(search.FieldContent))
}
