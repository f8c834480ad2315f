package v2

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/src/core/backlog"
	"sprintboard/src/core/search"
)

const (
	targetBacklog = "backlog"
	targetTasks   = "tasks"
)

type searchRequest struct {
	Query               string   `json:"query"`
	SprintID            *int64   `json:"sprintId"`
	BacklogItemID       int64    `json:"backlogItemId"`
	Limit               int      `json:"limit"`
	SimilarityThreshold *float64 `json:"similarityThreshold"`
	Mode                string   `json:"mode"`   // hybrid, semantic or keyword
	Fusion              string   `json:"fusion"` // rrf or weighted
	SemanticWeight      *float64 `json:"semanticWeight"`
	KeywordWeight       *float64 `json:"keywordWeight"`
	Target              string   `json:"target"`
}

type documentationSearchRequest struct {
	searchRequest
	Field string `json:"field"`
}

type searchResult struct {
	Document      search.Document `json:"document"`
	Score         float64         `json:"score"`
	SemanticScore *float64        `json:"semanticScore,omitempty"`
	BM25Score     *float64        `json:"bm25Score,omitempty"`
}

type searchResponse struct {
	Results      []searchResult `json:"results"`
	SemanticHits int            `json:"semanticHits"`
	KeywordHits  int            `json:"keywordHits"`
	Mode         string         `json:"mode"`
	Fusion       string         `json:"fusion"`
	TookMs       int64          `json:"tookMs"`
}

// Search godoc
// @Summary Hybrid search over a project's backlog items or tasks
// @Tags search
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param body body searchRequest true "Search parameters"
// @Success 200 {object} searchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /projects/{id}/search [post]
func (h *Handler) Search(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	params := req.params(projectID)
	var (
		resp *search.Response
		err  error
	)
	switch req.Target {
	case "", targetBacklog:
		resp, err = h.service.SearchBacklog(c.Request.Context(), params)
	case targetTasks:
		resp, err = h.service.SearchTasks(c.Request.Context(), params)
	default:
		err = fmt.Errorf("%w: unknown search target %q", backlog.ErrInvalidInput, req.Target)
	}
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, newSearchResponse(resp))
}

// SearchDocumentation godoc
// @Summary Search a project's documentation by one field's embedding
// @Tags search
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param body body documentationSearchRequest true "Search parameters; field is title, description or content"
// @Success 200 {object} searchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /projects/{id}/documentation/search [post]
func (h *Handler) SearchDocumentation(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req documentationSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	field := search.FieldContent
	if req.Field != "" {
		var err error
		if field, err = search.ParseField(req.Field); err != nil {
			sendError(c, http.StatusBadRequest, err)
			return
		}
	}

	resp, err := h.service.SearchDocumentation(c.Request.Context(), req.params(projectID), field)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, newSearchResponse(resp))
}

func (r searchRequest) params(projectID int64) backlog.SearchParams {
	return backlog.SearchParams{
		ProjectID:           projectID,
		SprintID:            r.SprintID,
		BacklogItemID:       r.BacklogItemID,
		Query:               r.Query,
		Limit:               r.Limit,
		SimilarityThreshold: r.SimilarityThreshold,
		Mode:                r.Mode,
		Fusion:              r.Fusion,
		Weights:             r.weights(),
	}
}

// weights completes a single given weight to 1.0; the core rejects anything that does not sum to 1.
func (r searchRequest) weights() *search.Weights {
	switch {
	case r.SemanticWeight == nil && r.KeywordWeight == nil:
		return nil
	case r.KeywordWeight == nil:
		return &search.Weights{Semantic: *r.SemanticWeight, Keyword: 1 - *r.SemanticWeight}
	case r.SemanticWeight == nil:
		return &search.Weights{Semantic: 1 - *r.KeywordWeight, Keyword: *r.KeywordWeight}
	default:
		return &search.Weights{Semantic: *r.SemanticWeight, Keyword: *r.KeywordWeight}
	}
}

func newSearchResponse(resp *search.Response) searchResponse {
	out := searchResponse{
		Results:      make([]searchResult, 0, len(resp.Results)),
		SemanticHits: resp.SemanticHits,
		KeywordHits:  resp.KeywordHits,
		Mode:         string(resp.Mode),
		Fusion:       string(resp.Fusion),
		TookMs:       resp.Duration.Milliseconds(),
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, searchResult{
			Document:      r.Document,
			Score:         r.Score,
			SemanticScore: r.SemanticScore,
			BM25Score:     r.BM25Score,
		})
	}
	return out
}
