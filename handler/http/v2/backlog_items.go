package v2

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/src/core/backlog"
)

type createBacklogItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	StoryPoints int    `json:"storyPoints"`
	SprintID    *int64 `json:"sprintId"`
}

type updateBacklogItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	StoryPoints *int    `json:"storyPoints"`
	SprintID    *int64  `json:"sprintId"`
	ClearSprint bool    `json:"clearSprint"`
}

type listBacklogItemsQuery struct {
	pageQuery
	SprintID *int64 `form:"sprintId"`
	Status   string `form:"status"`
}

// ListBacklogItems godoc
// @Summary List backlog items of a project
// @Tags backlog-items
// @Param id path int true "Project ID"
// @Param sprintId query int false "Sprint filter"
// @Param status query string false "todo, in_progress or done"
// @Produce json
// @Success 200 {array} backlog.BacklogItem
// @Failure 400 {object} ErrorResponse
// @Router /projects/{id}/backlog-items [get]
func (h *Handler) ListBacklogItems(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q listBacklogItemsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	items, err := h.service.ListBacklogItems(c.Request.Context(), backlog.ItemFilter{
		ProjectID: projectID,
		SprintID:  q.SprintID,
		Status:    backlog.Status(q.Status),
		Offset:    q.Offset,
		Limit:     q.Limit,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, items)
}

// CreateBacklogItem godoc
// @Summary Add a backlog item to a project
// @Tags backlog-items
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param body body createBacklogItemRequest true "Backlog item"
// @Success 201 {object} backlog.BacklogItem
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /projects/{id}/backlog-items [post]
func (h *Handler) CreateBacklogItem(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createBacklogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	item, err := h.service.CreateBacklogItem(c.Request.Context(), backlog.BacklogItemInput{
		ProjectID:   projectID,
		SprintID:    req.SprintID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StoryPoints: req.StoryPoints,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusCreated, item)
}

func (h *Handler) GetBacklogItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetBacklogItem(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, item)
}

// UpdateBacklogItem godoc
// @Summary Update the given fields of a backlog item
// @Tags backlog-items
// @Accept json
// @Produce json
// @Param id path int true "Backlog item ID"
// @Param body body updateBacklogItemRequest true "Changed fields"
// @Success 200 {object} backlog.BacklogItem
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /backlog-items/{id} [patch]
func (h *Handler) UpdateBacklogItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateBacklogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	item, err := h.service.UpdateBacklogItem(c.Request.Context(), id, backlog.BacklogItemPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StoryPoints: req.StoryPoints,
		SprintID:    req.SprintID,
		ClearSprint: req.ClearSprint,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, item)
}

// DeleteBacklogItem removes the item with its tasks and attachments.
func (h *Handler) DeleteBacklogItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteBacklogItem(c.Request.Context(), id); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshEmbedding recomputes the entity's embedding synchronously when it is stale.
func (h *Handler) RefreshEmbedding(kind backlog.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		refreshed, err := h.service.EnsureEmbeddingFresh(c.Request.Context(), kind, id)
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		sendJSON(c, http.StatusOK, gin.H{"kind": kind, "id": id, "refreshed": refreshed})
	}
}
