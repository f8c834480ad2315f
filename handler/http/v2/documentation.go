package v2

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/src/core/backlog"
)

type createDocumentationRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

func (h *Handler) ListDocumentation(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	docs, err := h.service.ListDocumentation(c.Request.Context(), projectID, page.Offset, page.Limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, docs)
}

// CreateDocumentation godoc
// @Summary Add a documentation page to a project
// @Tags documentation
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param body body createDocumentationRequest true "Documentation"
// @Success 201 {object} backlog.Documentation
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /projects/{id}/documentation [post]
func (h *Handler) CreateDocumentation(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createDocumentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	doc, err := h.service.CreateDocumentation(c.Request.Context(), backlog.DocumentationInput{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusCreated, doc)
}

func (h *Handler) GetDocumentation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetDocumentation(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, doc)
}
