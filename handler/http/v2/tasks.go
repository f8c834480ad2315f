package v2

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/src/core/backlog"
)

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Assignee    *string `json:"assignee"`
}

func (h *Handler) ListTasks(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), backlog.TaskFilter{
		BacklogItemID: itemID,
		Offset:        page.Offset,
		Limit:         page.Limit,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Add a task to a backlog item
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Backlog item ID"
// @Param body body createTaskRequest true "Task"
// @Success 201 {object} backlog.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /backlog-items/{id}/tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), backlog.TaskInput{
		BacklogItemID: itemID,
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Assignee:      req.Assignee,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusCreated, task)
}

func (h *Handler) GetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, task)
}

func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), id, backlog.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Assignee:    req.Assignee,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, task)
}
