package v2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"sprintboard/src/core/backlog"
	"sprintboard/src/core/search"
)

// BacklogService is the part of backlog.Service the API exposes.
type BacklogService interface {
	Ping(ctx context.Context) error

	CreateProject(ctx context.Context, name, description string) (*backlog.Project, error)
	GetProject(ctx context.Context, id int64) (*backlog.Project, error)
	ListProjects(ctx context.Context, offset, limit int) ([]backlog.Project, error)

	CreateBacklogItem(ctx context.Context, in backlog.BacklogItemInput) (*backlog.BacklogItem, error)
	GetBacklogItem(ctx context.Context, id int64) (*backlog.BacklogItem, error)
	ListBacklogItems(ctx context.Context, filter backlog.ItemFilter) ([]backlog.BacklogItem, error)
	UpdateBacklogItem(ctx context.Context, id int64, patch backlog.BacklogItemPatch) (*backlog.BacklogItem, error)
	DeleteBacklogItem(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, in backlog.TaskInput) (*backlog.Task, error)
	GetTask(ctx context.Context, id int64) (*backlog.Task, error)
	ListTasks(ctx context.Context, filter backlog.TaskFilter) ([]backlog.Task, error)
	UpdateTask(ctx context.Context, id int64, patch backlog.TaskPatch) (*backlog.Task, error)

	CreateDocumentation(ctx context.Context, in backlog.DocumentationInput) (*backlog.Documentation, error)
	GetDocumentation(ctx context.Context, id int64) (*backlog.Documentation, error)
	ListDocumentation(ctx context.Context, projectID int64, offset, limit int) ([]backlog.Documentation, error)

	UploadAttachment(ctx context.Context, backlogItemID int64, fileName, contentType string, size int64, r io.Reader) (*backlog.Attachment, error)
	ListAttachments(ctx context.Context, backlogItemID int64) ([]backlog.Attachment, error)
	OpenAttachment(ctx context.Context, id int64) (*backlog.Attachment, io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, id int64) error

	EnsureEmbeddingFresh(ctx context.Context, kind backlog.Kind, id int64) (bool, error)

	SearchBacklog(ctx context.Context, params backlog.SearchParams) (*search.Response, error)
	SearchTasks(ctx context.Context, params backlog.SearchParams) (*search.Response, error)
	SearchDocumentation(ctx context.Context, params backlog.SearchParams, field search.Field) (*search.Response, error)
}

// EmbeddingStatus reports on the configured embedding provider.
type EmbeddingStatus interface {
	Name() string
	Ping(ctx context.Context) error
}

type Handler struct {
	service   BacklogService
	embedding EmbeddingStatus
	logger    logr.Logger
}

func NewHandler(service BacklogService, embedding EmbeddingStatus, logger logr.Logger) *Handler {
	return &Handler{
		service:   service,
		embedding: embedding,
		logger:    logger,
	}
}

// RegisterRoutes registers all v1 API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.Use(RequestID(), AccessLog(h.logger))

	// Project routes
	v1.GET("/projects", h.ListProjects)
	v1.POST("/projects", h.CreateProject)
	v1.GET("/projects/:id", h.GetProject)

	// Backlog item routes
	v1.GET("/projects/:id/backlog-items", h.ListBacklogItems)
	v1.POST("/projects/:id/backlog-items", h.CreateBacklogItem)
	v1.GET("/backlog-items/:id", h.GetBacklogItem)
	v1.PATCH("/backlog-items/:id", h.UpdateBacklogItem)
	v1.DELETE("/backlog-items/:id", h.DeleteBacklogItem)
	v1.POST("/backlog-items/:id/embedding/refresh", h.RefreshEmbedding(backlog.KindBacklogItem))

	// Task routes
	v1.GET("/backlog-items/:id/tasks", h.ListTasks)
	v1.POST("/backlog-items/:id/tasks", h.CreateTask)
	v1.GET("/tasks/:id", h.GetTask)
	v1.PATCH("/tasks/:id", h.UpdateTask)
	v1.POST("/tasks/:id/embedding/refresh", h.RefreshEmbedding(backlog.KindTask))

	// Documentation routes
	v1.GET("/projects/:id/documentation", h.ListDocumentation)
	v1.POST("/projects/:id/documentation", h.CreateDocumentation)
	v1.GET("/documentation/:id", h.GetDocumentation)
	v1.POST("/documentation/:id/embedding/refresh", h.RefreshEmbedding(backlog.KindDocumentation))

	// Attachment routes
	v1.GET("/backlog-items/:id/attachments", h.ListAttachments)
	v1.POST("/backlog-items/:id/attachments", h.UploadAttachment)
	v1.GET("/attachments/:id", h.DownloadAttachment)
	v1.DELETE("/attachments/:id", h.DeleteAttachment)

	// Search routes
	v1.POST("/projects/:id/search", h.Search)
	v1.POST("/projects/:id/documentation/search", h.SearchDocumentation)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, search.ErrInvalidWeights):
		code = "INVALID_WEIGHTS"
		status = http.StatusBadRequest
	case errors.Is(err, search.ErrInvalidField):
		code = "INVALID_FIELD"
		status = http.StatusBadRequest
	case errors.Is(err, search.ErrInvalidFusionMode):
		code = "INVALID_FUSION_MODE"
		status = http.StatusBadRequest
	case errors.Is(err, search.ErrInvalidSearchMode):
		code = "INVALID_MODE"
		status = http.StatusBadRequest
	case errors.Is(err, backlog.ErrInvalidInput):
		code = "INVALID_INPUT"
		status = http.StatusBadRequest
	case errors.Is(err, backlog.ErrNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, backlog.ErrNoObjectStore):
		code = "STORAGE_UNAVAILABLE"
		status = http.StatusServiceUnavailable
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// pathID parses an int64 path parameter and answers 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

type pageQuery struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}
