package v2

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/src/core/embedding"
)

const (
	statusOK          = "ok"
	statusDegraded    = "degraded"
	statusUnhealthy   = "unhealthy"
	statusUnavailable = "unavailable"
	statusDisabled    = "disabled"
)

type componentHealth struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

type HealthStatus struct {
	Status    string          `json:"status"`
	Database  componentHealth `json:"database"`
	Embedding componentHealth `json:"embedding"`
}

// CheckHealth godoc
// @Summary Check system health status
// @Description The service stays usable without an embedding provider, so a provider outage
// @Description reports degraded with 200. A database outage answers 503.
// @Tags system
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := HealthStatus{
		Status:    statusOK,
		Database:  componentHealth{Status: statusOK},
		Embedding: componentHealth{Status: statusDisabled},
	}

	if err := h.service.Ping(ctx); err != nil {
		status.Status = statusUnhealthy
		status.Database = componentHealth{Status: statusUnavailable, Error: err.Error()}
	}

	if h.embedding != nil {
		status.Embedding.Provider = h.embedding.Name()
		err := h.embedding.Ping(ctx)
		switch {
		case err == nil:
			status.Embedding.Status = statusOK
		case errors.Is(err, embedding.ErrNoProvider):
		default:
			status.Embedding.Status = statusUnavailable
			status.Embedding.Error = err.Error()
			if status.Status == statusOK {
				status.Status = statusDegraded
			}
		}
	}

	code := http.StatusOK
	if status.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	sendJSON(c, code, status)
}
