package v2

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAttachments(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	attachments, err := h.service.ListAttachments(c.Request.Context(), itemID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, attachments)
}

// UploadAttachment godoc
// @Summary Attach a file to a backlog item
// @Tags attachments
// @Accept multipart/form-data
// @Param id path int true "Backlog item ID"
// @Param file formData file true "Attachment"
// @Produce json
// @Success 201 {object} backlog.Attachment
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /backlog-items/{id}/attachments [post]
func (h *Handler) UploadAttachment(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	attachment, err := h.service.UploadAttachment(
		c.Request.Context(),
		itemID,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusCreated, attachment)
}

// DownloadAttachment streams the stored bytes.
func (h *Handler) DownloadAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	attachment, body, err := h.service.OpenAttachment(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, attachment.Size, attachment.ContentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", attachment.FileName),
	})
}

func (h *Handler) DeleteAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAttachment(c.Request.Context(), id); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}
