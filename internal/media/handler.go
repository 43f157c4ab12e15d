package media

import (
	"fmt"
	"net/http"

	"farmops/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for application attachments
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload receives a multipart file and stores it against an application
// POST /api/v1/applications/:id/attachments
func (h *Handler) Upload(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	applicationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := h.service.Upload(c.Request.Context(), userID, applicationID,
		fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// List returns attachment metadata for an application
// GET /api/v1/applications/:id/attachments
func (h *Handler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	applicationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	attachments, err := h.service.List(userID, applicationID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, attachments)
}

// Download streams the attachment bytes
// GET /api/v1/applications/:id/attachments/:attachmentID/download
func (h *Handler) Download(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	applicationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	attachmentID, err := uuid.Parse(c.Param("attachmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attachment ID"})
		return
	}

	body, attachment, err := h.service.Download(c.Request.Context(), userID, applicationID, attachmentID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, attachment.FileName))
	c.DataFromReader(http.StatusOK, attachment.FileSize, attachment.ContentType, body, nil)
}

// Delete removes an attachment
// DELETE /api/v1/applications/:id/attachments/:attachmentID
func (h *Handler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	applicationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	attachmentID, err := uuid.Parse(c.Param("attachmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attachment ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, applicationID, attachmentID); err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// getUserID extracts the authenticated user ID set by the auth middleware.
func getUserID(c *gin.Context) (uuid.UUID, error) {
	if userID, exists := c.Get("user_id"); exists {
		switch v := userID.(type) {
		case string:
			return uuid.Parse(v)
		case uuid.UUID:
			return v, nil
		}
	}
	return uuid.Nil, fmt.Errorf("user ID required - must be set by auth middleware")
}
