package application

import (
	"errors"
	"fmt"
	"net/http"

	"farmops/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for application lifecycle management
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create creates an application with its line items
// POST /api/v1/applications
func (h *Handler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	app, err := h.service.Create(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// List returns all applications with their line items
// GET /api/v1/applications
func (h *Handler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	apps, err := h.service.List(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

// Get returns a single application with its line items
// GET /api/v1/applications/:id
func (h *Handler) Get(c *gin.Context) {
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

	app, err := h.service.Get(userID, applicationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Update edits an application, optionally replacing line items and
// transitioning status (planned -> completed deducts stock)
// PUT /api/v1/applications/:id
func (h *Handler) Update(c *gin.Context) {
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

	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	app, err := h.service.Update(userID, applicationID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Delete removes an application and its line items
// DELETE /api/v1/applications/:id
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

	if err := h.service.Delete(userID, applicationID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// respondError maps domain errors to status codes; insufficient-stock
// responses carry the structured shortfall list alongside the message.
func respondError(c *gin.Context, err error) {
	if stockErr, ok := errAsInsufficientStock(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":      stockErr.Error(),
			"shortfalls": stockErr.Shortfalls,
		})
		return
	}
	c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
}

func errAsInsufficientStock(err error) (*common.InsufficientStockError, bool) {
	var stockErr *common.InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr, true
	}
	return nil, false
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
