package stock

import (
	"fmt"
	"net/http"

	"farmops/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the stock ledger
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateEntry appends a stock entry movement
// POST /api/v1/stock/entries
func (h *Handler) CreateEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	movement, err := h.service.CreateEntry(userID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, movement)
}

// ListMovements lists ledger entries, optionally filtered by product
// GET /api/v1/stock/movements?product_id=
func (h *Handler) ListMovements(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var productID *uuid.UUID
	if raw := c.Query("product_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
			return
		}
		productID = &parsed
	}

	movements, err := h.service.ListMovements(userID, productID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, movements)
}

// GetBalance returns the ledger balance for a product
// GET /api/v1/stock/balance/:productID
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	balance, err := h.service.GetBalance(userID, productID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_id": productID, "balance": balance})
}

// GetAvailable returns the available-to-promise quantity for a product
// GET /api/v1/stock/available/:productID
func (h *Handler) GetAvailable(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	available, err := h.service.GetAvailable(userID, productID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_id": productID, "available": available})
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
