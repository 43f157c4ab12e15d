package catalog

import (
	"fmt"
	"net/http"

	"farmops/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for catalog reference data
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateProduct registers a new product
// POST /api/v1/products
func (h *Handler) CreateProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	product, err := h.service.CreateProduct(userID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ListProducts returns all products for the authenticated user
// GET /api/v1/products
func (h *Handler) ListProducts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	products, err := h.service.ListProducts(userID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct returns a single product
// GET /api/v1/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.service.GetProduct(userID, productID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct edits a product registration
// PUT /api/v1/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	product, err := h.service.UpdateProduct(userID, productID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product registration
// DELETE /api/v1/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	if err := h.service.DeleteProduct(userID, productID); err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CreateField registers a new field
// POST /api/v1/fields
func (h *Handler) CreateField(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req CreateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	field, err := h.service.CreateField(userID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, field)
}

// ListFields returns all fields for the authenticated user
// GET /api/v1/fields
func (h *Handler) ListFields(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	fields, err := h.service.ListFields(userID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, fields)
}

// GetField returns a single field
// GET /api/v1/fields/:id
func (h *Handler) GetField(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	fieldID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field ID"})
		return
	}

	field, err := h.service.GetField(userID, fieldID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, field)
}

// UpdateField edits a field registration
// PUT /api/v1/fields/:id
func (h *Handler) UpdateField(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	fieldID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field ID"})
		return
	}

	var req CreateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	field, err := h.service.UpdateField(userID, fieldID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, field)
}

// DeleteField removes a field registration
// DELETE /api/v1/fields/:id
func (h *Handler) DeleteField(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	fieldID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field ID"})
		return
	}

	if err := h.service.DeleteField(userID, fieldID); err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CreateMachinery registers a sprayer/drone/aircraft
// POST /api/v1/machineries
func (h *Handler) CreateMachinery(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req CreateMachineryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	machinery, err := h.service.CreateMachinery(userID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, machinery)
}

// ListMachineries returns the user's machines plus the shared fleet
// GET /api/v1/machineries
func (h *Handler) ListMachineries(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	machineries, err := h.service.ListMachineries(userID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, machineries)
}

// GetMachinery returns an owned or shared machine
// GET /api/v1/machineries/:id
func (h *Handler) GetMachinery(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	machineryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid machinery ID"})
		return
	}

	machinery, err := h.service.GetMachinery(userID, machineryID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, machinery)
}

// UpdateMachinery edits an owned machine
// PUT /api/v1/machineries/:id
func (h *Handler) UpdateMachinery(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	machineryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid machinery ID"})
		return
	}

	var req CreateMachineryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	machinery, err := h.service.UpdateMachinery(userID, machineryID, &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, machinery)
}

// DeleteMachinery removes an owned machine
// DELETE /api/v1/machineries/:id
func (h *Handler) DeleteMachinery(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	machineryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid machinery ID"})
		return
	}

	if err := h.service.DeleteMachinery(userID, machineryID); err != nil {
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
