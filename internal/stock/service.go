package stock

import (
	"fmt"
	"time"

	"farmops/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateEntryRequest struct {
	ProductID    uuid.UUID  `json:"product_id" binding:"required"`
	Quantity     float64    `json:"quantity" binding:"required"`
	UnitPrice    *float64   `json:"unit_price,omitempty"`
	MovementDate *time.Time `json:"movement_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// CreateEntry appends an entry movement to the ledger (a purchase or other
// stock intake).
func (s *Service) CreateEntry(userID uuid.UUID, req *CreateEntryRequest) (*StockMovement, error) {
	if req.Quantity <= 0 {
		return nil, common.NewValidationError("quantity must be positive")
	}
	if req.UnitPrice != nil && *req.UnitPrice < 0 {
		return nil, common.NewValidationError("unit_price must not be negative")
	}

	movementDate := time.Now().UTC()
	if req.MovementDate != nil {
		movementDate = *req.MovementDate
	}

	refType := ReferenceEntry
	movement := StockMovement{
		UserID:        userID,
		ProductID:     req.ProductID,
		MovementType:  MovementEntry,
		Quantity:      common.Round2(req.Quantity),
		UnitPrice:     req.UnitPrice,
		ReferenceType: &refType,
		MovementDate:  movementDate,
		Notes:         req.Notes,
	}

	if err := s.db.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to create stock entry: %w", err)
	}
	return &movement, nil
}

// ListMovements returns ledger entries, optionally filtered by product,
// newest first.
func (s *Service) ListMovements(userID uuid.UUID, productID *uuid.UUID) ([]StockMovement, error) {
	query := s.db.Where("user_id = ?", userID)
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	}

	var movements []StockMovement
	if err := query.Order("movement_date DESC, created_at DESC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}

// GetBalance returns the current ledger balance for a product.
func (s *Service) GetBalance(userID, productID uuid.UUID) (float64, error) {
	balance, err := Balance(s.db, userID, productID)
	if err != nil {
		return 0, err
	}
	return common.Round2(balance), nil
}

// GetAvailable returns the available-to-promise quantity for a product.
func (s *Service) GetAvailable(userID, productID uuid.UUID) (float64, error) {
	available, err := AvailableToPromise(s.db, userID, productID, uuid.Nil)
	if err != nil {
		return 0, err
	}
	return common.Round2(available), nil
}
