package alert

import (
	"fmt"
	"time"

	"farmops/internal/catalog"
	"farmops/internal/common"
	"farmops/internal/stock"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LowStockAlert describes a product whose ledger balance fell below its threshold.
type LowStockAlert struct {
	UserID      uuid.UUID `json:"user_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Unit        string    `json:"unit"`
	Balance     float64   `json:"balance"`
	MinStock    float64   `json:"min_stock"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Service scans product balances against their minimum stock thresholds.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ScanLowStock returns one alert per product whose balance is below min_stock.
// Products with a zero threshold are never reported.
func (s *Service) ScanLowStock() ([]LowStockAlert, error) {
	var products []catalog.Product
	if err := s.db.Where("min_stock > 0").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	now := time.Now().UTC()
	alerts := make([]LowStockAlert, 0)

	for _, product := range products {
		balance, err := stock.Balance(s.db, product.UserID, product.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance for product %s: %w", product.ID, err)
		}

		if balance < product.MinStock {
			alerts = append(alerts, LowStockAlert{
				UserID:      product.UserID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Unit:        product.Unit,
				Balance:     common.Round2(balance),
				MinStock:    product.MinStock,
				CheckedAt:   now,
			})
		}
	}

	return alerts, nil
}
