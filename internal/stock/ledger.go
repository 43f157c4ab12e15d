package stock

import (
	"fmt"

	"farmops/internal/catalog"
	"farmops/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Requirement is one (product, quantity) pair an operation wants to deduct
// from stock.
type Requirement struct {
	ProductID uuid.UUID
	Quantity  float64
}

// Balance reduces the ledger to the current physical stock for a product:
// entries add, exits subtract. Both historical spellings of each movement
// kind are honored.
//
// The db argument may be a transaction so callers can read the ledger under
// their own row locks.
func Balance(db *gorm.DB, userID, productID uuid.UUID) (float64, error) {
	var balance float64
	row := db.Raw(`
		SELECT COALESCE(SUM(
			CASE WHEN movement_type IN ('entry', 'IN') THEN quantity ELSE -quantity END
		), 0)
		FROM stock_movements
		WHERE user_id = ? AND product_id = ?
	`, userID, productID).Row()
	if err := row.Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to compute ledger balance: %w", err)
	}
	return balance, nil
}

// Reserved sums the quantities committed by applications still in planned
// status. Cancelled applications release their reservation and completed
// ones are already reflected in ledger exits, so neither contributes.
//
// excludeApplicationID removes the application under evaluation from the
// sum so an update never double-counts its own commitment; pass uuid.Nil
// for not-yet-created applications.
func Reserved(db *gorm.DB, userID, productID, excludeApplicationID uuid.UUID) (float64, error) {
	query := `
		SELECT COALESCE(SUM(ap.quantity_used), 0)
		FROM application_products ap
		JOIN applications a ON a.id = ap.application_id
		WHERE a.user_id = ? AND ap.product_id = ? AND a.status IN ('planned', 'PLANNED')
	`
	args := []interface{}{userID, productID}
	if excludeApplicationID != uuid.Nil {
		query += " AND a.id <> ?"
		args = append(args, excludeApplicationID)
	}

	var reserved float64
	row := db.Raw(query, args...).Row()
	if err := row.Scan(&reserved); err != nil {
		return 0, fmt.Errorf("failed to compute reserved quantity: %w", err)
	}
	return reserved, nil
}

// AvailableToPromise is the ledger balance minus reservations held by other
// planned applications.
func AvailableToPromise(db *gorm.DB, userID, productID, excludeApplicationID uuid.UUID) (float64, error) {
	balance, err := Balance(db, userID, productID)
	if err != nil {
		return 0, err
	}

	reserved, err := Reserved(db, userID, productID, excludeApplicationID)
	if err != nil {
		return 0, err
	}

	return balance - reserved, nil
}

// ValidateAvailability checks every requirement against available-to-promise
// stock and returns an aggregate InsufficientStockError naming each short
// product, or nil when all requirements are satisfiable.
func ValidateAvailability(db *gorm.DB, userID, excludeApplicationID uuid.UUID, requirements []Requirement) error {
	if len(requirements) == 0 {
		return nil
	}

	productIDs := make([]uuid.UUID, 0, len(requirements))
	for _, req := range requirements {
		productIDs = append(productIDs, req.ProductID)
	}

	var products []catalog.Product
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return fmt.Errorf("failed to load products for availability check: %w", err)
	}
	productByID := make(map[uuid.UUID]catalog.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	var shortfalls []common.Shortfall
	for _, req := range requirements {
		available, err := AvailableToPromise(db, userID, req.ProductID, excludeApplicationID)
		if err != nil {
			return err
		}

		if available < req.Quantity {
			product := productByID[req.ProductID]
			name := product.Name
			if name == "" {
				name = req.ProductID.String()
			}
			shortfalls = append(shortfalls, common.Shortfall{
				ProductID:   req.ProductID.String(),
				ProductName: name,
				Unit:        product.Unit,
				Available:   common.Round2(available),
				Required:    common.Round2(req.Quantity),
			})
		}
	}

	if len(shortfalls) > 0 {
		return &common.InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}
