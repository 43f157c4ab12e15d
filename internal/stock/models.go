package stock

import (
	"time"

	"farmops/internal/common"

	"github.com/google/uuid"
)

// Movement kinds. The ledger carries two historical spellings for each
// direction; both are honored on read, new rows always use the lowercase
// canonical form.
const (
	MovementEntry = "entry"
	MovementExit  = "exit"

	// Legacy aliases still present in older rows
	MovementLegacyIn  = "IN"
	MovementLegacyOut = "OUT"
)

// Reference kinds for the originating record of a movement
const (
	ReferenceEntry       = "entry"
	ReferenceApplication = "application"
)

// StockMovement is an immutable ledger entry. Rows are append-only; the
// signed sum of all movements for a product equals current physical stock.
type StockMovement struct {
	common.BaseModel
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;index"`
	MovementType  string     `json:"movement_type" gorm:"not null;size:10"` // entry, exit (legacy: IN, OUT)
	Quantity      float64    `json:"quantity" gorm:"not null"`
	UnitPrice     *float64   `json:"unit_price,omitempty"` // entries only
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty" gorm:"type:uuid;index"`
	ReferenceType *string    `json:"reference_type,omitempty" gorm:"size:20"` // entry, application
	MovementDate  time.Time  `json:"movement_date" gorm:"not null"`
	Notes         string     `json:"notes,omitempty" gorm:"type:text"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// IsEntry reports whether the movement adds to stock, tolerating the legacy
// uppercase spelling.
func IsEntry(movementType string) bool {
	return movementType == MovementEntry || movementType == MovementLegacyIn
}

// IsExit reports whether the movement subtracts from stock.
func IsExit(movementType string) bool {
	return movementType == MovementExit || movementType == MovementLegacyOut
}
