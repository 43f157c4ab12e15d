package catalog

import (
	"farmops/internal/common"

	"github.com/google/uuid"
)

// Units of measure used for products
const (
	UnitLiters    = "L"
	UnitKilograms = "kg"
)

// Machinery types
const (
	MachineryTypeSprayer  = "sprayer"
	MachineryTypeDrone    = "drone"
	MachineryTypeAircraft = "aircraft"
)

// Product is an immutable reference entity; stock levels live in the
// movement ledger, never on this row.
type Product struct {
	common.BaseModel
	UserID   uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Name     string    `json:"name" gorm:"not null;size:120"`
	Unit     string    `json:"unit" gorm:"not null;size:10"` // L, kg
	MinStock float64   `json:"min_stock" gorm:"default:0"`   // low-stock alert threshold
}

func (Product) TableName() string {
	return "products"
}

// Field represents a cultivated plot; its total area bounds partial-area
// applications.
type Field struct {
	common.BaseModel
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name" gorm:"not null;size:120"`
	AreaHectares float64   `json:"area_hectares" gorm:"not null"`
}

func (Field) TableName() string {
	return "fields"
}

// Machinery is a sprayer/drone/aircraft with a tank capacity. Owner is
// nullable for shared fleets.
type Machinery struct {
	common.BaseModel
	UserID             *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	Name               string     `json:"name" gorm:"not null;size:120"`
	Type               string     `json:"type" gorm:"not null;size:20"` // sprayer, drone, aircraft
	TankCapacityLiters float64    `json:"tank_capacity_liters" gorm:"not null"`
}

func (Machinery) TableName() string {
	return "machineries"
}
