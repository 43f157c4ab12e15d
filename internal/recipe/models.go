package recipe

import (
	"farmops/internal/common"

	"github.com/google/uuid"
)

// PracticalRecipe is one concrete spraying batch derived from an
// application: a machine, an application rate and a number of tank loads.
type PracticalRecipe struct {
	common.BaseModel
	ApplicationID                   uuid.UUID `json:"application_id" gorm:"type:uuid;not null;index"`
	MachineryID                     uuid.UUID `json:"machinery_id" gorm:"type:uuid;not null"`
	CapacityUsedPercent             float64   `json:"capacity_used_percent" gorm:"default:100"`
	ApplicationRateLitersPerHectare float64   `json:"application_rate_liters_per_hectare" gorm:"not null"`
	LitersOfSolution                float64   `json:"liters_of_solution" gorm:"not null"`
	AreaHectares                    float64   `json:"area_hectares" gorm:"not null"`
	Multiplier                      float64   `json:"multiplier" gorm:"default:1"`
	Notes                           string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedBy                       uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`

	Products []PracticalRecipeProduct `json:"products,omitempty" gorm:"foreignKey:PracticalRecipeID"`
}

func (PracticalRecipe) TableName() string {
	return "practical_recipes"
}

// PracticalRecipeProduct freezes one product's allocation at write time.
// Dosage is copied from the application's line item when the recipe is
// created; remaining_quantity is not recalculated retroactively when
// sibling recipes change.
type PracticalRecipeProduct struct {
	common.BaseModel
	PracticalRecipeID uuid.UUID `json:"practical_recipe_id" gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Dosage            float64   `json:"dosage" gorm:"not null"`
	QuantityInRecipe  float64   `json:"quantity_in_recipe" gorm:"not null"`
	RemainingQuantity float64   `json:"remaining_quantity" gorm:"not null"` // negative flags over-allocation
}

func (PracticalRecipeProduct) TableName() string {
	return "practical_recipe_products"
}
