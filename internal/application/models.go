package application

import (
	"time"

	"farmops/internal/common"

	"github.com/google/uuid"
)

// Application is a planned or completed pesticide application event.
type Application struct {
	common.BaseModel
	UserID          uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Name            string     `json:"name" gorm:"not null;size:160"`
	FieldID         uuid.UUID  `json:"field_id" gorm:"type:uuid;not null;index"`
	HarvestYearID   *uuid.UUID `json:"harvest_year_id,omitempty" gorm:"type:uuid"`
	FieldCropID     *uuid.UUID `json:"field_crop_id,omitempty" gorm:"type:uuid"`
	ApplicationDate time.Time  `json:"application_date" gorm:"not null"`
	Status          string     `json:"status" gorm:"not null;size:12"` // PLANNED, DONE, CANCELED
	IsPartial       bool       `json:"is_partial" gorm:"default:false"`
	PartialArea     *float64   `json:"partial_area,omitempty"`
	Notes           string     `json:"notes,omitempty" gorm:"type:text"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	Products []ApplicationProduct `json:"products,omitempty" gorm:"foreignKey:ApplicationID"`
}

func (Application) TableName() string {
	return "applications"
}

// ApplicationProduct is one line item: a product, its per-hectare dosage and
// the total quantity the application consumes. Rows are owned exclusively by
// their application and replaced wholesale on edit.
type ApplicationProduct struct {
	common.BaseModel
	ApplicationID uuid.UUID `json:"application_id" gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Dosage        float64   `json:"dosage" gorm:"not null"` // per hectare
	DosageUnit    string    `json:"dosage_unit,omitempty" gorm:"size:20"`
	QuantityUsed  float64   `json:"quantity_used" gorm:"not null"` // dosage x effective area
	Cost          *float64  `json:"cost,omitempty"`
}

func (ApplicationProduct) TableName() string {
	return "application_products"
}

// EffectiveArea returns the area the application actually covers: the
// partial area when set, the field's full area otherwise.
func (a *Application) EffectiveArea(fieldArea float64) float64 {
	if a.IsPartial && a.PartialArea != nil {
		return *a.PartialArea
	}
	return fieldArea
}
