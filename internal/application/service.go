package application

import (
	"errors"
	"fmt"
	"time"

	"farmops/internal/catalog"
	"farmops/internal/common"
	"farmops/internal/stock"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service coordinates multi-table writes for applications and keeps the
// stock ledger consistent with status transitions. Every multi-table write
// runs in one database transaction, so a failed step rolls back the whole
// operation on both the create and the update path.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// =============================================
// 1. REQUEST TYPES
// =============================================

type LineItemRequest struct {
	ProductID    uuid.UUID `json:"product_id" binding:"required"`
	Dosage       float64   `json:"dosage" binding:"required"`
	DosageUnit   string    `json:"dosage_unit,omitempty"`
	QuantityUsed float64   `json:"quantity_used,omitempty"` // derived from dosage x area when omitted
	Cost         *float64  `json:"cost,omitempty"`
}

type CreateApplicationRequest struct {
	Name            string            `json:"name" binding:"required"`
	FieldID         uuid.UUID         `json:"field_id" binding:"required"`
	HarvestYearID   *uuid.UUID        `json:"harvest_year_id,omitempty"`
	FieldCropID     *uuid.UUID        `json:"field_crop_id,omitempty"`
	ApplicationDate time.Time         `json:"application_date" binding:"required"`
	Status          string            `json:"status,omitempty"` // defaults to planned
	IsPartial       bool              `json:"is_partial,omitempty"`
	PartialArea     *float64          `json:"partial_area,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Products        []LineItemRequest `json:"products" binding:"required"`
}

type UpdateApplicationRequest struct {
	Name            *string            `json:"name,omitempty"`
	FieldID         *uuid.UUID         `json:"field_id,omitempty"`
	HarvestYearID   *uuid.UUID         `json:"harvest_year_id,omitempty"`
	FieldCropID     *uuid.UUID         `json:"field_crop_id,omitempty"`
	ApplicationDate *time.Time         `json:"application_date,omitempty"`
	Status          *string            `json:"status,omitempty"`
	IsPartial       *bool              `json:"is_partial,omitempty"`
	PartialArea     *float64           `json:"partial_area,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Products        *[]LineItemRequest `json:"products,omitempty"` // nil keeps existing items, non-nil replaces wholesale
}

// =============================================
// 2. CREATE
// =============================================

func (s *Service) Create(userID uuid.UUID, req *CreateApplicationRequest) (*Application, error) {
	status := StatusPlanned
	if req.Status != "" {
		var err error
		status, err = NormalizeStatus(req.Status)
		if err != nil {
			return nil, err
		}
	}

	if len(req.Products) == 0 {
		return nil, common.NewValidationError("at least one product line item is required")
	}

	field, err := s.loadField(userID, req.FieldID)
	if err != nil {
		return nil, err
	}

	effectiveArea, err := resolveEffectiveArea(field, req.IsPartial, req.PartialArea)
	if err != nil {
		return nil, err
	}

	items, err := buildLineItems(req.Products, effectiveArea)
	if err != nil {
		return nil, err
	}

	app := Application{
		UserID:          userID,
		Name:            req.Name,
		FieldID:         req.FieldID,
		HarvestYearID:   req.HarvestYearID,
		FieldCropID:     req.FieldCropID,
		ApplicationDate: req.ApplicationDate,
		Status:          string(status),
		IsPartial:       req.IsPartial,
		PartialArea:     req.PartialArea,
		Notes:           req.Notes,
	}
	if status == StatusCompleted {
		now := time.Now().UTC()
		app.CompletedAt = &now
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// A completed application deducts stock immediately, so availability
		// is checked under product row locks before anything is written.
		if status == StatusCompleted {
			if err := lockProducts(tx, requirementProducts(items)); err != nil {
				return err
			}
			if err := stock.ValidateAvailability(tx, userID, uuid.Nil, requirements(items)); err != nil {
				return err
			}
		}

		if err := tx.Create(&app).Error; err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		for i := range items {
			items[i].ApplicationID = app.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create application products: %w", err)
		}

		if status == StatusCompleted {
			if err := writeExitMovements(tx, userID, app.ID, items); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	app.Products = items

	s.logger.Info("application created",
		zap.String("application_id", app.ID.String()),
		zap.String("status", app.Status),
		zap.Int("line_items", len(items)))

	return &app, nil
}

// =============================================
// 3. READ
// =============================================

func (s *Service) Get(userID, applicationID uuid.UUID) (*Application, error) {
	var app Application
	if err := s.db.Preload("Products").
		Where("id = ? AND user_id = ?", applicationID, userID).
		First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "application", ID: applicationID.String()}
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

func (s *Service) List(userID uuid.UUID) ([]Application, error) {
	var apps []Application
	if err := s.db.Preload("Products").
		Where("user_id = ?", userID).
		Order("application_date DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// =============================================
// 4. UPDATE
// =============================================

func (s *Service) Update(userID, applicationID uuid.UUID, req *UpdateApplicationRequest) (*Application, error) {
	app, err := s.Get(userID, applicationID)
	if err != nil {
		return nil, err
	}

	currentStatus, err := NormalizeStatus(app.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored status: %w", err)
	}

	newStatus := currentStatus
	if req.Status != nil {
		newStatus, err = NormalizeStatus(*req.Status)
		if err != nil {
			return nil, err
		}
	}

	if newStatus != currentStatus && currentStatus.IsTerminal() {
		return nil, common.NewValidationError("status %s is terminal and cannot change", currentStatus)
	}

	isChangingToDone := currentStatus == StatusPlanned && newStatus == StatusCompleted

	if req.Products != nil {
		if len(*req.Products) == 0 {
			return nil, common.NewValidationError("at least one product line item is required")
		}
		if currentStatus != StatusPlanned {
			return nil, common.NewValidationError("line items can only be replaced while the application is planned")
		}
	}

	fieldID := app.FieldID
	if req.FieldID != nil {
		fieldID = *req.FieldID
	}
	field, err := s.loadField(userID, fieldID)
	if err != nil {
		return nil, err
	}

	isPartial := app.IsPartial
	if req.IsPartial != nil {
		isPartial = *req.IsPartial
	}
	partialArea := app.PartialArea
	if req.PartialArea != nil {
		partialArea = req.PartialArea
	}
	effectiveArea, err := resolveEffectiveArea(field, isPartial, partialArea)
	if err != nil {
		return nil, err
	}

	var replacement []ApplicationProduct
	if req.Products != nil {
		replacement, err = buildLineItems(*req.Products, effectiveArea)
		if err != nil {
			return nil, err
		}
	}

	// The items the transition deducts: the replacement list when supplied,
	// the pre-existing line items otherwise.
	deductItems := app.Products
	if replacement != nil {
		deductItems = replacement
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if isChangingToDone {
			if err := lockProducts(tx, requirementProducts(deductItems)); err != nil {
				return err
			}
			// The application's own planned reservation must not count
			// against itself.
			if err := stock.ValidateAvailability(tx, userID, app.ID, requirements(deductItems)); err != nil {
				return err
			}
		}

		// Allow-list of updatable columns; nothing else can slip through a
		// partial update.
		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.FieldID != nil {
			updates["field_id"] = *req.FieldID
		}
		if req.HarvestYearID != nil {
			updates["harvest_year_id"] = *req.HarvestYearID
		}
		if req.FieldCropID != nil {
			updates["field_crop_id"] = *req.FieldCropID
		}
		if req.ApplicationDate != nil {
			updates["application_date"] = *req.ApplicationDate
		}
		if req.IsPartial != nil {
			updates["is_partial"] = *req.IsPartial
		}
		if req.PartialArea != nil {
			updates["partial_area"] = *req.PartialArea
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		if newStatus != currentStatus {
			updates["status"] = string(newStatus)
			if newStatus == StatusCompleted {
				updates["completed_at"] = time.Now().UTC()
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&Application{}).
				Where("id = ?", app.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update application: %w", err)
			}
		}

		if replacement != nil {
			// Wholesale replace: delete all, insert all. Line-item identity
			// does not survive an edit.
			if err := tx.Where("application_id = ?", app.ID).
				Delete(&ApplicationProduct{}).Error; err != nil {
				return fmt.Errorf("failed to delete application products: %w", err)
			}
			for i := range replacement {
				replacement[i].ApplicationID = app.ID
			}
			if err := tx.Create(&replacement).Error; err != nil {
				return fmt.Errorf("failed to create application products: %w", err)
			}
		}

		if isChangingToDone {
			if err := writeExitMovements(tx, userID, app.ID, deductItems); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if isChangingToDone {
		s.logger.Info("application completed, stock deducted",
			zap.String("application_id", app.ID.String()),
			zap.Int("movements", len(deductItems)))
	}

	return s.Get(userID, applicationID)
}

// =============================================
// 5. DELETE
// =============================================

// Delete removes line items and then the application row. The two-step
// delete guarantees line items never outlive their parent even without a
// cascade constraint.
func (s *Service) Delete(userID, applicationID uuid.UUID) error {
	if _, err := s.Get(userID, applicationID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", applicationID).
			Delete(&ApplicationProduct{}).Error; err != nil {
			return fmt.Errorf("failed to delete application products: %w", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", applicationID, userID).
			Delete(&Application{}).Error; err != nil {
			return fmt.Errorf("failed to delete application: %w", err)
		}
		return nil
	})
}

// =============================================
// 6. HELPERS
// =============================================

func (s *Service) loadField(userID, fieldID uuid.UUID) (*catalog.Field, error) {
	var field catalog.Field
	if err := s.db.Where("id = ? AND user_id = ?", fieldID, userID).First(&field).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "field", ID: fieldID.String()}
		}
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return &field, nil
}

func resolveEffectiveArea(field *catalog.Field, isPartial bool, partialArea *float64) (float64, error) {
	if !isPartial {
		return field.AreaHectares, nil
	}
	if partialArea == nil {
		return 0, common.NewValidationError("partial_area is required for a partial application")
	}
	if *partialArea <= 0 {
		return 0, common.NewValidationError("partial_area must be positive")
	}
	if *partialArea > field.AreaHectares {
		return 0, common.NewValidationError(
			"partial_area %.2f exceeds field area %.2f", *partialArea, field.AreaHectares)
	}
	return *partialArea, nil
}

func buildLineItems(reqs []LineItemRequest, effectiveArea float64) ([]ApplicationProduct, error) {
	items := make([]ApplicationProduct, 0, len(reqs))
	for _, req := range reqs {
		if req.Dosage <= 0 {
			return nil, common.NewValidationError("dosage must be positive for product %s", req.ProductID)
		}

		quantity := req.QuantityUsed
		if quantity == 0 {
			quantity = common.Round2(req.Dosage * effectiveArea)
		}
		if quantity <= 0 {
			return nil, common.NewValidationError("quantity_used must be positive for product %s", req.ProductID)
		}

		items = append(items, ApplicationProduct{
			ProductID:    req.ProductID,
			Dosage:       req.Dosage,
			DosageUnit:   req.DosageUnit,
			QuantityUsed: common.Round2(quantity),
			Cost:         req.Cost,
		})
	}
	return items, nil
}

func requirements(items []ApplicationProduct) []stock.Requirement {
	reqs := make([]stock.Requirement, 0, len(items))
	for _, item := range items {
		reqs = append(reqs, stock.Requirement{ProductID: item.ProductID, Quantity: item.QuantityUsed})
	}
	return reqs
}

func requirementProducts(items []ApplicationProduct) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// lockProducts serializes completions per product: two transactions
// completing applications against the same product queue behind the row
// lock, closing the check-then-act race on availability. Sqlite (used in
// tests) is single-writer and has no FOR UPDATE.
func lockProducts(tx *gorm.DB, productIDs []uuid.UUID) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var locked []catalog.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", productIDs).
		Order("id").
		Find(&locked).Error; err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	return nil
}

// writeExitMovements appends one exit movement per line item, referencing
// the application that consumed the stock.
func writeExitMovements(tx *gorm.DB, userID, applicationID uuid.UUID, items []ApplicationProduct) error {
	refType := stock.ReferenceApplication
	now := time.Now().UTC()
	for _, item := range items {
		movement := stock.StockMovement{
			UserID:        userID,
			ProductID:     item.ProductID,
			MovementType:  stock.MovementExit,
			Quantity:      item.QuantityUsed,
			ReferenceID:   &applicationID,
			ReferenceType: &refType,
			MovementDate:  now,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}
	}
	return nil
}
