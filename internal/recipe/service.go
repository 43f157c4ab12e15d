package recipe

import (
	"errors"
	"fmt"

	"farmops/internal/application"
	"farmops/internal/catalog"
	"farmops/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
}

func NewService(db *gorm.DB, catalogService *catalog.Service) *Service {
	return &Service{db: db, catalog: catalogService}
}

// =============================================
// 1. REQUEST / RESPONSE TYPES
// =============================================

type RecipeRequest struct {
	MachineryID         uuid.UUID   `json:"machinery_id" binding:"required"`
	CapacityUsedPercent float64     `json:"capacity_used_percent,omitempty"` // defaults to 100
	ApplicationRate     float64     `json:"application_rate_liters_per_hectare" binding:"required"`
	BasisMode           string      `json:"basis_mode" binding:"required"` // liters or area
	LitersOfSolution    float64     `json:"liters_of_solution,omitempty"`
	AreaHectares        float64     `json:"area_hectares,omitempty"`
	Multiplier          float64     `json:"multiplier,omitempty"` // defaults to 1
	Notes               string      `json:"notes,omitempty"`
	ProductIDs          []uuid.UUID `json:"product_ids" binding:"required"` // products selected from the application's line items
}

// RecipeLine is one computed per-product allocation, used by both the
// preview endpoint and the persisted recipe products.
type RecipeLine struct {
	ProductID         uuid.UUID `json:"product_id"`
	Dosage            float64   `json:"dosage"`
	QuantityInRecipe  float64   `json:"quantity_in_recipe"`
	RemainingQuantity float64   `json:"remaining_quantity"`
	OverAllocated     bool      `json:"over_allocated"`
}

type Preview struct {
	LitersOfSolution float64      `json:"liters_of_solution"`
	AreaHectares     float64      `json:"area_hectares"`
	Multiplier       float64      `json:"multiplier"`
	Lines            []RecipeLine `json:"lines"`
}

// =============================================
// 2. CALCULATION CORE
// =============================================

// compute resolves the basis, enforces the tank-capacity bound against the
// chosen machine and derives every selected product's allocation.
// excludeRecipeID removes the recipe being edited from the prior-recipe
// consumption so its old allocation is not double-subtracted.
func (s *Service) compute(userID uuid.UUID, app *application.Application, req *RecipeRequest, excludeRecipeID uuid.UUID) (*Preview, error) {
	if len(req.ProductIDs) == 0 {
		return nil, common.NewValidationError("at least one product must be selected")
	}

	multiplier := req.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}
	if multiplier < 0 {
		return nil, common.NewValidationError("multiplier must be positive")
	}

	liters, area, err := ResolveBasis(req.BasisMode, req.ApplicationRate, req.LitersOfSolution, req.AreaHectares)
	if err != nil {
		return nil, err
	}

	machinery, err := s.catalog.GetMachinery(userID, req.MachineryID)
	if err != nil {
		return nil, err
	}
	if err := CheckTankCapacity(liters, machinery.TankCapacityLiters); err != nil {
		return nil, err
	}

	itemsByProduct := make(map[uuid.UUID]application.ApplicationProduct, len(app.Products))
	for _, item := range app.Products {
		itemsByProduct[item.ProductID] = item
	}

	prior, err := s.priorConsumption(app.ID, excludeRecipeID)
	if err != nil {
		return nil, err
	}

	lines := make([]RecipeLine, 0, len(req.ProductIDs))
	for _, productID := range req.ProductIDs {
		item, ok := itemsByProduct[productID]
		if !ok {
			return nil, common.NewValidationError(
				"product %s is not a line item of this application", productID)
		}

		quantity := Allocation(item.Dosage, area, multiplier)
		remaining := Remaining(item.QuantityUsed, prior[productID], quantity)

		lines = append(lines, RecipeLine{
			ProductID:         productID,
			Dosage:            item.Dosage,
			QuantityInRecipe:  quantity,
			RemainingQuantity: remaining,
			OverAllocated:     remaining < 0,
		})
	}

	return &Preview{
		LitersOfSolution: liters,
		AreaHectares:     area,
		Multiplier:       multiplier,
		Lines:            lines,
	}, nil
}

// priorConsumption sums quantity_in_recipe per product across the
// application's existing recipes.
func (s *Service) priorConsumption(applicationID, excludeRecipeID uuid.UUID) (map[uuid.UUID]float64, error) {
	query := `
		SELECT prp.product_id, COALESCE(SUM(prp.quantity_in_recipe), 0)
		FROM practical_recipe_products prp
		JOIN practical_recipes pr ON pr.id = prp.practical_recipe_id
		WHERE pr.application_id = ?
	`
	args := []interface{}{applicationID}
	if excludeRecipeID != uuid.Nil {
		query += " AND pr.id <> ?"
		args = append(args, excludeRecipeID)
	}
	query += " GROUP BY prp.product_id"

	rows, err := s.db.Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query prior recipe consumption: %w", err)
	}
	defer rows.Close()

	consumed := make(map[uuid.UUID]float64)
	for rows.Next() {
		var productID uuid.UUID
		var total float64
		if err := rows.Scan(&productID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan prior consumption row: %w", err)
		}
		consumed[productID] = total
	}
	return consumed, rows.Err()
}

// =============================================
// 3. CRUD
// =============================================

// PreviewRecipe computes a recipe without writing anything; the UI calls
// this for live recomputation while the form changes.
func (s *Service) PreviewRecipe(userID, applicationID uuid.UUID, req *RecipeRequest) (*Preview, error) {
	app, err := s.loadApplication(userID, applicationID)
	if err != nil {
		return nil, err
	}
	return s.compute(userID, app, req, uuid.Nil)
}

func (s *Service) Create(userID, applicationID uuid.UUID, req *RecipeRequest) (*PracticalRecipe, error) {
	app, err := s.loadApplication(userID, applicationID)
	if err != nil {
		return nil, err
	}

	preview, err := s.compute(userID, app, req, uuid.Nil)
	if err != nil {
		return nil, err
	}

	capacityUsed := req.CapacityUsedPercent
	if capacityUsed == 0 {
		capacityUsed = 100
	}

	rec := PracticalRecipe{
		ApplicationID:                   app.ID,
		MachineryID:                     req.MachineryID,
		CapacityUsedPercent:             capacityUsed,
		ApplicationRateLitersPerHectare: req.ApplicationRate,
		LitersOfSolution:                preview.LitersOfSolution,
		AreaHectares:                    preview.AreaHectares,
		Multiplier:                      preview.Multiplier,
		Notes:                           req.Notes,
		CreatedBy:                       userID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}

		products := recipeProducts(rec.ID, preview.Lines)
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("failed to create recipe products: %w", err)
		}
		rec.Products = products
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *Service) Get(userID, recipeID uuid.UUID) (*PracticalRecipe, error) {
	var rec PracticalRecipe
	if err := s.db.Preload("Products").
		Joins("JOIN applications ON applications.id = practical_recipes.application_id").
		Where("practical_recipes.id = ? AND applications.user_id = ?", recipeID, userID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "recipe", ID: recipeID.String()}
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &rec, nil
}

// ListForApplication returns recipes in creation order, matching how
// remaining quantities were computed.
func (s *Service) ListForApplication(userID, applicationID uuid.UUID) ([]PracticalRecipe, error) {
	if _, err := s.loadApplication(userID, applicationID); err != nil {
		return nil, err
	}

	var recipes []PracticalRecipe
	if err := s.db.Preload("Products").
		Where("application_id = ?", applicationID).
		Order("created_at").
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// Update rewrites the recipe row and replaces its product rows wholesale.
// The recipe's own prior allocation is excluded from the remaining-quantity
// recomputation.
func (s *Service) Update(userID, recipeID uuid.UUID, req *RecipeRequest) (*PracticalRecipe, error) {
	rec, err := s.Get(userID, recipeID)
	if err != nil {
		return nil, err
	}

	app, err := s.loadApplication(userID, rec.ApplicationID)
	if err != nil {
		return nil, err
	}

	preview, err := s.compute(userID, app, req, rec.ID)
	if err != nil {
		return nil, err
	}

	capacityUsed := req.CapacityUsedPercent
	if capacityUsed == 0 {
		capacityUsed = 100
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"machinery_id":                        req.MachineryID,
			"capacity_used_percent":               capacityUsed,
			"application_rate_liters_per_hectare": req.ApplicationRate,
			"liters_of_solution":                  preview.LitersOfSolution,
			"area_hectares":                       preview.AreaHectares,
			"multiplier":                          preview.Multiplier,
			"notes":                               req.Notes,
		}
		if err := tx.Model(&PracticalRecipe{}).
			Where("id = ?", rec.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}

		if err := tx.Where("practical_recipe_id = ?", rec.ID).
			Delete(&PracticalRecipeProduct{}).Error; err != nil {
			return fmt.Errorf("failed to delete recipe products: %w", err)
		}

		products := recipeProducts(rec.ID, preview.Lines)
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("failed to create recipe products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, recipeID)
}

// Delete removes the recipe-product rows and then the recipe row.
func (s *Service) Delete(userID, recipeID uuid.UUID) error {
	rec, err := s.Get(userID, recipeID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("practical_recipe_id = ?", rec.ID).
			Delete(&PracticalRecipeProduct{}).Error; err != nil {
			return fmt.Errorf("failed to delete recipe products: %w", err)
		}
		if err := tx.Where("id = ?", rec.ID).
			Delete(&PracticalRecipe{}).Error; err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
}

// =============================================
// 4. HELPERS
// =============================================

func (s *Service) loadApplication(userID, applicationID uuid.UUID) (*application.Application, error) {
	var app application.Application
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

func recipeProducts(recipeID uuid.UUID, lines []RecipeLine) []PracticalRecipeProduct {
	products := make([]PracticalRecipeProduct, 0, len(lines))
	for _, line := range lines {
		products = append(products, PracticalRecipeProduct{
			PracticalRecipeID: recipeID,
			ProductID:         line.ProductID,
			Dosage:            line.Dosage,
			QuantityInRecipe:  line.QuantityInRecipe,
			RemainingQuantity: line.RemainingQuantity,
		})
	}
	return products
}
