package database

import (
	"farmops/internal/application"
	"farmops/internal/catalog"
	"farmops/internal/media"
	"farmops/internal/recipe"
	"farmops/internal/stock"

	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		// Catalog models
		&catalog.Product{},
		&catalog.Field{},
		&catalog.Machinery{},
		// Stock ledger
		&stock.StockMovement{},
		// Application models
		&application.Application{},
		&application.ApplicationProduct{},
		// Recipe models
		&recipe.PracticalRecipe{},
		&recipe.PracticalRecipeProduct{},
		// Attachments
		&media.ApplicationAttachment{},
	)
	if err != nil {
		return err
	}

	if err := createStockIndexes(db); err != nil {
		return err
	}

	if err := createApplicationIndexes(db); err != nil {
		return err
	}

	return createRecipeIndexes(db)
}

func createStockIndexes(db *gorm.DB) error {
	// Balance reduction scans the ledger per product
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stock_movements_product
		ON stock_movements (product_id, movement_date DESC)
	`).Error; err != nil {
		return err
	}

	// Movements are looked up by their originating record on deletes
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stock_movements_reference
		ON stock_movements (reference_type, reference_id)
	`).Error
}

func createApplicationIndexes(db *gorm.DB) error {
	// Reservation projection filters planned applications per user
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_applications_user_status
		ON applications (user_id, status)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_application_products_application
		ON application_products (application_id)
	`).Error
}

func createRecipeIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_practical_recipes_application
		ON practical_recipes (application_id, created_at)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_practical_recipe_products_recipe
		ON practical_recipe_products (practical_recipe_id)
	`).Error
}
