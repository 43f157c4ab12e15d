package alert_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"farmops/internal/alert"
	"farmops/internal/catalog"
	"farmops/internal/stock"
	"farmops/internal/testutil"
)

func seedProductWithStock(t *testing.T, db *gorm.DB, userID uuid.UUID, name string, minStock, balance float64) *catalog.Product {
	t.Helper()
	product := catalog.Product{
		UserID:   userID,
		Name:     name,
		Unit:     catalog.UnitLiters,
		MinStock: minStock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	if balance > 0 {
		movement := stock.StockMovement{
			UserID:       userID,
			ProductID:    product.ID,
			MovementType: stock.MovementEntry,
			Quantity:     balance,
			MovementDate: time.Now().UTC(),
		}
		if err := db.Create(&movement).Error; err != nil {
			t.Fatalf("failed to seed movement: %v", err)
		}
	}
	return &product
}

func TestScanLowStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	userID := uuid.New()

	low := seedProductWithStock(t, db, userID, "Roundup", 50, 20)
	seedProductWithStock(t, db, userID, "Karate Zeon", 50, 60)
	// Zero threshold means the product opted out of alerting.
	seedProductWithStock(t, db, userID, "Adjuvant", 0, 0)

	alerts, err := alert.NewService(db).ScanLowStock()
	if err != nil {
		t.Fatalf("ScanLowStock returned error: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].ProductID != low.ID {
		t.Errorf("alerted product = %s, want %s", alerts[0].ProductID, low.ID)
	}
	if alerts[0].Balance != 20 {
		t.Errorf("balance = %v, want 20", alerts[0].Balance)
	}
	if alerts[0].MinStock != 50 {
		t.Errorf("min stock = %v, want 50", alerts[0].MinStock)
	}
}

func TestScanLowStockCountsUnstockedProducts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	userID := uuid.New()

	// A thresholded product with an empty ledger is below its minimum.
	seedProductWithStock(t, db, userID, "Roundup", 10, 0)

	alerts, err := alert.NewService(db).ScanLowStock()
	if err != nil {
		t.Fatalf("ScanLowStock returned error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
}
