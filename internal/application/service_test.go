package application_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"farmops/internal/application"
	"farmops/internal/catalog"
	"farmops/internal/common"
	"farmops/internal/stock"
	"farmops/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	svc     *application.Service
	userID  uuid.UUID
	field   *catalog.Field
	product *catalog.Product
}

// newFixture seeds a user with one 50 ha field, one product and 100 units of
// stock.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	userID := uuid.New()

	field := catalog.Field{UserID: userID, Name: "North field", AreaHectares: 50}
	if err := db.Create(&field).Error; err != nil {
		t.Fatalf("failed to seed field: %v", err)
	}

	product := catalog.Product{UserID: userID, Name: "Roundup", Unit: catalog.UnitLiters}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	entry := stock.StockMovement{
		UserID:       userID,
		ProductID:    product.ID,
		MovementType: stock.MovementEntry,
		Quantity:     100,
		MovementDate: time.Now().UTC(),
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("failed to seed stock entry: %v", err)
	}

	return &fixture{
		db:      db,
		svc:     application.NewService(db, nil),
		userID:  userID,
		field:   &field,
		product: &product,
	}
}

func (f *fixture) createRequest(status string, quantity float64) *application.CreateApplicationRequest {
	return &application.CreateApplicationRequest{
		Name:            "herbicide pass",
		FieldID:         f.field.ID,
		ApplicationDate: time.Now().UTC(),
		Status:          status,
		Products: []application.LineItemRequest{
			{ProductID: f.product.ID, Dosage: 1, QuantityUsed: quantity},
		},
	}
}

func (f *fixture) countMovements(t *testing.T, movementType string) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&stock.StockMovement{}).
		Where("user_id = ? AND movement_type = ?", f.userID, movementType).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count movements: %v", err)
	}
	return count
}

func TestCreatePlannedWritesNoMovements(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if app.Status != string(application.StatusPlanned) {
		t.Errorf("status = %s, want PLANNED", app.Status)
	}
	if app.CompletedAt != nil {
		t.Error("planned application must not have completed_at")
	}
	if got := f.countMovements(t, stock.MovementExit); got != 0 {
		t.Errorf("exit movements = %d, want 0", got)
	}
}

func TestCreateDefaultsToPlanned(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if app.Status != string(application.StatusPlanned) {
		t.Errorf("status = %s, want PLANNED", app.Status)
	}
}

func TestCreateCompletedDeductsStock(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("completed", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if app.Status != string(application.StatusCompleted) {
		t.Errorf("status = %s, want DONE", app.Status)
	}
	if app.CompletedAt == nil {
		t.Error("completed application must have completed_at")
	}

	var movement stock.StockMovement
	if err := f.db.Where("movement_type = ? AND reference_id = ?",
		stock.MovementExit, app.ID).First(&movement).Error; err != nil {
		t.Fatalf("expected one exit movement: %v", err)
	}
	if movement.Quantity != 40 {
		t.Errorf("exit quantity = %v, want 40", movement.Quantity)
	}
	if movement.ReferenceType == nil || *movement.ReferenceType != stock.ReferenceApplication {
		t.Error("exit movement must reference the application")
	}

	balance, err := stock.Balance(f.db, f.userID, f.product.ID)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if balance != 60 {
		t.Errorf("balance = %v, want 60", balance)
	}
}

func TestCreateCompletedWithShortfallWritesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.userID, f.createRequest("completed", 150))

	var stockErr *common.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	var appCount int64
	f.db.Model(&application.Application{}).Where("user_id = ?", f.userID).Count(&appCount)
	if appCount != 0 {
		t.Errorf("applications = %d, want 0 after rollback", appCount)
	}

	var itemCount int64
	f.db.Model(&application.ApplicationProduct{}).Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("line items = %d, want 0 after rollback", itemCount)
	}

	if got := f.countMovements(t, stock.MovementExit); got != 0 {
		t.Errorf("exit movements = %d, want 0 after rollback", got)
	}
}

func TestCreateRequiresLineItems(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest("planned", 40)
	req.Products = nil
	_, err := f.svc.Create(f.userID, req)

	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateDerivesQuantityFromDosage(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest("planned", 0)
	req.Products[0].Dosage = 1.5
	app, err := f.svc.Create(f.userID, req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 1.5 per hectare across the full 50 ha field
	if got := app.Products[0].QuantityUsed; got != 75 {
		t.Errorf("derived quantity = %v, want 75", got)
	}
}

func TestCreatePartialAreaValidation(t *testing.T) {
	f := newFixture(t)

	tooBig := 80.0
	req := f.createRequest("planned", 40)
	req.IsPartial = true
	req.PartialArea = &tooBig

	_, err := f.svc.Create(f.userID, req)
	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for oversized partial area, got %v", err)
	}

	req.PartialArea = nil
	_, err = f.svc.Create(f.userID, req)
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for missing partial area, got %v", err)
	}
}

func TestUpdateTransitionToCompletedDeductsOncePerItem(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	status := "completed"
	updated, err := f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{Status: &status})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Status != string(application.StatusCompleted) {
		t.Errorf("status = %s, want DONE", updated.Status)
	}
	if got := f.countMovements(t, stock.MovementExit); got != 1 {
		t.Errorf("exit movements = %d, want 1", got)
	}
}

func TestUpdateExcludesOwnReservation(t *testing.T) {
	f := newFixture(t)

	// The planned application reserves the full balance. Completing it must
	// still succeed: its own reservation cannot count against itself.
	app, err := f.svc.Create(f.userID, f.createRequest("planned", 100))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	status := "completed"
	if _, err := f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{Status: &status}); err != nil {
		t.Fatalf("completing a fully reserving application failed: %v", err)
	}
}

func TestUpdateShortfallRollsBackEverything(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Another planned application reserves most of the stock, leaving only
	// 30 available to the first one.
	if _, err := f.svc.Create(f.userID, f.createRequest("planned", 70)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	status := "completed"
	name := "renamed pass"
	_, err = f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{
		Name:   &name,
		Status: &status,
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	reloaded, err := f.svc.Get(f.userID, app.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if reloaded.Name != "herbicide pass" {
		t.Errorf("name = %q, rename must roll back with the failed transition", reloaded.Name)
	}
	if reloaded.Status != string(application.StatusPlanned) {
		t.Errorf("status = %s, want PLANNED after rollback", reloaded.Status)
	}
	if got := f.countMovements(t, stock.MovementExit); got != 0 {
		t.Errorf("exit movements = %d, want 0 after rollback", got)
	}
}

func TestUpdateReplacesLineItemsWholesale(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	originalItemID := app.Products[0].ID

	second := catalog.Product{UserID: f.userID, Name: "Karate Zeon", Unit: catalog.UnitLiters}
	if err := f.db.Create(&second).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	replacement := []application.LineItemRequest{
		{ProductID: f.product.ID, Dosage: 2, QuantityUsed: 20},
		{ProductID: second.ID, Dosage: 0.5, QuantityUsed: 25},
	}
	updated, err := f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{Products: &replacement})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updated.Products) != 2 {
		t.Fatalf("line items = %d, want 2", len(updated.Products))
	}
	for _, item := range updated.Products {
		if item.ID == originalItemID {
			t.Error("line item identity must not survive a replace")
		}
	}
}

func TestUpdateRejectsItemReplaceOnCompleted(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("completed", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	replacement := []application.LineItemRequest{
		{ProductID: f.product.ID, Dosage: 1, QuantityUsed: 10},
	}
	_, err = f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{Products: &replacement})

	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateRejectsTransitionFromTerminal(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("completed", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	status := "cancelled"
	_, err = f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{Status: &status})

	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCancelPlannedReleasesReservation(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 100))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	available, err := stock.AvailableToPromise(f.db, f.userID, f.product.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("AvailableToPromise returned error: %v", err)
	}
	if available != 0 {
		t.Fatalf("available = %v, want 0 while reserved", available)
	}

	status := "cancelled"
	if _, err := f.svc.Update(f.userID, app.ID, &application.UpdateApplicationRequest{Status: &status}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	available, err = stock.AvailableToPromise(f.db, f.userID, f.product.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("AvailableToPromise returned error: %v", err)
	}
	if available != 100 {
		t.Errorf("available = %v, want 100 after cancel", available)
	}
}

func TestDeleteRemovesLineItems(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := f.svc.Delete(f.userID, app.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var itemCount int64
	f.db.Model(&application.ApplicationProduct{}).
		Where("application_id = ?", app.ID).
		Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("line items = %d, want 0", itemCount)
	}

	_, err = f.svc.Get(f.userID, app.ID)
	var notFound *common.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(f.userID, f.createRequest("planned", 40))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err = f.svc.Get(uuid.New(), app.ID)
	var notFound *common.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for foreign user, got %v", err)
	}
}
