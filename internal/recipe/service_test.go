package recipe_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"farmops/internal/application"
	"farmops/internal/catalog"
	"farmops/internal/common"
	"farmops/internal/recipe"
	"farmops/internal/testutil"
)

type fixture struct {
	db        *gorm.DB
	svc       *recipe.Service
	userID    uuid.UUID
	appID     uuid.UUID
	product   *catalog.Product
	machinery *catalog.Machinery
}

// newFixture seeds an application committing 200 units of one product at
// dosage 2, and a sprayer with a 500 liter tank.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	userID := uuid.New()

	product := catalog.Product{UserID: userID, Name: "Roundup", Unit: catalog.UnitLiters}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	machinery := catalog.Machinery{
		UserID:             &userID,
		Name:               "John Deere R4040i",
		Type:               catalog.MachineryTypeSprayer,
		TankCapacityLiters: 500,
	}
	if err := db.Create(&machinery).Error; err != nil {
		t.Fatalf("failed to seed machinery: %v", err)
	}

	app := application.Application{
		UserID:          userID,
		Name:            "herbicide pass",
		FieldID:         uuid.New(),
		ApplicationDate: time.Now().UTC(),
		Status:          string(application.StatusPlanned),
	}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("failed to seed application: %v", err)
	}

	item := application.ApplicationProduct{
		ApplicationID: app.ID,
		ProductID:     product.ID,
		Dosage:        2,
		QuantityUsed:  200,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed application product: %v", err)
	}

	return &fixture{
		db:        db,
		svc:       recipe.NewService(db, catalog.NewService(db)),
		userID:    userID,
		appID:     app.ID,
		product:   &product,
		machinery: &machinery,
	}
}

// request builds a 40 ha tank load at 10 L/ha, 400 liters of solution.
func (f *fixture) request() *recipe.RecipeRequest {
	return &recipe.RecipeRequest{
		MachineryID:     f.machinery.ID,
		ApplicationRate: 10,
		BasisMode:       recipe.BasisArea,
		AreaHectares:    40,
		ProductIDs:      []uuid.UUID{f.product.ID},
	}
}

func TestPreviewComputesAllocation(t *testing.T) {
	f := newFixture(t)

	preview, err := f.svc.PreviewRecipe(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("PreviewRecipe returned error: %v", err)
	}

	if preview.LitersOfSolution != 400 {
		t.Errorf("liters = %v, want 400", preview.LitersOfSolution)
	}
	if preview.AreaHectares != 40 {
		t.Errorf("area = %v, want 40", preview.AreaHectares)
	}
	if len(preview.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(preview.Lines))
	}

	line := preview.Lines[0]
	if line.QuantityInRecipe != 80 {
		t.Errorf("quantity in recipe = %v, want 80", line.QuantityInRecipe)
	}
	if line.RemainingQuantity != 120 {
		t.Errorf("remaining = %v, want 120", line.RemainingQuantity)
	}
	if line.OverAllocated {
		t.Error("first tank load must not be over-allocated")
	}
}

func TestPreviewWritesNothing(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.PreviewRecipe(f.userID, f.appID, f.request()); err != nil {
		t.Fatalf("PreviewRecipe returned error: %v", err)
	}

	var count int64
	f.db.Model(&recipe.PracticalRecipe{}).Count(&count)
	if count != 0 {
		t.Errorf("recipes = %d, want 0 after preview", count)
	}
}

func TestCreateSequenceTracksRemaining(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if first.Products[0].RemainingQuantity != 120 {
		t.Errorf("first remaining = %v, want 120", first.Products[0].RemainingQuantity)
	}

	second, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if second.Products[0].RemainingQuantity != 40 {
		t.Errorf("second remaining = %v, want 40", second.Products[0].RemainingQuantity)
	}

	// The third load over-allocates; it is flagged in the preview but the
	// write is not blocked.
	preview, err := f.svc.PreviewRecipe(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("PreviewRecipe returned error: %v", err)
	}
	if preview.Lines[0].RemainingQuantity != -40 {
		t.Errorf("third remaining = %v, want -40", preview.Lines[0].RemainingQuantity)
	}
	if !preview.Lines[0].OverAllocated {
		t.Error("third tank load must be flagged over-allocated")
	}

	third, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("over-allocating create must not be blocked: %v", err)
	}
	if third.Products[0].RemainingQuantity != -40 {
		t.Errorf("persisted remaining = %v, want -40", third.Products[0].RemainingQuantity)
	}
}

func TestCreateRejectsTankOverflow(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.AreaHectares = 60 // 600 liters against a 500 liter tank

	_, err := f.svc.Create(f.userID, f.appID, req)
	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateRejectsForeignProduct(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.ProductIDs = []uuid.UUID{uuid.New()}

	_, err := f.svc.Create(f.userID, f.appID, req)
	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateDoesNotDoubleSubtractItself(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// An unchanged edit must land on the same remaining quantity, because
	// the recipe's own prior allocation is excluded from the recomputation.
	updated, err := f.svc.Update(f.userID, first.ID, f.request())
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Products[0].RemainingQuantity != 120 {
		t.Errorf("remaining after no-op edit = %v, want 120", updated.Products[0].RemainingQuantity)
	}
}

func TestUpdateRecomputesAgainstSiblings(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := f.svc.Create(f.userID, f.appID, f.request()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Shrinking the first load to 20 ha: allocation 40, siblings consume 80,
	// remaining 200 - 80 - 40 = 80.
	req := f.request()
	req.AreaHectares = 20
	updated, err := f.svc.Update(f.userID, first.ID, req)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Products[0].QuantityInRecipe != 40 {
		t.Errorf("quantity = %v, want 40", updated.Products[0].QuantityInRecipe)
	}
	if updated.Products[0].RemainingQuantity != 80 {
		t.Errorf("remaining = %v, want 80", updated.Products[0].RemainingQuantity)
	}
}

func TestDeleteRemovesProductRows(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := f.svc.Delete(f.userID, rec.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var count int64
	f.db.Model(&recipe.PracticalRecipeProduct{}).
		Where("practical_recipe_id = ?", rec.ID).
		Count(&count)
	if count != 0 {
		t.Errorf("recipe products = %d, want 0", count)
	}

	_, err = f.svc.Get(f.userID, rec.ID)
	var notFound *common.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGetEnforcesOwnershipThroughApplication(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.Create(f.userID, f.appID, f.request())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err = f.svc.Get(uuid.New(), rec.ID)
	var notFound *common.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for foreign user, got %v", err)
	}
}
