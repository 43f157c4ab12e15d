package catalog_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"farmops/internal/catalog"
	"farmops/internal/common"
	"farmops/internal/testutil"
)

func TestCreateProductValidatesUnit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.NewService(db)

	_, err := svc.CreateProduct(uuid.New(), &catalog.CreateProductRequest{
		Name: "Roundup",
		Unit: "gallons",
	})

	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProductCRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.NewService(db)
	userID := uuid.New()

	product, err := svc.CreateProduct(userID, &catalog.CreateProductRequest{
		Name:     "Roundup",
		Unit:     catalog.UnitLiters,
		MinStock: 25,
	})
	if err != nil {
		t.Fatalf("CreateProduct returned error: %v", err)
	}

	got, err := svc.GetProduct(userID, product.ID)
	if err != nil {
		t.Fatalf("GetProduct returned error: %v", err)
	}
	if got.MinStock != 25 {
		t.Errorf("min stock = %v, want 25", got.MinStock)
	}

	updated, err := svc.UpdateProduct(userID, product.ID, &catalog.CreateProductRequest{
		Name:     "Roundup PowerMax",
		Unit:     catalog.UnitLiters,
		MinStock: 50,
	})
	if err != nil {
		t.Fatalf("UpdateProduct returned error: %v", err)
	}
	if updated.Name != "Roundup PowerMax" {
		t.Errorf("name = %q, want Roundup PowerMax", updated.Name)
	}

	if err := svc.DeleteProduct(userID, product.ID); err != nil {
		t.Fatalf("DeleteProduct returned error: %v", err)
	}

	_, err = svc.GetProduct(userID, product.ID)
	var notFound *common.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestProductOwnershipIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.NewService(db)

	owner := uuid.New()
	product, err := svc.CreateProduct(owner, &catalog.CreateProductRequest{
		Name: "Roundup",
		Unit: catalog.UnitLiters,
	})
	if err != nil {
		t.Fatalf("CreateProduct returned error: %v", err)
	}

	_, err = svc.GetProduct(uuid.New(), product.ID)
	var notFound *common.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for foreign user, got %v", err)
	}
}

func TestCreateFieldValidatesArea(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.NewService(db)

	_, err := svc.CreateField(uuid.New(), &catalog.CreateFieldRequest{
		Name:         "North field",
		AreaHectares: -3,
	})

	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSharedFleetVisibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.NewService(db)
	userID := uuid.New()

	if _, err := svc.CreateMachinery(userID, &catalog.CreateMachineryRequest{
		Name:               "John Deere R4040i",
		Type:               catalog.MachineryTypeSprayer,
		TankCapacityLiters: 4000,
	}); err != nil {
		t.Fatalf("CreateMachinery returned error: %v", err)
	}

	// Shared fleet entry: no owner.
	shared := catalog.Machinery{
		Name:               "DJI Agras T50",
		Type:               catalog.MachineryTypeDrone,
		TankCapacityLiters: 40,
	}
	if err := db.Create(&shared).Error; err != nil {
		t.Fatalf("failed to seed shared machinery: %v", err)
	}

	machineries, err := svc.ListMachineries(userID)
	if err != nil {
		t.Fatalf("ListMachineries returned error: %v", err)
	}
	if len(machineries) != 2 {
		t.Fatalf("machineries = %d, want owned plus shared", len(machineries))
	}

	if _, err := svc.GetMachinery(userID, shared.ID); err != nil {
		t.Errorf("shared machinery must be readable: %v", err)
	}

	// Another user sees only the shared entry.
	others, err := svc.ListMachineries(uuid.New())
	if err != nil {
		t.Fatalf("ListMachineries returned error: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("machineries = %d, want 1 for foreign user", len(others))
	}

	// Shared fleet entries cannot be deleted by a non-owner.
	if err := svc.DeleteMachinery(uuid.New(), shared.ID); err == nil {
		t.Error("deleting a shared machine must fail")
	}
}

func TestCreateMachineryValidatesType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.NewService(db)

	_, err := svc.CreateMachinery(uuid.New(), &catalog.CreateMachineryRequest{
		Name:               "Tractor",
		Type:               "tractor",
		TankCapacityLiters: 100,
	})

	var valErr *common.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
