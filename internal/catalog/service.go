package catalog

import (
	"errors"
	"fmt"

	"farmops/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// =============================================
// 1. PRODUCTS
// =============================================

type CreateProductRequest struct {
	Name     string  `json:"name" binding:"required"`
	Unit     string  `json:"unit" binding:"required"`
	MinStock float64 `json:"min_stock"`
}

func (s *Service) CreateProduct(userID uuid.UUID, req *CreateProductRequest) (*Product, error) {
	if req.Unit != UnitLiters && req.Unit != UnitKilograms {
		return nil, common.NewValidationError("invalid unit: %s", req.Unit)
	}
	if req.MinStock < 0 {
		return nil, common.NewValidationError("min_stock must not be negative")
	}

	product := Product{
		UserID:   userID,
		Name:     req.Name,
		Unit:     req.Unit,
		MinStock: req.MinStock,
	}
	if err := s.db.Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (s *Service) GetProduct(userID, productID uuid.UUID) (*Product, error) {
	var product Product
	if err := s.db.Where("id = ? AND user_id = ?", productID, userID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "product", ID: productID.String()}
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (s *Service) ListProducts(userID uuid.UUID) ([]Product, error) {
	var products []Product
	if err := s.db.Where("user_id = ?", userID).Order("name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *Service) UpdateProduct(userID, productID uuid.UUID, req *CreateProductRequest) (*Product, error) {
	product, err := s.GetProduct(userID, productID)
	if err != nil {
		return nil, err
	}
	if req.Unit != UnitLiters && req.Unit != UnitKilograms {
		return nil, common.NewValidationError("invalid unit: %s", req.Unit)
	}

	updates := map[string]interface{}{
		"name":      req.Name,
		"unit":      req.Unit,
		"min_stock": req.MinStock,
	}
	if err := s.db.Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *Service) DeleteProduct(userID, productID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", productID, userID).Delete(&Product{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &common.NotFoundError{Resource: "product", ID: productID.String()}
	}
	return nil
}

// =============================================
// 2. FIELDS
// =============================================

type CreateFieldRequest struct {
	Name         string  `json:"name" binding:"required"`
	AreaHectares float64 `json:"area_hectares" binding:"required"`
}

func (s *Service) CreateField(userID uuid.UUID, req *CreateFieldRequest) (*Field, error) {
	if req.AreaHectares <= 0 {
		return nil, common.NewValidationError("area_hectares must be positive")
	}

	field := Field{
		UserID:       userID,
		Name:         req.Name,
		AreaHectares: req.AreaHectares,
	}
	if err := s.db.Create(&field).Error; err != nil {
		return nil, fmt.Errorf("failed to create field: %w", err)
	}
	return &field, nil
}

func (s *Service) GetField(userID, fieldID uuid.UUID) (*Field, error) {
	var field Field
	if err := s.db.Where("id = ? AND user_id = ?", fieldID, userID).First(&field).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "field", ID: fieldID.String()}
		}
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return &field, nil
}

func (s *Service) ListFields(userID uuid.UUID) ([]Field, error) {
	var fields []Field
	if err := s.db.Where("user_id = ?", userID).Order("name").Find(&fields).Error; err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return fields, nil
}

func (s *Service) UpdateField(userID, fieldID uuid.UUID, req *CreateFieldRequest) (*Field, error) {
	field, err := s.GetField(userID, fieldID)
	if err != nil {
		return nil, err
	}
	if req.AreaHectares <= 0 {
		return nil, common.NewValidationError("area_hectares must be positive")
	}

	updates := map[string]interface{}{
		"name":          req.Name,
		"area_hectares": req.AreaHectares,
	}
	if err := s.db.Model(field).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update field: %w", err)
	}
	return field, nil
}

func (s *Service) DeleteField(userID, fieldID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", fieldID, userID).Delete(&Field{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete field: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &common.NotFoundError{Resource: "field", ID: fieldID.String()}
	}
	return nil
}

// =============================================
// 3. MACHINERY
// =============================================

type CreateMachineryRequest struct {
	Name               string  `json:"name" binding:"required"`
	Type               string  `json:"type" binding:"required"`
	TankCapacityLiters float64 `json:"tank_capacity_liters" binding:"required"`
}

func (s *Service) CreateMachinery(userID uuid.UUID, req *CreateMachineryRequest) (*Machinery, error) {
	switch req.Type {
	case MachineryTypeSprayer, MachineryTypeDrone, MachineryTypeAircraft:
	default:
		return nil, common.NewValidationError("invalid machinery type: %s", req.Type)
	}
	if req.TankCapacityLiters <= 0 {
		return nil, common.NewValidationError("tank_capacity_liters must be positive")
	}

	machinery := Machinery{
		UserID:             &userID,
		Name:               req.Name,
		Type:               req.Type,
		TankCapacityLiters: req.TankCapacityLiters,
	}
	if err := s.db.Create(&machinery).Error; err != nil {
		return nil, fmt.Errorf("failed to create machinery: %w", err)
	}
	return &machinery, nil
}

// GetMachinery returns a machine owned by the user or part of the shared
// fleet (null owner).
func (s *Service) GetMachinery(userID, machineryID uuid.UUID) (*Machinery, error) {
	var machinery Machinery
	if err := s.db.Where("id = ? AND (user_id = ? OR user_id IS NULL)", machineryID, userID).
		First(&machinery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "machinery", ID: machineryID.String()}
		}
		return nil, fmt.Errorf("failed to get machinery: %w", err)
	}
	return &machinery, nil
}

func (s *Service) ListMachineries(userID uuid.UUID) ([]Machinery, error) {
	var machineries []Machinery
	if err := s.db.Where("user_id = ? OR user_id IS NULL", userID).Order("name").Find(&machineries).Error; err != nil {
		return nil, fmt.Errorf("failed to list machineries: %w", err)
	}
	return machineries, nil
}

// UpdateMachinery only edits machines the user owns, shared fleet entries
// are read only.
func (s *Service) UpdateMachinery(userID, machineryID uuid.UUID, req *CreateMachineryRequest) (*Machinery, error) {
	var machinery Machinery
	if err := s.db.Where("id = ? AND user_id = ?", machineryID, userID).First(&machinery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "machinery", ID: machineryID.String()}
		}
		return nil, fmt.Errorf("failed to get machinery: %w", err)
	}

	switch req.Type {
	case MachineryTypeSprayer, MachineryTypeDrone, MachineryTypeAircraft:
	default:
		return nil, common.NewValidationError("invalid machinery type: %s", req.Type)
	}
	if req.TankCapacityLiters <= 0 {
		return nil, common.NewValidationError("tank_capacity_liters must be positive")
	}

	updates := map[string]interface{}{
		"name":                 req.Name,
		"type":                 req.Type,
		"tank_capacity_liters": req.TankCapacityLiters,
	}
	if err := s.db.Model(&machinery).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update machinery: %w", err)
	}
	return &machinery, nil
}

func (s *Service) DeleteMachinery(userID, machineryID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", machineryID, userID).Delete(&Machinery{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete machinery: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &common.NotFoundError{Resource: "machinery", ID: machineryID.String()}
	}
	return nil
}
