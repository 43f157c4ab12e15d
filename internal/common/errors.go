package common

import (
	"fmt"
	"strings"
)

// Shortfall describes one product that cannot be covered by available stock.
type Shortfall struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Unit        string  `json:"unit"`
	Available   float64 `json:"available"`
	Required    float64 `json:"required"`
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s (%s) - Available: %.2f, Required: %.2f",
		s.ProductName, s.Unit, s.Available, s.Required)
}

// InsufficientStockError aggregates every short product so the caller can show
// one consolidated message instead of failing item by item.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	lines := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		lines[i] = s.String()
	}
	return "insufficient stock: " + strings.Join(lines, "; ")
}

// ValidationError marks a request rejected before any write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a lookup for a record that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
