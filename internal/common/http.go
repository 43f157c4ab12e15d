package common

import (
	"errors"
	"net/http"
)

// HTTPStatus maps domain errors to HTTP status codes so every handler
// answers consistently.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		stockErr      *InsufficientStockError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &stockErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
