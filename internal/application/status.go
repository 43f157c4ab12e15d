package application

import (
	"strings"

	"farmops/internal/common"
)

// Status is the closed set of application states. The persisted spellings
// are the historical uppercase forms; every legacy alias normalizes onto
// one of these three.
type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusCompleted Status = "DONE"
	StatusCancelled Status = "CANCELED"
)

// NormalizeStatus maps any accepted spelling onto the canonical status.
// Accepted: planned/PLANNED, completed/done/DONE, cancelled/canceled/CANCELED
// (case-insensitive).
func NormalizeStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "planned":
		return StatusPlanned, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", common.NewValidationError("invalid status: %s", raw)
	}
}

// IsTerminal reports whether no further status transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
