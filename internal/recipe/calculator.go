package recipe

import (
	"farmops/internal/common"
)

// Basis modes: which of the two interconvertible figures the user fixed.
// liters = area x rate must hold whichever side is the independent variable.
const (
	BasisLiters = "liters" // liters of solution fixed, area derived
	BasisArea   = "area"   // area fixed, liters derived
)

// ResolveBasis derives the dependent figure from the fixed one so that
// liters = area x rate always holds. Both results come back rounded to two
// decimals.
func ResolveBasis(mode string, rateLitersPerHectare, liters, area float64) (float64, float64, error) {
	if rateLitersPerHectare <= 0 {
		return 0, 0, common.NewValidationError("application rate must be positive")
	}

	switch mode {
	case BasisLiters:
		if liters <= 0 {
			return 0, 0, common.NewValidationError("liters_of_solution must be positive")
		}
		return common.Round2(liters), common.Round2(liters / rateLitersPerHectare), nil
	case BasisArea:
		if area <= 0 {
			return 0, 0, common.NewValidationError("area_hectares must be positive")
		}
		return common.Round2(area * rateLitersPerHectare), common.Round2(area), nil
	default:
		return 0, 0, common.NewValidationError("invalid basis mode: %s", mode)
	}
}

// CheckTankCapacity rejects a recipe whose single tank-load exceeds the
// selected machine's tank. This is the server-side hard block; the UI
// warning alone is not trusted.
func CheckTankCapacity(liters, tankCapacityLiters float64) error {
	if liters > tankCapacityLiters {
		return common.NewValidationError(
			"liters of solution %.2f exceeds tank capacity %.2f", liters, tankCapacityLiters)
	}
	return nil
}

// Allocation is the quantity of a product one recipe consumes:
// dosage x single-tank-load area x number of tank loads.
func Allocation(dosage, areaHectares, multiplier float64) float64 {
	return common.Round2(dosage * areaHectares * multiplier)
}

// Remaining is what is left of the application's total after all prior
// recipes and this one. A negative result is persisted as-is: it flags
// over-allocation for the UI without blocking the write.
func Remaining(totalQuantityUsed, priorConsumed, quantityInRecipe float64) float64 {
	return common.Round2(totalQuantityUsed - priorConsumed - quantityInRecipe)
}
