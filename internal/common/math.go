package common

import "math"

// Round2 rounds to two decimal places with round-half-up on the scaled
// integer, so displayed and persisted figures never drift apart across
// recompute cycles.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
