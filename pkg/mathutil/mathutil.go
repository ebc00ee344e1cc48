// Package mathutil provides the numeric helpers behind the KPI and variance
// calculations.
//
// None of the helpers guard against zero denominators: dividing by zero
// yields ±Inf or NaN exactly as IEEE 754 float division does, and callers
// rely on that.
package mathutil

import (
	"math"

	"github.com/iwvelando/controller-toolbox/pkg/constants"
)

// Round rounds a value to two decimals, halves to even. NaN and ±Inf pass
// through.
func Round(val float64) float64 {
	return math.RoundToEven(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// PercentOf returns part as a percentage of whole.
func PercentOf(part, whole float64) float64 {
	return part / whole * constants.PercentageMultiplier
}

// PercentChange returns the relative change from previous to current in
// percent.
func PercentChange(previous, current float64) float64 {
	return (current/previous - 1) * constants.PercentageMultiplier
}

// WithinTolerance checks if two values are within a specified tolerance.
// Two NaN values or two equal infinities are considered within tolerance.
func WithinTolerance(val1, val2, tolerance float64) bool {
	if math.IsNaN(val1) || math.IsNaN(val2) {
		return math.IsNaN(val1) && math.IsNaN(val2)
	}
	if math.IsInf(val1, 0) || math.IsInf(val2, 0) {
		return val1 == val2
	}
	return math.Abs(val1-val2) <= tolerance
}
