// Package money holds the rounding and tolerance rules shared by the split
// calculator, the balance aggregator and the debt simplifier.
package money

import "github.com/shopspring/decimal"

// Tolerance is the largest absolute difference at which two amounts are
// still equal and a balance still counts as settled.
const Tolerance = 0.01

// Round2 rounds a float to 2 decimal places (half away from zero).
func Round2(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// ToCents converts an amount to whole cents, rounding half away from zero.
func ToCents(value float64) int64 {
	return decimal.NewFromFloat(value).Shift(2).Round(0).IntPart()
}

// FromCents converts whole cents back to an amount.
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// IsZero reports whether value is within Tolerance of zero, inclusive.
func IsZero(value float64) bool {
	return Equal(value, 0)
}

// IsZeroCents is IsZero for amounts already held in cents.
func IsZeroCents(cents int64) bool {
	return cents >= -1 && cents <= 1
}

// Equal reports whether a and b differ by no more than Tolerance.
func Equal(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().
		LessThanOrEqual(decimal.NewFromFloat(Tolerance))
}

// Abs returns the absolute value of value.
func Abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}

// Sum adds amounts in decimal space so long lists don't accumulate float drift.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}
