package money

import (
	"github.com/shopspring/decimal"

	dErrors "fakturo/pkg/domain-errors"
)

// maxPercentScale bounds the precision of a rate; four decimal places cover
// every tax rate in circulation.
const maxPercentScale = 4

var hundred = decimal.NewFromInt(100)

// Percentage is a rate in [0, 100] with at most four decimal places.
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage validates and wraps a rate.
func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.IsNegative() {
		return Percentage{}, dErrors.Newf(dErrors.CodeInvariantViolation, "percentage %s cannot be negative", value)
	}
	if value.GreaterThan(hundred) {
		return Percentage{}, dErrors.Newf(dErrors.CodeInvariantViolation, "percentage %s cannot exceed 100", value)
	}
	if !value.Round(maxPercentScale).Equal(value) {
		return Percentage{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"percentage %s exceeds %d decimal places", value, maxPercentScale)
	}
	return Percentage{value: value}, nil
}

// PercentageFromString parses a decimal string into a Percentage.
func PercentageFromString(s string) (Percentage, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percentage{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "percentage is not a valid decimal")
	}
	return NewPercentage(d)
}

// MustPercentage parses a rate or panics. For tests and literals only.
func MustPercentage(s string) Percentage {
	p, err := PercentageFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ZeroPercent is the 0% rate.
func ZeroPercent() Percentage { return Percentage{value: decimal.Zero} }

// Value returns the rate as a decimal in [0, 100].
func (p Percentage) Value() decimal.Decimal { return p.value }

// Fraction returns the rate as a decimal fraction (20% → 0.2), unrounded.
func (p Percentage) Fraction() decimal.Decimal { return p.value.Div(hundred) }

// ApplyTo returns amount × rate/100, rounded half-up to the currency scale.
func (p Percentage) ApplyTo(amount Money) Money {
	return amount.Multiply(p.Fraction())
}

// Equal reports whether two rates have the same numeric value.
func (p Percentage) Equal(other Percentage) bool { return p.value.Equal(other.value) }

// IsZero reports whether the rate is 0%.
func (p Percentage) IsZero() bool { return p.value.IsZero() }

func (p Percentage) String() string { return p.value.String() + "%" }
