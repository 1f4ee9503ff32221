package money

import (
	"github.com/shopspring/decimal"

	dErrors "fakturo/pkg/domain-errors"
)

// maxQuantityScale bounds quantity precision to six decimal places.
const maxQuantityScale = 6

// Quantity is a non-negative amount of some unit (UN/ECE Recommendation 20
// codes such as "C62" piece, "HUR" hour, "KGM" kilogram).
type Quantity struct {
	value decimal.Decimal
	unit  string
}

// NewQuantity validates and wraps a quantity.
func NewQuantity(value decimal.Decimal, unit string) (Quantity, error) {
	if unit == "" {
		return Quantity{}, dErrors.New(dErrors.CodeInvariantViolation, "quantity requires a unit code")
	}
	if value.IsNegative() {
		return Quantity{}, dErrors.Newf(dErrors.CodeInvariantViolation, "quantity %s cannot be negative", value)
	}
	if !value.Round(maxQuantityScale).Equal(value) {
		return Quantity{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"quantity %s exceeds %d decimal places", value, maxQuantityScale)
	}
	return Quantity{value: value, unit: unit}, nil
}

// QuantityFromString parses a decimal string into a Quantity.
func QuantityFromString(s, unit string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "quantity is not a valid decimal")
	}
	return NewQuantity(d, unit)
}

// MustQuantity parses a quantity or panics. For tests and literals only.
func MustQuantity(s, unit string) Quantity {
	q, err := QuantityFromString(s, unit)
	if err != nil {
		panic(err)
	}
	return q
}

// Value returns the numeric quantity.
func (q Quantity) Value() decimal.Decimal { return q.value }

// Unit returns the UN/ECE unit code.
func (q Quantity) Unit() string { return q.unit }

func (q Quantity) sameUnit(other Quantity) error {
	if q.unit != other.unit {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unit mismatch: %s vs %s", q.unit, other.unit)
	}
	return nil
}

// Add returns q + other. Fails on unit mismatch.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if err := q.sameUnit(other); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Add(other.value), unit: q.unit}, nil
}

// Subtract returns q − other. Fails on unit mismatch or a negative result.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	if err := q.sameUnit(other); err != nil {
		return Quantity{}, err
	}
	result := q.value.Sub(other.value)
	if result.IsNegative() {
		return Quantity{}, dErrors.New(dErrors.CodeInvariantViolation, "quantity cannot go negative")
	}
	return Quantity{value: result, unit: q.unit}, nil
}

// Equal reports structural equality of value and unit.
func (q Quantity) Equal(other Quantity) bool {
	return q.unit == other.unit && q.value.Equal(other.value)
}

// IsZero reports whether the quantity is zero.
func (q Quantity) IsZero() bool { return q.value.IsZero() }

func (q Quantity) String() string { return q.value.String() + " " + q.unit }
