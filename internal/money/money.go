// Package money provides the exact-decimal scalar value types for the
// invoicing domain: Money, Currency, Percentage, Quantity and ExchangeRate.
//
// All arithmetic runs on fixed-scale decimals (shopspring/decimal); binary
// floating point never enters the package. Values validate their invariants
// on construction and are immutable afterwards: every operation returns a
// fresh value. Rounding is explicit, half-up, and happens only at the
// multiply/divide boundary.
package money

import (
	"github.com/shopspring/decimal"

	dErrors "fakturo/pkg/domain-errors"
)

// Money is an exact amount in one currency.
//
// Invariants:
//   - the currency is set
//   - the amount carries no more decimal places than the currency's scale
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New constructs a Money, enforcing the scale invariant. Amounts with
// trailing zeros beyond the currency scale (1.200 EUR) are accepted since
// they carry no extra information.
func New(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency.IsZero() {
		return Money{}, dErrors.New(dErrors.CodeInvariantViolation, "money requires a currency")
	}
	if !amount.Round(currency.Scale).Equal(amount) {
		return Money{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"amount %s exceeds the %d decimal places of %s", amount, currency.Scale, currency.Code)
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewFromString parses a decimal string into a Money.
func NewFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount is not a valid decimal")
	}
	return New(d, currency)
}

// Zero returns the zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// MustNew constructs a Money or panics. For tests and literals only.
func MustNew(amount string, currency Currency) Money {
	m, err := NewFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the underlying decimal value.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency of the amount.
func (m Money) Currency() Currency { return m.currency }

func (m Money) sameCurrency(other Money) error {
	if !m.currency.Equal(other.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"currency mismatch: %s vs %s", m.currency.Code, other.currency.Code)
	}
	return nil
}

// Add returns m + other. Fails on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m − other. Fails on currency mismatch.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Multiply returns m × factor, rounded half-up to the currency scale.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(m.currency.Scale), currency: m.currency}
}

// Divide returns m ÷ divisor, rounded half-up to the currency scale.
// Fails on division by zero.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, dErrors.New(dErrors.CodeInvariantViolation, "division by zero")
	}
	return Money{amount: m.amount.Div(divisor).Round(m.currency.Scale), currency: m.currency}, nil
}

// Negate returns −m.
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Cmp compares two amounts of the same currency: -1, 0 or +1.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal reports structural equality: same currency and same numeric value.
func (m Money) Equal(other Money) bool {
	return m.currency.Equal(other.currency) && m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// StringFixed renders the amount with exactly the currency's scale.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.Scale)
}

func (m Money) String() string {
	return m.StringFixed() + " " + m.currency.Code
}
