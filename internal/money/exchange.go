package money

import (
	"time"

	"github.com/shopspring/decimal"

	dErrors "fakturo/pkg/domain-errors"
)

// ExchangeRate converts amounts from one currency to another at a dated rate.
//
// Invariants:
//   - both currencies set, and distinct
//   - rate strictly positive
type ExchangeRate struct {
	from Currency
	to   Currency
	rate decimal.Decimal
	date time.Time
}

// NewExchangeRate validates and wraps a conversion rate.
func NewExchangeRate(from, to Currency, rate decimal.Decimal, date time.Time) (ExchangeRate, error) {
	if from.IsZero() || to.IsZero() {
		return ExchangeRate{}, dErrors.New(dErrors.CodeInvariantViolation, "exchange rate requires both currencies")
	}
	if from.Equal(to) {
		return ExchangeRate{}, dErrors.Newf(dErrors.CodeInvariantViolation, "exchange rate currencies must differ, got %s", from.Code)
	}
	if !rate.IsPositive() {
		return ExchangeRate{}, dErrors.Newf(dErrors.CodeInvariantViolation, "exchange rate %s must be positive", rate)
	}
	return ExchangeRate{from: from, to: to, rate: rate, date: date}, nil
}

// From returns the source currency.
func (r ExchangeRate) From() Currency { return r.from }

// To returns the target currency.
func (r ExchangeRate) To() Currency { return r.to }

// Rate returns the conversion factor.
func (r ExchangeRate) Rate() decimal.Decimal { return r.rate }

// Date returns the rate's reference date.
func (r ExchangeRate) Date() time.Time { return r.date }

// Convert applies the rate to an amount in the source currency, rounding
// half-up to the target currency's scale.
func (r ExchangeRate) Convert(m Money) (Money, error) {
	if !m.Currency().Equal(r.from) {
		return Money{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"cannot convert %s with a %s→%s rate", m.Currency().Code, r.from.Code, r.to.Code)
	}
	return Money{amount: m.Amount().Mul(r.rate).Round(r.to.Scale), currency: r.to}, nil
}
