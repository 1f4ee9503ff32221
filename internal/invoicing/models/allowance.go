package models

import (
	"fakturo/internal/money"
	dErrors "fakturo/pkg/domain-errors"
)

// AllowanceCharge is a discount (allowance) or surcharge (charge) applied at
// document or line level.
//
// Invariants:
//   - amount is non-negative; the sign is carried by the kind
//   - when both a base amount and a percentage are given, the amount must
//     reconcile with base × percentage within the tax tolerance
//   - base amount, if given, shares the amount's currency
type AllowanceCharge struct {
	isCharge    bool
	amount      money.Money
	baseAmount  *money.Money
	percentage  *money.Percentage
	reason      string
	taxCategory *TaxCategory
	taxRate     *money.Percentage
}

// AllowanceChargeOption configures optional fields.
type AllowanceChargeOption func(*AllowanceCharge)

// WithReason attaches a human-readable justification.
func WithReason(reason string) AllowanceChargeOption {
	return func(ac *AllowanceCharge) { ac.reason = reason }
}

// WithBase records that the amount derives from base × percentage.
func WithBase(base money.Money, percentage money.Percentage) AllowanceChargeOption {
	return func(ac *AllowanceCharge) {
		ac.baseAmount = &base
		ac.percentage = &percentage
	}
}

// WithTax attaches the tax treatment of the allowance or charge.
func WithTax(category TaxCategory, rate money.Percentage) AllowanceChargeOption {
	return func(ac *AllowanceCharge) {
		ac.taxCategory = &category
		ac.taxRate = &rate
	}
}

// NewCharge constructs a surcharge.
func NewCharge(amount money.Money, opts ...AllowanceChargeOption) (AllowanceCharge, error) {
	return newAllowanceCharge(true, amount, opts...)
}

// NewAllowance constructs a discount.
func NewAllowance(amount money.Money, opts ...AllowanceChargeOption) (AllowanceCharge, error) {
	return newAllowanceCharge(false, amount, opts...)
}

func newAllowanceCharge(isCharge bool, amount money.Money, opts ...AllowanceChargeOption) (AllowanceCharge, error) {
	ac := AllowanceCharge{isCharge: isCharge, amount: amount}
	for _, opt := range opts {
		opt(&ac)
	}
	if amount.IsNegative() {
		return AllowanceCharge{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"allowance/charge amount %s cannot be negative", amount)
	}
	if ac.baseAmount != nil {
		if !ac.baseAmount.Currency().Equal(amount.Currency()) {
			return AllowanceCharge{}, dErrors.Newf(dErrors.CodeInvariantViolation,
				"base amount currency %s does not match %s", ac.baseAmount.Currency(), amount.Currency())
		}
		expected := ac.percentage.ApplyTo(*ac.baseAmount)
		diff := amount.Amount().Sub(expected.Amount()).Abs()
		if diff.GreaterThan(taxTolerance) {
			return AllowanceCharge{}, dErrors.Newf(dErrors.CodeInvariantViolation,
				"amount %s does not reconcile with %s × %s = %s", amount, ac.baseAmount, ac.percentage, expected)
		}
	}
	if ac.taxCategory != nil && !ac.taxCategory.RequiresRate() && ac.taxRate != nil && !ac.taxRate.IsZero() {
		return AllowanceCharge{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"category %s forbids a rate on allowance/charge", ac.taxCategory)
	}
	return ac, nil
}

// IsCharge reports whether this is a surcharge (true) or discount (false).
func (ac AllowanceCharge) IsCharge() bool { return ac.isCharge }

// Amount returns the unsigned amount.
func (ac AllowanceCharge) Amount() money.Money { return ac.amount }

// BaseAmount returns the base the amount derives from, if recorded.
func (ac AllowanceCharge) BaseAmount() (money.Money, bool) {
	if ac.baseAmount == nil {
		return money.Money{}, false
	}
	return *ac.baseAmount, true
}

// Percentage returns the derivation rate, if recorded.
func (ac AllowanceCharge) Percentage() (money.Percentage, bool) {
	if ac.percentage == nil {
		return money.Percentage{}, false
	}
	return *ac.percentage, true
}

// Reason returns the textual justification, if any.
func (ac AllowanceCharge) Reason() string { return ac.reason }

// TaxCategory returns the tax treatment, if recorded.
func (ac AllowanceCharge) TaxCategory() (TaxCategory, bool) {
	if ac.taxCategory == nil {
		return TaxCategory{}, false
	}
	return *ac.taxCategory, true
}

// TaxRate returns the tax rate of the allowance or charge, if recorded.
func (ac AllowanceCharge) TaxRate() (money.Percentage, bool) {
	if ac.taxRate == nil {
		return money.Percentage{}, false
	}
	return *ac.taxRate, true
}

// EffectiveAmount returns the signed contribution: positive for charges,
// negative for allowances.
func (ac AllowanceCharge) EffectiveAmount() money.Money {
	if ac.isCharge {
		return ac.amount
	}
	return ac.amount.Negate()
}
