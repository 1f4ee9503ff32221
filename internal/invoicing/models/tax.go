package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fakturo/internal/money"
	dErrors "fakturo/pkg/domain-errors"
)

// TaxCategory is the canonical tax treatment of an amount. Each variant
// carries two flags the composed types must satisfy: whether a non-trivial
// rate is expected, and whether an exemption reason is mandatory.
type TaxCategory struct {
	code                    string
	requiresRate            bool
	requiresExemptionReason bool
}

// Canonical tax categories. Custom categories for special regimes are
// constructed via NewCustomTaxCategory.
var (
	TaxCategoryStandard      = TaxCategory{code: "STANDARD", requiresRate: true}
	TaxCategoryReduced       = TaxCategory{code: "REDUCED", requiresRate: true}
	TaxCategoryZero          = TaxCategory{code: "ZERO"}
	TaxCategoryExempt        = TaxCategory{code: "EXEMPT", requiresExemptionReason: true}
	TaxCategoryReverseCharge = TaxCategory{code: "REVERSE_CHARGE", requiresExemptionReason: true}
	TaxCategoryExport        = TaxCategory{code: "EXPORT", requiresExemptionReason: true}
	TaxCategoryNotApplicable = TaxCategory{code: "NOT_APPLICABLE"}
	TaxCategorySpecial       = TaxCategory{code: "SPECIAL", requiresRate: true}
)

// CanonicalTaxCategories lists the built-in variants in a stable order.
func CanonicalTaxCategories() []TaxCategory {
	return []TaxCategory{
		TaxCategoryStandard,
		TaxCategoryReduced,
		TaxCategoryZero,
		TaxCategoryExempt,
		TaxCategoryReverseCharge,
		TaxCategoryExport,
		TaxCategoryNotApplicable,
		TaxCategorySpecial,
	}
}

// NewCustomTaxCategory constructs a jurisdiction-specific category.
func NewCustomTaxCategory(code string, requiresRate, requiresExemptionReason bool) (TaxCategory, error) {
	if code == "" {
		return TaxCategory{}, dErrors.New(dErrors.CodeInvariantViolation, "tax category code cannot be empty")
	}
	for _, c := range CanonicalTaxCategories() {
		if c.code == code {
			return TaxCategory{}, dErrors.Newf(dErrors.CodeConflict, "tax category code %s is reserved", code)
		}
	}
	return TaxCategory{code: code, requiresRate: requiresRate, requiresExemptionReason: requiresExemptionReason}, nil
}

// ParseTaxCategory resolves a canonical category by code.
func ParseTaxCategory(code string) (TaxCategory, error) {
	for _, c := range CanonicalTaxCategories() {
		if c.code == code {
			return c, nil
		}
	}
	return TaxCategory{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown tax category %q", code)
}

// Code returns the category code.
func (c TaxCategory) Code() string { return c.code }

// RequiresRate reports whether amounts in this category carry a tax rate.
// When false, the rate must be zero.
func (c TaxCategory) RequiresRate() bool { return c.requiresRate }

// RequiresExemptionReason reports whether a textual exemption reason is
// mandatory for this category.
func (c TaxCategory) RequiresExemptionReason() bool { return c.requiresExemptionReason }

// Equal reports whether two categories share the same code.
func (c TaxCategory) Equal(other TaxCategory) bool { return c.code == other.code }

// IsZero reports whether the category is unset.
func (c TaxCategory) IsZero() bool { return c.code == "" }

func (c TaxCategory) String() string { return c.code }

// taxTolerance is the maximum deviation between a declared tax amount and
// the amount recomputed from rate × taxable, in currency units.
var taxTolerance = decimal.New(1, -2) // 0.01

// TaxBreakdown is one per-category tax subtotal of an invoice.
//
// Invariants:
//   - taxable and tax amounts share one currency
//   - taxAmount == taxableAmount × rate/100 within 0.01 currency units
//   - categories without a rate requirement must carry a zero rate
//   - categories demanding an exemption reason must carry one
type TaxBreakdown struct {
	taxableAmount   money.Money
	taxAmount       money.Money
	category        TaxCategory
	rate            money.Percentage
	exemptionReason string
}

// NewTaxBreakdown validates and constructs a tax subtotal.
func NewTaxBreakdown(taxable, tax money.Money, category TaxCategory, rate money.Percentage, exemptionReason string) (TaxBreakdown, error) {
	if category.IsZero() {
		return TaxBreakdown{}, dErrors.New(dErrors.CodeInvariantViolation, "tax breakdown requires a category")
	}
	if !taxable.Currency().Equal(tax.Currency()) {
		return TaxBreakdown{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"tax breakdown currency mismatch: %s vs %s", taxable.Currency(), tax.Currency())
	}
	if !category.RequiresRate() && !rate.IsZero() {
		return TaxBreakdown{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"category %s forbids a rate, got %s", category, rate)
	}
	if category.RequiresExemptionReason() && exemptionReason == "" {
		return TaxBreakdown{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"category %s requires an exemption reason", category)
	}
	expected := rate.ApplyTo(taxable)
	diff := tax.Amount().Sub(expected.Amount()).Abs()
	if diff.GreaterThan(taxTolerance) {
		return TaxBreakdown{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"tax amount %s deviates from %s × %s = %s by more than 0.01", tax, taxable, rate, expected)
	}
	return TaxBreakdown{
		taxableAmount:   taxable,
		taxAmount:       tax,
		category:        category,
		rate:            rate,
		exemptionReason: exemptionReason,
	}, nil
}

// TaxableAmount returns the base the tax was computed on.
func (b TaxBreakdown) TaxableAmount() money.Money { return b.taxableAmount }

// TaxAmount returns the tax due for this category and rate.
func (b TaxBreakdown) TaxAmount() money.Money { return b.taxAmount }

// Category returns the tax category.
func (b TaxBreakdown) Category() TaxCategory { return b.category }

// Rate returns the applied rate.
func (b TaxBreakdown) Rate() money.Percentage { return b.rate }

// ExemptionReason returns the textual exemption reason, if any.
func (b TaxBreakdown) ExemptionReason() string { return b.exemptionReason }

// TaxScheme names a country-level tax system (e.g. VAT, GST, sales tax).
type TaxScheme struct {
	Code    string
	Name    string
	Country string
}

// NewTaxScheme validates and constructs a tax scheme.
func NewTaxScheme(code, name, country string) (TaxScheme, error) {
	if code == "" {
		return TaxScheme{}, dErrors.New(dErrors.CodeInvariantViolation, "tax scheme code cannot be empty")
	}
	return TaxScheme{Code: code, Name: name, Country: country}, nil
}

// TaxRate is a configured rate within a scheme, valid during a date range.
// It mirrors the breakdown's rate/category coupling.
type TaxRate struct {
	scheme    TaxScheme
	category  TaxCategory
	rate      money.Percentage
	validFrom time.Time
	validTo   *time.Time
}

// NewTaxRate validates and constructs a configured tax rate.
func NewTaxRate(scheme TaxScheme, category TaxCategory, rate money.Percentage, validFrom time.Time, validTo *time.Time) (TaxRate, error) {
	if category.IsZero() {
		return TaxRate{}, dErrors.New(dErrors.CodeInvariantViolation, "tax rate requires a category")
	}
	if !category.RequiresRate() && !rate.IsZero() {
		return TaxRate{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"category %s forbids a rate, got %s", category, rate)
	}
	if validTo != nil && !validTo.After(validFrom) {
		return TaxRate{}, dErrors.New(dErrors.CodeInvariantViolation, "tax rate validity range is empty")
	}
	return TaxRate{scheme: scheme, category: category, rate: rate, validFrom: validFrom, validTo: validTo}, nil
}

// Scheme returns the owning tax scheme.
func (r TaxRate) Scheme() TaxScheme { return r.scheme }

// Category returns the tax category.
func (r TaxRate) Category() TaxCategory { return r.category }

// Rate returns the configured percentage.
func (r TaxRate) Rate() money.Percentage { return r.rate }

// IsEffectiveOn reports whether the rate applies on the given date.
func (r TaxRate) IsEffectiveOn(date time.Time) bool {
	if date.Before(r.validFrom) {
		return false
	}
	return r.validTo == nil || date.Before(*r.validTo)
}
