package models

import (
	"strings"
	"time"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

// ItemClassification is a scheme-qualified product code (CPV, UNSPSC, HS).
type ItemClassification struct {
	Scheme string
	Code   string
}

// BillingPeriod bounds the period a line covers.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// InvoiceLineItem is one billed position. Line items are owned exclusively
// by a single Invoice, which assigns and maintains the sequential line
// number; the entity itself never renumbers.
//
// Invariants:
//   - name non-empty
//   - unit price in the document currency
//   - tax category/rate coupling as in TaxBreakdown
//   - line allowances/charges share the document currency
type InvoiceLineItem struct {
	id          id.LineItemID
	lineNumber  int
	name        string
	description string

	quantity  money.Quantity
	unitPrice money.Money

	taxCategory        TaxCategory
	taxRate            money.Percentage
	taxExemptionReason string

	allowanceCharges []AllowanceCharge
	classifications  []ItemClassification
	period           *BillingPeriod
}

// LineItemOption configures optional line item fields.
type LineItemOption func(*InvoiceLineItem)

// WithDescription attaches a longer description.
func WithDescription(description string) LineItemOption {
	return func(li *InvoiceLineItem) { li.description = description }
}

// WithExemptionReason attaches the tax exemption reason.
func WithExemptionReason(reason string) LineItemOption {
	return func(li *InvoiceLineItem) { li.taxExemptionReason = reason }
}

// WithLineAllowanceCharges attaches line-level allowances and charges.
func WithLineAllowanceCharges(acs ...AllowanceCharge) LineItemOption {
	return func(li *InvoiceLineItem) {
		li.allowanceCharges = append(li.allowanceCharges, acs...)
	}
}

// WithClassifications attaches product classifications.
func WithClassifications(cs ...ItemClassification) LineItemOption {
	return func(li *InvoiceLineItem) {
		li.classifications = append(li.classifications, cs...)
	}
}

// WithBillingPeriod attaches the period the line covers.
func WithBillingPeriod(start, end time.Time) LineItemOption {
	return func(li *InvoiceLineItem) {
		li.period = &BillingPeriod{Start: start, End: end}
	}
}

// NewInvoiceLineItem validates and constructs a line item.
func NewInvoiceLineItem(lineItemID id.LineItemID, name string, quantity money.Quantity, unitPrice money.Money, category TaxCategory, rate money.Percentage, opts ...LineItemOption) (InvoiceLineItem, error) {
	li := InvoiceLineItem{
		id:          lineItemID,
		name:        strings.TrimSpace(name),
		quantity:    quantity,
		unitPrice:   unitPrice,
		taxCategory: category,
		taxRate:     rate,
	}
	for _, opt := range opts {
		opt(&li)
	}

	if lineItemID.IsNil() {
		return InvoiceLineItem{}, dErrors.New(dErrors.CodeInvariantViolation, "line item requires an id")
	}
	if li.name == "" {
		return InvoiceLineItem{}, dErrors.New(dErrors.CodeInvariantViolation, "line item requires a name")
	}
	if category.IsZero() {
		return InvoiceLineItem{}, dErrors.New(dErrors.CodeInvariantViolation, "line item requires a tax category")
	}
	if !category.RequiresRate() && !rate.IsZero() {
		return InvoiceLineItem{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"category %s forbids a rate, got %s", category, rate)
	}
	if category.RequiresExemptionReason() && li.taxExemptionReason == "" {
		return InvoiceLineItem{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"category %s requires an exemption reason", category)
	}
	for _, ac := range li.allowanceCharges {
		if !ac.Amount().Currency().Equal(unitPrice.Currency()) {
			return InvoiceLineItem{}, dErrors.Newf(dErrors.CodeInvariantViolation,
				"line allowance/charge currency %s does not match %s", ac.Amount().Currency(), unitPrice.Currency())
		}
	}
	if li.period != nil && li.period.End.Before(li.period.Start) {
		return InvoiceLineItem{}, dErrors.New(dErrors.CodeInvariantViolation, "billing period end precedes start")
	}
	return li, nil
}

// ID returns the line item identity.
func (li InvoiceLineItem) ID() id.LineItemID { return li.id }

// LineNumber returns the 1-based position, assigned by the owning invoice.
func (li InvoiceLineItem) LineNumber() int { return li.lineNumber }

// Name returns the item name.
func (li InvoiceLineItem) Name() string { return li.name }

// Description returns the longer description, if any.
func (li InvoiceLineItem) Description() string { return li.description }

// Quantity returns the billed quantity.
func (li InvoiceLineItem) Quantity() money.Quantity { return li.quantity }

// UnitPrice returns the price per unit.
func (li InvoiceLineItem) UnitPrice() money.Money { return li.unitPrice }

// TaxCategory returns the tax treatment of the line.
func (li InvoiceLineItem) TaxCategory() TaxCategory { return li.taxCategory }

// TaxRate returns the tax rate of the line.
func (li InvoiceLineItem) TaxRate() money.Percentage { return li.taxRate }

// TaxExemptionReason returns the exemption reason, if any.
func (li InvoiceLineItem) TaxExemptionReason() string { return li.taxExemptionReason }

// AllowanceCharges returns a copy of the line-level allowances and charges.
func (li InvoiceLineItem) AllowanceCharges() []AllowanceCharge {
	return append([]AllowanceCharge(nil), li.allowanceCharges...)
}

// Classifications returns a copy of the product classifications.
func (li InvoiceLineItem) Classifications() []ItemClassification {
	return append([]ItemClassification(nil), li.classifications...)
}

// BillingPeriod returns the covered period, if any.
func (li InvoiceLineItem) BillingPeriod() (BillingPeriod, bool) {
	if li.period == nil {
		return BillingPeriod{}, false
	}
	return *li.period, true
}

// GrossAmount is quantity × unit price, rounded half-up to the currency
// scale at the line boundary.
func (li InvoiceLineItem) GrossAmount() money.Money {
	return li.unitPrice.Multiply(li.quantity.Value())
}

// NetAmount is the gross amount plus the signed line-level allowances and
// charges. This is the amount that enters the document totals.
func (li InvoiceLineItem) NetAmount() money.Money {
	net := li.GrossAmount()
	for _, ac := range li.allowanceCharges {
		// Same currency was checked at construction; Add cannot fail.
		net, _ = net.Add(ac.EffectiveAmount())
	}
	return net
}

// withLineNumber returns a copy carrying the given position. Only the
// owning invoice calls this.
func (li InvoiceLineItem) withLineNumber(n int) InvoiceLineItem {
	li.lineNumber = n
	return li
}
