package models

import (
	"fakturo/internal/money"
	dErrors "fakturo/pkg/domain-errors"
)

// InvoiceTotals is the monetary summary of an invoice. All nine amounts are
// in the document currency and satisfy, exactly and without tolerance:
//
//	taxExclusive = lineNet − allowanceTotal + chargeTotal
//	taxInclusive = taxExclusive + taxTotal
//	payable      = taxInclusive − prepaid + rounding
type InvoiceTotals struct {
	lineNet        money.Money
	allowanceTotal money.Money
	chargeTotal    money.Money
	taxExclusive   money.Money
	taxTotal       money.Money
	taxInclusive   money.Money
	prepaid        money.Money
	rounding       money.Money
	payable        money.Money
}

// NewInvoiceTotals validates the identities and currency coherence.
// Construction fails if any identity does not hold exactly.
func NewInvoiceTotals(lineNet, allowanceTotal, chargeTotal, taxExclusive, taxTotal, taxInclusive, prepaid, rounding, payable money.Money) (InvoiceTotals, error) {
	cur := lineNet.Currency()
	for _, m := range []money.Money{allowanceTotal, chargeTotal, taxExclusive, taxTotal, taxInclusive, prepaid, rounding, payable} {
		if !m.Currency().Equal(cur) {
			return InvoiceTotals{}, dErrors.Newf(dErrors.CodeInvariantViolation,
				"totals currency mismatch: %s vs %s", m.Currency(), cur)
		}
	}

	wantExclusive, err := lineNet.Subtract(allowanceTotal)
	if err != nil {
		return InvoiceTotals{}, err
	}
	wantExclusive, err = wantExclusive.Add(chargeTotal)
	if err != nil {
		return InvoiceTotals{}, err
	}
	if !taxExclusive.Equal(wantExclusive) {
		return InvoiceTotals{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"tax-exclusive %s != lineNet %s - allowances %s + charges %s", taxExclusive, lineNet, allowanceTotal, chargeTotal)
	}

	wantInclusive, err := taxExclusive.Add(taxTotal)
	if err != nil {
		return InvoiceTotals{}, err
	}
	if !taxInclusive.Equal(wantInclusive) {
		return InvoiceTotals{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"tax-inclusive %s != tax-exclusive %s + tax %s", taxInclusive, taxExclusive, taxTotal)
	}

	wantPayable, err := taxInclusive.Subtract(prepaid)
	if err != nil {
		return InvoiceTotals{}, err
	}
	wantPayable, err = wantPayable.Add(rounding)
	if err != nil {
		return InvoiceTotals{}, err
	}
	if !payable.Equal(wantPayable) {
		return InvoiceTotals{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"payable %s != tax-inclusive %s - prepaid %s + rounding %s", payable, taxInclusive, prepaid, rounding)
	}

	return InvoiceTotals{
		lineNet:        lineNet,
		allowanceTotal: allowanceTotal,
		chargeTotal:    chargeTotal,
		taxExclusive:   taxExclusive,
		taxTotal:       taxTotal,
		taxInclusive:   taxInclusive,
		prepaid:        prepaid,
		rounding:       rounding,
		payable:        payable,
	}, nil
}

// ZeroTotals returns all-zero totals in the given currency.
func ZeroTotals(currency money.Currency) InvoiceTotals {
	z := money.Zero(currency)
	return InvoiceTotals{
		lineNet: z, allowanceTotal: z, chargeTotal: z,
		taxExclusive: z, taxTotal: z, taxInclusive: z,
		prepaid: z, rounding: z, payable: z,
	}
}

// LineNet is the sum of all line net amounts.
func (t InvoiceTotals) LineNet() money.Money { return t.lineNet }

// AllowanceTotal is the sum of document-level allowances.
func (t InvoiceTotals) AllowanceTotal() money.Money { return t.allowanceTotal }

// ChargeTotal is the sum of document-level charges.
func (t InvoiceTotals) ChargeTotal() money.Money { return t.chargeTotal }

// TaxExclusive is the invoice total without tax.
func (t InvoiceTotals) TaxExclusive() money.Money { return t.taxExclusive }

// TaxTotal is the total tax amount.
func (t InvoiceTotals) TaxTotal() money.Money { return t.taxTotal }

// TaxInclusive is the invoice total with tax.
func (t InvoiceTotals) TaxInclusive() money.Money { return t.taxInclusive }

// Prepaid is the amount already paid before issuance.
func (t InvoiceTotals) Prepaid() money.Money { return t.prepaid }

// Rounding is the cash-rounding adjustment on the payable amount.
func (t InvoiceTotals) Rounding() money.Money { return t.rounding }

// Payable is the amount due for payment.
func (t InvoiceTotals) Payable() money.Money { return t.payable }

// Currency returns the document currency of the totals.
func (t InvoiceTotals) Currency() money.Currency { return t.lineNet.Currency() }
