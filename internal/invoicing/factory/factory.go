// Package factory assembles aggregates from simpler inputs, applying party
// defaults and keeping id generation in one place.
package factory

import (
	"time"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

// PartyFactory constructs party aggregates.
type PartyFactory struct{}

// NewParty constructs a fresh party with a generated id.
func (PartyFactory) NewParty(legalName string, now time.Time) (*models.Party, error) {
	return models.NewParty(id.NewPartyID(), legalName, now)
}

// DraftParams carries the inputs for a new invoice draft.
type DraftParams struct {
	Seller *models.Party
	Buyer  *models.Party
	Type   models.InvoiceType

	// Currency overrides the seller's default currency when set.
	Currency money.Currency

	// IssueDate is optional at draft time; finalization requires it.
	IssueDate *time.Time

	// BuyerReference routes the invoice inside the buyer's organization.
	BuyerReference string
}

// InvoiceFactory constructs invoice aggregates.
type InvoiceFactory struct{}

// NewDraft assembles a draft invoice. Party snapshots are taken here so
// later party edits never reach the document. The buyer's default payment
// terms derive the due date when an issue date is given.
func (InvoiceFactory) NewDraft(p DraftParams, now time.Time) (*models.Invoice, error) {
	if p.Seller == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "draft requires a seller")
	}
	if p.Buyer == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "draft requires a buyer")
	}

	currency := p.Currency
	if currency.IsZero() {
		currency = p.Seller.Defaults().Currency
	}
	if currency.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"no currency given and the seller has no default currency")
	}

	invoiceType := p.Type
	if invoiceType == "" {
		invoiceType = models.InvoiceTypeCommercial
	}

	inv, err := models.NewInvoice(id.NewInvoiceID(), invoiceType, currency, now)
	if err != nil {
		return nil, err
	}
	if err := inv.SetSeller(p.Seller.CreateSnapshot(), now); err != nil {
		return nil, err
	}
	if err := inv.SetBuyer(p.Buyer.CreateSnapshot(), now); err != nil {
		return nil, err
	}
	if p.BuyerReference != "" {
		if err := inv.SetBuyerReference(p.BuyerReference, now); err != nil {
			return nil, err
		}
	}
	if p.IssueDate != nil {
		if err := inv.SetIssueDate(*p.IssueDate, now); err != nil {
			return nil, err
		}
		if days := p.Buyer.Defaults().PaymentTermsDays; days > 0 {
			if err := inv.SetDueDate(p.IssueDate.AddDate(0, 0, days), now); err != nil {
				return nil, err
			}
		}
	}
	inv.ClearDomainEvents()
	return inv, nil
}

// CreditNoteFor derives a credit note draft that reverses a finalized
// invoice. Lines are copied with fresh ids; the preceding invoice is
// referenced so receivers can match the documents.
func (f InvoiceFactory) CreditNoteFor(original *models.Invoice, reason string, now time.Time) (*models.Invoice, error) {
	if original.Status() != models.DocumentStatusFinalized {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"credit note requires a finalized invoice, got %s", original.Status())
	}

	cn, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCreditNote, original.Currency(), now)
	if err != nil {
		return nil, err
	}
	if err := cn.SetSeller(original.Seller(), now); err != nil {
		return nil, err
	}
	if err := cn.SetBuyer(original.Buyer(), now); err != nil {
		return nil, err
	}
	if err := cn.SetNote(reason, now); err != nil {
		return nil, err
	}

	ref, err := models.NewDocumentReference(models.ReferencePreceding, original.Number().String(), reason)
	if err != nil {
		return nil, err
	}
	if err := cn.AddDocumentReference(ref, now); err != nil {
		return nil, err
	}

	for _, li := range original.LineItems() {
		var opts []models.LineItemOption
		if li.Description() != "" {
			opts = append(opts, models.WithDescription(li.Description()))
		}
		if li.TaxExemptionReason() != "" {
			opts = append(opts, models.WithExemptionReason(li.TaxExemptionReason()))
		}
		if acs := li.AllowanceCharges(); len(acs) > 0 {
			opts = append(opts, models.WithLineAllowanceCharges(acs...))
		}
		if cs := li.Classifications(); len(cs) > 0 {
			opts = append(opts, models.WithClassifications(cs...))
		}
		copied, err := models.NewInvoiceLineItem(id.NewLineItemID(), li.Name(), li.Quantity(), li.UnitPrice(),
			li.TaxCategory(), li.TaxRate(), opts...)
		if err != nil {
			return nil, err
		}
		if err := cn.AddLineItem(copied, now, id.UserID{}); err != nil {
			return nil, err
		}
	}
	for _, ac := range original.AllowanceCharges() {
		if err := cn.AddAllowanceCharge(ac, now); err != nil {
			return nil, err
		}
	}
	cn.ClearDomainEvents()
	return cn, nil
}
