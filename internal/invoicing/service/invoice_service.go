package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"fakturo/internal/format"
	"fakturo/internal/invoicing/factory"
	"fakturo/internal/invoicing/models"
	invoicestore "fakturo/internal/invoicing/store/invoice"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
	"fakturo/pkg/requestcontext"
)

// CreateDraftRequest carries the inputs for a new draft invoice.
type CreateDraftRequest struct {
	SellerID       id.PartyID
	BuyerID        id.PartyID
	Type           models.InvoiceType
	Currency       string
	IssueDate      *time.Time
	BuyerReference string
}

// CreateDraft assembles and persists a new draft invoice. Party snapshots
// are taken at this point; later party edits never reach the document.
func (s *Service) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "invoicing.CreateDraft")
	defer span.End()

	seller, err := s.parties.FindByID(ctx, req.SellerID)
	if err != nil {
		return nil, wrapPartyErr(err)
	}
	buyer, err := s.parties.FindByID(ctx, req.BuyerID)
	if err != nil {
		return nil, wrapPartyErr(err)
	}

	params := factory.DraftParams{
		Seller:         seller,
		Buyer:          buyer,
		Type:           req.Type,
		IssueDate:      req.IssueDate,
		BuyerReference: req.BuyerReference,
	}
	if req.Currency != "" {
		currency, err := parseCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		params.Currency = currency
	}

	inv, err := s.invoiceFactory.NewDraft(params, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, wrapInvoiceErr(err)
	}

	span.SetAttributes(attribute.String("invoice.id", inv.ID().String()))
	s.logger.InfoContext(ctx, "invoice draft created",
		"invoice_id", inv.ID(), "seller_id", req.SellerID, "buyer_id", req.BuyerID)
	if s.metrics != nil {
		s.metrics.IncrementInvoiceCreated()
	}
	return inv, nil
}

// GetInvoice loads one invoice.
func (s *Service) GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, wrapInvoiceErr(err)
	}
	return inv, nil
}

// GetInvoiceByNumber loads one invoice by its stamped number.
func (s *Service) GetInvoiceByNumber(ctx context.Context, number models.InvoiceNumber) (*models.Invoice, error) {
	inv, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		return nil, wrapInvoiceErr(err)
	}
	return inv, nil
}

// SearchInvoices pages through invoices matching the criteria.
func (s *Service) SearchInvoices(ctx context.Context, criteria invoicestore.SearchCriteria, page invoicestore.Page) (invoicestore.SearchResult, error) {
	result, err := s.invoices.Search(ctx, criteria, page)
	if err != nil {
		return invoicestore.SearchResult{}, wrapInvoiceErr(err)
	}
	return result, nil
}

// mutate loads an invoice, applies fn, persists, and publishes the drained
// outbox. fn runs on the loaded aggregate with the request clock and actor.
func (s *Service) mutate(ctx context.Context, invoiceID id.InvoiceID,
	fn func(inv *models.Invoice, now time.Time, actor id.UserID) error) (*models.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, wrapInvoiceErr(err)
	}
	if err := fn(inv, requestcontext.Now(ctx), requestcontext.ActorID(ctx)); err != nil {
		return nil, err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, wrapInvoiceErr(err)
	}
	s.publish(ctx, invoiceID.String(), inv.DrainDomainEvents())
	return inv, nil
}

// AddLineItem appends a line to a draft invoice.
func (s *Service) AddLineItem(ctx context.Context, invoiceID id.InvoiceID, li models.InvoiceLineItem) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.AddLineItem(li, now, actor)
	})
}

// UpdateLineItem replaces a line on a draft invoice.
func (s *Service) UpdateLineItem(ctx context.Context, invoiceID id.InvoiceID, li models.InvoiceLineItem) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.UpdateLineItem(li, now, actor)
	})
}

// RemoveLineItem removes a line from a draft invoice; remaining lines are
// renumbered.
func (s *Service) RemoveLineItem(ctx context.Context, invoiceID id.InvoiceID, lineItemID id.LineItemID) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.RemoveLineItem(lineItemID, now, actor)
	})
}

// AddAllowanceCharge appends a document-level allowance or charge.
func (s *Service) AddAllowanceCharge(ctx context.Context, invoiceID id.InvoiceID, ac models.AllowanceCharge) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, _ id.UserID) error {
		return inv.AddAllowanceCharge(ac, now)
	})
}

// UpdateDraft applies an arbitrary draft edit (dates, references, prepaid,
// rounding) through the aggregate's own guards.
func (s *Service) UpdateDraft(ctx context.Context, invoiceID id.InvoiceID,
	edit func(inv *models.Invoice, now time.Time) error) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, _ id.UserID) error {
		return edit(inv, now)
	})
}

// ValidateInvoice runs the staged pipeline against a profile and records the
// result on the invoice.
func (s *Service) ValidateInvoice(ctx context.Context, invoiceID id.InvoiceID, profile string) (models.ValidationResult, error) {
	ctx, span := s.tracer.Start(ctx, "invoicing.ValidateInvoice")
	defer span.End()
	start := time.Now()

	var result models.ValidationResult
	_, err := s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, _ id.UserID) error {
		r, err := s.validator.Validate(ctx, inv, profile)
		if err != nil {
			return err
		}
		inv.RecordValidation(r, now)
		result = r
		return nil
	})
	if err != nil {
		return models.ValidationResult{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementValidationRun(profile, result.IsValid())
		s.metrics.ObserveValidate(start)
	}
	return result, nil
}

// FinalizeInvoice validates the draft, allocates the next number in the
// series, and stamps it. The invoice becomes immutable except for payments
// and transmission tracking.
func (s *Service) FinalizeInvoice(ctx context.Context, invoiceID id.InvoiceID, profile string) (*models.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "invoicing.FinalizeInvoice")
	defer span.End()
	start := time.Now()

	inv, err := s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		if err := inv.CanFinalize(); err != nil {
			return err
		}
		result, err := s.validator.Validate(ctx, inv, profile)
		if err != nil {
			return err
		}
		inv.RecordValidation(result, now)
		if !result.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation,
				"invoice fails %s validation with %d errors", profile, len(result.Errors))
		}

		issueDate, _ := inv.IssueDate()
		number, err := s.numbers.Next(ctx, s.series, issueDate.Year())
		if err != nil {
			return err
		}
		return inv.Finalize(number, now, actor)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("invoice.number", inv.Number().String()))
	s.logger.InfoContext(ctx, "invoice finalized",
		"invoice_id", inv.ID(), "number", inv.Number(), "payable", inv.Totals().Payable())
	if s.metrics != nil {
		s.metrics.IncrementInvoiceFinalized()
		s.metrics.ObserveFinalize(start)
	}
	return inv, nil
}

// GenerateDocument renders the invoice in the given format under the given
// standard's code mappings.
func (s *Service) GenerateDocument(ctx context.Context, invoiceID id.InvoiceID, outputFormat models.OutputFormat, standard string) (format.Document, error) {
	ctx, span := s.tracer.Start(ctx, "invoicing.GenerateDocument")
	defer span.End()
	start := time.Now()

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return format.Document{}, wrapInvoiceErr(err)
	}
	doc, err := s.formats.Generate(inv, outputFormat, standard)
	if err != nil {
		return format.Document{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementDocumentGenerated(string(outputFormat))
		s.metrics.ObserveGenerate(start)
	}
	return doc, nil
}

// CreateCreditNote derives a credit note draft that reverses a finalized
// invoice.
func (s *Service) CreateCreditNote(ctx context.Context, originalID id.InvoiceID, reason string) (*models.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "invoicing.CreateCreditNote")
	defer span.End()

	original, err := s.invoices.FindByID(ctx, originalID)
	if err != nil {
		return nil, wrapInvoiceErr(err)
	}
	cn, err := s.invoiceFactory.CreditNoteFor(original, reason, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, cn); err != nil {
		return nil, wrapInvoiceErr(err)
	}

	s.logger.InfoContext(ctx, "credit note created",
		"credit_note_id", cn.ID(), "original_id", originalID)
	if s.metrics != nil {
		s.metrics.IncrementInvoiceCreated()
	}
	return cn, nil
}

// QueueForTransmission marks a finalized invoice queued for delivery.
func (s *Service) QueueForTransmission(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.Queue(now, actor)
	})
}

// MarkTransmitting records the start of delivery.
func (s *Service) MarkTransmitting(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.MarkTransmitting(now, actor)
	})
}

// MarkSent records successful delivery to the receiver or network.
func (s *Service) MarkSent(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.MarkSent(now, actor)
	})
}

// AcknowledgeInvoice records the receiver's acknowledgment.
func (s *Service) AcknowledgeInvoice(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.Acknowledge(now, actor)
	})
}

// RejectTransmission records a delivery rejection with its reason.
func (s *Service) RejectTransmission(ctx context.Context, invoiceID id.InvoiceID, reason string) (*models.Invoice, error) {
	return s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.RejectTransmission(reason, now, actor)
	})
}

// CancelInvoice voids an invoice that has not reached the receiver.
func (s *Service) CancelInvoice(ctx context.Context, invoiceID id.InvoiceID, reason string) (*models.Invoice, error) {
	inv, err := s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.Cancel(reason, now, actor)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementInvoiceCancelled()
	}
	return inv, nil
}

// ApplyPayment records a received payment against a finalized invoice.
func (s *Service) ApplyPayment(ctx context.Context, invoiceID id.InvoiceID, p models.Payment) (*models.Invoice, error) {
	inv, err := s.mutate(ctx, invoiceID, func(inv *models.Invoice, now time.Time, actor id.UserID) error {
		return inv.ApplyPayment(p, now, actor)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementPaymentApplied()
	}
	return inv, nil
}

// DeleteDraft removes a draft invoice. Finalized and cancelled documents
// are retention-bound and cannot be deleted.
func (s *Service) DeleteDraft(ctx context.Context, invoiceID id.InvoiceID) error {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return wrapInvoiceErr(err)
	}
	if inv.Status() != models.DocumentStatusDraft {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"only drafts can be deleted, invoice is %s", inv.Status())
	}
	if err := s.invoices.Delete(ctx, invoiceID); err != nil {
		return wrapInvoiceErr(err)
	}
	s.logger.InfoContext(ctx, "draft deleted", "invoice_id", invoiceID)
	return nil
}
