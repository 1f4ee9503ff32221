package models

import (
	"fmt"
	"time"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

// Invoice is the aggregate root of the billing domain. All mutation goes
// through methods that guard the document lifecycle: content changes only
// while the document is a draft, transmission and payment only after
// finalization. Totals and tax breakdowns are derived state, recomputed on
// every content change and never set from outside.
type Invoice struct {
	id          id.InvoiceID
	number      InvoiceNumber
	invoiceType InvoiceType
	currency    money.Currency

	seller            PartySnapshot
	buyer             PartySnapshot
	payee             *PartySnapshot
	taxRepresentative *PartySnapshot

	issueDate    *time.Time
	dueDate      *time.Time
	taxPointDate *time.Time
	deliveryDate *time.Time

	buyerReference string
	note           string

	documentStatus     DocumentStatus
	transmissionStatus TransmissionStatus
	paymentStatus      PaymentStatus

	lineItems        []InvoiceLineItem
	allowanceCharges []AllowanceCharge
	references       []DocumentReference

	totals        InvoiceTotals
	taxBreakdowns []TaxBreakdown
	prepaid       money.Money
	rounding      money.Money

	payments   []Payment
	amountPaid money.Money

	exchangeRate *money.ExchangeRate

	validationHistory []ValidationResult
	auditTrail        []InvoiceEvent

	createdAt   time.Time
	updatedAt   time.Time
	finalizedAt *time.Time

	events []Event
}

// NewInvoice constructs an empty draft. The invoice number stays unset until
// finalization stamps one; content arrives through the mutators.
func NewInvoice(invoiceID id.InvoiceID, invoiceType InvoiceType, currency money.Currency, now time.Time) (*Invoice, error) {
	if invoiceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invoice requires an id")
	}
	if _, err := ParseInvoiceType(string(invoiceType)); err != nil {
		return nil, err
	}
	if currency.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invoice requires a currency")
	}
	inv := &Invoice{
		id:                 invoiceID,
		invoiceType:        invoiceType,
		currency:           currency,
		documentStatus:     DocumentStatusDraft,
		transmissionStatus: TransmissionStatusPending,
		paymentStatus:      PaymentStatusUnpaid,
		totals:             ZeroTotals(currency),
		prepaid:            money.Zero(currency),
		rounding:           money.Zero(currency),
		amountPaid:         money.Zero(currency),
		createdAt:          now,
		updatedAt:          now,
	}
	return inv, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (inv *Invoice) ID() id.InvoiceID          { return inv.id }
func (inv *Invoice) Number() InvoiceNumber     { return inv.number }
func (inv *Invoice) Type() InvoiceType         { return inv.invoiceType }
func (inv *Invoice) Currency() money.Currency  { return inv.currency }
func (inv *Invoice) Seller() PartySnapshot     { return inv.seller }
func (inv *Invoice) Buyer() PartySnapshot      { return inv.buyer }
func (inv *Invoice) BuyerReference() string    { return inv.buyerReference }
func (inv *Invoice) Note() string              { return inv.note }
func (inv *Invoice) Totals() InvoiceTotals     { return inv.totals }
func (inv *Invoice) Prepaid() money.Money      { return inv.prepaid }
func (inv *Invoice) Rounding() money.Money     { return inv.rounding }
func (inv *Invoice) AmountPaid() money.Money   { return inv.amountPaid }
func (inv *Invoice) CreatedAt() time.Time      { return inv.createdAt }
func (inv *Invoice) UpdatedAt() time.Time      { return inv.updatedAt }

func (inv *Invoice) Status() DocumentStatus                 { return inv.documentStatus }
func (inv *Invoice) TransmissionStatus() TransmissionStatus { return inv.transmissionStatus }
func (inv *Invoice) PaymentStatus() PaymentStatus           { return inv.paymentStatus }

// Payee returns the payment receiver when it differs from the seller.
func (inv *Invoice) Payee() (PartySnapshot, bool) {
	if inv.payee == nil {
		return PartySnapshot{}, false
	}
	return *inv.payee, true
}

// TaxRepresentative returns the seller's fiscal representative, if any.
func (inv *Invoice) TaxRepresentative() (PartySnapshot, bool) {
	if inv.taxRepresentative == nil {
		return PartySnapshot{}, false
	}
	return *inv.taxRepresentative, true
}

func (inv *Invoice) IssueDate() (time.Time, bool)    { return derefTime(inv.issueDate) }
func (inv *Invoice) DueDate() (time.Time, bool)      { return derefTime(inv.dueDate) }
func (inv *Invoice) TaxPointDate() (time.Time, bool) { return derefTime(inv.taxPointDate) }
func (inv *Invoice) DeliveryDate() (time.Time, bool) { return derefTime(inv.deliveryDate) }
func (inv *Invoice) FinalizedAt() (time.Time, bool)  { return derefTime(inv.finalizedAt) }

func derefTime(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

// LineItems returns the lines in line-number order.
func (inv *Invoice) LineItems() []InvoiceLineItem {
	return append([]InvoiceLineItem(nil), inv.lineItems...)
}

// AllowanceCharges returns the document-level allowances and charges.
func (inv *Invoice) AllowanceCharges() []AllowanceCharge {
	return append([]AllowanceCharge(nil), inv.allowanceCharges...)
}

// References returns the attached document references.
func (inv *Invoice) References() []DocumentReference {
	return append([]DocumentReference(nil), inv.references...)
}

// TaxBreakdowns returns the per-category tax subtotals in first-seen order.
func (inv *Invoice) TaxBreakdowns() []TaxBreakdown {
	return append([]TaxBreakdown(nil), inv.taxBreakdowns...)
}

// Payments returns the posted payments in application order.
func (inv *Invoice) Payments() []Payment {
	return append([]Payment(nil), inv.payments...)
}

// ExchangeRate returns the conversion to the seller's accounting currency,
// if one was attached.
func (inv *Invoice) ExchangeRate() (money.ExchangeRate, bool) {
	if inv.exchangeRate == nil {
		return money.ExchangeRate{}, false
	}
	return *inv.exchangeRate, true
}

// ValidationHistory returns all recorded validation runs, oldest first.
func (inv *Invoice) ValidationHistory() []ValidationResult {
	return append([]ValidationResult(nil), inv.validationHistory...)
}

// LatestValidation returns the most recent validation run.
func (inv *Invoice) LatestValidation() (ValidationResult, bool) {
	if len(inv.validationHistory) == 0 {
		return ValidationResult{}, false
	}
	return inv.validationHistory[len(inv.validationHistory)-1], true
}

// AuditTrail returns the immutable audit history, oldest first.
func (inv *Invoice) AuditTrail() []InvoiceEvent {
	return append([]InvoiceEvent(nil), inv.auditTrail...)
}

// AmountDue is the payable total minus the payments posted so far.
func (inv *Invoice) AmountDue() money.Money {
	due, _ := inv.totals.Payable().Subtract(inv.amountPaid)
	return due
}

// ---------------------------------------------------------------------------
// Draft content
// ---------------------------------------------------------------------------

func (inv *Invoice) ensureDraft() error {
	if inv.documentStatus != DocumentStatusDraft {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"invoice %s is %s; content is immutable after finalization", inv.id, inv.documentStatus)
	}
	return nil
}

// SetSeller sets the seller snapshot on a draft.
func (inv *Invoice) SetSeller(seller PartySnapshot, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if seller.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "seller snapshot is empty")
	}
	inv.seller = seller
	inv.touch(now)
	return nil
}

// SetBuyer sets the buyer snapshot on a draft.
func (inv *Invoice) SetBuyer(buyer PartySnapshot, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if buyer.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "buyer snapshot is empty")
	}
	inv.buyer = buyer
	inv.touch(now)
	return nil
}

// SetPayee sets a payment receiver distinct from the seller.
func (inv *Invoice) SetPayee(payee PartySnapshot, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if payee.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "payee snapshot is empty")
	}
	inv.payee = &payee
	inv.touch(now)
	return nil
}

// SetTaxRepresentative sets the seller's fiscal representative.
func (inv *Invoice) SetTaxRepresentative(rep PartySnapshot, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if rep.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tax representative snapshot is empty")
	}
	inv.taxRepresentative = &rep
	inv.touch(now)
	return nil
}

// SetIssueDate sets the issue date on a draft. Finalization requires it.
func (inv *Invoice) SetIssueDate(date time.Time, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if inv.dueDate != nil && inv.dueDate.Before(date) {
		return dErrors.New(dErrors.CodeInvariantViolation, "issue date is after the due date")
	}
	inv.issueDate = &date
	inv.touch(now)
	return nil
}

// SetDueDate sets the payment due date. It cannot precede the issue date.
func (inv *Invoice) SetDueDate(date time.Time, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if inv.issueDate != nil && date.Before(*inv.issueDate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "due date precedes the issue date")
	}
	inv.dueDate = &date
	inv.touch(now)
	return nil
}

// SetTaxPointDate sets the date tax becomes chargeable.
func (inv *Invoice) SetTaxPointDate(date time.Time, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	inv.taxPointDate = &date
	inv.touch(now)
	return nil
}

// SetDeliveryDate sets the supply date.
func (inv *Invoice) SetDeliveryDate(date time.Time, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	inv.deliveryDate = &date
	inv.touch(now)
	return nil
}

// SetBuyerReference sets the buyer's routing reference (order or cost unit).
func (inv *Invoice) SetBuyerReference(ref string, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	inv.buyerReference = ref
	inv.touch(now)
	return nil
}

// SetNote sets the free-text document note.
func (inv *Invoice) SetNote(note string, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	inv.note = note
	inv.touch(now)
	return nil
}

// SetExchangeRate attaches a conversion out of the document currency.
func (inv *Invoice) SetExchangeRate(rate money.ExchangeRate, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if !rate.From().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"exchange rate converts from %s, document currency is %s", rate.From(), inv.currency)
	}
	inv.exchangeRate = &rate
	inv.touch(now)
	return nil
}

// SetPrepaid records an amount settled before issuance. It reduces the
// payable total.
func (inv *Invoice) SetPrepaid(amount money.Money, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if !amount.Currency().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"prepaid currency %s does not match %s", amount.Currency(), inv.currency)
	}
	if amount.IsNegative() {
		return dErrors.New(dErrors.CodeInvariantViolation, "prepaid amount cannot be negative")
	}
	inv.prepaid = amount
	if err := inv.recalculate(); err != nil {
		return err
	}
	inv.touch(now)
	return nil
}

// SetRounding records a cash-rounding adjustment on the payable total.
func (inv *Invoice) SetRounding(amount money.Money, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if !amount.Currency().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"rounding currency %s does not match %s", amount.Currency(), inv.currency)
	}
	inv.rounding = amount
	if err := inv.recalculate(); err != nil {
		return err
	}
	inv.touch(now)
	return nil
}

// AddLineItem appends a line to a draft, assigns the next line number and
// recomputes all derived totals.
func (inv *Invoice) AddLineItem(li InvoiceLineItem, now time.Time, actor id.UserID) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if !li.UnitPrice().Currency().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"line currency %s does not match document currency %s", li.UnitPrice().Currency(), inv.currency)
	}
	for _, existing := range inv.lineItems {
		if existing.ID() == li.ID() {
			return dErrors.Newf(dErrors.CodeConflict, "line item %s already exists", li.ID())
		}
	}
	li = li.withLineNumber(len(inv.lineItems) + 1)
	inv.lineItems = append(inv.lineItems, li)
	if err := inv.recalculate(); err != nil {
		inv.lineItems = inv.lineItems[:len(inv.lineItems)-1]
		return err
	}
	if err := inv.audit("line_item.added", fmt.Sprintf("line %d (%s) added", li.LineNumber(), li.Name()), now, actor, "", ""); err != nil {
		return err
	}
	inv.record(LineItemAdded{InvoiceID: inv.id, LineItemID: li.ID(), LineNumber: li.LineNumber(), At: now})
	inv.touch(now)
	return nil
}

// UpdateLineItem replaces the line carrying the same id, keeping its number.
func (inv *Invoice) UpdateLineItem(li InvoiceLineItem, now time.Time, actor id.UserID) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if !li.UnitPrice().Currency().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"line currency %s does not match document currency %s", li.UnitPrice().Currency(), inv.currency)
	}
	for i, existing := range inv.lineItems {
		if existing.ID() != li.ID() {
			continue
		}
		previous := inv.lineItems[i]
		inv.lineItems[i] = li.withLineNumber(existing.LineNumber())
		if err := inv.recalculate(); err != nil {
			inv.lineItems[i] = previous
			return err
		}
		if err := inv.audit("line_item.updated", fmt.Sprintf("line %d (%s) updated", existing.LineNumber(), li.Name()), now, actor, "", ""); err != nil {
			return err
		}
		inv.record(LineItemUpdated{InvoiceID: inv.id, LineItemID: li.ID(), LineNumber: existing.LineNumber(), At: now})
		inv.touch(now)
		return nil
	}
	return dErrors.Newf(dErrors.CodeNotFound, "line item %s not found", li.ID())
}

// RemoveLineItem deletes a line and renumbers the remainder contiguously.
func (inv *Invoice) RemoveLineItem(lineItemID id.LineItemID, now time.Time, actor id.UserID) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	for i, existing := range inv.lineItems {
		if existing.ID() != lineItemID {
			continue
		}
		inv.lineItems = append(inv.lineItems[:i], inv.lineItems[i+1:]...)
		for j := range inv.lineItems {
			inv.lineItems[j] = inv.lineItems[j].withLineNumber(j + 1)
		}
		if err := inv.recalculate(); err != nil {
			return err
		}
		if err := inv.audit("line_item.removed", fmt.Sprintf("line %d removed", i+1), now, actor, "", ""); err != nil {
			return err
		}
		inv.record(LineItemRemoved{InvoiceID: inv.id, LineItemID: lineItemID, At: now})
		inv.touch(now)
		return nil
	}
	return dErrors.Newf(dErrors.CodeNotFound, "line item %s not found", lineItemID)
}

// AddAllowanceCharge appends a document-level allowance or charge.
func (inv *Invoice) AddAllowanceCharge(ac AllowanceCharge, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	if !ac.Amount().Currency().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"allowance/charge currency %s does not match %s", ac.Amount().Currency(), inv.currency)
	}
	inv.allowanceCharges = append(inv.allowanceCharges, ac)
	if err := inv.recalculate(); err != nil {
		inv.allowanceCharges = inv.allowanceCharges[:len(inv.allowanceCharges)-1]
		return err
	}
	inv.touch(now)
	return nil
}

// AddDocumentReference attaches a reference to a related document.
func (inv *Invoice) AddDocumentReference(ref DocumentReference, now time.Time) error {
	if err := inv.ensureDraft(); err != nil {
		return err
	}
	for _, existing := range inv.references {
		if existing.Type == ref.Type && existing.ID == ref.ID {
			return dErrors.Newf(dErrors.CodeConflict, "reference %s/%s already attached", ref.Type, ref.ID)
		}
	}
	inv.references = append(inv.references, ref)
	inv.touch(now)
	return nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// CanFinalize reports whether the draft satisfies the finalization
// preconditions, without transitioning.
func (inv *Invoice) CanFinalize() error {
	if inv.documentStatus != DocumentStatusDraft {
		return dErrors.Newf(dErrors.CodeInvalidState, "invoice %s is already %s", inv.id, inv.documentStatus)
	}
	if len(inv.lineItems) == 0 {
		return dErrors.New(dErrors.CodeInvalidState, "invoice has no line items")
	}
	if inv.seller.IsZero() {
		return dErrors.New(dErrors.CodeInvalidState, "invoice has no seller")
	}
	if inv.buyer.IsZero() {
		return dErrors.New(dErrors.CodeInvalidState, "invoice has no buyer")
	}
	if inv.issueDate == nil {
		return dErrors.New(dErrors.CodeInvalidState, "invoice has no issue date")
	}
	return nil
}

// Finalize stamps the given number and transitions draft→finalized. The
// document content is immutable afterwards.
func (inv *Invoice) Finalize(number InvoiceNumber, now time.Time, actor id.UserID) error {
	if err := inv.CanFinalize(); err != nil {
		return err
	}
	if number.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "finalization requires an invoice number")
	}
	if err := inv.audit("invoice.finalized", fmt.Sprintf("finalized as %s", number), now, actor,
		string(DocumentStatusDraft), string(DocumentStatusFinalized)); err != nil {
		return err
	}
	inv.number = number
	inv.documentStatus = DocumentStatusFinalized
	inv.finalizedAt = &now
	inv.record(InvoiceFinalized{InvoiceID: inv.id, Number: number, Payable: inv.totals.Payable(), At: now})
	inv.touch(now)
	return nil
}

func (inv *Invoice) ensureFinalized() error {
	if inv.documentStatus != DocumentStatusFinalized {
		return dErrors.Newf(dErrors.CodeInvalidState, "invoice %s is %s, not finalized", inv.id, inv.documentStatus)
	}
	return nil
}

// Queue marks the invoice accepted by the transmission pipeline.
func (inv *Invoice) Queue(now time.Time, actor id.UserID) error {
	return inv.transitionTransmission(TransmissionStatusQueued, now, actor, TransmissionStatusPending)
}

// MarkTransmitting marks delivery in progress.
func (inv *Invoice) MarkTransmitting(now time.Time, actor id.UserID) error {
	return inv.transitionTransmission(TransmissionStatusTransmitting, now, actor, TransmissionStatusQueued)
}

// MarkSent records successful handover to the delivery network.
func (inv *Invoice) MarkSent(now time.Time, actor id.UserID) error {
	if err := inv.transitionTransmission(TransmissionStatusSent, now, actor,
		TransmissionStatusPending, TransmissionStatusQueued, TransmissionStatusTransmitting); err != nil {
		return err
	}
	inv.record(InvoiceSent{InvoiceID: inv.id, Number: inv.number, At: now})
	return nil
}

// Acknowledge records the receiver's positive acknowledgement.
func (inv *Invoice) Acknowledge(now time.Time, actor id.UserID) error {
	return inv.transitionTransmission(TransmissionStatusAcknowledged, now, actor, TransmissionStatusSent)
}

// RejectTransmission records a delivery failure or receiver rejection. The
// invoice stays finalized; a corrective document handles the follow-up.
func (inv *Invoice) RejectTransmission(reason string, now time.Time, actor id.UserID) error {
	if err := inv.ensureFinalized(); err != nil {
		return err
	}
	switch inv.transmissionStatus {
	case TransmissionStatusQueued, TransmissionStatusTransmitting, TransmissionStatusSent:
	default:
		return dErrors.Newf(dErrors.CodeInvalidState,
			"cannot reject transmission from %s", inv.transmissionStatus)
	}
	from := inv.transmissionStatus
	if err := inv.audit("transmission.rejected", reason, now, actor, string(from), string(TransmissionStatusRejected)); err != nil {
		return err
	}
	inv.transmissionStatus = TransmissionStatusRejected
	inv.touch(now)
	return nil
}

func (inv *Invoice) transitionTransmission(to TransmissionStatus, now time.Time, actor id.UserID, from ...TransmissionStatus) error {
	if err := inv.ensureFinalized(); err != nil {
		return err
	}
	allowed := false
	for _, f := range from {
		if inv.transmissionStatus == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"transmission cannot move from %s to %s", inv.transmissionStatus, to)
	}
	if err := inv.audit("transmission."+string(to), "", now, actor, string(inv.transmissionStatus), string(to)); err != nil {
		return err
	}
	inv.transmissionStatus = to
	inv.touch(now)
	return nil
}

// Cancel voids the invoice. Delivered invoices cannot be cancelled; issue a
// credit note instead.
func (inv *Invoice) Cancel(reason string, now time.Time, actor id.UserID) error {
	if inv.documentStatus == DocumentStatusCancelled {
		return dErrors.Newf(dErrors.CodeInvalidState, "invoice %s is already cancelled", inv.id)
	}
	switch inv.transmissionStatus {
	case TransmissionStatusSent, TransmissionStatusAcknowledged:
		return dErrors.New(dErrors.CodeInvalidState,
			"invoice was delivered; cancellation requires a credit note")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "cancellation requires a reason")
	}
	from := inv.documentStatus
	if err := inv.audit("invoice.cancelled", reason, now, actor, string(from), string(DocumentStatusCancelled)); err != nil {
		return err
	}
	inv.documentStatus = DocumentStatusCancelled
	inv.record(InvoiceCancelled{InvoiceID: inv.id, Reason: reason, At: now})
	inv.touch(now)
	return nil
}

// ApplyPayment posts a payment against a finalized invoice and advances the
// payment status. Overpayment is rejected.
func (inv *Invoice) ApplyPayment(p Payment, now time.Time, actor id.UserID) error {
	if err := inv.ensureFinalized(); err != nil {
		return err
	}
	if !p.Amount().Currency().Equal(inv.currency) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"payment currency %s does not match %s", p.Amount().Currency(), inv.currency)
	}
	paid, err := inv.amountPaid.Add(p.Amount())
	if err != nil {
		return err
	}
	remaining, err := inv.totals.Payable().Subtract(paid)
	if err != nil {
		return err
	}
	if remaining.IsNegative() {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"payment %s exceeds the amount due %s", p.Amount(), inv.AmountDue())
	}
	status := PaymentStatusPartiallyPaid
	if remaining.IsZero() {
		status = PaymentStatusPaid
	}
	if err := inv.audit("payment.applied", fmt.Sprintf("payment of %s, %s remaining", p.Amount(), remaining),
		now, actor, string(inv.paymentStatus), string(status)); err != nil {
		return err
	}
	inv.payments = append(inv.payments, p)
	inv.amountPaid = paid
	inv.paymentStatus = status
	inv.record(InvoicePaymentApplied{InvoiceID: inv.id, Amount: p.Amount(), Remaining: remaining, Status: status, At: now})
	inv.touch(now)
	return nil
}

// RecordValidation appends a validation run to the invoice history.
func (inv *Invoice) RecordValidation(result ValidationResult, now time.Time) {
	inv.validationHistory = append(inv.validationHistory, result)
	inv.record(InvoiceValidated{
		InvoiceID: inv.id,
		Profile:   result.Profile,
		Valid:     result.IsValid(),
		Errors:    len(result.Errors),
		At:        now,
	})
	inv.touch(now)
}

// CanGenerateOutput reports whether the invoice may be rendered in the given
// format. Structured formats require a finalized document; PDF is allowed
// for drafts (preview).
func (inv *Invoice) CanGenerateOutput(format OutputFormat) error {
	if inv.documentStatus == DocumentStatusCancelled {
		return dErrors.Newf(dErrors.CodeInvalidState, "invoice %s is cancelled", inv.id)
	}
	if format == OutputFormatPDF {
		return nil
	}
	return inv.ensureFinalized()
}

// ---------------------------------------------------------------------------
// Derived state
// ---------------------------------------------------------------------------

// recalculate recomputes totals and tax breakdowns from the lines and
// document-level allowances/charges. Tax is computed per (category, rate)
// group, rounding once at the group boundary.
func (inv *Invoice) recalculate() error {
	zero := money.Zero(inv.currency)

	lineNet := zero
	var err error
	for _, li := range inv.lineItems {
		if lineNet, err = lineNet.Add(li.NetAmount()); err != nil {
			return err
		}
	}

	allowanceTotal, chargeTotal := zero, zero
	for _, ac := range inv.allowanceCharges {
		if ac.IsCharge() {
			if chargeTotal, err = chargeTotal.Add(ac.Amount()); err != nil {
				return err
			}
		} else {
			if allowanceTotal, err = allowanceTotal.Add(ac.Amount()); err != nil {
				return err
			}
		}
	}

	taxExclusive, err := lineNet.Subtract(allowanceTotal)
	if err != nil {
		return err
	}
	if taxExclusive, err = taxExclusive.Add(chargeTotal); err != nil {
		return err
	}

	breakdowns, taxTotal, err := inv.groupTax(zero)
	if err != nil {
		return err
	}

	taxInclusive, err := taxExclusive.Add(taxTotal)
	if err != nil {
		return err
	}
	payable, err := taxInclusive.Subtract(inv.prepaid)
	if err != nil {
		return err
	}
	if payable, err = payable.Add(inv.rounding); err != nil {
		return err
	}

	totals, err := NewInvoiceTotals(lineNet, allowanceTotal, chargeTotal,
		taxExclusive, taxTotal, taxInclusive, inv.prepaid, inv.rounding, payable)
	if err != nil {
		return err
	}
	inv.totals = totals
	inv.taxBreakdowns = breakdowns
	return nil
}

type taxGroup struct {
	category TaxCategory
	rate     money.Percentage
	reason   string
	taxable  money.Money
}

// groupTax buckets line nets and tax-bearing document allowances/charges by
// (category, rate) and computes one rounded tax amount per bucket.
func (inv *Invoice) groupTax(zero money.Money) ([]TaxBreakdown, money.Money, error) {
	var groups []taxGroup
	index := map[string]int{}

	accumulate := func(category TaxCategory, rate money.Percentage, reason string, amount money.Money) error {
		key := category.Code() + "|" + rate.Value().String()
		i, ok := index[key]
		if !ok {
			groups = append(groups, taxGroup{category: category, rate: rate, taxable: zero})
			i = len(groups) - 1
			index[key] = i
		}
		if groups[i].reason == "" {
			groups[i].reason = reason
		}
		var err error
		groups[i].taxable, err = groups[i].taxable.Add(amount)
		return err
	}

	for _, li := range inv.lineItems {
		if err := accumulate(li.TaxCategory(), li.TaxRate(), li.TaxExemptionReason(), li.NetAmount()); err != nil {
			return nil, zero, err
		}
	}
	for _, ac := range inv.allowanceCharges {
		category, ok := ac.TaxCategory()
		if !ok {
			continue
		}
		rate, _ := ac.TaxRate()
		if err := accumulate(category, rate, "", ac.EffectiveAmount()); err != nil {
			return nil, zero, err
		}
	}

	breakdowns := make([]TaxBreakdown, 0, len(groups))
	taxTotal := zero
	for _, g := range groups {
		tax := g.rate.ApplyTo(g.taxable)
		b, err := NewTaxBreakdown(g.taxable, tax, g.category, g.rate, g.reason)
		if err != nil {
			return nil, zero, err
		}
		breakdowns = append(breakdowns, b)
		if taxTotal, err = taxTotal.Add(tax); err != nil {
			return nil, zero, err
		}
	}
	return breakdowns, taxTotal, nil
}

// ---------------------------------------------------------------------------
// Events and audit
// ---------------------------------------------------------------------------

// DomainEvents returns the pending outbox events without clearing them.
func (inv *Invoice) DomainEvents() []Event {
	return append([]Event(nil), inv.events...)
}

// DrainDomainEvents returns the pending outbox events and clears the outbox.
// Callers drain after a successful persistence step.
func (inv *Invoice) DrainDomainEvents() []Event {
	out := inv.events
	inv.events = nil
	return out
}

// ClearDomainEvents discards pending events, for rehydration paths.
func (inv *Invoice) ClearDomainEvents() { inv.events = nil }

func (inv *Invoice) record(e Event) { inv.events = append(inv.events, e) }

func (inv *Invoice) touch(now time.Time) { inv.updatedAt = now }

func (inv *Invoice) audit(eventType, description string, at time.Time, actor id.UserID, from, to string) error {
	rec, err := NewInvoiceEvent(eventType, description, at, at, actor)
	if err != nil {
		return err
	}
	if from != "" || to != "" {
		rec = rec.WithStatusChange(from, to)
	}
	inv.auditTrail = append(inv.auditTrail, rec)
	return nil
}
