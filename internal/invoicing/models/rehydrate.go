package models

import (
	"time"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

// NewParty constructs a fresh party aggregate.
func NewParty(partyID id.PartyID, legalName string, now time.Time) (*Party, error) {
	return newParty(partyID, legalName, now)
}

// PartyState carries persisted party fields for rehydration.
type PartyState struct {
	ID          id.PartyID
	LegalName   string
	TradingName string
	TaxNumber   string

	Identifiers  []PartyIdentifier
	Addresses    []Address
	Contacts     []ContactPerson
	BankAccounts []BankAccount

	ElectronicAddress *ElectronicAddress
	NetworkID         *NetworkIdentifier
	Defaults          PartyDefaults

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RehydrateParty rebuilds an aggregate from persisted state. It goes through
// the same construction path as NewParty so the core invariants cannot be
// bypassed by a corrupted row; collection contents are trusted as they were
// validated on the way in. No events are recorded.
func RehydrateParty(s PartyState) (*Party, error) {
	p, err := newParty(s.ID, s.LegalName, s.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.tradingName = s.TradingName
	p.taxNumber = s.TaxNumber
	p.identifiers = append([]PartyIdentifier(nil), s.Identifiers...)
	p.addresses = append([]Address(nil), s.Addresses...)
	p.contacts = append([]ContactPerson(nil), s.Contacts...)
	p.bankAccounts = append([]BankAccount(nil), s.BankAccounts...)
	p.electronicAddress = s.ElectronicAddress
	p.networkID = s.NetworkID
	p.defaults = s.Defaults
	p.updatedAt = s.UpdatedAt
	return p, nil
}

// State snapshots the persisted fields for the store layer. The returned
// value shares no mutable references with the aggregate.
func (p *Party) State() PartyState {
	return PartyState{
		ID:                p.id,
		LegalName:         p.legalName,
		TradingName:       p.tradingName,
		TaxNumber:         p.taxNumber,
		Identifiers:       append([]PartyIdentifier(nil), p.identifiers...),
		Addresses:         append([]Address(nil), p.addresses...),
		Contacts:          append([]ContactPerson(nil), p.contacts...),
		BankAccounts:      append([]BankAccount(nil), p.bankAccounts...),
		ElectronicAddress: p.electronicAddress,
		NetworkID:         p.networkID,
		Defaults:          p.defaults,
		CreatedAt:         p.createdAt,
		UpdatedAt:         p.updatedAt,
	}
}

// InvoiceState carries persisted invoice fields for rehydration. Totals, tax
// breakdowns, the paid amount and the payment status are not part of the
// state: they are derived and recomputed from lines, allowances/charges and
// payments, so a drifted row cannot resurrect inconsistent money.
type InvoiceState struct {
	ID          id.InvoiceID
	Number      InvoiceNumber
	InvoiceType InvoiceType
	Currency    money.Currency

	Seller            PartySnapshot
	Buyer             PartySnapshot
	Payee             *PartySnapshot
	TaxRepresentative *PartySnapshot

	IssueDate    *time.Time
	DueDate      *time.Time
	TaxPointDate *time.Time
	DeliveryDate *time.Time

	BuyerReference string
	Note           string

	DocumentStatus     DocumentStatus
	TransmissionStatus TransmissionStatus

	LineItems        []InvoiceLineItem
	AllowanceCharges []AllowanceCharge
	References       []DocumentReference

	Prepaid  money.Money
	Rounding money.Money
	Payments []Payment

	ExchangeRate *money.ExchangeRate

	ValidationHistory []ValidationResult
	AuditTrail        []InvoiceEvent

	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
}

// State snapshots the persisted fields for the store layer. Derived money
// (totals, breakdowns, paid amount, payment status) is intentionally absent;
// RehydrateInvoice recomputes it.
func (inv *Invoice) State() InvoiceState {
	return InvoiceState{
		ID:                 inv.id,
		Number:             inv.number,
		InvoiceType:        inv.invoiceType,
		Currency:           inv.currency,
		Seller:             inv.seller,
		Buyer:              inv.buyer,
		Payee:              inv.payee,
		TaxRepresentative:  inv.taxRepresentative,
		IssueDate:          inv.issueDate,
		DueDate:            inv.dueDate,
		TaxPointDate:       inv.taxPointDate,
		DeliveryDate:       inv.deliveryDate,
		BuyerReference:     inv.buyerReference,
		Note:               inv.note,
		DocumentStatus:     inv.documentStatus,
		TransmissionStatus: inv.transmissionStatus,
		LineItems:          append([]InvoiceLineItem(nil), inv.lineItems...),
		AllowanceCharges:   append([]AllowanceCharge(nil), inv.allowanceCharges...),
		References:         append([]DocumentReference(nil), inv.references...),
		Prepaid:            inv.prepaid,
		Rounding:           inv.rounding,
		Payments:           append([]Payment(nil), inv.payments...),
		ExchangeRate:       inv.exchangeRate,
		ValidationHistory:  append([]ValidationResult(nil), inv.validationHistory...),
		AuditTrail:         append([]InvoiceEvent(nil), inv.auditTrail...),
		CreatedAt:          inv.createdAt,
		UpdatedAt:          inv.updatedAt,
		FinalizedAt:        inv.finalizedAt,
	}
}

// RehydrateInvoice rebuilds the aggregate from persisted state, re-running
// the totals computation and re-deriving the payment status. No events are
// recorded.
func RehydrateInvoice(s InvoiceState) (*Invoice, error) {
	inv, err := NewInvoice(s.ID, s.InvoiceType, s.Currency, s.CreatedAt)
	if err != nil {
		return nil, err
	}
	switch s.DocumentStatus {
	case DocumentStatusDraft, DocumentStatusFinalized, DocumentStatusCancelled:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document status %q", s.DocumentStatus)
	}
	switch s.TransmissionStatus {
	case TransmissionStatusPending, TransmissionStatusQueued, TransmissionStatusTransmitting,
		TransmissionStatusSent, TransmissionStatusAcknowledged, TransmissionStatusRejected:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown transmission status %q", s.TransmissionStatus)
	}
	if s.DocumentStatus == DocumentStatusFinalized && s.Number.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "finalized invoice has no number")
	}

	inv.number = s.Number
	inv.seller = s.Seller
	inv.buyer = s.Buyer
	inv.payee = s.Payee
	inv.taxRepresentative = s.TaxRepresentative
	inv.issueDate = s.IssueDate
	inv.dueDate = s.DueDate
	inv.taxPointDate = s.TaxPointDate
	inv.deliveryDate = s.DeliveryDate
	inv.buyerReference = s.BuyerReference
	inv.note = s.Note
	inv.documentStatus = s.DocumentStatus
	inv.transmissionStatus = s.TransmissionStatus

	inv.lineItems = make([]InvoiceLineItem, len(s.LineItems))
	for i, li := range s.LineItems {
		inv.lineItems[i] = li.withLineNumber(i + 1)
	}
	inv.allowanceCharges = append([]AllowanceCharge(nil), s.AllowanceCharges...)
	inv.references = append([]DocumentReference(nil), s.References...)

	if !s.Prepaid.IsZero() {
		if !s.Prepaid.Currency().Equal(s.Currency) {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
				"prepaid currency %s does not match %s", s.Prepaid.Currency(), s.Currency)
		}
		inv.prepaid = s.Prepaid
	}
	if !s.Rounding.IsZero() {
		if !s.Rounding.Currency().Equal(s.Currency) {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
				"rounding currency %s does not match %s", s.Rounding.Currency(), s.Currency)
		}
		inv.rounding = s.Rounding
	}

	if err := inv.recalculate(); err != nil {
		return nil, err
	}

	inv.payments = append([]Payment(nil), s.Payments...)
	paid := money.Zero(s.Currency)
	for _, p := range s.Payments {
		if paid, err = paid.Add(p.Amount()); err != nil {
			return nil, err
		}
	}
	inv.amountPaid = paid
	remaining, err := inv.totals.Payable().Subtract(paid)
	if err != nil {
		return nil, err
	}
	switch {
	case paid.IsZero():
		inv.paymentStatus = PaymentStatusUnpaid
	case remaining.IsZero():
		inv.paymentStatus = PaymentStatusPaid
	default:
		inv.paymentStatus = PaymentStatusPartiallyPaid
	}

	inv.exchangeRate = s.ExchangeRate
	inv.validationHistory = append([]ValidationResult(nil), s.ValidationHistory...)
	inv.auditTrail = append([]InvoiceEvent(nil), s.AuditTrail...)
	inv.updatedAt = s.UpdatedAt
	inv.finalizedAt = s.FinalizedAt
	return inv, nil
}
