package models

import (
	"time"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

// Event is a domain event appended to an aggregate's outbox. Aggregates
// never publish; the caller drains the outbox after a successful persistence
// step and hands the events to a publisher.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// ---------------------------------------------------------------------------
// Invoice events
// ---------------------------------------------------------------------------

// LineItemAdded signals a new line on a draft invoice.
type LineItemAdded struct {
	InvoiceID  id.InvoiceID
	LineItemID id.LineItemID
	LineNumber int
	At         time.Time
}

func (e LineItemAdded) EventName() string     { return "invoice.line_item_added" }
func (e LineItemAdded) OccurredAt() time.Time { return e.At }

// LineItemUpdated signals a replaced line on a draft invoice.
type LineItemUpdated struct {
	InvoiceID  id.InvoiceID
	LineItemID id.LineItemID
	LineNumber int
	At         time.Time
}

func (e LineItemUpdated) EventName() string     { return "invoice.line_item_updated" }
func (e LineItemUpdated) OccurredAt() time.Time { return e.At }

// LineItemRemoved signals a removed line; remaining lines are renumbered.
type LineItemRemoved struct {
	InvoiceID  id.InvoiceID
	LineItemID id.LineItemID
	At         time.Time
}

func (e LineItemRemoved) EventName() string     { return "invoice.line_item_removed" }
func (e LineItemRemoved) OccurredAt() time.Time { return e.At }

// InvoiceFinalized signals the draft→finalized transition. It carries the
// payable total so downstream consumers need not reload the aggregate.
type InvoiceFinalized struct {
	InvoiceID id.InvoiceID
	Number    InvoiceNumber
	Payable   money.Money
	At        time.Time
}

func (e InvoiceFinalized) EventName() string     { return "invoice.finalized" }
func (e InvoiceFinalized) OccurredAt() time.Time { return e.At }

// InvoiceSent signals transmission to the delivery network.
type InvoiceSent struct {
	InvoiceID id.InvoiceID
	Number    InvoiceNumber
	At        time.Time
}

func (e InvoiceSent) EventName() string     { return "invoice.sent" }
func (e InvoiceSent) OccurredAt() time.Time { return e.At }

// InvoiceCancelled signals cancellation of a draft or unsent invoice.
type InvoiceCancelled struct {
	InvoiceID id.InvoiceID
	Reason    string
	At        time.Time
}

func (e InvoiceCancelled) EventName() string     { return "invoice.cancelled" }
func (e InvoiceCancelled) OccurredAt() time.Time { return e.At }

// InvoicePaymentApplied signals a payment posted against the invoice.
type InvoicePaymentApplied struct {
	InvoiceID id.InvoiceID
	Amount    money.Money
	Remaining money.Money
	Status    PaymentStatus
	At        time.Time
}

func (e InvoicePaymentApplied) EventName() string     { return "invoice.payment_applied" }
func (e InvoicePaymentApplied) OccurredAt() time.Time { return e.At }

// InvoiceValidated signals a validation run recorded on the invoice.
type InvoiceValidated struct {
	InvoiceID id.InvoiceID
	Profile   string
	Valid     bool
	Errors    int
	At        time.Time
}

func (e InvoiceValidated) EventName() string     { return "invoice.validated" }
func (e InvoiceValidated) OccurredAt() time.Time { return e.At }

// ---------------------------------------------------------------------------
// Party events
// ---------------------------------------------------------------------------

// IdentifierAdded signals a new party identifier.
type IdentifierAdded struct {
	PartyID id.PartyID
	Scheme  string
	Value   string
	At      time.Time
}

func (e IdentifierAdded) EventName() string     { return "party.identifier_added" }
func (e IdentifierAdded) OccurredAt() time.Time { return e.At }

// IdentifierRemoved signals a removed party identifier.
type IdentifierRemoved struct {
	PartyID id.PartyID
	Scheme  string
	Value   string
	At      time.Time
}

func (e IdentifierRemoved) EventName() string     { return "party.identifier_removed" }
func (e IdentifierRemoved) OccurredAt() time.Time { return e.At }

// AddressAdded signals a new party address.
type AddressAdded struct {
	PartyID id.PartyID
	Index   int
	At      time.Time
}

func (e AddressAdded) EventName() string     { return "party.address_added" }
func (e AddressAdded) OccurredAt() time.Time { return e.At }

// AddressUpdated signals a replaced party address.
type AddressUpdated struct {
	PartyID id.PartyID
	Index   int
	At      time.Time
}

func (e AddressUpdated) EventName() string     { return "party.address_updated" }
func (e AddressUpdated) OccurredAt() time.Time { return e.At }

// AddressRemoved signals a removed party address.
type AddressRemoved struct {
	PartyID id.PartyID
	Index   int
	At      time.Time
}

func (e AddressRemoved) EventName() string     { return "party.address_removed" }
func (e AddressRemoved) OccurredAt() time.Time { return e.At }

// ContactPersonAdded signals a new contact person.
type ContactPersonAdded struct {
	PartyID id.PartyID
	Name    string
	At      time.Time
}

func (e ContactPersonAdded) EventName() string     { return "party.contact_added" }
func (e ContactPersonAdded) OccurredAt() time.Time { return e.At }

// ContactPersonRemoved signals a removed contact person.
type ContactPersonRemoved struct {
	PartyID id.PartyID
	Name    string
	At      time.Time
}

func (e ContactPersonRemoved) EventName() string     { return "party.contact_removed" }
func (e ContactPersonRemoved) OccurredAt() time.Time { return e.At }

// BankAccountAdded signals a new bank account on the party.
type BankAccountAdded struct {
	PartyID id.PartyID
	Key     string
	At      time.Time
}

func (e BankAccountAdded) EventName() string     { return "party.bank_account_added" }
func (e BankAccountAdded) OccurredAt() time.Time { return e.At }

// BankAccountRemoved signals a removed bank account.
type BankAccountRemoved struct {
	PartyID id.PartyID
	Key     string
	At      time.Time
}

func (e BankAccountRemoved) EventName() string     { return "party.bank_account_removed" }
func (e BankAccountRemoved) OccurredAt() time.Time { return e.At }

// ---------------------------------------------------------------------------
// Audit trail
// ---------------------------------------------------------------------------

// InvoiceEvent is one immutable entry in an invoice's audit history.
//
// Invariants:
//   - timestamp never lies in the future relative to the provided clock
//   - event type is non-empty
type InvoiceEvent struct {
	ID          id.EventID
	Timestamp   time.Time
	EventType   string
	Description string
	FromStatus  string
	ToStatus    string
	Actor       id.UserID
}

// NewInvoiceEvent validates and constructs an audit record. The caller
// supplies the current time so the bound is testable and rehydration of
// historical records stays honest.
func NewInvoiceEvent(eventType, description string, at, now time.Time, actor id.UserID) (InvoiceEvent, error) {
	if eventType == "" {
		return InvoiceEvent{}, dErrors.New(dErrors.CodeInvariantViolation, "audit event requires a type")
	}
	if at.After(now) {
		return InvoiceEvent{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"audit timestamp %s is in the future", at.Format(time.RFC3339))
	}
	return InvoiceEvent{
		ID:          id.NewEventID(),
		Timestamp:   at,
		EventType:   eventType,
		Description: description,
		Actor:       actor,
	}, nil
}

// WithStatusChange returns a copy of the record annotated with a status
// transition.
func (e InvoiceEvent) WithStatusChange(from, to string) InvoiceEvent {
	e.FromStatus = from
	e.ToStatus = to
	return e
}
