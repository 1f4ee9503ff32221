// Package domain holds branded identifier types shared across modules.
//
// Each identifier kind is a distinct newtype over uuid.UUID so the compiler
// rejects cross-assignment (an InvoiceID can never flow into a PartyID
// parameter). Construct via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "fakturo/pkg/domain-errors"
)

type (
	// InvoiceID identifies an Invoice aggregate.
	InvoiceID uuid.UUID
	// PartyID identifies a Party aggregate.
	PartyID uuid.UUID
	// LineItemID identifies a line item within an invoice.
	LineItemID uuid.UUID
	// EventID identifies an audit record.
	EventID uuid.UUID
	// UserID identifies the acting user for audit attribution.
	UserID uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseInvoiceID validates and returns an InvoiceID.
func ParseInvoiceID(s string) (InvoiceID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return InvoiceID{}, err
	}
	return InvoiceID(u), nil
}

// ParsePartyID validates and returns a PartyID.
func ParsePartyID(s string) (PartyID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PartyID{}, err
	}
	return PartyID(u), nil
}

// ParseLineItemID validates and returns a LineItemID.
func ParseLineItemID(s string) (LineItemID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return LineItemID{}, err
	}
	return LineItemID(u), nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// NewInvoiceID generates a fresh InvoiceID.
func NewInvoiceID() InvoiceID { return InvoiceID(uuid.New()) }

// NewPartyID generates a fresh PartyID.
func NewPartyID() PartyID { return PartyID(uuid.New()) }

// NewLineItemID generates a fresh LineItemID.
func NewLineItemID() LineItemID { return LineItemID(uuid.New()) }

// NewEventID generates a fresh EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewUserID generates a fresh UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

func (id InvoiceID) String() string  { return uuid.UUID(id).String() }
func (id PartyID) String() string    { return uuid.UUID(id).String() }
func (id LineItemID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }

func (id InvoiceID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PartyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id LineItemID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID string form in JSON and SQL
// paths. The nil UUID round-trips as an empty value so optional actor ids
// survive persistence.

func (id InvoiceID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id PartyID) MarshalText() ([]byte, error)    { return marshalID(uuid.UUID(id)) }
func (id LineItemID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id EventID) MarshalText() ([]byte, error)    { return marshalID(uuid.UUID(id)) }
func (id UserID) MarshalText() ([]byte, error)     { return marshalID(uuid.UUID(id)) }

func marshalID(u uuid.UUID) ([]byte, error) {
	if u == uuid.Nil {
		return []byte(""), nil
	}
	return []byte(u.String()), nil
}

func unmarshalID(text []byte) (uuid.UUID, error) {
	if len(text) == 0 {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(text))
}

func (id *InvoiceID) UnmarshalText(text []byte) error {
	u, err := unmarshalID(text)
	if err != nil {
		return err
	}
	*id = InvoiceID(u)
	return nil
}

func (id *PartyID) UnmarshalText(text []byte) error {
	u, err := unmarshalID(text)
	if err != nil {
		return err
	}
	*id = PartyID(u)
	return nil
}

func (id *LineItemID) UnmarshalText(text []byte) error {
	u, err := unmarshalID(text)
	if err != nil {
		return err
	}
	*id = LineItemID(u)
	return nil
}

func (id *EventID) UnmarshalText(text []byte) error {
	u, err := unmarshalID(text)
	if err != nil {
		return err
	}
	*id = EventID(u)
	return nil
}

func (id *UserID) UnmarshalText(text []byte) error {
	u, err := unmarshalID(text)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}
