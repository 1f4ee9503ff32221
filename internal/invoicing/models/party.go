package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

// PartyIdentifier is a scheme-qualified business identifier (GLN, DUNS,
// national registration number). Uniqueness within a party is by
// scheme+value.
type PartyIdentifier struct {
	Scheme string
	Value  string
}

// NewPartyIdentifier validates and constructs a party identifier.
func NewPartyIdentifier(scheme, value string) (PartyIdentifier, error) {
	if scheme == "" || value == "" {
		return PartyIdentifier{}, dErrors.New(dErrors.CodeInvariantViolation,
			"party identifier requires both scheme and value")
	}
	return PartyIdentifier{Scheme: scheme, Value: value}, nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ContactPerson is a named contact with at least one reachable channel.
type ContactPerson struct {
	Name  string
	Email string
	Phone string
}

// NewContactPerson validates and constructs a contact person.
func NewContactPerson(name, email, phone string) (ContactPerson, error) {
	if name == "" {
		return ContactPerson{}, dErrors.New(dErrors.CodeInvariantViolation, "contact person requires a name")
	}
	if email == "" && phone == "" {
		return ContactPerson{}, dErrors.New(dErrors.CodeInvariantViolation,
			"contact person requires an email or phone number")
	}
	if email != "" && !emailPattern.MatchString(email) {
		return ContactPerson{}, dErrors.Newf(dErrors.CodeInvariantViolation, "contact email %q has invalid format", email)
	}
	return ContactPerson{Name: name, Email: email, Phone: phone}, nil
}

// PartyDefaults captures per-party invoicing preferences.
type PartyDefaults struct {
	Currency         money.Currency
	Language         string
	PaymentTermsDays int
}

// Party is the aggregate for a legal entity that sells, buys or receives
// payments. Collections are owned by the aggregate and only reachable
// through copy-on-read accessors; every mutation appends a domain event to
// the internal outbox, drained by the caller after persistence.
type Party struct {
	id          id.PartyID
	legalName   string
	tradingName string
	taxNumber   string

	identifiers  []PartyIdentifier
	addresses    []Address
	contacts     []ContactPerson
	bankAccounts []BankAccount

	electronicAddress *ElectronicAddress
	networkID         *NetworkIdentifier
	defaults          PartyDefaults

	createdAt time.Time
	updatedAt time.Time

	events []Event
}

// newParty is the single construction path, used by the factory for both
// fresh construction and rehydration so invariants cannot be bypassed.
func newParty(partyID id.PartyID, legalName string, now time.Time) (*Party, error) {
	if partyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "party requires an id")
	}
	if strings.TrimSpace(legalName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "party requires a legal name")
	}
	return &Party{
		id:        partyID,
		legalName: strings.TrimSpace(legalName),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ID returns the party identity.
func (p *Party) ID() id.PartyID { return p.id }

// LegalName returns the registered name.
func (p *Party) LegalName() string { return p.legalName }

// TradingName returns the trading-as name, if any.
func (p *Party) TradingName() string { return p.tradingName }

// TaxNumber returns the VAT/tax registration number, if any.
func (p *Party) TaxNumber() string { return p.taxNumber }

// Defaults returns the party's invoicing preferences.
func (p *Party) Defaults() PartyDefaults { return p.defaults }

// CreatedAt returns the construction time.
func (p *Party) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last mutation time.
func (p *Party) UpdatedAt() time.Time { return p.updatedAt }

// Identifiers returns a copy of the identifier set.
func (p *Party) Identifiers() []PartyIdentifier {
	return append([]PartyIdentifier(nil), p.identifiers...)
}

// Addresses returns a copy of the address list.
func (p *Party) Addresses() []Address {
	return append([]Address(nil), p.addresses...)
}

// Contacts returns a copy of the contact list.
func (p *Party) Contacts() []ContactPerson {
	return append([]ContactPerson(nil), p.contacts...)
}

// BankAccounts returns a copy of the bank account list.
func (p *Party) BankAccounts() []BankAccount {
	return append([]BankAccount(nil), p.bankAccounts...)
}

// ElectronicAddress returns the routing endpoint, if set.
func (p *Party) ElectronicAddress() (ElectronicAddress, bool) {
	if p.electronicAddress == nil {
		return ElectronicAddress{}, false
	}
	return *p.electronicAddress, true
}

// NetworkIdentifier returns the delivery-network participant id, if set.
func (p *Party) NetworkIdentifier() (NetworkIdentifier, bool) {
	if p.networkID == nil {
		return NetworkIdentifier{}, false
	}
	return *p.networkID, true
}

// SetTradingName updates the trading-as name.
func (p *Party) SetTradingName(name string, now time.Time) {
	p.tradingName = name
	p.updatedAt = now
}

// SetTaxNumber updates the tax registration number.
func (p *Party) SetTaxNumber(taxNumber string, now time.Time) {
	p.taxNumber = taxNumber
	p.updatedAt = now
}

// SetElectronicAddress updates the routing endpoint.
func (p *Party) SetElectronicAddress(ea ElectronicAddress, now time.Time) {
	p.electronicAddress = &ea
	p.updatedAt = now
}

// SetNetworkIdentifier updates the delivery-network participant id.
func (p *Party) SetNetworkIdentifier(ni NetworkIdentifier, now time.Time) {
	p.networkID = &ni
	p.updatedAt = now
}

// SetDefaults updates the invoicing preferences.
func (p *Party) SetDefaults(d PartyDefaults, now time.Time) {
	p.defaults = d
	p.updatedAt = now
}

// AddIdentifier appends an identifier. Duplicates by scheme+value are
// rejected with a conflict error.
func (p *Party) AddIdentifier(pi PartyIdentifier, now time.Time) error {
	for _, existing := range p.identifiers {
		if existing.Scheme == pi.Scheme && existing.Value == pi.Value {
			return dErrors.Newf(dErrors.CodeConflict,
				"identifier %s:%s already present", pi.Scheme, pi.Value)
		}
	}
	p.identifiers = append(p.identifiers, pi)
	p.updatedAt = now
	p.record(IdentifierAdded{PartyID: p.id, Scheme: pi.Scheme, Value: pi.Value, At: now})
	return nil
}

// RemoveIdentifier removes an identifier by scheme+value.
func (p *Party) RemoveIdentifier(scheme, value string, now time.Time) error {
	for i, existing := range p.identifiers {
		if existing.Scheme == scheme && existing.Value == value {
			p.identifiers = append(p.identifiers[:i], p.identifiers[i+1:]...)
			p.updatedAt = now
			p.record(IdentifierRemoved{PartyID: p.id, Scheme: scheme, Value: value, At: now})
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeNotFound, "identifier %s:%s not present", scheme, value)
}

// AddAddress appends an address.
func (p *Party) AddAddress(a Address, now time.Time) {
	p.addresses = append(p.addresses, a)
	p.updatedAt = now
	p.record(AddressAdded{PartyID: p.id, Index: len(p.addresses) - 1, At: now})
}

// UpdateAddress replaces the address at the given index.
func (p *Party) UpdateAddress(index int, a Address, now time.Time) error {
	if index < 0 || index >= len(p.addresses) {
		return dErrors.Newf(dErrors.CodeNotFound, "address index %d out of range", index)
	}
	p.addresses[index] = a
	p.updatedAt = now
	p.record(AddressUpdated{PartyID: p.id, Index: index, At: now})
	return nil
}

// RemoveAddress removes the address at the given index.
func (p *Party) RemoveAddress(index int, now time.Time) error {
	if index < 0 || index >= len(p.addresses) {
		return dErrors.Newf(dErrors.CodeNotFound, "address index %d out of range", index)
	}
	p.addresses = append(p.addresses[:index], p.addresses[index+1:]...)
	p.updatedAt = now
	p.record(AddressRemoved{PartyID: p.id, Index: index, At: now})
	return nil
}

// AddContactPerson appends a contact.
func (p *Party) AddContactPerson(c ContactPerson, now time.Time) {
	p.contacts = append(p.contacts, c)
	p.updatedAt = now
	p.record(ContactPersonAdded{PartyID: p.id, Name: c.Name, At: now})
}

// RemoveContactPerson removes a contact by name.
func (p *Party) RemoveContactPerson(name string, now time.Time) error {
	for i, c := range p.contacts {
		if c.Name == name {
			p.contacts = append(p.contacts[:i], p.contacts[i+1:]...)
			p.updatedAt = now
			p.record(ContactPersonRemoved{PartyID: p.id, Name: name, At: now})
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeNotFound, "contact person %q not present", name)
}

// AddBankAccount appends a bank account. Duplicates by account key are
// rejected with a conflict error.
func (p *Party) AddBankAccount(b BankAccount, now time.Time) error {
	for _, existing := range p.bankAccounts {
		if existing.Key() == b.Key() {
			return dErrors.Newf(dErrors.CodeConflict, "bank account %s already present", b.Key())
		}
	}
	p.bankAccounts = append(p.bankAccounts, b)
	p.updatedAt = now
	p.record(BankAccountAdded{PartyID: p.id, Key: b.Key(), At: now})
	return nil
}

// RemoveBankAccount removes a bank account by account key.
func (p *Party) RemoveBankAccount(key string, now time.Time) error {
	for i, b := range p.bankAccounts {
		if b.Key() == key {
			p.bankAccounts = append(p.bankAccounts[:i], p.bankAccounts[i+1:]...)
			p.updatedAt = now
			p.record(BankAccountRemoved{PartyID: p.id, Key: key, At: now})
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeNotFound, "bank account %s not present", key)
}

// glnPattern: a GLN (EAS/ICD scheme 0088) is exactly 13 digits.
var glnPattern = regexp.MustCompile(`^[0-9]{13}$`)

// ValidateIdentifiers checks the identifier set for format problems.
// Scheme-specific format oddities come back as warnings; a party with
// neither identifiers nor a tax number is a fatal error since no standard
// can address it.
func (p *Party) ValidateIdentifiers() ([]string, error) {
	if len(p.identifiers) == 0 && p.taxNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			"party has neither identifiers nor a tax number")
	}
	var warnings []string
	for _, pi := range p.identifiers {
		if pi.Scheme == "0088" && !glnPattern.MatchString(pi.Value) {
			warnings = append(warnings, fmt.Sprintf("identifier %s:%s is not a 13-digit GLN", pi.Scheme, pi.Value))
		}
		if strings.TrimSpace(pi.Value) != pi.Value {
			warnings = append(warnings, fmt.Sprintf("identifier %s:%q has surrounding whitespace", pi.Scheme, pi.Value))
		}
	}
	if p.taxNumber != "" && len(p.taxNumber) < 4 {
		warnings = append(warnings, fmt.Sprintf("tax number %q looks too short", p.taxNumber))
	}
	return warnings, nil
}

// CreateSnapshot captures the party's invoice-relevant state. The snapshot
// is a value copy: later edits to the party never affect issued invoices.
// This call is pure and records no event.
func (p *Party) CreateSnapshot() PartySnapshot {
	snap := PartySnapshot{
		PartyID:     p.id,
		LegalName:   p.legalName,
		TradingName: p.tradingName,
		TaxNumber:   p.taxNumber,
		Identifiers: append([]PartyIdentifier(nil), p.identifiers...),
	}
	if p.electronicAddress != nil {
		ea := *p.electronicAddress
		snap.ElectronicAddress = &ea
	}
	if p.networkID != nil {
		ni := *p.networkID
		snap.NetworkID = &ni
	}
	if len(p.addresses) > 0 {
		a := p.addresses[0]
		snap.Address = &a
	}
	if len(p.contacts) > 0 {
		c := p.contacts[0]
		snap.Contact = &c
	}
	if len(p.bankAccounts) > 0 {
		b := p.bankAccounts[0]
		snap.BankAccount = &b
	}
	return snap
}

// DomainEvents returns a copy of the pending outbox.
func (p *Party) DomainEvents() []Event {
	return append([]Event(nil), p.events...)
}

// DrainDomainEvents returns the pending events and clears the outbox.
// Call after a successful persistence step.
func (p *Party) DrainDomainEvents() []Event {
	drained := p.events
	p.events = nil
	return drained
}

// ClearDomainEvents discards the pending outbox.
func (p *Party) ClearDomainEvents() { p.events = nil }

func (p *Party) record(e Event) { p.events = append(p.events, e) }

// PartySnapshot is the immutable copy of a party taken at invoice issuance.
// It never references the live aggregate.
type PartySnapshot struct {
	PartyID           id.PartyID
	LegalName         string
	TradingName       string
	TaxNumber         string
	Identifiers       []PartyIdentifier
	ElectronicAddress *ElectronicAddress
	NetworkID         *NetworkIdentifier
	Address           *Address
	Contact           *ContactPerson
	BankAccount       *BankAccount
}

// NewPartySnapshot validates a snapshot assembled from persisted state.
func NewPartySnapshot(partyID id.PartyID, legalName string) (PartySnapshot, error) {
	if partyID.IsNil() {
		return PartySnapshot{}, dErrors.New(dErrors.CodeInvariantViolation, "party snapshot requires an id")
	}
	if legalName == "" {
		return PartySnapshot{}, dErrors.New(dErrors.CodeInvariantViolation, "party snapshot requires a legal name")
	}
	return PartySnapshot{PartyID: partyID, LegalName: legalName}, nil
}

// IsZero reports whether the snapshot is unset.
func (s PartySnapshot) IsZero() bool { return s.PartyID.IsNil() }
