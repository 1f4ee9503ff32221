package models

import (
	"regexp"

	dErrors "fakturo/pkg/domain-errors"
)

// ReferenceType classifies a document reference.
type ReferenceType string

const (
	ReferencePurchaseOrder ReferenceType = "purchase_order"
	ReferenceSalesOrder    ReferenceType = "sales_order"
	ReferenceContract      ReferenceType = "contract"
	ReferenceDespatch      ReferenceType = "despatch_advice"
	ReferenceReceipt       ReferenceType = "receiving_advice"
	ReferencePreceding     ReferenceType = "preceding_invoice"
	ReferenceProject       ReferenceType = "project"
	ReferenceBuyer         ReferenceType = "buyer_reference"
)

// DocumentReference points at a related business document.
type DocumentReference struct {
	Type        ReferenceType
	ID          string
	Description string
}

// NewDocumentReference validates and constructs a document reference.
func NewDocumentReference(refType ReferenceType, refID, description string) (DocumentReference, error) {
	if refType == "" {
		return DocumentReference{}, dErrors.New(dErrors.CodeInvariantViolation, "document reference requires a type")
	}
	if refID == "" {
		return DocumentReference{}, dErrors.New(dErrors.CodeInvariantViolation, "document reference requires an id")
	}
	return DocumentReference{Type: refType, ID: refID, Description: description}, nil
}

// invoiceNumberPattern keeps numbers printable and reference-safe: letters,
// digits and a small set of separators, up to 30 characters.
var invoiceNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/._]{0,29}$`)

// InvoiceNumber is the sequential, human-facing identifier of an invoice.
type InvoiceNumber string

// ParseInvoiceNumber validates an invoice number.
func ParseInvoiceNumber(s string) (InvoiceNumber, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "invoice number cannot be empty")
	}
	if !invoiceNumberPattern.MatchString(s) {
		return "", dErrors.Newf(dErrors.CodeInvariantViolation, "invoice number %q has invalid format", s)
	}
	return InvoiceNumber(s), nil
}

func (n InvoiceNumber) String() string { return string(n) }

// IsZero reports whether the number is unset (draft not yet numbered).
func (n InvoiceNumber) IsZero() bool { return n == "" }
