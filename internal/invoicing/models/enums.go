package models

import dErrors "fakturo/pkg/domain-errors"

// InvoiceType is the canonical document function vocabulary. Standard
// mappers translate these to jurisdiction-specific code lists (UNTDID 1001
// for EN16931, textual codes for US-style standards).
type InvoiceType string

const (
	InvoiceTypeCommercial InvoiceType = "commercial"
	InvoiceTypeCreditNote InvoiceType = "credit_note"
	InvoiceTypeDebitNote  InvoiceType = "debit_note"
	InvoiceTypeCorrective InvoiceType = "corrective"
	InvoiceTypeSelfBilled InvoiceType = "self_billed"
	InvoiceTypePrepayment InvoiceType = "prepayment"
	InvoiceTypePartial    InvoiceType = "partial"
)

// CanonicalInvoiceTypes lists the domain vocabulary in a stable order.
func CanonicalInvoiceTypes() []InvoiceType {
	return []InvoiceType{
		InvoiceTypeCommercial,
		InvoiceTypeCreditNote,
		InvoiceTypeDebitNote,
		InvoiceTypeCorrective,
		InvoiceTypeSelfBilled,
		InvoiceTypePrepayment,
		InvoiceTypePartial,
	}
}

// ParseInvoiceType validates an invoice type from external input.
func ParseInvoiceType(s string) (InvoiceType, error) {
	for _, t := range CanonicalInvoiceTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown invoice type %q", s)
}

// OutputFormat is the canonical serialization vocabulary.
type OutputFormat string

const (
	OutputFormatUBL       OutputFormat = "ubl"
	OutputFormatCII       OutputFormat = "cii"
	OutputFormatFacturae  OutputFormat = "facturae"
	OutputFormatFatturaPA OutputFormat = "fatturapa"
	OutputFormatPDF       OutputFormat = "pdf"
	OutputFormatHybrid    OutputFormat = "hybrid"
)

// CanonicalOutputFormats lists the serialization vocabulary in a stable order.
func CanonicalOutputFormats() []OutputFormat {
	return []OutputFormat{
		OutputFormatUBL,
		OutputFormatCII,
		OutputFormatFacturae,
		OutputFormatFatturaPA,
		OutputFormatPDF,
		OutputFormatHybrid,
	}
}

// DocumentStatus is the lifecycle state of the invoice document itself.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusFinalized DocumentStatus = "finalized"
	DocumentStatusCancelled DocumentStatus = "cancelled"
)

// TransmissionStatus tracks delivery over the e-invoicing network.
type TransmissionStatus string

const (
	TransmissionStatusPending      TransmissionStatus = "pending"
	TransmissionStatusQueued       TransmissionStatus = "queued"
	TransmissionStatusTransmitting TransmissionStatus = "transmitting"
	TransmissionStatusSent         TransmissionStatus = "sent"
	TransmissionStatusAcknowledged TransmissionStatus = "acknowledged"
	TransmissionStatusRejected     TransmissionStatus = "rejected"
)

// PaymentStatus tracks settlement, advancing independently of transmission.
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
)
