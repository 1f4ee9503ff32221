package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

var (
	testNow   = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	testActor = id.NewUserID()
)

func newTestSnapshot(t *testing.T, name string) PartySnapshot {
	t.Helper()
	snap, err := NewPartySnapshot(id.NewPartyID(), name)
	require.NoError(t, err)
	return snap
}

func newTestLine(t *testing.T, name, qty, price, rate string, opts ...LineItemOption) InvoiceLineItem {
	t.Helper()
	q := money.MustQuantity(qty, "EA")
	category := TaxCategoryStandard
	pct := money.MustPercentage(rate)
	if rate == "0" {
		category = TaxCategoryZero
		pct = money.ZeroPercent()
	}
	li, err := NewInvoiceLineItem(id.NewLineItemID(), name, q, money.MustNew(price, eur), category, pct, opts...)
	require.NoError(t, err)
	return li
}

func newDraftInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(id.NewInvoiceID(), InvoiceTypeCommercial, eur, testNow)
	require.NoError(t, err)
	return inv
}

// readyDraft is a draft satisfying every finalization precondition except
// the ones a test removes.
func readyDraft(t *testing.T) *Invoice {
	t.Helper()
	inv := newDraftInvoice(t)
	require.NoError(t, inv.SetSeller(newTestSnapshot(t, "ACME GmbH"), testNow))
	require.NoError(t, inv.SetBuyer(newTestSnapshot(t, "Widgets Ltd"), testNow))
	require.NoError(t, inv.SetIssueDate(testNow, testNow))
	require.NoError(t, inv.AddLineItem(newTestLine(t, "Consulting", "2", "100.00", "20"), testNow, testActor))
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := newDraftInvoice(t)
	assert.Equal(t, DocumentStatusDraft, inv.Status())
	assert.Equal(t, TransmissionStatusPending, inv.TransmissionStatus())
	assert.Equal(t, PaymentStatusUnpaid, inv.PaymentStatus())
	assert.True(t, inv.Number().IsZero())
	assert.True(t, inv.Totals().Payable().IsZero())

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewInvoice(id.NewInvoiceID(), InvoiceType("proforma"), eur, testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("requires currency", func(t *testing.T) {
		_, err := NewInvoice(id.NewInvoiceID(), InvoiceTypeCommercial, money.Currency{}, testNow)
		require.Error(t, err)
	})
}

func TestInvoice_Totals(t *testing.T) {
	t.Run("two units at 100.00 with 20 percent tax", func(t *testing.T) {
		inv := readyDraft(t)
		totals := inv.Totals()
		assert.Equal(t, "200.00", totals.LineNet().StringFixed())
		assert.Equal(t, "200.00", totals.TaxExclusive().StringFixed())
		assert.Equal(t, "40.00", totals.TaxTotal().StringFixed())
		assert.Equal(t, "240.00", totals.Payable().StringFixed())

		breakdowns := inv.TaxBreakdowns()
		require.Len(t, breakdowns, 1)
		assert.Equal(t, "200.00", breakdowns[0].TaxableAmount().StringFixed())
		assert.Equal(t, "40.00", breakdowns[0].TaxAmount().StringFixed())
	})

	t.Run("mixed rates produce one breakdown per group", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.AddLineItem(newTestLine(t, "Books", "1", "50.00", "7"), testNow, testActor))
		require.NoError(t, inv.AddLineItem(newTestLine(t, "Postage", "1", "10.00", "0"), testNow, testActor))

		totals := inv.Totals()
		assert.Equal(t, "260.00", totals.LineNet().StringFixed())
		// 200×20% + 50×7% + 10×0%
		assert.Equal(t, "43.50", totals.TaxTotal().StringFixed())
		assert.Len(t, inv.TaxBreakdowns(), 3)
	})

	t.Run("document allowance reduces taxable and tax", func(t *testing.T) {
		inv := readyDraft(t)
		discount, err := NewAllowance(money.MustNew("20.00", eur),
			WithReason("early settlement"),
			WithTax(TaxCategoryStandard, money.MustPercentage("20")))
		require.NoError(t, err)
		require.NoError(t, inv.AddAllowanceCharge(discount, testNow))

		totals := inv.Totals()
		assert.Equal(t, "180.00", totals.TaxExclusive().StringFixed())
		assert.Equal(t, "36.00", totals.TaxTotal().StringFixed())
		assert.Equal(t, "216.00", totals.Payable().StringFixed())
	})

	t.Run("line allowance enters the line net", func(t *testing.T) {
		inv := newDraftInvoice(t)
		lineDiscount, err := NewAllowance(money.MustNew("10.00", eur))
		require.NoError(t, err)
		li := newTestLine(t, "Consulting", "2", "100.00", "20", WithLineAllowanceCharges(lineDiscount))
		require.NoError(t, inv.AddLineItem(li, testNow, testActor))

		totals := inv.Totals()
		assert.Equal(t, "190.00", totals.LineNet().StringFixed())
		assert.Equal(t, "38.00", totals.TaxTotal().StringFixed())
	})

	t.Run("prepaid and rounding feed the payable", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.SetPrepaid(money.MustNew("40.00", eur), testNow))
		require.NoError(t, inv.SetRounding(money.MustNew("-0.00", eur), testNow))
		assert.Equal(t, "200.00", inv.Totals().Payable().StringFixed())
	})

	t.Run("removing a line renumbers and recomputes", func(t *testing.T) {
		inv := readyDraft(t)
		second := newTestLine(t, "Books", "1", "50.00", "7")
		require.NoError(t, inv.AddLineItem(second, testNow, testActor))
		first := inv.LineItems()[0]

		require.NoError(t, inv.RemoveLineItem(first.ID(), testNow, testActor))
		lines := inv.LineItems()
		require.Len(t, lines, 1)
		assert.Equal(t, 1, lines[0].LineNumber())
		assert.Equal(t, "50.00", inv.Totals().LineNet().StringFixed())
	})

	t.Run("rejects foreign-currency line", func(t *testing.T) {
		inv := newDraftInvoice(t)
		li, err := NewInvoiceLineItem(id.NewLineItemID(), "Widget", money.MustQuantity("1", "EA"), money.MustNew("10.00", usd),
			TaxCategoryStandard, money.MustPercentage("20"))
		require.NoError(t, err)
		err = inv.AddLineItem(li, testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects duplicate line id", func(t *testing.T) {
		inv := newDraftInvoice(t)
		li := newTestLine(t, "Widget", "1", "10.00", "20")
		require.NoError(t, inv.AddLineItem(li, testNow, testActor))
		err := inv.AddLineItem(li, testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestInvoice_Finalize(t *testing.T) {
	number, err := ParseInvoiceNumber("INV-2026-0001")
	require.NoError(t, err)

	t.Run("stamps number and freezes content", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.Finalize(number, testNow, testActor))

		assert.Equal(t, DocumentStatusFinalized, inv.Status())
		assert.Equal(t, number, inv.Number())
		_, ok := inv.FinalizedAt()
		assert.True(t, ok)

		err := inv.AddLineItem(newTestLine(t, "Late", "1", "1.00", "20"), testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("rejects double finalization", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.Finalize(number, testNow, testActor))
		err := inv.Finalize(number, testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("preconditions", func(t *testing.T) {
		t.Run("no lines", func(t *testing.T) {
			inv := newDraftInvoice(t)
			require.NoError(t, inv.SetSeller(newTestSnapshot(t, "ACME GmbH"), testNow))
			require.NoError(t, inv.SetBuyer(newTestSnapshot(t, "Widgets Ltd"), testNow))
			require.NoError(t, inv.SetIssueDate(testNow, testNow))
			require.Error(t, inv.Finalize(number, testNow, testActor))
		})

		t.Run("no seller", func(t *testing.T) {
			inv := newDraftInvoice(t)
			require.NoError(t, inv.SetBuyer(newTestSnapshot(t, "Widgets Ltd"), testNow))
			require.NoError(t, inv.SetIssueDate(testNow, testNow))
			require.NoError(t, inv.AddLineItem(newTestLine(t, "Consulting", "1", "100.00", "20"), testNow, testActor))
			require.Error(t, inv.Finalize(number, testNow, testActor))
		})

		t.Run("no issue date", func(t *testing.T) {
			inv := newDraftInvoice(t)
			require.NoError(t, inv.SetSeller(newTestSnapshot(t, "ACME GmbH"), testNow))
			require.NoError(t, inv.SetBuyer(newTestSnapshot(t, "Widgets Ltd"), testNow))
			require.NoError(t, inv.AddLineItem(newTestLine(t, "Consulting", "1", "100.00", "20"), testNow, testActor))
			require.Error(t, inv.Finalize(number, testNow, testActor))
		})

		t.Run("no number", func(t *testing.T) {
			inv := readyDraft(t)
			require.Error(t, inv.Finalize(InvoiceNumber(""), testNow, testActor))
		})
	})

	t.Run("records event and audit entry", func(t *testing.T) {
		inv := readyDraft(t)
		inv.ClearDomainEvents()
		require.NoError(t, inv.Finalize(number, testNow, testActor))

		events := inv.DrainDomainEvents()
		require.Len(t, events, 1)
		fin, ok := events[0].(InvoiceFinalized)
		require.True(t, ok)
		assert.Equal(t, number, fin.Number)
		assert.Equal(t, "240.00", fin.Payable.StringFixed())

		trail := inv.AuditTrail()
		require.NotEmpty(t, trail)
		last := trail[len(trail)-1]
		assert.Equal(t, "invoice.finalized", last.EventType)
		assert.Equal(t, string(DocumentStatusDraft), last.FromStatus)
		assert.Equal(t, string(DocumentStatusFinalized), last.ToStatus)
		assert.Equal(t, testActor, last.Actor)
	})
}

func TestInvoice_Transmission(t *testing.T) {
	number, _ := ParseInvoiceNumber("INV-2026-0002")

	finalized := func(t *testing.T) *Invoice {
		inv := readyDraft(t)
		require.NoError(t, inv.Finalize(number, testNow, testActor))
		return inv
	}

	t.Run("happy path through the pipeline", func(t *testing.T) {
		inv := finalized(t)
		require.NoError(t, inv.Queue(testNow, testActor))
		require.NoError(t, inv.MarkTransmitting(testNow, testActor))
		require.NoError(t, inv.MarkSent(testNow, testActor))
		require.NoError(t, inv.Acknowledge(testNow, testActor))
		assert.Equal(t, TransmissionStatusAcknowledged, inv.TransmissionStatus())
	})

	t.Run("direct send without queueing", func(t *testing.T) {
		inv := finalized(t)
		require.NoError(t, inv.MarkSent(testNow, testActor))
		assert.Equal(t, TransmissionStatusSent, inv.TransmissionStatus())
	})

	t.Run("rejection from sent", func(t *testing.T) {
		inv := finalized(t)
		require.NoError(t, inv.MarkSent(testNow, testActor))
		require.NoError(t, inv.RejectTransmission("unknown endpoint", testNow, testActor))
		assert.Equal(t, TransmissionStatusRejected, inv.TransmissionStatus())
	})

	t.Run("illegal jumps", func(t *testing.T) {
		inv := finalized(t)
		err := inv.Acknowledge(testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

		err = inv.MarkTransmitting(testNow, testActor)
		require.Error(t, err)
	})

	t.Run("draft cannot transmit", func(t *testing.T) {
		inv := readyDraft(t)
		require.Error(t, inv.Queue(testNow, testActor))
	})
}

func TestInvoice_Cancel(t *testing.T) {
	number, _ := ParseInvoiceNumber("INV-2026-0003")

	t.Run("draft cancellation", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.Cancel("customer withdrew order", testNow, testActor))
		assert.Equal(t, DocumentStatusCancelled, inv.Status())
	})

	t.Run("requires a reason", func(t *testing.T) {
		inv := readyDraft(t)
		require.Error(t, inv.Cancel("", testNow, testActor))
	})

	t.Run("delivered invoice cannot be cancelled", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.Finalize(number, testNow, testActor))
		require.NoError(t, inv.MarkSent(testNow, testActor))
		err := inv.Cancel("too late", testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("double cancellation", func(t *testing.T) {
		inv := readyDraft(t)
		require.NoError(t, inv.Cancel("mistake", testNow, testActor))
		require.Error(t, inv.Cancel("again", testNow, testActor))
	})
}

func TestInvoice_ApplyPayment(t *testing.T) {
	number, _ := ParseInvoiceNumber("INV-2026-0004")

	finalized := func(t *testing.T) *Invoice {
		inv := readyDraft(t)
		require.NoError(t, inv.Finalize(number, testNow, testActor))
		return inv
	}
	pay := func(t *testing.T, amount string) Payment {
		p, err := NewPayment(money.MustNew(amount, eur), testNow, testNow, PaymentMethodCreditTransfer, "REF")
		require.NoError(t, err)
		return p
	}

	t.Run("full payment settles the invoice", func(t *testing.T) {
		inv := finalized(t)
		require.NoError(t, inv.ApplyPayment(pay(t, "240.00"), testNow, testActor))
		assert.Equal(t, PaymentStatusPaid, inv.PaymentStatus())
		assert.True(t, inv.AmountDue().IsZero())
	})

	t.Run("partial payments accumulate", func(t *testing.T) {
		inv := finalized(t)
		require.NoError(t, inv.ApplyPayment(pay(t, "100.00"), testNow, testActor))
		assert.Equal(t, PaymentStatusPartiallyPaid, inv.PaymentStatus())
		assert.Equal(t, "140.00", inv.AmountDue().StringFixed())

		require.NoError(t, inv.ApplyPayment(pay(t, "140.00"), testNow, testActor))
		assert.Equal(t, PaymentStatusPaid, inv.PaymentStatus())
		assert.Len(t, inv.Payments(), 2)
	})

	t.Run("overpayment is rejected", func(t *testing.T) {
		inv := finalized(t)
		err := inv.ApplyPayment(pay(t, "250.00"), testNow, testActor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
		assert.Equal(t, PaymentStatusUnpaid, inv.PaymentStatus())
	})

	t.Run("draft cannot take payments", func(t *testing.T) {
		inv := readyDraft(t)
		require.Error(t, inv.ApplyPayment(pay(t, "10.00"), testNow, testActor))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		inv := finalized(t)
		p, err := NewPayment(money.MustNew("240.00", usd), testNow, testNow, PaymentMethodCreditTransfer, "")
		require.NoError(t, err)
		require.Error(t, inv.ApplyPayment(p, testNow, testActor))
	})
}

func TestInvoice_Validation(t *testing.T) {
	inv := readyDraft(t)
	inv.ClearDomainEvents()

	result := NewValidationResult("EN16931", testNow, []ValidationIssue{
		{Code: "BR-08", Severity: SeverityError, Message: "seller postal address missing"},
		{Code: "BR-CL-04", Severity: SeverityWarning, Message: "currency not in recommended list"},
	})
	inv.RecordValidation(result, testNow)

	history := inv.ValidationHistory()
	require.Len(t, history, 1)
	assert.False(t, history[0].IsValid())

	latest, ok := inv.LatestValidation()
	require.True(t, ok)
	assert.Equal(t, "EN16931", latest.Profile)

	events := inv.DrainDomainEvents()
	require.Len(t, events, 1)
	validated, ok := events[0].(InvoiceValidated)
	require.True(t, ok)
	assert.False(t, validated.Valid)
	assert.Equal(t, 1, validated.Errors)
}

func TestInvoice_CanGenerateOutput(t *testing.T) {
	number, _ := ParseInvoiceNumber("INV-2026-0005")

	inv := readyDraft(t)
	assert.NoError(t, inv.CanGenerateOutput(OutputFormatPDF))
	assert.Error(t, inv.CanGenerateOutput(OutputFormatUBL))

	require.NoError(t, inv.Finalize(number, testNow, testActor))
	assert.NoError(t, inv.CanGenerateOutput(OutputFormatUBL))

	cancelled := readyDraft(t)
	require.NoError(t, cancelled.Cancel("void", testNow, testActor))
	assert.Error(t, cancelled.CanGenerateOutput(OutputFormatPDF))
}

func TestRehydrateInvoice(t *testing.T) {
	number, _ := ParseInvoiceNumber("INV-2026-0006")

	inv := readyDraft(t)
	require.NoError(t, inv.Finalize(number, testNow, testActor))
	p, err := NewPayment(money.MustNew("100.00", eur), testNow, testNow, PaymentMethodCreditTransfer, "")
	require.NoError(t, err)
	require.NoError(t, inv.ApplyPayment(p, testNow, testActor))

	issue, _ := inv.IssueDate()
	finalizedAt, _ := inv.FinalizedAt()
	restored, err := RehydrateInvoice(InvoiceState{
		ID:                 inv.ID(),
		Number:             inv.Number(),
		InvoiceType:        inv.Type(),
		Currency:           inv.Currency(),
		Seller:             inv.Seller(),
		Buyer:              inv.Buyer(),
		IssueDate:          &issue,
		DocumentStatus:     inv.Status(),
		TransmissionStatus: inv.TransmissionStatus(),
		LineItems:          inv.LineItems(),
		Payments:           inv.Payments(),
		AuditTrail:         inv.AuditTrail(),
		CreatedAt:          inv.CreatedAt(),
		UpdatedAt:          inv.UpdatedAt(),
		FinalizedAt:        &finalizedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, inv.ID(), restored.ID())
	assert.Equal(t, "240.00", restored.Totals().Payable().StringFixed())
	assert.Equal(t, PaymentStatusPartiallyPaid, restored.PaymentStatus())
	assert.Equal(t, "140.00", restored.AmountDue().StringFixed())
	assert.Empty(t, restored.DomainEvents())

	t.Run("finalized row without number is rejected", func(t *testing.T) {
		_, err := RehydrateInvoice(InvoiceState{
			ID:                 id.NewInvoiceID(),
			InvoiceType:        InvoiceTypeCommercial,
			Currency:           eur,
			DocumentStatus:     DocumentStatusFinalized,
			TransmissionStatus: TransmissionStatusPending,
			CreatedAt:          testNow,
			UpdatedAt:          testNow,
		})
		require.Error(t, err)
	})
}
