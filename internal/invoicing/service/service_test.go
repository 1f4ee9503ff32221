package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/events"
	"fakturo/internal/invoicing/models"
	"fakturo/internal/invoicing/numbering"
	invoicestore "fakturo/internal/invoicing/store/invoice"
	partystore "fakturo/internal/invoicing/store/party"
	"fakturo/internal/mapping"
	"fakturo/internal/money"
	"fakturo/internal/validation"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
	"fakturo/pkg/requestcontext"

	formatpkg "fakturo/internal/format"
)

var (
	eur     = money.MustCurrency("EUR")
	testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc       *Service
	publisher *events.InMemory
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	publisher := events.NewInMemory()
	svc := New(
		invoicestore.NewInMemory(),
		partystore.NewInMemory(),
		numbering.NewSequential(),
		validation.NewService(nil),
		formatpkg.NewService(mapping.NewRegistry(nil), nil),
		WithPublisher(publisher),
	)
	ctx := requestcontext.WithTime(context.Background(), testNow)
	ctx = requestcontext.WithActorID(ctx, id.NewUserID())
	return &fixture{svc: svc, publisher: publisher, ctx: ctx}
}

// seedParties registers a seller and buyer complete enough to pass EN16931
// business rules.
func (f *fixture) seedParties(t *testing.T) (*models.Party, *models.Party) {
	t.Helper()
	seller, err := f.svc.CreateParty(f.ctx, "ACME GmbH")
	require.NoError(t, err)
	_, err = f.svc.UpdateParty(f.ctx, seller.ID(), func(p *models.Party, now time.Time) error {
		p.SetTaxNumber("DE123456789", now)
		addr, err := models.NewAddress("Hauptstr. 1", "Berlin", "10115", "DE")
		if err != nil {
			return err
		}
		p.AddAddress(addr, now)
		return nil
	})
	require.NoError(t, err)

	buyer, err := f.svc.CreateParty(f.ctx, "Widgets Ltd")
	require.NoError(t, err)
	_, err = f.svc.UpdateParty(f.ctx, buyer.ID(), func(p *models.Party, now time.Time) error {
		addr, err := models.NewAddress("High St 2", "London", "E1 6AN", "GB")
		if err != nil {
			return err
		}
		p.AddAddress(addr, now)
		return nil
	})
	require.NoError(t, err)
	return seller, buyer
}

func (f *fixture) draftWithLine(t *testing.T) *models.Invoice {
	t.Helper()
	seller, buyer := f.seedParties(t)

	issue := testNow
	inv, err := f.svc.CreateDraft(f.ctx, CreateDraftRequest{
		SellerID:  seller.ID(),
		BuyerID:   buyer.ID(),
		Currency:  "EUR",
		IssueDate: &issue,
	})
	require.NoError(t, err)

	li, err := models.NewInvoiceLineItem(id.NewLineItemID(), "Consulting",
		money.MustQuantity("2", "EA"), money.MustNew("100.00", eur),
		models.TaxCategoryStandard, money.MustPercentage("20"))
	require.NoError(t, err)
	inv, err = f.svc.AddLineItem(f.ctx, inv.ID(), li)
	require.NoError(t, err)
	return inv
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)

	t.Run("creates draft with snapshots and due date", func(t *testing.T) {
		seller, buyer := f.seedParties(t)
		_, err := f.svc.UpdateParty(f.ctx, buyer.ID(), func(p *models.Party, now time.Time) error {
			p.SetDefaults(models.PartyDefaults{PaymentTermsDays: 30}, now)
			return nil
		})
		require.NoError(t, err)

		issue := testNow
		inv, err := f.svc.CreateDraft(f.ctx, CreateDraftRequest{
			SellerID:  seller.ID(),
			BuyerID:   buyer.ID(),
			Currency:  "EUR",
			IssueDate: &issue,
		})
		require.NoError(t, err)

		assert.Equal(t, models.DocumentStatusDraft, inv.Status())
		assert.Equal(t, "ACME GmbH", inv.Seller().LegalName)
		due, ok := inv.DueDate()
		require.True(t, ok)
		assert.Equal(t, issue.AddDate(0, 0, 30), due)

		// The draft survives a store round trip.
		loaded, err := f.svc.GetInvoice(f.ctx, inv.ID())
		require.NoError(t, err)
		assert.Equal(t, inv.ID(), loaded.ID())
	})

	t.Run("unknown seller", func(t *testing.T) {
		_, err := f.svc.CreateDraft(f.ctx, CreateDraftRequest{
			SellerID: id.NewPartyID(),
			BuyerID:  id.NewPartyID(),
			Currency: "EUR",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("invalid currency", func(t *testing.T) {
		seller, buyer := f.seedParties(t)
		_, err := f.svc.CreateDraft(f.ctx, CreateDraftRequest{
			SellerID: seller.ID(),
			BuyerID:  buyer.ID(),
			Currency: "EURO",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestFinalizeInvoice(t *testing.T) {
	t.Run("allocates number and publishes events", func(t *testing.T) {
		f := newFixture(t)
		inv := f.draftWithLine(t)

		finalized, err := f.svc.FinalizeInvoice(f.ctx, inv.ID(), "EN16931")
		require.NoError(t, err)

		assert.Equal(t, models.DocumentStatusFinalized, finalized.Status())
		assert.Equal(t, models.InvoiceNumber("INV-2026-0001"), finalized.Number())
		assert.Contains(t, f.publisher.Names(), "invoice.finalized")
		assert.Contains(t, f.publisher.Names(), "invoice.validated")

		// The stamped number is persisted and findable.
		loaded, err := f.svc.GetInvoiceByNumber(f.ctx, finalized.Number())
		require.NoError(t, err)
		assert.Equal(t, inv.ID(), loaded.ID())
	})

	t.Run("numbers increment per finalization", func(t *testing.T) {
		f := newFixture(t)
		first := f.draftWithLine(t)
		second := f.draftWithLine(t)

		a, err := f.svc.FinalizeInvoice(f.ctx, first.ID(), "EN16931")
		require.NoError(t, err)
		b, err := f.svc.FinalizeInvoice(f.ctx, second.ID(), "EN16931")
		require.NoError(t, err)

		assert.Equal(t, models.InvoiceNumber("INV-2026-0001"), a.Number())
		assert.Equal(t, models.InvoiceNumber("INV-2026-0002"), b.Number())
	})

	t.Run("rejects invoice failing validation", func(t *testing.T) {
		f := newFixture(t)
		seller, buyer := f.seedParties(t)

		// No issue date, no lines: CanFinalize already refuses.
		inv, err := f.svc.CreateDraft(f.ctx, CreateDraftRequest{
			SellerID: seller.ID(), BuyerID: buyer.ID(), Currency: "EUR",
		})
		require.NoError(t, err)

		_, err = f.svc.FinalizeInvoice(f.ctx, inv.ID(), "EN16931")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("rejects profile violations", func(t *testing.T) {
		f := newFixture(t)
		inv := f.draftWithLine(t)

		// PEPPOL requires electronic addresses the parties do not have.
		_, err := f.svc.FinalizeInvoice(f.ctx, inv.ID(), "PEPPOL_BIS_3")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestValidateInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.draftWithLine(t)

	result, err := f.svc.ValidateInvoice(f.ctx, inv.ID(), "EN16931")
	require.NoError(t, err)
	assert.True(t, result.IsValid())

	// The run is recorded on the persisted aggregate.
	loaded, err := f.svc.GetInvoice(f.ctx, inv.ID())
	require.NoError(t, err)
	latest, ok := loaded.LatestValidation()
	require.True(t, ok)
	assert.Equal(t, "EN16931", latest.Profile)

	t.Run("unknown profile", func(t *testing.T) {
		_, err := f.svc.ValidateInvoice(f.ctx, inv.ID(), "NO_SUCH")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestPaymentsAndLifecycle(t *testing.T) {
	f := newFixture(t)
	inv := f.draftWithLine(t)
	finalized, err := f.svc.FinalizeInvoice(f.ctx, inv.ID(), "EN16931")
	require.NoError(t, err)

	t.Run("applies payment to paid", func(t *testing.T) {
		p, err := models.NewPayment(finalized.Totals().Payable(), testNow, testNow,
			models.PaymentMethodCreditTransfer, "wire-1")
		require.NoError(t, err)

		updated, err := f.svc.ApplyPayment(f.ctx, inv.ID(), p)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus())
		assert.Contains(t, f.publisher.Names(), "invoice.payment_applied")
	})

	t.Run("transmission state machine", func(t *testing.T) {
		_, err := f.svc.QueueForTransmission(f.ctx, inv.ID())
		require.NoError(t, err)
		_, err = f.svc.MarkTransmitting(f.ctx, inv.ID())
		require.NoError(t, err)
		sent, err := f.svc.MarkSent(f.ctx, inv.ID())
		require.NoError(t, err)
		assert.Equal(t, models.TransmissionStatusSent, sent.TransmissionStatus())

		// Sent invoices cannot be cancelled.
		_, err = f.svc.CancelInvoice(f.ctx, inv.ID(), "wrong buyer")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestCreateCreditNote(t *testing.T) {
	f := newFixture(t)
	inv := f.draftWithLine(t)
	finalized, err := f.svc.FinalizeInvoice(f.ctx, inv.ID(), "EN16931")
	require.NoError(t, err)

	cn, err := f.svc.CreateCreditNote(f.ctx, inv.ID(), "goods returned")
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceTypeCreditNote, cn.Type())
	assert.Len(t, cn.LineItems(), 1)
	refs := cn.References()
	require.Len(t, refs, 1)
	assert.Equal(t, finalized.Number().String(), refs[0].ID)

	t.Run("requires finalized original", func(t *testing.T) {
		draft := f.draftWithLine(t)
		_, err := f.svc.CreateCreditNote(f.ctx, draft.ID(), "nope")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestGenerateDocument(t *testing.T) {
	f := newFixture(t)
	inv := f.draftWithLine(t)
	finalized, err := f.svc.FinalizeInvoice(f.ctx, inv.ID(), "EN16931")
	require.NoError(t, err)

	doc, err := f.svc.GenerateDocument(f.ctx, inv.ID(), models.OutputFormatUBL, mapping.StandardEN16931)
	require.NoError(t, err)
	assert.Equal(t, finalized.Number().String()+".xml", doc.Filename)
	assert.Contains(t, string(doc.Content), "<cbc:ID>"+finalized.Number().String()+"</cbc:ID>")

	t.Run("draft cannot render structured output", func(t *testing.T) {
		draft := f.draftWithLine(t)
		_, err := f.svc.GenerateDocument(f.ctx, draft.ID(), models.OutputFormatUBL, mapping.StandardEN16931)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestDeleteDraft(t *testing.T) {
	f := newFixture(t)

	t.Run("deletes drafts", func(t *testing.T) {
		draft := f.draftWithLine(t)
		require.NoError(t, f.svc.DeleteDraft(f.ctx, draft.ID()))

		_, err := f.svc.GetInvoice(f.ctx, draft.ID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("refuses finalized invoices", func(t *testing.T) {
		inv := f.draftWithLine(t)
		_, err := f.svc.FinalizeInvoice(f.ctx, inv.ID(), "EN16931")
		require.NoError(t, err)

		err = f.svc.DeleteDraft(f.ctx, inv.ID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestPartyDirectory(t *testing.T) {
	f := newFixture(t)

	t.Run("resolves by identifier", func(t *testing.T) {
		p, err := f.svc.CreateParty(f.ctx, "Lookup Co")
		require.NoError(t, err)
		_, err = f.svc.UpdateParty(f.ctx, p.ID(), func(p *models.Party, now time.Time) error {
			pi, err := models.NewPartyIdentifier("GLN", "4000001000005")
			if err != nil {
				return err
			}
			return p.AddIdentifier(pi, now)
		})
		require.NoError(t, err)
		assert.Contains(t, f.publisher.Names(), "party.identifier_added")

		found, err := f.svc.GetPartyByIdentifier(f.ctx, "GLN", "4000001000005")
		require.NoError(t, err)
		assert.Equal(t, p.ID(), found.ID())
	})

	t.Run("rejects empty legal name", func(t *testing.T) {
		_, err := f.svc.CreateParty(f.ctx, "   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("lists parties", func(t *testing.T) {
		result, err := f.svc.ListParties(f.ctx, partystore.Filter{}, partystore.Page{})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Items)
	})

	t.Run("readiness reports checksum warnings", func(t *testing.T) {
		p, err := f.svc.CreateParty(f.ctx, "Suspect Co")
		require.NoError(t, err)
		_, err = f.svc.UpdateParty(f.ctx, p.ID(), func(p *models.Party, now time.Time) error {
			pi, err := models.NewPartyIdentifier("GLN", "4000001000004")
			if err != nil {
				return err
			}
			return p.AddIdentifier(pi, now)
		})
		require.NoError(t, err)

		warnings, err := f.svc.CheckPartyReadiness(f.ctx, p.ID())
		require.NoError(t, err)
		assert.NotEmpty(t, warnings)
	})
}
