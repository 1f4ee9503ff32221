package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
	"fakturo/pkg/requestcontext"
)

var (
	eur = money.MustCurrency("EUR")
	now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func completeSnapshot(t *testing.T, name string) models.PartySnapshot {
	t.Helper()
	snap, err := models.NewPartySnapshot(id.NewPartyID(), name)
	require.NoError(t, err)
	snap.TaxNumber = "DE123456789"
	addr, err := models.NewAddress("Hauptstr. 1", "Berlin", "10115", "DE")
	require.NoError(t, err)
	snap.Address = &addr
	return snap
}

func completeInvoice(t *testing.T) *models.Invoice {
	t.Helper()
	inv, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCommercial, eur, now)
	require.NoError(t, err)
	require.NoError(t, inv.SetSeller(completeSnapshot(t, "ACME GmbH"), now))
	require.NoError(t, inv.SetBuyer(completeSnapshot(t, "Widgets Ltd"), now))
	require.NoError(t, inv.SetIssueDate(now, now))
	require.NoError(t, inv.SetDueDate(now.AddDate(0, 0, 30), now))

	li, err := models.NewInvoiceLineItem(id.NewLineItemID(), "Consulting",
		money.MustQuantity("2", "EA"), money.MustNew("100.00", eur),
		models.TaxCategoryStandard, money.MustPercentage("20"))
	require.NoError(t, err)
	require.NoError(t, inv.AddLineItem(li, now, id.NewUserID()))
	return inv
}

func TestService_Validate(t *testing.T) {
	svc := NewService(nil)

	t.Run("complete invoice passes EN16931", func(t *testing.T) {
		result, err := svc.Validate(testCtx(), completeInvoice(t), ProfileEN16931)
		require.NoError(t, err)
		assert.True(t, result.IsValid(), "unexpected issues: %v", result.Issues())
		assert.Equal(t, ProfileEN16931, result.Profile)
		assert.Equal(t, now, result.ValidatedAt)
	})

	t.Run("unknown profile is a pipeline error", func(t *testing.T) {
		_, err := svc.Validate(testCtx(), completeInvoice(t), "NO_SUCH")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("structural failure short-circuits", func(t *testing.T) {
		inv, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCommercial, eur, now)
		require.NoError(t, err)

		result, err := svc.Validate(testCtx(), inv, ProfileEN16931)
		require.NoError(t, err)
		require.False(t, result.IsValid())
		for _, issue := range result.Errors {
			assert.Equal(t, "STR-02", issue.Code)
		}
	})

	t.Run("missing seller address is BR-08", func(t *testing.T) {
		inv := completeInvoice(t)
		seller := inv.Seller()
		seller.Address = nil

		// Rebuild with the broken seller; drafts accept snapshot swaps.
		broken, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCommercial, eur, now)
		require.NoError(t, err)
		require.NoError(t, broken.SetSeller(seller, now))
		require.NoError(t, broken.SetBuyer(inv.Buyer(), now))
		require.NoError(t, broken.SetIssueDate(now, now))
		for _, li := range inv.LineItems() {
			require.NoError(t, broken.AddLineItem(li, now, id.NewUserID()))
		}

		result, err := svc.Validate(testCtx(), broken, ProfileEN16931)
		require.NoError(t, err)
		require.False(t, result.IsValid())
		codes := issueCodes(result.Errors)
		assert.Contains(t, codes, "BR-08")
	})

	t.Run("peppol requires electronic addresses", func(t *testing.T) {
		result, err := svc.Validate(testCtx(), completeInvoice(t), ProfilePeppol)
		require.NoError(t, err)
		codes := issueCodes(result.Errors)
		assert.Contains(t, codes, "PEPPOL-R010")
		assert.Contains(t, codes, "PEPPOL-R020")
	})

	t.Run("xrechnung requires a buyer reference", func(t *testing.T) {
		result, err := svc.Validate(testCtx(), completeInvoice(t), ProfileXRechnung)
		require.NoError(t, err)
		assert.Contains(t, issueCodes(result.Errors), "BR-DE-15")

		inv := completeInvoice(t)
		require.NoError(t, inv.SetBuyerReference("991-01234-56", now))
		result, err = svc.Validate(testCtx(), inv, ProfileXRechnung)
		require.NoError(t, err)
		assert.NotContains(t, issueCodes(result.Errors), "BR-DE-15")
	})

	t.Run("us profile warns on non-USD currency", func(t *testing.T) {
		result, err := svc.Validate(testCtx(), completeInvoice(t), ProfileUS)
		require.NoError(t, err)
		assert.True(t, result.IsValid())
		assert.Contains(t, issueCodes(result.Warnings), "US-01")
	})
}

func TestService_CustomRules(t *testing.T) {
	svc := NewService(nil)

	minimum := money.MustNew("1000.00", eur)
	err := svc.RegisterRule(Rule{
		Code:     "ORG-42",
		Severity: models.SeverityError,
		Check: func(inv *models.Invoice) []models.ValidationIssue {
			cmp, err := inv.Totals().Payable().Cmp(minimum)
			if err != nil || cmp >= 0 {
				return nil
			}
			return []models.ValidationIssue{{
				Code: "ORG-42", Severity: models.SeverityError,
				Message: "payable below the organization minimum",
			}}
		},
	})
	require.NoError(t, err)

	result, err := svc.Validate(testCtx(), completeInvoice(t), ProfileEN16931)
	require.NoError(t, err)
	assert.Contains(t, issueCodes(result.Errors), "ORG-42")

	t.Run("rejects rule without check", func(t *testing.T) {
		require.Error(t, svc.RegisterRule(Rule{Code: "X"}))
	})
}

func TestService_Profiles(t *testing.T) {
	svc := NewService(nil)
	assert.Equal(t, []string{ProfileEN16931, ProfilePeppol, ProfileUS, ProfileXRechnung}, svc.SupportedProfiles())
	assert.Equal(t, []string{"EN16931", "US"}, svc.SupportedStandards())

	require.NoError(t, svc.RegisterProfile(Profile{Name: "FACTURAE", Standard: "ES"}))
	p, err := svc.Profile("FACTURAE")
	require.NoError(t, err)
	assert.Equal(t, "ES", p.Standard)
}

func issueCodes(issues []models.ValidationIssue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	return codes
}
