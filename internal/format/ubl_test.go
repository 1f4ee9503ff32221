package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/mapping"
	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
)

var (
	eur = money.MustCurrency("EUR")
	now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

func finalizedInvoice(t *testing.T) *models.Invoice {
	t.Helper()
	inv, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCommercial, eur, now)
	require.NoError(t, err)

	seller, err := models.NewPartySnapshot(id.NewPartyID(), "ACME GmbH")
	require.NoError(t, err)
	seller.TaxNumber = "DE123456789"
	addr, err := models.NewAddress("Hauptstr. 1", "Berlin", "10115", "DE")
	require.NoError(t, err)
	seller.Address = &addr
	acct, err := models.NewBankAccount("ACME GmbH", "DE89370400440532013000", "", "COBADEFFXXX")
	require.NoError(t, err)
	seller.BankAccount = &acct

	buyer, err := models.NewPartySnapshot(id.NewPartyID(), "Widgets Ltd")
	require.NoError(t, err)

	require.NoError(t, inv.SetSeller(seller, now))
	require.NoError(t, inv.SetBuyer(buyer, now))
	require.NoError(t, inv.SetIssueDate(now, now))
	require.NoError(t, inv.SetDueDate(now.AddDate(0, 0, 30), now))

	li, err := models.NewInvoiceLineItem(id.NewLineItemID(), "Consulting",
		money.MustQuantity("2", "EA"), money.MustNew("100.00", eur),
		models.TaxCategoryStandard, money.MustPercentage("20"))
	require.NoError(t, err)
	require.NoError(t, inv.AddLineItem(li, now, id.NewUserID()))

	number, err := models.ParseInvoiceNumber("INV-2026-0001")
	require.NoError(t, err)
	require.NoError(t, inv.Finalize(number, now, id.NewUserID()))
	return inv
}

func TestUBLGenerator_Render(t *testing.T) {
	svc := NewService(mapping.NewRegistry(nil), nil)

	doc, err := svc.Generate(finalizedInvoice(t), models.OutputFormatUBL, mapping.StandardEN16931)
	require.NoError(t, err)

	assert.Equal(t, models.OutputFormatUBL, doc.Format)
	assert.Equal(t, mapping.StandardEN16931, doc.Standard)
	assert.Equal(t, "application/xml", doc.MediaType)
	assert.Equal(t, "INV-2026-0001.xml", doc.Filename)

	xml := string(doc.Content)
	assert.Contains(t, xml, `<cbc:ID>INV-2026-0001</cbc:ID>`)
	assert.Contains(t, xml, `<cbc:InvoiceTypeCode>380</cbc:InvoiceTypeCode>`)
	assert.Contains(t, xml, `<cbc:DocumentCurrencyCode>EUR</cbc:DocumentCurrencyCode>`)
	assert.Contains(t, xml, `<cbc:IssueDate>2026-03-15</cbc:IssueDate>`)
	assert.Contains(t, xml, `currencyID="EUR"`)
	assert.Contains(t, xml, `<cbc:PayableAmount currencyID="EUR">240.00</cbc:PayableAmount>`)
	assert.Contains(t, xml, `<cbc:RegistrationName>ACME GmbH</cbc:RegistrationName>`)
	assert.Contains(t, xml, `<cbc:CompanyID>DE123456789</cbc:CompanyID>`)
	assert.Contains(t, xml, `DE89370400440532013000`)
	assert.Contains(t, xml, `unitCode="EA"`)

	// Exact decimal strings, not floats.
	assert.Contains(t, xml, `>200.00<`)
	assert.Contains(t, xml, `>40.00<`)
}

func TestService_Generate_Lifecycle(t *testing.T) {
	svc := NewService(mapping.NewRegistry(nil), nil)

	t.Run("draft cannot render structured output", func(t *testing.T) {
		inv, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCommercial, eur, now)
		require.NoError(t, err)
		_, err = svc.Generate(inv, models.OutputFormatUBL, mapping.StandardEN16931)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("unregistered format", func(t *testing.T) {
		_, err := svc.Generate(finalizedInvoice(t), models.OutputFormatFacturae, mapping.StandardFacturae)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown standard falls back to EN16931", func(t *testing.T) {
		doc, err := svc.Generate(finalizedInvoice(t), models.OutputFormatUBL, "NO_SUCH")
		require.NoError(t, err)
		assert.Equal(t, mapping.StandardEN16931, doc.Standard)
	})

	t.Run("supported formats", func(t *testing.T) {
		assert.Equal(t, []models.OutputFormat{models.OutputFormatUBL}, svc.SupportedFormats())
	})
}
