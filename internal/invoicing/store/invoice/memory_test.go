package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/money"
	id "fakturo/pkg/domain"
	"fakturo/pkg/platform/sentinel"
)

var (
	eur     = money.MustCurrency("EUR")
	testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

type InvoiceStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InvoiceStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInvoiceStoreSuite(t *testing.T) {
	suite.Run(t, new(InvoiceStoreSuite))
}

func (s *InvoiceStoreSuite) newDraft(at time.Time) *models.Invoice {
	inv, err := models.NewInvoice(id.NewInvoiceID(), models.InvoiceTypeCommercial, eur, at)
	s.Require().NoError(err)

	seller, err := models.NewPartySnapshot(id.NewPartyID(), "ACME GmbH")
	s.Require().NoError(err)
	buyer, err := models.NewPartySnapshot(id.NewPartyID(), "Widgets Ltd")
	s.Require().NoError(err)
	s.Require().NoError(inv.SetSeller(seller, at))
	s.Require().NoError(inv.SetBuyer(buyer, at))
	s.Require().NoError(inv.SetIssueDate(at, at))

	li, err := models.NewInvoiceLineItem(id.NewLineItemID(), "Consulting",
		money.MustQuantity("2", "EA"), money.MustNew("100.00", eur),
		models.TaxCategoryStandard, money.MustPercentage("20"))
	s.Require().NoError(err)
	s.Require().NoError(inv.AddLineItem(li, at, id.NewUserID()))
	return inv
}

func (s *InvoiceStoreSuite) finalize(inv *models.Invoice, number string) {
	n, err := models.ParseInvoiceNumber(number)
	s.Require().NoError(err)
	s.Require().NoError(inv.Finalize(n, testNow, id.NewUserID()))
}

// TestCreationAndLookups verifies the store correctly creates and retrieves invoices.
func (s *InvoiceStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds invoice by ID", func() {
		inv := s.newDraft(testNow)
		s.Require().NoError(s.store.Create(s.ctx, inv))

		found, err := s.store.FindByID(s.ctx, inv.ID())
		s.Require().NoError(err)
		s.Equal(inv.ID(), found.ID())
		s.Equal(inv.Totals().Payable(), found.Totals().Payable())

		exists, err := s.store.Exists(s.ctx, inv.ID())
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewInvoiceID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		exists, err := s.store.Exists(s.ctx, id.NewInvoiceID())
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("rejects duplicate ID", func() {
		inv := s.newDraft(testNow)
		s.Require().NoError(s.store.Create(s.ctx, inv))

		err := s.store.Create(s.ctx, inv)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("finds finalized invoice by number", func() {
		inv := s.newDraft(testNow)
		s.finalize(inv, "INV-2026-0042")
		s.Require().NoError(s.store.Create(s.ctx, inv))

		found, err := s.store.FindByNumber(s.ctx, inv.Number())
		s.Require().NoError(err)
		s.Equal(inv.ID(), found.ID())
	})

	s.Run("returns ErrNotFound for unknown number", func() {
		number, err := models.ParseInvoiceNumber("INV-9999-0001")
		s.Require().NoError(err)
		_, err = s.store.FindByNumber(s.ctx, number)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestNumberUniqueness verifies first-writer-wins on invoice numbers.
func (s *InvoiceStoreSuite) TestNumberUniqueness() {
	s.Run("rejects second invoice with same number", func() {
		first := s.newDraft(testNow)
		s.finalize(first, "INV-2026-0001")
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newDraft(testNow)
		s.finalize(second, "INV-2026-0001")
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects update stamping a taken number", func() {
		first := s.newDraft(testNow)
		s.finalize(first, "INV-2026-0002")
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newDraft(testNow)
		s.Require().NoError(s.store.Create(s.ctx, second))
		s.finalize(second, "INV-2026-0002")

		err := s.store.Update(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("update keeping the own number succeeds", func() {
		inv := s.newDraft(testNow)
		s.finalize(inv, "INV-2026-0003")
		s.Require().NoError(s.store.Create(s.ctx, inv))
		s.Require().NoError(inv.Queue(testNow, id.NewUserID()))

		s.Require().NoError(s.store.Update(s.ctx, inv))

		found, err := s.store.FindByID(s.ctx, inv.ID())
		s.Require().NoError(err)
		s.Equal(models.TransmissionStatusQueued, found.TransmissionStatus())
	})
}

// TestUpdates verifies persisted state changes survive a round trip.
func (s *InvoiceStoreSuite) TestUpdates() {
	s.Run("persists lifecycle changes", func() {
		inv := s.newDraft(testNow)
		s.Require().NoError(s.store.Create(s.ctx, inv))

		s.finalize(inv, "INV-2026-0100")
		s.Require().NoError(s.store.Update(s.ctx, inv))

		found, err := s.store.FindByID(s.ctx, inv.ID())
		s.Require().NoError(err)
		s.Equal(models.DocumentStatusFinalized, found.Status())
		s.Equal(inv.Number(), found.Number())
	})

	s.Run("returns ErrNotFound for non-existent invoice", func() {
		err := s.store.Update(s.ctx, s.newDraft(testNow))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stored state is detached from the aggregate", func() {
		inv := s.newDraft(testNow)
		s.Require().NoError(s.store.Create(s.ctx, inv))

		s.Require().NoError(inv.SetNote("changed after save", testNow))

		found, err := s.store.FindByID(s.ctx, inv.ID())
		s.Require().NoError(err)
		s.Empty(found.Note())
	})
}

// TestSearch verifies filtering and pagination.
func (s *InvoiceStoreSuite) TestSearch() {
	seed := func(n int) []*models.Invoice {
		s.store = NewInMemory()
		invoices := make([]*models.Invoice, n)
		for i := range invoices {
			inv := s.newDraft(testNow.Add(time.Duration(i) * time.Minute))
			s.Require().NoError(s.store.Create(s.ctx, inv))
			invoices[i] = inv
		}
		return invoices
	}

	s.Run("filters by seller", func() {
		invoices := seed(3)
		want := invoices[1]

		result, err := s.store.Search(s.ctx, SearchCriteria{SellerID: want.Seller().PartyID}, Page{})
		s.Require().NoError(err)
		s.Equal(1, result.Total)
		s.Require().Len(result.Items, 1)
		s.Equal(want.ID(), result.Items[0].ID())
	})

	s.Run("filters by document status", func() {
		invoices := seed(2)
		s.finalize(invoices[0], "INV-2026-0200")
		s.Require().NoError(s.store.Update(s.ctx, invoices[0]))

		result, err := s.store.Search(s.ctx, SearchCriteria{DocumentStatus: models.DocumentStatusFinalized}, Page{})
		s.Require().NoError(err)
		s.Equal(1, result.Total)
	})

	s.Run("paginates newest first", func() {
		seed(5)

		page1, err := s.store.Search(s.ctx, SearchCriteria{}, Page{Number: 1, Size: 2})
		s.Require().NoError(err)
		s.Equal(5, page1.Total)
		s.Equal(3, page1.TotalPages)
		s.Require().Len(page1.Items, 2)

		page3, err := s.store.Search(s.ctx, SearchCriteria{}, Page{Number: 3, Size: 2})
		s.Require().NoError(err)
		s.Require().Len(page3.Items, 1)

		s.True(page1.Items[0].CreatedAt().After(page3.Items[0].CreatedAt()))
	})

	s.Run("filters by issue date range", func() {
		invoices := seed(3)
		from := testNow.Add(30 * time.Second)
		to := testNow.Add(90 * time.Second)

		result, err := s.store.Search(s.ctx, SearchCriteria{IssuedFrom: &from, IssuedTo: &to}, Page{})
		s.Require().NoError(err)
		s.Equal(1, result.Total)
		s.Require().Len(result.Items, 1)
		s.Equal(invoices[1].ID(), result.Items[0].ID())
	})

	s.Run("filters by payable range", func() {
		invoices := seed(2)
		// Seeded drafts are payable 240.00; a third line pushes one to 360.00.
		li, err := models.NewInvoiceLineItem(id.NewLineItemID(), "Extra day",
			money.MustQuantity("1", "EA"), money.MustNew("100.00", eur),
			models.TaxCategoryStandard, money.MustPercentage("20"))
		s.Require().NoError(err)
		s.Require().NoError(invoices[0].AddLineItem(li, testNow, id.NewUserID()))
		s.Require().NoError(s.store.Update(s.ctx, invoices[0]))

		min := decimal.RequireFromString("300")
		result, err := s.store.Search(s.ctx, SearchCriteria{MinPayable: &min}, Page{})
		s.Require().NoError(err)
		s.Equal(1, result.Total)
		s.Require().Len(result.Items, 1)
		s.Equal(invoices[0].ID(), result.Items[0].ID())

		max := decimal.RequireFromString("250")
		result, err = s.store.Search(s.ctx, SearchCriteria{MaxPayable: &max}, Page{})
		s.Require().NoError(err)
		s.Equal(1, result.Total)
		s.Equal(invoices[1].ID(), result.Items[0].ID())
	})

	s.Run("sorts by payable ascending", func() {
		invoices := seed(2)
		li, err := models.NewInvoiceLineItem(id.NewLineItemID(), "Extra day",
			money.MustQuantity("1", "EA"), money.MustNew("100.00", eur),
			models.TaxCategoryStandard, money.MustPercentage("20"))
		s.Require().NoError(err)
		s.Require().NoError(invoices[0].AddLineItem(li, testNow, id.NewUserID()))
		s.Require().NoError(s.store.Update(s.ctx, invoices[0]))

		result, err := s.store.Search(s.ctx, SearchCriteria{
			Sort: Sort{Field: SortByPayable, Ascending: true},
		}, Page{})
		s.Require().NoError(err)
		s.Require().Len(result.Items, 2)
		s.Equal(invoices[1].ID(), result.Items[0].ID())
		s.Equal(invoices[0].ID(), result.Items[1].ID())
	})

	s.Run("free text matches number and party names", func() {
		invoices := seed(2)
		s.finalize(invoices[0], "INV-2026-0400")
		s.Require().NoError(s.store.Update(s.ctx, invoices[0]))

		byNumber, err := s.store.Search(s.ctx, SearchCriteria{FreeText: "2026-0400"}, Page{})
		s.Require().NoError(err)
		s.Equal(1, byNumber.Total)

		byName, err := s.store.Search(s.ctx, SearchCriteria{FreeText: "widgets"}, Page{})
		s.Require().NoError(err)
		s.Equal(2, byName.Total)

		none, err := s.store.Search(s.ctx, SearchCriteria{FreeText: "no such thing"}, Page{})
		s.Require().NoError(err)
		s.Zero(none.Total)
	})
}

// TestDelete verifies removal frees the number for reuse.
func (s *InvoiceStoreSuite) TestDelete() {
	s.Run("deletes and frees the number", func() {
		inv := s.newDraft(testNow)
		s.finalize(inv, "INV-2026-0300")
		s.Require().NoError(s.store.Create(s.ctx, inv))

		s.Require().NoError(s.store.Delete(s.ctx, inv.ID()))

		_, err := s.store.FindByID(s.ctx, inv.ID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		replacement := s.newDraft(testNow)
		s.finalize(replacement, "INV-2026-0300")
		s.Require().NoError(s.store.Create(s.ctx, replacement))
	})

	s.Run("returns ErrNotFound for unknown invoice", func() {
		err := s.store.Delete(s.ctx, id.NewInvoiceID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
