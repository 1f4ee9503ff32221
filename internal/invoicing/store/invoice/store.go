// Package invoice persists Invoice aggregates. Stores return sentinel
// errors for infrastructure facts (sentinel.ErrNotFound, ErrAlreadyUsed);
// the service layer translates them into domain errors.
package invoice

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
)

// SearchCriteria narrows a listing. Zero-valued fields are ignored.
// The payable bounds compare against the payable total in the invoice's
// own currency; combine them with Currency for a meaningful range.
// FreeText matches case-insensitively against the number, both party
// names, and the buyer reference.
type SearchCriteria struct {
	SellerID           id.PartyID
	BuyerID            id.PartyID
	DocumentStatus     models.DocumentStatus
	TransmissionStatus models.TransmissionStatus
	Currency           string
	NumberPrefix       string
	IssuedFrom         *time.Time
	IssuedTo           *time.Time
	MinPayable         *decimal.Decimal
	MaxPayable         *decimal.Decimal
	FreeText           string
	Sort               Sort
}

// SortField selects the ordering key for searches.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByIssueDate SortField = "issue_date"
	SortByNumber    SortField = "number"
	SortByPayable   SortField = "total_payable"
)

// Sort orders search results. The zero value is creation time, newest
// first. Ties always break on id for a stable page walk.
type Sort struct {
	Field     SortField
	Ascending bool
}

// Normalize maps unknown fields to the creation-time default.
func (s Sort) Normalize() Sort {
	switch s.Field {
	case SortByCreatedAt, SortByIssueDate, SortByNumber, SortByPayable:
	default:
		s.Field = SortByCreatedAt
	}
	return s
}

// less orders two invoices under this sort.
func (s Sort) less(a, b *models.Invoice) bool {
	var c int
	switch s.Normalize().Field {
	case SortByIssueDate:
		at, _ := a.IssueDate()
		bt, _ := b.IssueDate()
		switch {
		case at.Before(bt):
			c = -1
		case at.After(bt):
			c = 1
		}
	case SortByNumber:
		c = strings.Compare(a.Number().String(), b.Number().String())
	case SortByPayable:
		c = a.Totals().Payable().Amount().Cmp(b.Totals().Payable().Amount())
	default:
		switch {
		case a.CreatedAt().Before(b.CreatedAt()):
			c = -1
		case a.CreatedAt().After(b.CreatedAt()):
			c = 1
		}
	}
	if c == 0 {
		return a.ID().String() < b.ID().String()
	}
	if s.Ascending {
		return c < 0
	}
	return c > 0
}

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Size   int
}

// DefaultPageSize bounds unpaginated searches.
const DefaultPageSize = 50

// Normalize clamps the page to sane values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > 500 {
		p.Size = DefaultPageSize
	}
	return p
}

func (p Page) offset() int { return (p.Number - 1) * p.Size }

// SearchResult is one page of matches plus the total match count.
type SearchResult struct {
	Items      []*models.Invoice
	Total      int
	Page       int
	TotalPages int
}

// Store is the persistence contract for invoices.
//
// Number uniqueness is enforced by the store: drafts carry no number, and
// the first write that stamps a given number wins. A second write with the
// same number fails with sentinel.ErrAlreadyUsed.
type Store interface {
	// Create inserts a new invoice. Fails with sentinel.ErrConflict when
	// the id already exists.
	Create(ctx context.Context, inv *models.Invoice) error

	// Update replaces the persisted state of an existing invoice. Fails
	// with sentinel.ErrNotFound when the id is unknown.
	Update(ctx context.Context, inv *models.Invoice) error

	// FindByID loads one invoice.
	FindByID(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error)

	// FindByNumber loads one invoice by its stamped number.
	FindByNumber(ctx context.Context, number models.InvoiceNumber) (*models.Invoice, error)

	// Search lists invoices matching the criteria, newest first by
	// creation time.
	Search(ctx context.Context, criteria SearchCriteria, page Page) (SearchResult, error)

	// Exists reports whether an invoice id is persisted.
	Exists(ctx context.Context, invoiceID id.InvoiceID) (bool, error)

	// Delete removes an invoice. The draft-only rule lives in the service;
	// the store deletes whatever it is told to.
	Delete(ctx context.Context, invoiceID id.InvoiceID) error

	// Count returns the total number of persisted invoices.
	Count(ctx context.Context) (int, error)
}

func matches(inv *models.Invoice, c SearchCriteria) bool {
	if !c.SellerID.IsNil() && inv.Seller().PartyID != c.SellerID {
		return false
	}
	if !c.BuyerID.IsNil() && inv.Buyer().PartyID != c.BuyerID {
		return false
	}
	if c.DocumentStatus != "" && inv.Status() != c.DocumentStatus {
		return false
	}
	if c.TransmissionStatus != "" && inv.TransmissionStatus() != c.TransmissionStatus {
		return false
	}
	if c.Currency != "" && inv.Currency().Code != c.Currency {
		return false
	}
	if c.NumberPrefix != "" && !hasPrefix(inv.Number().String(), c.NumberPrefix) {
		return false
	}
	if c.MinPayable != nil && inv.Totals().Payable().Amount().LessThan(*c.MinPayable) {
		return false
	}
	if c.MaxPayable != nil && inv.Totals().Payable().Amount().GreaterThan(*c.MaxPayable) {
		return false
	}
	if c.FreeText != "" {
		needle := strings.ToLower(strings.TrimSpace(c.FreeText))
		if needle != "" && !strings.Contains(searchText(inv), needle) {
			return false
		}
	}
	if c.IssuedFrom != nil || c.IssuedTo != nil {
		issued, ok := inv.IssueDate()
		if !ok {
			return false
		}
		if c.IssuedFrom != nil && issued.Before(*c.IssuedFrom) {
			return false
		}
		if c.IssuedTo != nil && issued.After(*c.IssuedTo) {
			return false
		}
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// searchText flattens the free-text-searchable fields of an invoice.
func searchText(inv *models.Invoice) string {
	parts := []string{
		inv.Number().String(),
		inv.Seller().LegalName,
		inv.Buyer().LegalName,
		inv.BuyerReference(),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func totalPages(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}
