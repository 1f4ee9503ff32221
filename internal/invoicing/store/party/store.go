// Package party persists Party aggregates. Identifier uniqueness is a
// store concern: a scheme+value pair registered by one party cannot be
// claimed by another, which keeps directory lookups unambiguous.
package party

import (
	"context"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
)

// Filter narrows a listing. Name matches case-insensitively against the
// legal and trading names. Zero-valued fields are ignored.
type Filter struct {
	Name string
}

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Size   int
}

// DefaultPageSize bounds unpaginated listings.
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

// ListResult is one page of parties plus the total count.
type ListResult struct {
	Items      []*models.Party
	Total      int
	Page       int
	TotalPages int
}

// Store is the persistence contract for parties.
type Store interface {
	// Create inserts a new party. Fails with sentinel.ErrConflict when the
	// id exists and sentinel.ErrAlreadyUsed when one of its identifiers is
	// registered to another party.
	Create(ctx context.Context, p *models.Party) error

	// Update replaces the persisted state of an existing party. Identifier
	// uniqueness is re-checked against other parties.
	Update(ctx context.Context, p *models.Party) error

	// FindByID loads one party.
	FindByID(ctx context.Context, partyID id.PartyID) (*models.Party, error)

	// FindByIdentifier resolves a party through a registered scheme+value
	// identifier.
	FindByIdentifier(ctx context.Context, scheme, value string) (*models.Party, error)

	// List pages through matching parties ordered by legal name.
	List(ctx context.Context, filter Filter, page Page) (ListResult, error)

	// Exists reports whether a party id is persisted.
	Exists(ctx context.Context, partyID id.PartyID) (bool, error)

	// Delete removes a party. Referential safety (no deleting parties on
	// finalized invoices) lives in the service.
	Delete(ctx context.Context, partyID id.PartyID) error

	// Count returns the total number of persisted parties.
	Count(ctx context.Context) (int, error)
}

func totalPages(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}
