package invoice

import (
	"context"
	"sort"
	"sync"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
	"fakturo/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development. It keeps
// detached state snapshots and rehydrates on read, so callers can never
// mutate stored data through a returned aggregate.
type InMemory struct {
	mu       sync.RWMutex
	invoices map[id.InvoiceID]models.InvoiceState
	byNumber map[models.InvoiceNumber]id.InvoiceID
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		invoices: make(map[id.InvoiceID]models.InvoiceState),
		byNumber: make(map[models.InvoiceNumber]id.InvoiceID),
	}
}

var _ Store = (*InMemory)(nil)

func (m *InMemory) Create(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := inv.State()
	if _, exists := m.invoices[state.ID]; exists {
		return sentinel.ErrConflict
	}
	if err := m.claimNumber(state); err != nil {
		return err
	}
	m.invoices[state.ID] = state
	return nil
}

func (m *InMemory) Update(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := inv.State()
	previous, exists := m.invoices[state.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if state.Number != previous.Number {
		if err := m.claimNumber(state); err != nil {
			return err
		}
		if !previous.Number.IsZero() {
			delete(m.byNumber, previous.Number)
		}
	}
	m.invoices[state.ID] = state
	return nil
}

// claimNumber registers the invoice number index entry. Callers hold the
// write lock.
func (m *InMemory) claimNumber(state models.InvoiceState) error {
	if state.Number.IsZero() {
		return nil
	}
	if owner, taken := m.byNumber[state.Number]; taken && owner != state.ID {
		return sentinel.ErrAlreadyUsed
	}
	m.byNumber[state.Number] = state.ID
	return nil
}

func (m *InMemory) FindByID(_ context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	m.mu.RLock()
	state, exists := m.invoices[invoiceID]
	m.mu.RUnlock()
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return models.RehydrateInvoice(state)
}

func (m *InMemory) FindByNumber(_ context.Context, number models.InvoiceNumber) (*models.Invoice, error) {
	m.mu.RLock()
	invoiceID, exists := m.byNumber[number]
	var state models.InvoiceState
	if exists {
		state = m.invoices[invoiceID]
	}
	m.mu.RUnlock()
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return models.RehydrateInvoice(state)
}

func (m *InMemory) Search(_ context.Context, criteria SearchCriteria, page Page) (SearchResult, error) {
	page = page.Normalize()

	m.mu.RLock()
	states := make([]models.InvoiceState, 0, len(m.invoices))
	for _, state := range m.invoices {
		states = append(states, state)
	}
	m.mu.RUnlock()

	var matched []*models.Invoice
	for _, state := range states {
		inv, err := models.RehydrateInvoice(state)
		if err != nil {
			return SearchResult{}, err
		}
		if matches(inv, criteria) {
			matched = append(matched, inv)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return criteria.Sort.less(matched[i], matched[j])
	})

	total := len(matched)
	start := page.offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return SearchResult{
		Items:      matched[start:end],
		Total:      total,
		Page:       page.Number,
		TotalPages: totalPages(total, page.Size),
	}, nil
}

func (m *InMemory) Exists(_ context.Context, invoiceID id.InvoiceID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.invoices[invoiceID]
	return exists, nil
}

func (m *InMemory) Delete(_ context.Context, invoiceID id.InvoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.invoices[invoiceID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if !state.Number.IsZero() {
		delete(m.byNumber, state.Number)
	}
	delete(m.invoices, invoiceID)
	return nil
}

func (m *InMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.invoices), nil
}
