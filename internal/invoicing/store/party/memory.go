package party

import (
	"context"
	"sort"
	"strings"
	"sync"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
	"fakturo/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development. It keeps
// detached state snapshots and rehydrates on read.
type InMemory struct {
	mu           sync.RWMutex
	parties      map[id.PartyID]models.PartyState
	byIdentifier map[string]id.PartyID
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		parties:      make(map[id.PartyID]models.PartyState),
		byIdentifier: make(map[string]id.PartyID),
	}
}

var _ Store = (*InMemory)(nil)

func identifierKey(scheme, value string) string {
	return strings.ToLower(scheme) + "|" + value
}

func (m *InMemory) Create(_ context.Context, p *models.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := p.State()
	if _, exists := m.parties[state.ID]; exists {
		return sentinel.ErrConflict
	}
	if err := m.claimIdentifiers(state); err != nil {
		return err
	}
	m.parties[state.ID] = state
	return nil
}

func (m *InMemory) Update(_ context.Context, p *models.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := p.State()
	previous, exists := m.parties[state.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if err := m.claimIdentifiers(state); err != nil {
		return err
	}
	for _, pi := range previous.Identifiers {
		key := identifierKey(pi.Scheme, pi.Value)
		if m.byIdentifier[key] == state.ID && !stateHasIdentifier(state, pi) {
			delete(m.byIdentifier, key)
		}
	}
	m.parties[state.ID] = state
	return nil
}

// claimIdentifiers registers the party's identifier index entries. Callers
// hold the write lock.
func (m *InMemory) claimIdentifiers(state models.PartyState) error {
	for _, pi := range state.Identifiers {
		key := identifierKey(pi.Scheme, pi.Value)
		if owner, taken := m.byIdentifier[key]; taken && owner != state.ID {
			return sentinel.ErrAlreadyUsed
		}
	}
	for _, pi := range state.Identifiers {
		m.byIdentifier[identifierKey(pi.Scheme, pi.Value)] = state.ID
	}
	return nil
}

func stateHasIdentifier(state models.PartyState, pi models.PartyIdentifier) bool {
	for _, existing := range state.Identifiers {
		if identifierKey(existing.Scheme, existing.Value) == identifierKey(pi.Scheme, pi.Value) {
			return true
		}
	}
	return false
}

func (m *InMemory) FindByID(_ context.Context, partyID id.PartyID) (*models.Party, error) {
	m.mu.RLock()
	state, exists := m.parties[partyID]
	m.mu.RUnlock()
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return models.RehydrateParty(state)
}

func (m *InMemory) FindByIdentifier(_ context.Context, scheme, value string) (*models.Party, error) {
	m.mu.RLock()
	partyID, exists := m.byIdentifier[identifierKey(scheme, value)]
	var state models.PartyState
	if exists {
		state = m.parties[partyID]
	}
	m.mu.RUnlock()
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return models.RehydrateParty(state)
}

func (m *InMemory) List(_ context.Context, filter Filter, page Page) (ListResult, error) {
	page = page.Normalize()

	m.mu.RLock()
	states := make([]models.PartyState, 0, len(m.parties))
	for _, state := range m.parties {
		if nameMatches(state, filter) {
			states = append(states, state)
		}
	}
	m.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		ni, nj := strings.ToLower(states[i].LegalName), strings.ToLower(states[j].LegalName)
		if ni == nj {
			return states[i].ID.String() < states[j].ID.String()
		}
		return ni < nj
	})

	total := len(states)
	start := page.offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}

	items := make([]*models.Party, 0, end-start)
	for _, state := range states[start:end] {
		p, err := models.RehydrateParty(state)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, p)
	}
	return ListResult{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		TotalPages: totalPages(total, page.Size),
	}, nil
}

func nameMatches(state models.PartyState, filter Filter) bool {
	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(state.LegalName), needle) ||
		strings.Contains(strings.ToLower(state.TradingName), needle)
}

func (m *InMemory) Exists(_ context.Context, partyID id.PartyID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.parties[partyID]
	return exists, nil
}

func (m *InMemory) Delete(_ context.Context, partyID id.PartyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.parties[partyID]
	if !exists {
		return sentinel.ErrNotFound
	}
	for _, pi := range state.Identifiers {
		key := identifierKey(pi.Scheme, pi.Value)
		if m.byIdentifier[key] == partyID {
			delete(m.byIdentifier, key)
		}
	}
	delete(m.parties, partyID)
	return nil
}

func (m *InMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.parties), nil
}
