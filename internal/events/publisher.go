// Package events delivers drained domain events to downstream consumers.
// Aggregates append to their outbox; services drain it after a successful
// persistence step and hand the batch to a Publisher.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
)

// Envelope is the wire form of one domain event. The payload is the event
// struct itself; Name routes consumers, Key groups events of one aggregate
// into one partition.
type Envelope struct {
	EventID    id.EventID      `json:"event_id"`
	Name       string          `json:"name"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Wrap serializes a domain event into an envelope.
func Wrap(key string, event models.Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling event %s: %w", event.EventName(), err)
	}
	return Envelope{
		EventID:    id.NewEventID(),
		Name:       event.EventName(),
		Key:        key,
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}, nil
}

// Publisher delivers event batches. Implementations must tolerate empty
// batches.
type Publisher interface {
	Publish(ctx context.Context, key string, events ...models.Event) error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, ...models.Event) error { return nil }

// InMemory collects envelopes for tests and local development.
type InMemory struct {
	mu        sync.Mutex
	envelopes []Envelope
}

// NewInMemory creates an empty collecting publisher.
func NewInMemory() *InMemory { return &InMemory{} }

func (m *InMemory) Publish(_ context.Context, key string, events ...models.Event) error {
	for _, event := range events {
		env, err := Wrap(key, event)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.envelopes = append(m.envelopes, env)
		m.mu.Unlock()
	}
	return nil
}

// Envelopes returns a copy of everything published so far.
func (m *InMemory) Envelopes() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Envelope(nil), m.envelopes...)
}

// Names returns the event names published so far, in order.
func (m *InMemory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.envelopes))
	for i, env := range m.envelopes {
		names[i] = env.Name
	}
	return names
}
