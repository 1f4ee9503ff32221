package events

import (
	"context"
	"fmt"
	"log/slog"

	"fakturo/internal/invoicing/models"
)

// Batch is one aggregate's drained outbox.
type Batch struct {
	Key    string
	Events []models.Event
}

// Queue is a Publisher that hands batches to a channel consumed by a
// Worker. Enqueueing never blocks: when the buffer is full the batch is
// rejected, keeping request latency independent of broker health.
type Queue struct {
	inbox chan Batch
}

// NewQueue creates a buffered queue.
func NewQueue(buffer int) *Queue {
	if buffer < 1 {
		buffer = 256
	}
	return &Queue{inbox: make(chan Batch, buffer)}
}

// Inbox is the worker side of the queue.
func (q *Queue) Inbox() <-chan Batch { return q.inbox }

func (q *Queue) Publish(_ context.Context, key string, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	select {
	case q.inbox <- Batch{Key: key, Events: events}:
		return nil
	default:
		return fmt.Errorf("event queue full, dropping %d events for %s", len(events), key)
	}
}

// Worker consumes batches from a channel and hands them to a Publisher.
// It decouples request latency from broker latency: services enqueue and
// return, the worker absorbs delivery.
type Worker struct {
	publisher Publisher
	inbox     <-chan Batch
	logger    *slog.Logger
}

// NewWorker wires a worker to its inbox.
func NewWorker(publisher Publisher, inbox <-chan Batch, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

// Run processes batches until the context is cancelled. Publish failures
// are logged, not fatal: a broker outage must not take the worker down with
// it.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch := <-w.inbox:
			if err := w.publisher.Publish(ctx, batch.Key, batch.Events...); err != nil {
				w.logger.ErrorContext(ctx, "event batch dropped",
					"key", batch.Key, "events", len(batch.Events), "error", err)
			}
		}
	}
}
