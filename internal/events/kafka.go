package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"fakturo/internal/invoicing/models"
)

// Kafka publishes envelopes to a Kafka topic via franz-go. Production is
// synchronous per batch: the service only drains the outbox after the
// aggregate is persisted, so a failed publish surfaces as an error on the
// operation rather than silent loss.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects a producer-only client to the given brokers.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

var _ Publisher = (*Kafka)(nil)

func (k *Kafka) Publish(ctx context.Context, key string, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		env, err := Wrap(key, event)
		if err != nil {
			return err
		}
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshaling envelope %s: %w", env.Name, err)
		}
		records = append(records, &kgo.Record{
			Topic: k.topic,
			Key:   []byte(key),
			Value: value,
		})
	}

	results := k.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		k.logger.ErrorContext(ctx, "event publish failed",
			"topic", k.topic, "key", key, "events", len(records), "error", err)
		return fmt.Errorf("producing %d events: %w", len(records), err)
	}
	k.logger.DebugContext(ctx, "events published",
		"topic", k.topic, "key", key, "events", len(records))
	return nil
}

// Close flushes buffered records and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}
