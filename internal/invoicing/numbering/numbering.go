// Package numbering assigns sequential invoice numbers at finalization.
// Numbers are per series and year; a series is typically one issuing legal
// entity.
package numbering

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"fakturo/internal/invoicing/models"
	dErrors "fakturo/pkg/domain-errors"
)

// Strategy hands out the next invoice number for a series. Implementations
// must never hand out the same number twice for one series/year pair.
type Strategy interface {
	Next(ctx context.Context, series string, year int) (models.InvoiceNumber, error)
}

func format(series string, year int, n uint64) (models.InvoiceNumber, error) {
	return models.ParseInvoiceNumber(fmt.Sprintf("%s-%d-%04d", series, year, n))
}

// Sequential is an in-process counter, suitable for tests and single-node
// deployments.
type Sequential struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewSequential constructs an empty in-process counter.
func NewSequential() *Sequential {
	return &Sequential{counters: make(map[string]uint64)}
}

// Next increments the series counter and formats the number.
func (s *Sequential) Next(_ context.Context, series string, year int) (models.InvoiceNumber, error) {
	if series == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "numbering series cannot be empty")
	}
	key := fmt.Sprintf("%s:%d", series, year)
	s.mu.Lock()
	s.counters[key]++
	n := s.counters[key]
	s.mu.Unlock()
	return format(series, year, n)
}

// Redis hands out numbers via INCR, giving gap-free sequences across
// processes. Keys are never expired: the sequence must survive restarts.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedis constructs a Redis-backed strategy.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, keyPrefix: "invoice_seq"}
}

// Next atomically increments the per-series counter.
func (r *Redis) Next(ctx context.Context, series string, year int) (models.InvoiceNumber, error) {
	if series == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "numbering series cannot be empty")
	}
	key := fmt.Sprintf("%s:%s:%d", r.keyPrefix, series, year)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "incrementing invoice sequence")
	}
	return format(series, year, uint64(n))
}
