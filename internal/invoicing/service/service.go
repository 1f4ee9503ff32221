// Package service orchestrates the invoicing module: it loads aggregates,
// applies domain operations, persists, and hands drained outbox events to
// the publisher. Stores speak sentinel errors; this layer translates them
// into domain errors for the transport.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"fakturo/internal/events"
	"fakturo/internal/format"
	"fakturo/internal/invoicing/factory"
	invmetrics "fakturo/internal/invoicing/metrics"
	"fakturo/internal/invoicing/models"
	"fakturo/internal/invoicing/numbering"
	invoicestore "fakturo/internal/invoicing/store/invoice"
	partystore "fakturo/internal/invoicing/store/party"
	"fakturo/internal/money"
	"fakturo/internal/validation"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
	"fakturo/pkg/platform/sentinel"
)

// InvoiceStore is the persistence surface the service needs for invoices.
type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Update(ctx context.Context, inv *models.Invoice) error
	FindByID(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number models.InvoiceNumber) (*models.Invoice, error)
	Search(ctx context.Context, criteria invoicestore.SearchCriteria, page invoicestore.Page) (invoicestore.SearchResult, error)
	Delete(ctx context.Context, invoiceID id.InvoiceID) error
}

// PartyStore is the persistence surface the service needs for parties.
type PartyStore interface {
	Create(ctx context.Context, p *models.Party) error
	Update(ctx context.Context, p *models.Party) error
	FindByID(ctx context.Context, partyID id.PartyID) (*models.Party, error)
	FindByIdentifier(ctx context.Context, scheme, value string) (*models.Party, error)
	List(ctx context.Context, filter partystore.Filter, page partystore.Page) (partystore.ListResult, error)
	Delete(ctx context.Context, partyID id.PartyID) error
}

// Service is the application-facing entry point of the invoicing module.
type Service struct {
	invoices InvoiceStore
	parties  PartyStore
	numbers  numbering.Strategy

	invoiceFactory factory.InvoiceFactory
	partyFactory   factory.PartyFactory

	validator *validation.Service
	formats   *format.Service

	publisher events.Publisher
	logger    *slog.Logger
	metrics   *invmetrics.Metrics
	tracer    trace.Tracer

	// series prefixes allocated invoice numbers (e.g. "INV-2026-0001").
	series string
}

// Option configures optional service dependencies.
type Option func(s *Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPublisher sets the domain event publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithMetrics sets the module metrics.
func WithMetrics(m *invmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSeries sets the invoice number series prefix.
func WithSeries(series string) Option {
	return func(s *Service) { s.series = series }
}

// New constructs a Service.
func New(invoices InvoiceStore, parties PartyStore, numbers numbering.Strategy,
	validator *validation.Service, formats *format.Service, opts ...Option) *Service {
	s := &Service{
		invoices:  invoices,
		parties:   parties,
		numbers:   numbers,
		validator: validator,
		formats:   formats,
		publisher: events.Noop{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("fakturo/invoicing"),
		series:    "INV",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish drains the aggregate outbox and hands the batch to the publisher.
// Delivery failures are logged, not returned: the aggregate is already
// persisted and the operation has succeeded from the caller's view.
func (s *Service) publish(ctx context.Context, key string, drained []models.Event) {
	if len(drained) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, key, drained...); err != nil {
		s.logger.ErrorContext(ctx, "publishing domain events failed",
			"key", key, "events", len(drained), "error", err)
	}
}

func parseCurrency(code string) (money.Currency, error) {
	currency, err := money.ParseCurrency(code)
	if err != nil {
		return money.Currency{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid currency")
	}
	return currency, nil
}

func wrapInvoiceErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "invoice not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "invoice number already used")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "invoice already exists")
	case dErrors.CodeOf(err) != "":
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "invoice store failure")
	}
}

func wrapPartyErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "party not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "party identifier already registered")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "party already exists")
	case dErrors.CodeOf(err) != "":
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "party store failure")
	}
}
