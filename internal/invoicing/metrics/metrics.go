package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the invoicing module.
// Tracks lifecycle counts and critical path durations.
type Metrics struct {
	InvoicesCreated    prometheus.Counter
	InvoicesFinalized  prometheus.Counter
	InvoicesCancelled  prometheus.Counter
	PaymentsApplied    prometheus.Counter
	DocumentsGenerated *prometheus.CounterVec
	ValidationRuns     *prometheus.CounterVec
	FinalizeDuration   prometheus.Histogram
	ValidateDuration   prometheus.Histogram
	GenerateDuration   prometheus.Histogram
}

// New creates a Metrics instance with all invoicing module metrics registered.
func New() *Metrics {
	return &Metrics{
		InvoicesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fakturo_invoices_created_total",
			Help: "Total number of invoice drafts created",
		}),
		InvoicesFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fakturo_invoices_finalized_total",
			Help: "Total number of invoices finalized",
		}),
		InvoicesCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fakturo_invoices_cancelled_total",
			Help: "Total number of invoices cancelled",
		}),
		PaymentsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fakturo_payments_applied_total",
			Help: "Total number of payments applied to invoices",
		}),
		DocumentsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fakturo_documents_generated_total",
			Help: "Total number of output documents generated, by format",
		}, []string{"format"}),
		ValidationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fakturo_validation_runs_total",
			Help: "Total number of validation runs, by profile and outcome",
		}, []string{"profile", "outcome"}),
		FinalizeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fakturo_finalize_duration_seconds",
			Help:    "Duration of FinalizeInvoice operations (number allocation plus validation)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ValidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fakturo_validate_duration_seconds",
			Help:    "Duration of ValidateInvoice operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		GenerateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fakturo_generate_duration_seconds",
			Help:    "Duration of GenerateDocument operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementInvoiceCreated records a successful draft creation.
func (m *Metrics) IncrementInvoiceCreated() {
	m.InvoicesCreated.Inc()
}

// IncrementInvoiceFinalized records a successful finalization.
func (m *Metrics) IncrementInvoiceFinalized() {
	m.InvoicesFinalized.Inc()
}

// IncrementInvoiceCancelled records a cancellation.
func (m *Metrics) IncrementInvoiceCancelled() {
	m.InvoicesCancelled.Inc()
}

// IncrementPaymentApplied records an applied payment.
func (m *Metrics) IncrementPaymentApplied() {
	m.PaymentsApplied.Inc()
}

// IncrementDocumentGenerated records a rendered output document.
func (m *Metrics) IncrementDocumentGenerated(format string) {
	m.DocumentsGenerated.WithLabelValues(format).Inc()
}

// IncrementValidationRun records a validation run and its outcome.
func (m *Metrics) IncrementValidationRun(profile string, valid bool) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.ValidationRuns.WithLabelValues(profile, outcome).Inc()
}

// ObserveFinalize records the duration of a FinalizeInvoice operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveFinalize(start time.Time) {
	m.FinalizeDuration.Observe(time.Since(start).Seconds())
}

// ObserveValidate records the duration of a ValidateInvoice operation.
func (m *Metrics) ObserveValidate(start time.Time) {
	m.ValidateDuration.Observe(time.Since(start).Seconds())
}

// ObserveGenerate records the duration of a GenerateDocument operation.
func (m *Metrics) ObserveGenerate(start time.Time) {
	m.GenerateDuration.Observe(time.Since(start).Seconds())
}
