// Package mapping converts the canonical domain vocabulary to and from the
// code lists of concrete e-invoicing standards.
//
// Mapping is total by contract: an unmapped domain value resolves to the
// standard's documented default and is logged, never rejected. Reverse
// mapping of an unknown code falls back to the canonical default the same
// way. Mappers are built once at process start and are read-only afterwards.
package mapping

import (
	"log/slog"

	"fakturo/internal/invoicing/models"
)

// StandardMapper translates between the domain vocabulary and one target
// standard's code lists.
type StandardMapper interface {
	// Standard returns the key the mapper is registered under.
	Standard() string

	MapInvoiceType(t models.InvoiceType) string
	MapTaxCategory(c models.TaxCategory) string
	MapAddressScheme(scheme string) string
	MapOutputFormat(f models.OutputFormat) string

	ReverseMapInvoiceType(code string) models.InvoiceType
	ReverseMapTaxCategory(code string) models.TaxCategory
}

// tableMapper implements StandardMapper from lookup tables. Reverse tables
// are derived from the forward ones at construction; when two domain values
// share a code, the first one in canonical order wins the reverse direction.
type tableMapper struct {
	standard string
	logger   *slog.Logger

	invoiceTypes       map[models.InvoiceType]string
	invoiceTypeDefault string

	taxCategories      map[string]string
	taxCategoryDefault string

	addressSchemes       map[string]string
	addressSchemeDefault string

	outputFormats       map[models.OutputFormat]string
	outputFormatDefault string

	reverseInvoiceTypes  map[string]models.InvoiceType
	reverseTaxCategories map[string]models.TaxCategory
}

func newTableMapper(standard string, logger *slog.Logger) *tableMapper {
	return &tableMapper{
		standard:             standard,
		logger:               logger,
		invoiceTypes:         make(map[models.InvoiceType]string),
		taxCategories:        make(map[string]string),
		addressSchemes:       make(map[string]string),
		outputFormats:        make(map[models.OutputFormat]string),
		reverseInvoiceTypes:  make(map[string]models.InvoiceType),
		reverseTaxCategories: make(map[string]models.TaxCategory),
	}
}

// buildReverse derives the reverse tables in canonical enumeration order so
// shared codes resolve deterministically.
func (m *tableMapper) buildReverse() *tableMapper {
	for _, t := range models.CanonicalInvoiceTypes() {
		code, ok := m.invoiceTypes[t]
		if !ok {
			continue
		}
		if _, taken := m.reverseInvoiceTypes[code]; !taken {
			m.reverseInvoiceTypes[code] = t
		}
	}
	for _, c := range models.CanonicalTaxCategories() {
		code, ok := m.taxCategories[c.Code()]
		if !ok {
			continue
		}
		if _, taken := m.reverseTaxCategories[code]; !taken {
			m.reverseTaxCategories[code] = c
		}
	}
	return m
}

func (m *tableMapper) Standard() string { return m.standard }

func (m *tableMapper) MapInvoiceType(t models.InvoiceType) string {
	if code, ok := m.invoiceTypes[t]; ok {
		return code
	}
	m.logFallback("invoice_type", string(t), m.invoiceTypeDefault)
	return m.invoiceTypeDefault
}

func (m *tableMapper) MapTaxCategory(c models.TaxCategory) string {
	if code, ok := m.taxCategories[c.Code()]; ok {
		return code
	}
	m.logFallback("tax_category", c.Code(), m.taxCategoryDefault)
	return m.taxCategoryDefault
}

func (m *tableMapper) MapAddressScheme(scheme string) string {
	if code, ok := m.addressSchemes[scheme]; ok {
		return code
	}
	m.logFallback("address_scheme", scheme, m.addressSchemeDefault)
	return m.addressSchemeDefault
}

func (m *tableMapper) MapOutputFormat(f models.OutputFormat) string {
	if code, ok := m.outputFormats[f]; ok {
		return code
	}
	m.logFallback("output_format", string(f), m.outputFormatDefault)
	return m.outputFormatDefault
}

func (m *tableMapper) ReverseMapInvoiceType(code string) models.InvoiceType {
	if t, ok := m.reverseInvoiceTypes[code]; ok {
		return t
	}
	m.logFallback("invoice_type_code", code, string(models.InvoiceTypeCommercial))
	return models.InvoiceTypeCommercial
}

func (m *tableMapper) ReverseMapTaxCategory(code string) models.TaxCategory {
	if c, ok := m.reverseTaxCategories[code]; ok {
		return c
	}
	m.logFallback("tax_category_code", code, models.TaxCategoryStandard.Code())
	return models.TaxCategoryStandard
}

func (m *tableMapper) logFallback(kind, value, fallback string) {
	if m.logger == nil {
		return
	}
	m.logger.Warn("unmapped value, using default",
		slog.String("standard", m.standard),
		slog.String("kind", kind),
		slog.String("value", value),
		slog.String("fallback", fallback),
	)
}
