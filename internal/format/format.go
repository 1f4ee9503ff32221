// Package format renders finalized invoices into concrete output documents.
// The mapping layer supplies the code translation for the chosen standard;
// generators only deal with serialization.
package format

import (
	"log/slog"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/mapping"
	dErrors "fakturo/pkg/domain-errors"
)

// Document is one rendered output.
type Document struct {
	Format    models.OutputFormat
	Standard  string
	MediaType string
	Filename  string
	Content   []byte
}

// Generator renders one output format.
type Generator interface {
	Format() models.OutputFormat
	MediaType() string
	Render(inv *models.Invoice, mapper mapping.StandardMapper) ([]byte, error)
}

// Service routes generation requests to the registered generator for the
// requested format and enforces the document lifecycle gate.
type Service struct {
	registry   *mapping.Registry
	generators map[models.OutputFormat]Generator
	logger     *slog.Logger
}

// NewService constructs the format service with the UBL generator
// registered.
func NewService(registry *mapping.Registry, logger *slog.Logger) *Service {
	s := &Service{
		registry:   registry,
		generators: make(map[models.OutputFormat]Generator),
		logger:     logger,
	}
	s.Register(NewUBLGenerator())
	return s
}

// Register adds or replaces a generator.
func (s *Service) Register(g Generator) {
	s.generators[g.Format()] = g
}

// SupportedFormats lists formats with a registered generator.
func (s *Service) SupportedFormats() []models.OutputFormat {
	var formats []models.OutputFormat
	for _, f := range models.CanonicalOutputFormats() {
		if _, ok := s.generators[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}

// Generate renders the invoice in the given format for the given standard.
func (s *Service) Generate(inv *models.Invoice, format models.OutputFormat, standard string) (Document, error) {
	if err := inv.CanGenerateOutput(format); err != nil {
		return Document{}, err
	}
	g, ok := s.generators[format]
	if !ok {
		return Document{}, dErrors.Newf(dErrors.CodeInvalidInput, "no generator registered for format %s", format)
	}
	mapper := s.registry.ForStandard(standard)
	content, err := g.Render(inv, mapper)
	if err != nil {
		return Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "rendering invoice")
	}
	name := inv.Number().String()
	if name == "" {
		name = inv.ID().String()
	}
	if s.logger != nil {
		s.logger.Info("generated output",
			slog.String("invoice_id", inv.ID().String()),
			slog.String("format", string(format)),
			slog.String("standard", mapper.Standard()),
			slog.Int("bytes", len(content)),
		)
	}
	return Document{
		Format:    format,
		Standard:  mapper.Standard(),
		MediaType: g.MediaType(),
		Filename:  name + extension(format),
		Content:   content,
	}, nil
}

func extension(format models.OutputFormat) string {
	switch format {
	case models.OutputFormatPDF:
		return ".pdf"
	default:
		return ".xml"
	}
}
