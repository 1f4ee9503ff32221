package mapping

import (
	"log/slog"
	"sort"
	"strings"
)

// Registry resolves mappers by standard key or ISO country code. It is
// constructed once at startup and injected; lookups never fail, they fall
// back to the EN16931 mapper and log the miss.
type Registry struct {
	byStandard map[string]StandardMapper
	byCountry  map[string]string
	fallback   StandardMapper
	logger     *slog.Logger
}

// countryTable routes ISO 3166-1 alpha-2 codes to standard keys. European
// countries without a national CIUS ride on plain EN16931.
func countryTable() map[string]string {
	return map[string]string{
		"DE": StandardXRechnung,
		"ES": StandardFacturae,
		"IT": StandardFatturaPA,
		"US": StandardUS,
		"AT": StandardEN16931,
		"BE": StandardPeppol,
		"DK": StandardPeppol,
		"FI": StandardPeppol,
		"FR": StandardEN16931,
		"NL": StandardPeppol,
		"NO": StandardPeppol,
		"SE": StandardPeppol,
	}
}

// NewRegistry builds the registry with all built-in mappers registered.
func NewRegistry(logger *slog.Logger) *Registry {
	en := newEN16931(logger)
	r := &Registry{
		byStandard: map[string]StandardMapper{
			StandardEN16931:   en,
			StandardPeppol:    newPeppol(logger),
			StandardXRechnung: newXRechnung(logger),
			StandardFacturae:  newFacturae(logger),
			StandardFatturaPA: newFatturaPA(logger),
			StandardUS:        newUS(logger),
		},
		byCountry: countryTable(),
		fallback:  en,
		logger:    logger,
	}
	return r
}

// Register adds or replaces a mapper under its standard key.
func (r *Registry) Register(m StandardMapper) {
	r.byStandard[m.Standard()] = m
}

// RegisterCountry routes a country code to a standard key.
func (r *Registry) RegisterCountry(countryCode, standard string) {
	r.byCountry[strings.ToUpper(countryCode)] = standard
}

// ForStandard resolves a mapper by standard key, falling back to EN16931.
func (r *Registry) ForStandard(key string) StandardMapper {
	if m, ok := r.byStandard[key]; ok {
		return m
	}
	if r.logger != nil {
		r.logger.Warn("no mapper for standard, using EN16931",
			slog.String("standard", key))
	}
	return r.fallback
}

// ForCountry resolves a mapper by ISO country code, falling back to EN16931.
func (r *Registry) ForCountry(countryCode string) StandardMapper {
	key, ok := r.byCountry[strings.ToUpper(countryCode)]
	if !ok {
		if r.logger != nil {
			r.logger.Warn("no mapper for country, using EN16931",
				slog.String("country", countryCode))
		}
		return r.fallback
	}
	return r.ForStandard(key)
}

// SupportedStandards lists registered standard keys, sorted.
func (r *Registry) SupportedStandards() []string {
	keys := make([]string, 0, len(r.byStandard))
	for k := range r.byStandard {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
