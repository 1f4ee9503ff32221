package validation

import (
	"context"
	"log/slog"
	"sort"

	"fakturo/internal/invoicing/models"
	dErrors "fakturo/pkg/domain-errors"
	"fakturo/pkg/requestcontext"
)

// Service runs the staged validation pipeline. Profiles and custom rules are
// registered up front; Validate itself is read-only and safe for concurrent
// use.
type Service struct {
	structural []Rule
	business   []Rule
	custom     []Rule
	profiles   map[string]Profile
	logger     *slog.Logger
}

// NewService constructs a pipeline with the built-in profiles registered.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		structural: structuralRules(),
		business:   businessRules(),
		profiles:   builtinProfiles(),
		logger:     logger,
	}
}

// RegisterProfile adds or replaces a validation profile.
func (s *Service) RegisterProfile(p Profile) error {
	if p.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "profile requires a name")
	}
	s.profiles[p.Name] = p
	return nil
}

// RegisterRule appends a caller-defined rule to the custom stage.
func (s *Service) RegisterRule(r Rule) error {
	if r.Code == "" || r.Check == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "rule requires a code and a check")
	}
	r.Stage = StageCustom
	s.custom = append(s.custom, r)
	return nil
}

// SupportedProfiles lists registered profile names, sorted.
func (s *Service) SupportedProfiles() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedStandards lists the distinct standards covered by the registered
// profiles, sorted.
func (s *Service) SupportedStandards() []string {
	seen := make(map[string]struct{}, len(s.profiles))
	for _, p := range s.profiles {
		seen[p.Standard] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns a registered profile by name.
func (s *Service) Profile(name string) (Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, dErrors.Newf(dErrors.CodeNotFound, "unknown validation profile %q", name)
	}
	return p, nil
}

// Validate runs the invoice through the pipeline for the named profile.
// Structural errors short-circuit: the later stages assume a well-shaped
// document. The returned error covers pipeline problems only (unknown
// profile); failed rules land in the result.
func (s *Service) Validate(ctx context.Context, inv *models.Invoice, profileName string) (models.ValidationResult, error) {
	profile, err := s.Profile(profileName)
	if err != nil {
		return models.ValidationResult{}, err
	}
	now := requestcontext.Now(ctx)

	issues := runStage(s.structural, inv)
	if hasErrors(issues) {
		result := models.NewValidationResult(profile.Name, now, issues)
		s.logRun(ctx, inv, result, StageStructural)
		return result, nil
	}

	issues = append(issues, runStage(s.business, inv)...)
	issues = append(issues, runStage(profile.Rules, inv)...)
	issues = append(issues, runStage(s.custom, inv)...)

	result := models.NewValidationResult(profile.Name, now, issues)
	s.logRun(ctx, inv, result, StageCustom)
	return result, nil
}

func runStage(rules []Rule, inv *models.Invoice) []models.ValidationIssue {
	var issues []models.ValidationIssue
	for _, r := range rules {
		issues = append(issues, r.Check(inv)...)
	}
	return issues
}

func hasErrors(issues []models.ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == models.SeverityError {
			return true
		}
	}
	return false
}

func (s *Service) logRun(ctx context.Context, inv *models.Invoice, result models.ValidationResult, lastStage Stage) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "validation run",
		slog.String("invoice_id", inv.ID().String()),
		slog.String("profile", result.Profile),
		slog.String("last_stage", lastStage.String()),
		slog.Bool("valid", result.IsValid()),
		slog.Int("errors", len(result.Errors)),
		slog.Int("warnings", len(result.Warnings)),
	)
}
