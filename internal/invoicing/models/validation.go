package models

import (
	"time"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is one finding from the validation pipeline. Code carries
// the standard-specific rule identifier (e.g. "BR-08"); Path points at the
// offending field where known; BusinessTerm names the EN16931 term (e.g.
// "BT-31"); Suggestion, when present, tells the user how to fix it.
type ValidationIssue struct {
	Code         string
	Severity     Severity
	Message      string
	Path         string
	BusinessTerm string
	Value        string
	Suggestion   string
}

// ValidationResult aggregates the findings of one validation run. It is
// data, not an error: a failed run is the expected, recoverable outcome of
// validating an incomplete invoice.
type ValidationResult struct {
	Profile     string
	ValidatedAt time.Time
	Errors      []ValidationIssue
	Warnings    []ValidationIssue
	Info        []ValidationIssue
}

// NewValidationResult partitions issues by severity.
func NewValidationResult(profile string, validatedAt time.Time, issues []ValidationIssue) ValidationResult {
	r := ValidationResult{Profile: profile, ValidatedAt: validatedAt}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			r.Errors = append(r.Errors, issue)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, issue)
		default:
			r.Info = append(r.Info, issue)
		}
	}
	return r
}

// IsValid reports whether the run produced no errors. Warnings and info do
// not block finalization.
func (r ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

// Issues returns all findings in severity order.
func (r ValidationResult) Issues() []ValidationIssue {
	out := make([]ValidationIssue, 0, len(r.Errors)+len(r.Warnings)+len(r.Info))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	out = append(out, r.Info...)
	return out
}
