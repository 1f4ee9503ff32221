// Package validation runs invoices through a staged rule pipeline. A run
// produces a ValidationResult, not an error: incomplete invoices failing
// rules is the expected outcome, and callers decide what to do with it.
//
// Stages run in order: structural problems short-circuit the run since the
// later stages would only produce noise on a broken document.
package validation

import (
	"fakturo/internal/invoicing/models"
)

// Stage orders rule execution.
type Stage int

const (
	// StageStructural checks the document shape. Failures short-circuit.
	StageStructural Stage = iota
	// StageBusiness checks cross-field business arithmetic and presence.
	StageBusiness
	// StageProfile checks profile-specific tightenings (CIUS rules).
	StageProfile
	// StageCustom runs caller-registered rules.
	StageCustom
)

func (s Stage) String() string {
	switch s {
	case StageStructural:
		return "structural"
	case StageBusiness:
		return "business"
	case StageProfile:
		return "profile"
	case StageCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Rule is one named check. Check returns nil when the invoice passes.
type Rule struct {
	Code         string
	Stage        Stage
	Severity     models.Severity
	BusinessTerm string
	Check        func(inv *models.Invoice) []models.ValidationIssue
}

// issue builds a finding carrying the rule's identity.
func (r Rule) issue(message, path, value, suggestion string) models.ValidationIssue {
	return models.ValidationIssue{
		Code:         r.Code,
		Severity:     r.Severity,
		Message:      message,
		Path:         path,
		BusinessTerm: r.BusinessTerm,
		Value:        value,
		Suggestion:   suggestion,
	}
}
