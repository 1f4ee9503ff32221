package validation

// Profile names a validation target: a standard plus the profile-stage rules
// that tighten it. Schema and schematron paths point at the external
// artifacts used when XML-level validation is run alongside the model rules.
type Profile struct {
	Name           string
	Standard       string
	Description    string
	SchemaPath     string
	SchematronPath string
	Rules          []Rule
}

// Built-in profile names.
const (
	ProfileEN16931   = "EN16931"
	ProfilePeppol    = "PEPPOL_BIS_3"
	ProfileXRechnung = "XRECHNUNG"
	ProfileUS        = "US_STANDARD"
)

func builtinProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileEN16931: {
			Name:        ProfileEN16931,
			Standard:    "EN16931",
			Description: "European e-invoicing core model",
		},
		ProfilePeppol: {
			Name:        ProfilePeppol,
			Standard:    "EN16931",
			Description: "PEPPOL BIS Billing 3.0",
			Rules:       peppolRules(),
		},
		ProfileXRechnung: {
			Name:        ProfileXRechnung,
			Standard:    "EN16931",
			Description: "XRechnung CIUS for the German public sector",
			Rules:       xrechnungRules(),
		},
		ProfileUS: {
			Name:        ProfileUS,
			Standard:    "US",
			Description: "US sales-tax invoice conventions",
			Rules:       usRules(),
		},
	}
}
