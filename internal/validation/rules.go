package validation

import (
	"fmt"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/money"
)

func rule(code string, stage Stage, severity models.Severity, term string, check func(r Rule, inv *models.Invoice) []models.ValidationIssue) Rule {
	r := Rule{Code: code, Stage: stage, Severity: severity, BusinessTerm: term}
	r.Check = func(inv *models.Invoice) []models.ValidationIssue { return check(r, inv) }
	return r
}

// structuralRules check the document shape shared by every standard.
func structuralRules() []Rule {
	return []Rule{
		rule("STR-01", StageStructural, models.SeverityError, "BT-5",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if inv.Currency().IsZero() {
					return []models.ValidationIssue{r.issue("invoice has no document currency", "currency", "", "")}
				}
				return nil
			}),
		rule("STR-02", StageStructural, models.SeverityError, "BG-25",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if len(inv.LineItems()) == 0 {
					return []models.ValidationIssue{r.issue("invoice has no line items", "lineItems", "",
						"add at least one line before validating")}
				}
				return nil
			}),
		rule("STR-03", StageStructural, models.SeverityError, "BT-126",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				var issues []models.ValidationIssue
				for i, li := range inv.LineItems() {
					if li.LineNumber() != i+1 {
						issues = append(issues, r.issue(
							fmt.Sprintf("line at position %d carries number %d", i+1, li.LineNumber()),
							fmt.Sprintf("lineItems[%d].lineNumber", i), fmt.Sprint(li.LineNumber()), ""))
					}
				}
				return issues
			}),
	}
}

// businessRules are the EN16931-shaped cross-field checks shared by the
// European standards. Rule codes follow the published BR numbering so the
// findings line up with external validator reports.
func businessRules() []Rule {
	return []Rule{
		rule("BR-01", StageBusiness, models.SeverityError, "BT-1",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if inv.Status() != models.DocumentStatusDraft && inv.Number().IsZero() {
					return []models.ValidationIssue{r.issue("invoice has no number", "number", "", "")}
				}
				return nil
			}),
		rule("BR-02", StageBusiness, models.SeverityError, "BT-2",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if _, ok := inv.IssueDate(); !ok {
					return []models.ValidationIssue{r.issue("invoice has no issue date", "issueDate", "", "")}
				}
				return nil
			}),
		rule("BR-06", StageBusiness, models.SeverityError, "BT-27",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if inv.Seller().IsZero() {
					return []models.ValidationIssue{r.issue("invoice has no seller", "seller", "", "")}
				}
				return nil
			}),
		rule("BR-07", StageBusiness, models.SeverityError, "BT-44",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if inv.Buyer().IsZero() {
					return []models.ValidationIssue{r.issue("invoice has no buyer", "buyer", "", "")}
				}
				return nil
			}),
		rule("BR-08", StageBusiness, models.SeverityError, "BG-5",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if s := inv.Seller(); !s.IsZero() && s.Address == nil {
					return []models.ValidationIssue{r.issue("seller has no postal address", "seller.address", "", "")}
				}
				return nil
			}),
		rule("BR-10", StageBusiness, models.SeverityError, "BG-8",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if b := inv.Buyer(); !b.IsZero() && b.Address == nil {
					return []models.ValidationIssue{r.issue("buyer has no postal address", "buyer.address", "", "")}
				}
				return nil
			}),
		rule("BR-CO-10", StageBusiness, models.SeverityError, "BT-106",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				sum := inv.Totals().LineNet()
				total := money.Zero(inv.Totals().Currency())
				for _, li := range inv.LineItems() {
					total, _ = total.Add(li.NetAmount())
				}
				if !sum.Equal(total) {
					return []models.ValidationIssue{r.issue(
						fmt.Sprintf("line net total %s does not equal the sum of line nets %s", sum, total),
						"totals.lineNet", sum.StringFixed(), "")}
				}
				return nil
			}),
		rule("BR-53", StageBusiness, models.SeverityError, "BG-23",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if len(inv.LineItems()) > 0 && len(inv.TaxBreakdowns()) == 0 {
					return []models.ValidationIssue{r.issue("invoice has lines but no tax breakdown", "taxBreakdowns", "", "")}
				}
				return nil
			}),
		rule("BR-CO-25", StageBusiness, models.SeverityWarning, "BT-9",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if _, ok := inv.DueDate(); !ok && inv.AmountDue().IsPositive() {
					return []models.ValidationIssue{r.issue("positive amount due but no due date", "dueDate", "",
						"set a due date or payment terms")}
				}
				return nil
			}),
		rule("BR-CO-26", StageBusiness, models.SeverityError, "BT-31",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				s := inv.Seller()
				if !s.IsZero() && s.TaxNumber == "" && len(s.Identifiers) == 0 {
					return []models.ValidationIssue{r.issue(
						"seller has neither a tax number nor an identifier", "seller.taxNumber", "",
						"register a VAT number or a scheme identifier on the seller")}
				}
				return nil
			}),
	}
}

// peppolRules tighten EN16931 for the PEPPOL BIS Billing 3.0 network.
func peppolRules() []Rule {
	return []Rule{
		rule("PEPPOL-R010", StageProfile, models.SeverityError, "BT-49",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if b := inv.Buyer(); !b.IsZero() && b.ElectronicAddress == nil {
					return []models.ValidationIssue{r.issue("buyer electronic address must be provided",
						"buyer.electronicAddress", "", "set an EAS-coded endpoint on the buyer")}
				}
				return nil
			}),
		rule("PEPPOL-R020", StageProfile, models.SeverityError, "BT-34",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if s := inv.Seller(); !s.IsZero() && s.ElectronicAddress == nil {
					return []models.ValidationIssue{r.issue("seller electronic address must be provided",
						"seller.electronicAddress", "", "")}
				}
				return nil
			}),
	}
}

// xrechnungRules tighten EN16931 for the German public sector.
func xrechnungRules() []Rule {
	return []Rule{
		rule("BR-DE-15", StageProfile, models.SeverityError, "BT-10",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if inv.BuyerReference() == "" {
					return []models.ValidationIssue{r.issue("buyer reference (Leitweg-ID) must be provided",
						"buyerReference", "", "ask the buyer for their Leitweg-ID")}
				}
				return nil
			}),
		rule("BR-DE-5", StageProfile, models.SeverityError, "BG-6",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if s := inv.Seller(); !s.IsZero() && s.Contact == nil {
					return []models.ValidationIssue{r.issue("seller contact person must be provided",
						"seller.contact", "", "")}
				}
				return nil
			}),
	}
}

// usRules adapt the pipeline for US-style sales tax invoices, where the
// European tax breakdown grouping is informational only.
func usRules() []Rule {
	return []Rule{
		rule("US-01", StageProfile, models.SeverityWarning, "BT-5",
			func(r Rule, inv *models.Invoice) []models.ValidationIssue {
				if inv.Currency().Code != "USD" {
					return []models.ValidationIssue{r.issue(
						fmt.Sprintf("currency %s is unusual for a US invoice", inv.Currency().Code),
						"currency", inv.Currency().Code, "")}
				}
				return nil
			}),
	}
}
