package mapping

import (
	"log/slog"

	"fakturo/internal/invoicing/models"
)

// Standard keys for registration and lookup.
const (
	StandardEN16931   = "EN16931"
	StandardPeppol    = "PEPPOL_BIS_3"
	StandardXRechnung = "XRECHNUNG"
	StandardFacturae  = "FACTURAE"
	StandardFatturaPA = "FATTURAPA"
	StandardUS        = "US_STANDARD"
)

// untdid1001 maps the canonical invoice types to UNTDID 1001 document type
// codes, shared by every EN16931-derived standard.
func untdid1001() map[models.InvoiceType]string {
	return map[models.InvoiceType]string{
		models.InvoiceTypeCommercial: "380",
		models.InvoiceTypeCreditNote: "381",
		models.InvoiceTypeDebitNote:  "383",
		models.InvoiceTypeCorrective: "384",
		models.InvoiceTypePrepayment: "386",
		models.InvoiceTypeSelfBilled: "389",
		models.InvoiceTypePartial:    "326",
	}
}

// untdid5305 maps the canonical tax categories to UNTDID 5305 duty/tax
// category codes. SPECIAL has no EN16931 code and falls back to S.
func untdid5305() map[string]string {
	return map[string]string{
		models.TaxCategoryStandard.Code():      "S",
		models.TaxCategoryReduced.Code():       "AA",
		models.TaxCategoryZero.Code():          "Z",
		models.TaxCategoryExempt.Code():        "E",
		models.TaxCategoryReverseCharge.Code(): "AE",
		models.TaxCategoryExport.Code():        "G",
		models.TaxCategoryNotApplicable.Code(): "O",
	}
}

// easSchemes maps canonical identifier scheme names to EAS codes.
func easSchemes() map[string]string {
	return map[string]string{
		"gln":    "0088",
		"duns":   "0060",
		"leitweg": "0204",
		"vat_de": "9930",
		"orgnr":  "0007",
		"kvk":    "0106",
		"siret":  "0009",
	}
}

func newEN16931(logger *slog.Logger) StandardMapper {
	m := newTableMapper(StandardEN16931, logger)
	m.invoiceTypes = untdid1001()
	m.invoiceTypeDefault = "380"
	m.taxCategories = untdid5305()
	m.taxCategoryDefault = "S"
	m.addressSchemes = easSchemes()
	m.addressSchemeDefault = "0088"
	m.outputFormats = map[models.OutputFormat]string{
		models.OutputFormatUBL: "urn:cen.eu:en16931:2017",
		models.OutputFormatCII: "urn:cen.eu:en16931:2017",
	}
	m.outputFormatDefault = "urn:cen.eu:en16931:2017"
	return m.buildReverse()
}

func newPeppol(logger *slog.Logger) StandardMapper {
	m := newTableMapper(StandardPeppol, logger)
	m.invoiceTypes = untdid1001()
	m.invoiceTypeDefault = "380"
	m.taxCategories = untdid5305()
	m.taxCategoryDefault = "S"
	m.addressSchemes = easSchemes()
	m.addressSchemeDefault = "0088"
	m.outputFormats = map[models.OutputFormat]string{
		models.OutputFormatUBL: "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0",
	}
	m.outputFormatDefault = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	return m.buildReverse()
}

func newXRechnung(logger *slog.Logger) StandardMapper {
	m := newTableMapper(StandardXRechnung, logger)
	m.invoiceTypes = untdid1001()
	m.invoiceTypeDefault = "380"
	m.taxCategories = untdid5305()
	m.taxCategoryDefault = "S"
	m.addressSchemes = easSchemes()
	m.addressSchemeDefault = "0204"
	m.outputFormats = map[models.OutputFormat]string{
		models.OutputFormatUBL: "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0",
		models.OutputFormatCII: "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0",
	}
	m.outputFormatDefault = "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0"
	return m.buildReverse()
}

func newFacturae(logger *slog.Logger) StandardMapper {
	m := newTableMapper(StandardFacturae, logger)
	m.invoiceTypes = map[models.InvoiceType]string{
		models.InvoiceTypeCommercial: "FC",
		models.InvoiceTypeCorrective: "FR",
		models.InvoiceTypeCreditNote: "FR-CREDIT",
		models.InvoiceTypeDebitNote:  "FR-DEBIT",
		models.InvoiceTypeSelfBilled: "AF",
		models.InvoiceTypePrepayment: "FC-ANTICIPO",
		models.InvoiceTypePartial:    "FC-PARCIAL",
	}
	m.invoiceTypeDefault = "FC"
	m.taxCategories = map[string]string{
		models.TaxCategoryStandard.Code():      "01",
		models.TaxCategoryReduced.Code():       "01-R",
		models.TaxCategoryZero.Code():          "01-Z",
		models.TaxCategoryExempt.Code():        "E",
		models.TaxCategoryReverseCharge.Code(): "ISP",
		models.TaxCategoryExport.Code():        "EX",
		models.TaxCategoryNotApplicable.Code(): "NS",
	}
	m.taxCategoryDefault = "01"
	m.addressSchemes = easSchemes()
	m.addressSchemeDefault = "0088"
	m.outputFormats = map[models.OutputFormat]string{
		models.OutputFormatFacturae: "3.2.2",
	}
	m.outputFormatDefault = "3.2.2"
	return m.buildReverse()
}

func newFatturaPA(logger *slog.Logger) StandardMapper {
	m := newTableMapper(StandardFatturaPA, logger)
	m.invoiceTypes = map[models.InvoiceType]string{
		models.InvoiceTypeCommercial: "TD01",
		models.InvoiceTypePrepayment: "TD02",
		models.InvoiceTypeCreditNote: "TD04",
		models.InvoiceTypeDebitNote:  "TD05",
		models.InvoiceTypeSelfBilled: "TD20",
		models.InvoiceTypeCorrective: "TD24",
		models.InvoiceTypePartial:    "TD03",
	}
	m.invoiceTypeDefault = "TD01"
	m.taxCategories = map[string]string{
		models.TaxCategoryStandard.Code():      "IVA",
		models.TaxCategoryReduced.Code():       "IVA-R",
		models.TaxCategoryZero.Code():          "N3",
		models.TaxCategoryExempt.Code():        "N4",
		models.TaxCategoryReverseCharge.Code(): "N6",
		models.TaxCategoryExport.Code():        "N3.1",
		models.TaxCategoryNotApplicable.Code(): "N2",
	}
	m.taxCategoryDefault = "IVA"
	m.addressSchemes = easSchemes()
	m.addressSchemeDefault = "0201"
	m.outputFormats = map[models.OutputFormat]string{
		models.OutputFormatFatturaPA: "FPR12",
	}
	m.outputFormatDefault = "FPR12"
	return m.buildReverse()
}

// newUS maps to the textual conventions of US billing systems. Sales tax
// does not distinguish the European category variants: ZERO, EXEMPT and
// NOT_APPLICABLE all collapse to NON_TAXABLE, so their reverse mapping
// resolves to ZERO (first in canonical order). This is the documented
// round-trip exception for this standard.
func newUS(logger *slog.Logger) StandardMapper {
	m := newTableMapper(StandardUS, logger)
	m.invoiceTypes = map[models.InvoiceType]string{
		models.InvoiceTypeCommercial: "INVOICE",
		models.InvoiceTypeCreditNote: "CREDIT_MEMO",
		models.InvoiceTypeDebitNote:  "DEBIT_MEMO",
		models.InvoiceTypeCorrective: "CORRECTED_INVOICE",
		models.InvoiceTypeSelfBilled: "SELF_BILLED_INVOICE",
		models.InvoiceTypePrepayment: "PREPAYMENT_INVOICE",
		models.InvoiceTypePartial:    "PARTIAL_INVOICE",
	}
	m.invoiceTypeDefault = "INVOICE"
	m.taxCategories = map[string]string{
		models.TaxCategoryStandard.Code():      "TAXABLE",
		models.TaxCategoryReduced.Code():       "TAXABLE_REDUCED",
		models.TaxCategoryZero.Code():          "NON_TAXABLE",
		models.TaxCategoryExempt.Code():        "NON_TAXABLE",
		models.TaxCategoryNotApplicable.Code(): "NON_TAXABLE",
		models.TaxCategoryExport.Code():        "EXPORT",
	}
	m.taxCategoryDefault = "TAXABLE"
	m.addressSchemes = map[string]string{
		"duns": "DUNS",
		"ein":  "EIN",
	}
	m.addressSchemeDefault = "DUNS"
	m.outputFormats = map[models.OutputFormat]string{
		models.OutputFormatUBL: "UBL-2.1",
		models.OutputFormatPDF: "PDF",
	}
	m.outputFormatDefault = "PDF"
	return m.buildReverse()
}
