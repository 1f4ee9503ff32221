package format

import (
	"encoding/xml"
	"fmt"
	"time"

	"fakturo/internal/invoicing/models"
	"fakturo/internal/mapping"
)

const (
	ublInvoiceNS = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	cacNS        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	cbcNS        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// UBLGenerator renders OASIS UBL 2.1 invoice XML. Amounts are emitted as
// exact decimal strings at the currency scale, never floats.
type UBLGenerator struct{}

// NewUBLGenerator constructs the UBL generator.
func NewUBLGenerator() UBLGenerator { return UBLGenerator{} }

func (UBLGenerator) Format() models.OutputFormat { return models.OutputFormatUBL }

func (UBLGenerator) MediaType() string { return "application/xml" }

// Render serializes the invoice. The mapper supplies the document type and
// tax category codes for the target standard.
func (g UBLGenerator) Render(inv *models.Invoice, mapper mapping.StandardMapper) ([]byte, error) {
	doc := xmlInvoice{
		Xmlns:            ublInvoiceNS,
		Cac:              cacNS,
		Cbc:              cbcNS,
		CustomizationID:  mapper.MapOutputFormat(models.OutputFormatUBL),
		ID:               inv.Number().String(),
		InvoiceTypeCode:  mapper.MapInvoiceType(inv.Type()),
		DocumentCurrency: inv.Currency().Code,
		BuyerReference:   inv.BuyerReference(),
		Note:             inv.Note(),
	}
	if issue, ok := inv.IssueDate(); ok {
		doc.IssueDate = issue.Format(time.DateOnly)
	}
	if due, ok := inv.DueDate(); ok {
		doc.DueDate = due.Format(time.DateOnly)
	}
	for _, ref := range inv.References() {
		doc.AdditionalDocumentReference = append(doc.AdditionalDocumentReference, xmlDocumentReference{
			ID:                  ref.ID,
			DocumentDescription: ref.Description,
		})
	}
	doc.SupplierParty = xmlSupplierParty{Party: partyBody(inv.Seller(), mapper)}
	doc.CustomerParty = xmlCustomerParty{Party: partyBody(inv.Buyer(), mapper)}

	if seller := inv.Seller(); seller.BankAccount != nil {
		doc.PaymentMeans = &xmlPaymentMeans{
			PaymentMeansCode: "30",
			PayeeFinancialAccount: xmlFinancialAccount{
				ID: seller.BankAccount.Key(),
				FinancialInstitutionBranch: xmlFinancialInstitutionBranch{
					ID: seller.BankAccount.BIC,
				},
			},
		}
	}

	totals := inv.Totals()
	taxTotal := xmlTaxTotal{
		TaxAmount: amount(totals.TaxTotal().StringFixed(), inv.Currency().Code),
	}
	for _, b := range inv.TaxBreakdowns() {
		taxTotal.TaxSubtotal = append(taxTotal.TaxSubtotal, xmlTaxSubtotal{
			TaxableAmount: amount(b.TaxableAmount().StringFixed(), inv.Currency().Code),
			TaxAmount:     amount(b.TaxAmount().StringFixed(), inv.Currency().Code),
			TaxCategory: xmlTaxCategory{
				ID:              mapper.MapTaxCategory(b.Category()),
				Percent:         b.Rate().Value().String(),
				ExemptionReason: b.ExemptionReason(),
				TaxScheme:       xmlTaxScheme{ID: "VAT"},
			},
		})
	}
	doc.TaxTotal = taxTotal
	doc.LegalMonetaryTotal = xmlMonetaryTotal{
		LineExtensionAmount: amount(totals.LineNet().StringFixed(), inv.Currency().Code),
		TaxExclusiveAmount:  amount(totals.TaxExclusive().StringFixed(), inv.Currency().Code),
		TaxInclusiveAmount:  amount(totals.TaxInclusive().StringFixed(), inv.Currency().Code),
		AllowanceTotal:      amount(totals.AllowanceTotal().StringFixed(), inv.Currency().Code),
		ChargeTotal:         amount(totals.ChargeTotal().StringFixed(), inv.Currency().Code),
		PrepaidAmount:       amount(totals.Prepaid().StringFixed(), inv.Currency().Code),
		PayableAmount:       amount(totals.Payable().StringFixed(), inv.Currency().Code),
	}

	for _, li := range inv.LineItems() {
		doc.InvoiceLines = append(doc.InvoiceLines, xmlInvoiceLine{
			ID: fmt.Sprint(li.LineNumber()),
			InvoicedQuantity: xmlQuantity{
				Value:    li.Quantity().Value().String(),
				UnitCode: li.Quantity().Unit(),
			},
			LineExtensionAmount: amount(li.NetAmount().StringFixed(), inv.Currency().Code),
			Item: xmlItem{
				Description: li.Description(),
				Name:        li.Name(),
				ClassifiedTaxCategory: xmlTaxCategory{
					ID:        mapper.MapTaxCategory(li.TaxCategory()),
					Percent:   li.TaxRate().Value().String(),
					TaxScheme: xmlTaxScheme{ID: "VAT"},
				},
			},
			Price: xmlPrice{
				PriceAmount: amount(li.UnitPrice().StringFixed(), inv.Currency().Code),
			},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func partyBody(snap models.PartySnapshot, mapper mapping.StandardMapper) xmlPartyBody {
	p := xmlPartyBody{
		PartyName:        snap.TradingName,
		RegistrationName: snap.LegalName,
	}
	if p.PartyName == "" {
		p.PartyName = snap.LegalName
	}
	if snap.ElectronicAddress != nil {
		p.EndpointID = &xmlEndpointID{
			Value:    snap.ElectronicAddress.Value,
			SchemeID: mapper.MapAddressScheme(snap.ElectronicAddress.Scheme),
		}
	}
	if snap.Address != nil {
		p.PostalAddress = &xmlPostalAddress{
			StreetName: snap.Address.Street,
			CityName:   snap.Address.City,
			PostalZone: snap.Address.PostalCode,
			Country:    xmlCountry{IdentificationCode: snap.Address.CountryCode},
		}
	}
	if snap.TaxNumber != "" {
		p.PartyTaxScheme = &xmlPartyTaxScheme{
			CompanyID: snap.TaxNumber,
			TaxScheme: xmlTaxScheme{ID: "VAT"},
		}
	}
	return p
}

func amount(value, currency string) xmlAmount {
	return xmlAmount{Value: value, CurrencyID: currency}
}

type xmlInvoice struct {
	XMLName                     xml.Name               `xml:"Invoice"`
	Xmlns                       string                 `xml:"xmlns,attr"`
	Cac                         string                 `xml:"xmlns:cac,attr"`
	Cbc                         string                 `xml:"xmlns:cbc,attr"`
	CustomizationID             string                 `xml:"cbc:CustomizationID"`
	ID                          string                 `xml:"cbc:ID"`
	IssueDate                   string                 `xml:"cbc:IssueDate,omitempty"`
	DueDate                     string                 `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode             string                 `xml:"cbc:InvoiceTypeCode"`
	Note                        string                 `xml:"cbc:Note,omitempty"`
	DocumentCurrency            string                 `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference              string                 `xml:"cbc:BuyerReference,omitempty"`
	AdditionalDocumentReference []xmlDocumentReference `xml:"cac:AdditionalDocumentReference"`
	SupplierParty               xmlSupplierParty       `xml:"cac:AccountingSupplierParty"`
	CustomerParty               xmlCustomerParty       `xml:"cac:AccountingCustomerParty"`
	PaymentMeans                *xmlPaymentMeans       `xml:"cac:PaymentMeans,omitempty"`
	TaxTotal                    xmlTaxTotal            `xml:"cac:TaxTotal"`
	LegalMonetaryTotal          xmlMonetaryTotal       `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines                []xmlInvoiceLine       `xml:"cac:InvoiceLine"`
}

type xmlDocumentReference struct {
	ID                  string `xml:"cbc:ID"`
	DocumentDescription string `xml:"cbc:DocumentDescription,omitempty"`
}

type xmlSupplierParty struct {
	Party xmlPartyBody `xml:"cac:Party"`
}

type xmlCustomerParty struct {
	Party xmlPartyBody `xml:"cac:Party"`
}

type xmlEndpointID struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr"`
}

type xmlPartyBody struct {
	EndpointID       *xmlEndpointID     `xml:"cbc:EndpointID,omitempty"`
	PartyName        string             `xml:"cac:PartyName>cbc:Name"`
	PostalAddress    *xmlPostalAddress  `xml:"cac:PostalAddress,omitempty"`
	PartyTaxScheme   *xmlPartyTaxScheme `xml:"cac:PartyTaxScheme,omitempty"`
	RegistrationName string             `xml:"cac:PartyLegalEntity>cbc:RegistrationName"`
}

type xmlPostalAddress struct {
	StreetName string     `xml:"cbc:StreetName,omitempty"`
	CityName   string     `xml:"cbc:CityName,omitempty"`
	PostalZone string     `xml:"cbc:PostalZone,omitempty"`
	Country    xmlCountry `xml:"cac:Country"`
}

type xmlCountry struct {
	IdentificationCode string `xml:"cbc:IdentificationCode,omitempty"`
}

type xmlPartyTaxScheme struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlPaymentMeans struct {
	PaymentMeansCode      string              `xml:"cbc:PaymentMeansCode"`
	PayeeFinancialAccount xmlFinancialAccount `xml:"cac:PayeeFinancialAccount"`
}

type xmlFinancialAccount struct {
	ID                         string                        `xml:"cbc:ID"`
	FinancialInstitutionBranch xmlFinancialInstitutionBranch `xml:"cac:FinancialInstitutionBranch"`
}

type xmlFinancialInstitutionBranch struct {
	ID string `xml:"cbc:ID"`
}

type xmlTaxTotal struct {
	TaxAmount   xmlAmount        `xml:"cbc:TaxAmount"`
	TaxSubtotal []xmlTaxSubtotal `xml:"cac:TaxSubtotal"`
}

type xmlTaxSubtotal struct {
	TaxableAmount xmlAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     xmlAmount      `xml:"cbc:TaxAmount"`
	TaxCategory   xmlTaxCategory `xml:"cac:TaxCategory"`
}

type xmlMonetaryTotal struct {
	LineExtensionAmount xmlAmount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount  xmlAmount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount  xmlAmount `xml:"cbc:TaxInclusiveAmount"`
	AllowanceTotal      xmlAmount `xml:"cbc:AllowanceTotalAmount"`
	ChargeTotal         xmlAmount `xml:"cbc:ChargeTotalAmount"`
	PrepaidAmount       xmlAmount `xml:"cbc:PrepaidAmount"`
	PayableAmount       xmlAmount `xml:"cbc:PayableAmount"`
}

type xmlAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

type xmlQuantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type xmlInvoiceLine struct {
	ID                  string      `xml:"cbc:ID"`
	InvoicedQuantity    xmlQuantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount xmlAmount   `xml:"cbc:LineExtensionAmount"`
	Item                xmlItem     `xml:"cac:Item"`
	Price               xmlPrice    `xml:"cac:Price"`
}

type xmlItem struct {
	Description           string         `xml:"cbc:Description,omitempty"`
	Name                  string         `xml:"cbc:Name"`
	ClassifiedTaxCategory xmlTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type xmlTaxCategory struct {
	ID              string       `xml:"cbc:ID"`
	Percent         string       `xml:"cbc:Percent"`
	ExemptionReason string       `xml:"cbc:TaxExemptionReason,omitempty"`
	TaxScheme       xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlTaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type xmlPrice struct {
	PriceAmount xmlAmount `xml:"cbc:PriceAmount"`
}
