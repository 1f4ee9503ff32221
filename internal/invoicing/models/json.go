package models

import (
	"encoding/json"
	"time"

	"fakturo/internal/money"
	id "fakturo/pkg/domain"
)

// JSON forms for the value types with unexported fields, used by the
// persistence layer and the event publisher. Unmarshaling trusts data that
// passed validation on the way in; cross-field invariants are re-checked at
// aggregate rehydration, not per field.

type taxCategoryJSON struct {
	Code                    string `json:"code"`
	RequiresRate            bool   `json:"requires_rate,omitempty"`
	RequiresExemptionReason bool   `json:"requires_exemption_reason,omitempty"`
}

func (c TaxCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(taxCategoryJSON{
		Code:                    c.code,
		RequiresRate:            c.requiresRate,
		RequiresExemptionReason: c.requiresExemptionReason,
	})
}

func (c *TaxCategory) UnmarshalJSON(b []byte) error {
	var raw taxCategoryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if canonical, err := ParseTaxCategory(raw.Code); err == nil {
		*c = canonical
		return nil
	}
	*c = TaxCategory{
		code:                    raw.Code,
		requiresRate:            raw.RequiresRate,
		requiresExemptionReason: raw.RequiresExemptionReason,
	}
	return nil
}

type allowanceChargeJSON struct {
	IsCharge    bool              `json:"is_charge"`
	Amount      money.Money       `json:"amount"`
	BaseAmount  *money.Money      `json:"base_amount,omitempty"`
	Percentage  *money.Percentage `json:"percentage,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	TaxCategory *TaxCategory      `json:"tax_category,omitempty"`
	TaxRate     *money.Percentage `json:"tax_rate,omitempty"`
}

func (ac AllowanceCharge) MarshalJSON() ([]byte, error) {
	return json.Marshal(allowanceChargeJSON{
		IsCharge:    ac.isCharge,
		Amount:      ac.amount,
		BaseAmount:  ac.baseAmount,
		Percentage:  ac.percentage,
		Reason:      ac.reason,
		TaxCategory: ac.taxCategory,
		TaxRate:     ac.taxRate,
	})
}

func (ac *AllowanceCharge) UnmarshalJSON(b []byte) error {
	var raw allowanceChargeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*ac = AllowanceCharge{
		isCharge:    raw.IsCharge,
		amount:      raw.Amount,
		baseAmount:  raw.BaseAmount,
		percentage:  raw.Percentage,
		reason:      raw.Reason,
		taxCategory: raw.TaxCategory,
		taxRate:     raw.TaxRate,
	}
	return nil
}

type taxBreakdownJSON struct {
	TaxableAmount   money.Money      `json:"taxable_amount"`
	TaxAmount       money.Money      `json:"tax_amount"`
	Category        TaxCategory      `json:"category"`
	Rate            money.Percentage `json:"rate"`
	ExemptionReason string           `json:"exemption_reason,omitempty"`
}

func (b TaxBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(taxBreakdownJSON{
		TaxableAmount:   b.taxableAmount,
		TaxAmount:       b.taxAmount,
		Category:        b.category,
		Rate:            b.rate,
		ExemptionReason: b.exemptionReason,
	})
}

func (b *TaxBreakdown) UnmarshalJSON(data []byte) error {
	var raw taxBreakdownJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = TaxBreakdown{
		taxableAmount:   raw.TaxableAmount,
		taxAmount:       raw.TaxAmount,
		category:        raw.Category,
		rate:            raw.Rate,
		exemptionReason: raw.ExemptionReason,
	}
	return nil
}

type lineItemJSON struct {
	ID                 string               `json:"id"`
	LineNumber         int                  `json:"line_number"`
	Name               string               `json:"name"`
	Description        string               `json:"description,omitempty"`
	Quantity           money.Quantity       `json:"quantity"`
	UnitPrice          money.Money          `json:"unit_price"`
	TaxCategory        TaxCategory          `json:"tax_category"`
	TaxRate            money.Percentage     `json:"tax_rate"`
	TaxExemptionReason string               `json:"tax_exemption_reason,omitempty"`
	AllowanceCharges   []AllowanceCharge    `json:"allowance_charges,omitempty"`
	Classifications    []ItemClassification `json:"classifications,omitempty"`
	Period             *BillingPeriod       `json:"period,omitempty"`
}

func (li InvoiceLineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineItemJSON{
		ID:                 li.id.String(),
		LineNumber:         li.lineNumber,
		Name:               li.name,
		Description:        li.description,
		Quantity:           li.quantity,
		UnitPrice:          li.unitPrice,
		TaxCategory:        li.taxCategory,
		TaxRate:            li.taxRate,
		TaxExemptionReason: li.taxExemptionReason,
		AllowanceCharges:   li.allowanceCharges,
		Classifications:    li.classifications,
		Period:             li.period,
	})
}

func (li *InvoiceLineItem) UnmarshalJSON(data []byte) error {
	var raw lineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lineItemID, err := id.ParseLineItemID(raw.ID)
	if err != nil {
		return err
	}
	*li = InvoiceLineItem{
		id:                 lineItemID,
		lineNumber:         raw.LineNumber,
		name:               raw.Name,
		description:        raw.Description,
		quantity:           raw.Quantity,
		unitPrice:          raw.UnitPrice,
		taxCategory:        raw.TaxCategory,
		taxRate:            raw.TaxRate,
		taxExemptionReason: raw.TaxExemptionReason,
		allowanceCharges:   raw.AllowanceCharges,
		classifications:    raw.Classifications,
		period:             raw.Period,
	}
	return nil
}

type paymentJSON struct {
	Amount    money.Money   `json:"amount"`
	Date      time.Time     `json:"date"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`
}

func (p Payment) MarshalJSON() ([]byte, error) {
	return json.Marshal(paymentJSON{
		Amount:    p.amount,
		Date:      p.date,
		Method:    p.method,
		Reference: p.reference,
	})
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	var raw paymentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Payment{
		amount:    raw.Amount,
		date:      raw.Date,
		method:    raw.Method,
		reference: raw.Reference,
	}
	return nil
}
