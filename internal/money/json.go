package money

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	dErrors "fakturo/pkg/domain-errors"
)

// JSON forms keep amounts as exact decimal strings. Unmarshaling goes
// through the validating constructors so persisted data cannot smuggle in
// values that would be rejected at the front door.

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency.Code})
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	currency, err := ParseCurrency(raw.Currency)
	if err != nil {
		return err
	}
	parsed, err := NewFromString(raw.Amount, currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (c Currency) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Code)
}

func (c *Currency) UnmarshalJSON(b []byte) error {
	var code string
	if err := json.Unmarshal(b, &code); err != nil {
		return err
	}
	if code == "" {
		*c = Currency{}
		return nil
	}
	parsed, err := ParseCurrency(code)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (p Percentage) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value.String())
}

func (p *Percentage) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := PercentageFromString(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type quantityJSON struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(quantityJSON{Value: q.value.String(), Unit: q.unit})
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	var raw quantityJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := QuantityFromString(raw.Value, raw.Unit)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

type exchangeRateJSON struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Rate string    `json:"rate"`
	Date time.Time `json:"date"`
}

func (r ExchangeRate) MarshalJSON() ([]byte, error) {
	return json.Marshal(exchangeRateJSON{
		From: r.from.Code,
		To:   r.to.Code,
		Rate: r.rate.String(),
		Date: r.date,
	})
}

func (r *ExchangeRate) UnmarshalJSON(b []byte) error {
	var raw exchangeRateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	from, err := ParseCurrency(raw.From)
	if err != nil {
		return err
	}
	to, err := ParseCurrency(raw.To)
	if err != nil {
		return err
	}
	rate, err := decimal.NewFromString(raw.Rate)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "parsing exchange rate")
	}
	parsed, err := NewExchangeRate(from, to, rate, raw.Date)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
