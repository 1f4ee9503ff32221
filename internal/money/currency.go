package money

import (
	"regexp"

	dErrors "fakturo/pkg/domain-errors"
)

// Currency describes an ISO 4217 currency and the number of decimal places
// its amounts carry.
//
// Invariants:
//   - Code is exactly three uppercase ASCII letters
//   - Scale is between 0 and 4
type Currency struct {
	Code  string
	Name  string
	Scale int32
}

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// wellKnown is the registry of currencies with a non-default scale or a
// proper display name. Unknown codes fall back to scale 2.
var wellKnown = map[string]Currency{
	"EUR": {Code: "EUR", Name: "Euro", Scale: 2},
	"USD": {Code: "USD", Name: "US Dollar", Scale: 2},
	"GBP": {Code: "GBP", Name: "Pound Sterling", Scale: 2},
	"CHF": {Code: "CHF", Name: "Swiss Franc", Scale: 2},
	"SEK": {Code: "SEK", Name: "Swedish Krona", Scale: 2},
	"NOK": {Code: "NOK", Name: "Norwegian Krone", Scale: 2},
	"DKK": {Code: "DKK", Name: "Danish Krone", Scale: 2},
	"PLN": {Code: "PLN", Name: "Polish Zloty", Scale: 2},
	"CZK": {Code: "CZK", Name: "Czech Koruna", Scale: 2},
	"HUF": {Code: "HUF", Name: "Hungarian Forint", Scale: 2},
	"RON": {Code: "RON", Name: "Romanian Leu", Scale: 2},
	"BGN": {Code: "BGN", Name: "Bulgarian Lev", Scale: 2},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", Scale: 2},
	"AUD": {Code: "AUD", Name: "Australian Dollar", Scale: 2},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Scale: 0},
	"ISK": {Code: "ISK", Name: "Icelandic Krona", Scale: 0},
	"KRW": {Code: "KRW", Name: "South Korean Won", Scale: 0},
	"KWD": {Code: "KWD", Name: "Kuwaiti Dinar", Scale: 3},
	"BHD": {Code: "BHD", Name: "Bahraini Dinar", Scale: 3},
	"OMR": {Code: "OMR", Name: "Omani Rial", Scale: 3},
	"TND": {Code: "TND", Name: "Tunisian Dinar", Scale: 3},
	"CLF": {Code: "CLF", Name: "Chilean Unit of Account", Scale: 4},
}

// ParseCurrency resolves a currency code against the registry.
// Unknown but well-formed codes are accepted with the default scale of 2;
// malformed codes are rejected.
func ParseCurrency(code string) (Currency, error) {
	if !currencyCodePattern.MatchString(code) {
		return Currency{}, dErrors.Newf(dErrors.CodeInvalidInput, "currency code %q must be three uppercase letters", code)
	}
	if c, ok := wellKnown[code]; ok {
		return c, nil
	}
	return Currency{Code: code, Name: code, Scale: 2}, nil
}

// MustCurrency resolves a currency code or panics. For package-level
// constants and tests only.
func MustCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal reports whether two currencies are the same code.
func (c Currency) Equal(other Currency) bool {
	return c.Code == other.Code
}

// IsZero reports whether the currency is the zero value (unset).
func (c Currency) IsZero() bool {
	return c.Code == ""
}

func (c Currency) String() string {
	return c.Code
}
