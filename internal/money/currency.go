package money

import (
	"errors"
	"fmt"
)

// Code is an ISO 4217 currency code.
type Code string

const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	TRY Code = "TRY"
	JPY Code = "JPY"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Currency describes how a currency is scaled and displayed.
// Exponent is the number of minor-unit decimal places: 2 for USD
// (100 cents per dollar), 0 for JPY (the yen has no minor unit).
type Currency struct {
	Code     Code
	Exponent int
	Symbol   string
}

var registry = map[Code]Currency{
	USD: {Code: USD, Exponent: 2, Symbol: "$"},
	EUR: {Code: EUR, Exponent: 2, Symbol: "€"},
	GBP: {Code: GBP, Exponent: 2, Symbol: "£"},
	TRY: {Code: TRY, Exponent: 2, Symbol: "₺"},
	JPY: {Code: JPY, Exponent: 0, Symbol: "¥"},
}

// CurrencyFor looks up the registry entry for a code.
func CurrencyFor(code Code) (Currency, error) {
	c, ok := registry[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}

	return c, nil
}

// IsSupported reports whether the code is in the registry.
func IsSupported(code Code) bool {
	_, ok := registry[code]
	return ok
}
