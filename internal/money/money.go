// Package money implements integer minor-unit monetary arithmetic.
//
// Every amount is an int64 count of the smallest currency unit (cents for
// USD, whole yen for JPY). The minor-unit scale comes from the currency
// registry, so nothing in this package divides by a hard-coded 100.
// Percentage rates are carried as integer basis points (1% = 100 bps) and
// rounded half-up, which keeps the arithmetic exact for zero-decimal
// currencies.
package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Amount is a monetary value in minor units of a single currency.
// MinorUnits is non-negative for prices and totals; a negative value is
// only produced by Sub and represents a signed delta (e.g. a downgrade).
type Amount struct {
	MinorUnits int64 `json:"minor_units"`
	Currency   Code  `json:"currency"`
}

// New validates and builds a non-negative Amount.
func New(minorUnits int64, currency Code) (Amount, error) {
	if minorUnits < 0 {
		return Amount{}, fmt.Errorf("%w: negative minor units %d", ErrInvalidAmount, minorUnits)
	}

	if !IsSupported(currency) {
		return Amount{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}

	return Amount{MinorUnits: minorUnits, Currency: currency}, nil
}

// Zero returns the zero amount in the given currency.
func Zero(currency Code) Amount {
	return Amount{MinorUnits: 0, Currency: currency}
}

func (a Amount) IsZero() bool     { return a.MinorUnits == 0 }
func (a Amount) IsNegative() bool { return a.MinorUnits < 0 }

// Neg flips the sign of the amount.
func (a Amount) Neg() Amount {
	return Amount{MinorUnits: -a.MinorUnits, Currency: a.Currency}
}

// Abs returns the magnitude of a signed delta.
func (a Amount) Abs() Amount {
	if a.MinorUnits < 0 {
		return a.Neg()
	}
	return a
}

// Add returns a+b, failing on mixed currencies.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}

	return Amount{MinorUnits: a.MinorUnits + b.MinorUnits, Currency: a.Currency}, nil
}

// Sub returns a-b, failing on mixed currencies. The result may be
// negative; callers that require a non-negative amount must check.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}

	return Amount{MinorUnits: a.MinorUnits - b.MinorUnits, Currency: a.Currency}, nil
}

// MulQty multiplies a unit price by a quantity.
func (a Amount) MulQty(qty int64) Amount {
	return Amount{MinorUnits: a.MinorUnits * qty, Currency: a.Currency}
}

// MulRate applies a basis-point rate to the amount, rounding half-up to
// the nearest minor unit. 500 bps == 5%.
func (a Amount) MulRate(bps int64) Amount {
	product := a.MinorUnits * bps
	q := product / 10000
	if rem := product % 10000; rem*2 >= 10000 {
		q++
	}

	return Amount{MinorUnits: q, Currency: a.Currency}
}

// Allocate splits the amount into len(weights) parts proportional to the
// integer weights such that the parts sum exactly to the total. Each part
// gets its floor share; the remainder goes to the largest-weight part,
// earliest index winning ties.
func (a Amount) Allocate(weights []int64) ([]Amount, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no allocation weights", ErrInvalidAmount)
	}

	var sum int64
	largest := 0
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %d", ErrInvalidAmount, w)
		}
		sum += w
		if w > weights[largest] {
			largest = i
		}
	}

	if sum == 0 {
		return nil, fmt.Errorf("%w: zero total weight", ErrInvalidAmount)
	}

	parts := make([]Amount, len(weights))
	var allocated int64
	for i, w := range weights {
		share := a.MinorUnits * w / sum
		parts[i] = Amount{MinorUnits: share, Currency: a.Currency}
		allocated += share
	}

	parts[largest].MinorUnits += a.MinorUnits - allocated

	return parts, nil
}

// Format renders the amount for display using the registry exponent,
// e.g. "$25.00" or "¥1000".
func (a Amount) Format() string {
	cur, err := CurrencyFor(a.Currency)
	if err != nil {
		return fmt.Sprintf("%d %s", a.MinorUnits, a.Currency)
	}

	units := a.MinorUnits
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}

	if cur.Exponent == 0 {
		return fmt.Sprintf("%s%s%d", sign, cur.Symbol, units)
	}

	scale := int64(1)
	for i := 0; i < cur.Exponent; i++ {
		scale *= 10
	}

	major := units / scale
	minor := units % scale

	return fmt.Sprintf("%s%s%d.%0*d", sign, cur.Symbol, major, cur.Exponent, minor)
}

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.MinorUnits, strings.ToUpper(string(a.Currency)))
}
