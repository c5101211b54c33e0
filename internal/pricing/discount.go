package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// Discount is the validated code snapshot returned to the aggregator.
// Validation never mutates the code; redemption (the usage_count
// increment) happens separately, inside the order-capture transaction.
type Discount struct {
	CodeID int64
	Code   string
	Type   domain.DiscountType
	Value  int64
}

// NormalizeCode canonicalizes a promo code for case-insensitive matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateDiscountCode runs the ordered validation checks and returns
// the first failing reason: not found, not yet active, expired,
// exhausted, not applicable to the selected tiers, minimum purchase not
// met. subtotal is the cart amount after group pricing and before any
// code discount.
func ValidateDiscountCode(
	code *domain.DiscountCode,
	selection domain.CartSelection,
	subtotal money.Amount,
	now time.Time,
) (*Discount, error) {
	const op = "pricing.ValidateDiscountCode"

	if code == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDiscountNotFound)
	}

	if now.Before(code.ValidFrom) {
		return nil, fmt.Errorf("%s: %w", op, ErrDiscountNotYetActive)
	}

	if code.ValidUntil != nil && now.After(*code.ValidUntil) {
		return nil, fmt.Errorf("%s: %w", op, ErrDiscountExpired)
	}

	if code.UsageLimit != nil && code.UsageCount >= *code.UsageLimit {
		return nil, fmt.Errorf("%s: %w", op, ErrDiscountExhausted)
	}

	if len(code.ApplicableTierIDs) > 0 {
		applies := false
		for _, tierID := range code.ApplicableTierIDs {
			if selection[tierID] > 0 {
				applies = true
				break
			}
		}
		if !applies {
			return nil, fmt.Errorf("%s: %w", op, ErrDiscountNotApplicable)
		}
	}

	if code.MinimumPurchase != nil && subtotal.MinorUnits < *code.MinimumPurchase {
		return nil, fmt.Errorf("%s: %w", op, ErrDiscountMinimumNotMet)
	}

	return &Discount{
		CodeID: code.ID,
		Code:   NormalizeCode(code.Code),
		Type:   code.Type,
		Value:  code.Value,
	}, nil
}

// discountableSubtotal is the portion of the subtotal the code may
// discount. A code restricted to specific tiers only touches the amounts
// those tiers contributed.
func discountableSubtotal(
	code *domain.DiscountCode,
	perTierSubtotal map[int64]money.Amount,
	subtotal money.Amount,
) money.Amount {
	if len(code.ApplicableTierIDs) == 0 {
		return subtotal
	}

	base := money.Zero(subtotal.Currency)
	for _, tierID := range code.ApplicableTierIDs {
		line, ok := perTierSubtotal[tierID]
		if !ok {
			continue
		}
		base.MinorUnits += line.MinorUnits
	}

	return base
}

// discountAmount computes the monetary discount against base. A
// percentage code takes value% (half-up); a fixed code takes its value
// clamped to base so the discounted subtotal can never go negative.
func discountAmount(code *domain.DiscountCode, base money.Amount) money.Amount {
	switch code.Type {
	case domain.DiscountPercentage:
		return base.MulRate(code.Value * 100)
	case domain.DiscountFixed:
		if code.Value > base.MinorUnits {
			return base
		}
		return money.Amount{MinorUnits: code.Value, Currency: base.Currency}
	default:
		return money.Zero(base.Currency)
	}
}
