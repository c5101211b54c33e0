package pricing

import (
	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// ResolveGroupRule picks the single best-price bulk rule for the
// requested quantity: among rules with MinQuantity <= qty, the one with
// the highest MinQuantity. Rules never stack. Returns nil when no rule
// qualifies.
func ResolveGroupRule(tier *domain.TicketTier, qty int64) *domain.GroupPricingRule {
	var best *domain.GroupPricingRule

	for i := range tier.GroupRules {
		r := &tier.GroupRules[i]
		if r.MinQuantity > qty {
			continue
		}
		if best == nil || r.MinQuantity > best.MinQuantity {
			best = r
		}
	}

	return best
}

// EffectiveUnitPrice is the tier price with the best qualifying group
// rule folded in: price * (100 - pct) / 100, rounded half-up per unit.
// The line subtotal is this per-unit price multiplied by quantity.
func EffectiveUnitPrice(tier *domain.TicketTier, qty int64) money.Amount {
	rule := ResolveGroupRule(tier, qty)
	if rule == nil {
		return tier.Price
	}

	return tier.Price.MulRate((100 - rule.DiscountPercent) * 100)
}
