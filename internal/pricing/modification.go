package pricing

import (
	"fmt"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// ModificationBreakdown is the signed outcome of moving qty tickets from
// one tier to another. PriceDifference > 0 classifies as an upgrade (the
// customer owes the difference plus the processor fee on the second
// charge); < 0 is a downgrade refunded via the refund allocation applied
// to the delta; == 0 is a lateral transfer.
type ModificationBreakdown struct {
	Type            domain.ModificationType `json:"type"`
	Old             OrderBreakdown          `json:"old"`
	New             OrderBreakdown          `json:"new"`
	PriceDifference money.Amount            `json:"price_difference"`
	UpgradeCharge   money.Amount            `json:"upgrade_charge"`
}

// ComputeModification prices a tier change. The target tier's
// availability is checked before any pricing: a sold-out tier fails
// with ErrTierSoldOut immediately. Both tiers' breakdowns are recomputed
// independently from their effective unit prices at qty.
func ComputeModification(
	oldTier, newTier *domain.TicketTier,
	qty int64,
	fees FeePolicy,
) (*ModificationBreakdown, error) {
	const op = "pricing.ComputeModification"

	if qty <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrQuantityOutOfBounds)
	}

	if newTier.QuantityAvailable != nil && newTier.QuantitySold+qty > *newTier.QuantityAvailable {
		return nil, fmt.Errorf("%s: tier %d: %w", op, newTier.ID, ErrTierSoldOut)
	}

	if oldTier.Price.Currency != newTier.Price.Currency {
		return nil, fmt.Errorf("%s: %w", op, money.ErrCurrencyMismatch)
	}

	oldBreakdown := ComputeBreakdown(EffectiveUnitPrice(oldTier, qty).MulQty(qty), fees)
	newBreakdown := ComputeBreakdown(EffectiveUnitPrice(newTier, qty).MulQty(qty), fees)

	diff, err := newBreakdown.Amount.Sub(oldBreakdown.Amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mt := domain.ModificationTransfer
	upgradeCharge := money.Zero(diff.Currency)
	switch {
	case diff.MinorUnits > 0:
		mt = domain.ModificationUpgrade
		// The second charge incurs its own processor fee.
		upgradeCharge = diff.MulRate(fees.ProcessorFeeBps)
		upgradeCharge.MinorUnits += diff.MinorUnits + fees.ProcessorFeeFixed
	case diff.MinorUnits < 0:
		mt = domain.ModificationDowngrade
	}

	return &ModificationBreakdown{
		Type:            mt,
		Old:             oldBreakdown,
		New:             newBreakdown,
		PriceDifference: diff,
		UpgradeCharge:   upgradeCharge,
	}, nil
}
