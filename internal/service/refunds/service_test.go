package refunds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/pricing"
)

func usd(minor int64) money.Amount {
	return money.Amount{MinorUnits: minor, Currency: money.USD}
}

func TestApplyUpgradeFoldsDeltaIntoOrder(t *testing.T) {
	fees := pricing.FeePolicy{PlatformFeeBps: 500, ProcessorFeeBps: 290, ProcessorFeeFixed: 30}

	ord := &domain.Order{
		Currency:     money.USD,
		Subtotal:     usd(2500),
		TicketPrice:  usd(2500),
		PlatformFee:  usd(125),
		ProcessorFee: usd(106),
		Amount:       usd(2625),
		TotalCharged: usd(2731),
		Payout:       usd(2375),
	}

	oldBd := pricing.ComputeBreakdown(usd(2500), fees)
	newBd := pricing.ComputeBreakdown(usd(5000), fees)

	diff, err := newBd.Amount.Sub(oldBd.Amount)
	require.NoError(t, err)
	require.Equal(t, int64(2625), diff.MinorUnits)

	charge := diff.MulRate(fees.ProcessorFeeBps)
	charge.MinorUnits += diff.MinorUnits + fees.ProcessorFeeFixed

	bd := &pricing.ModificationBreakdown{
		Type:            domain.ModificationUpgrade,
		Old:             oldBd,
		New:             newBd,
		PriceDifference: diff,
		UpgradeCharge:   charge,
	}

	require.NoError(t, applyUpgrade(ord, bd))

	assert.Equal(t, int64(5000), ord.Subtotal.MinorUnits)
	assert.Equal(t, int64(5000), ord.TicketPrice.MinorUnits)
	assert.Equal(t, int64(250), ord.PlatformFee.MinorUnits)
	assert.Equal(t, int64(5250), ord.Amount.MinorUnits)

	// Refundable amount stays the sum of its parts.
	assert.Equal(t, ord.TicketPrice.MinorUnits+ord.PlatformFee.MinorUnits, ord.Amount.MinorUnits)
	assert.Equal(t, ord.TicketPrice.MinorUnits-ord.PlatformFee.MinorUnits, ord.Payout.MinorUnits)

	// The second charge's processor fee lands on top of the total.
	assert.Equal(t, ord.Amount.MinorUnits+ord.ProcessorFee.MinorUnits, ord.TotalCharged.MinorUnits)
}

func TestApplyUpgradeCurrencyMismatchRejected(t *testing.T) {
	ord := &domain.Order{Currency: money.USD, TicketPrice: usd(2500)}

	bd := &pricing.ModificationBreakdown{
		Old: pricing.OrderBreakdown{TicketPrice: usd(2500)},
		New: pricing.OrderBreakdown{TicketPrice: money.Amount{MinorUnits: 5000, Currency: money.EUR}},
	}

	err := applyUpgrade(ord, bd)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}
