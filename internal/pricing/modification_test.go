package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

func TestComputeModification(t *testing.T) {
	standard := testTier(1, usd(2500))
	vip := testTier(2, usd(5000))

	t.Run("upgrade charges signed difference plus processor fee", func(t *testing.T) {
		fees := FeePolicy{PlatformFeeBps: 500, ProcessorFeeBps: 290, ProcessorFeeFixed: 30}

		bd, err := ComputeModification(standard, vip, 1, fees)
		require.NoError(t, err)

		assert.Equal(t, domain.ModificationUpgrade, bd.Type)
		// amounts: 2625 -> 5250, diff +2625
		assert.Equal(t, int64(2625), bd.PriceDifference.MinorUnits)
		// second charge: 2625 + 2.9% (76.125 -> 76) + 30 fixed
		assert.Equal(t, int64(2731), bd.UpgradeCharge.MinorUnits)
	})

	t.Run("downgrade yields negative difference", func(t *testing.T) {
		bd, err := ComputeModification(vip, standard, 1, testFees)
		require.NoError(t, err)

		assert.Equal(t, domain.ModificationDowngrade, bd.Type)
		assert.Equal(t, int64(-2625), bd.PriceDifference.MinorUnits)
		assert.True(t, bd.UpgradeCharge.IsZero())
	})

	t.Run("equal price is a transfer", func(t *testing.T) {
		other := testTier(3, usd(2500))

		bd, err := ComputeModification(standard, other, 1, testFees)
		require.NoError(t, err)

		assert.Equal(t, domain.ModificationTransfer, bd.Type)
		assert.True(t, bd.PriceDifference.IsZero())
	})

	t.Run("group pricing applies per tier at the moved quantity", func(t *testing.T) {
		discounted := testTier(4, usd(5000), rule(4, 4, 20))

		bd, err := ComputeModification(standard, discounted, 4, testFees)
		require.NoError(t, err)

		// old: 2500*4 = 10000 (+500 fee), new: 4000*4 = 16000 (+800 fee)
		assert.Equal(t, int64(10500), bd.Old.Amount.MinorUnits)
		assert.Equal(t, int64(16800), bd.New.Amount.MinorUnits)
		assert.Equal(t, int64(6300), bd.PriceDifference.MinorUnits)
	})

	t.Run("sold out target fails before pricing", func(t *testing.T) {
		full := testTier(5, usd(9000))
		full.QuantityAvailable = i64(100)
		full.QuantitySold = 100

		_, err := ComputeModification(standard, full, 1, testFees)
		assert.ErrorIs(t, err, ErrTierSoldOut)
	})

	t.Run("currency mismatch rejected", func(t *testing.T) {
		yen := testTier(6, jpy(1000))
		_, err := ComputeModification(standard, yen, 1, testFees)
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		_, err := ComputeModification(standard, vip, 0, testFees)
		assert.ErrorIs(t, err, ErrQuantityOutOfBounds)
	})
}
