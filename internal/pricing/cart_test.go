package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

func TestComputeCartTotal(t *testing.T) {
	t.Run("quoted scenario with promo code", func(t *testing.T) {
		// $25.00 x 4, group rule {5 -> 10%} does not apply, SAVE10 takes 10%,
		// platform fee 5%.
		catalog := MapCatalog{1: testTier(1, usd(2500), rule(1, 5, 10))}

		bd, err := ComputeCartTotal(domain.CartSelection{1: 4}, catalog, save10(), testFees, testNow)
		require.NoError(t, err)

		assert.Equal(t, int64(10000), bd.Subtotal.MinorUnits)
		assert.Equal(t, int64(1000), bd.DiscountAmount.MinorUnits)
		assert.Equal(t, int64(9000), bd.DiscountedSubtotal.MinorUnits)
		assert.Equal(t, int64(450), bd.PlatformFee.MinorUnits)
		assert.Equal(t, int64(0), bd.ProcessorFee.MinorUnits)
		assert.Equal(t, int64(9450), bd.Total.MinorUnits)
		require.NotNil(t, bd.Discount)
		assert.Equal(t, "SAVE10", bd.Discount.Code)
	})

	t.Run("group pricing folds into line subtotal before discount", func(t *testing.T) {
		catalog := MapCatalog{1: testTier(1, usd(2500), rule(1, 5, 10), rule(1, 10, 20))}

		bd, err := ComputeCartTotal(domain.CartSelection{1: 12}, catalog, nil, testFees, testNow)
		require.NoError(t, err)

		// best rule only: 20% off, unit 2000, never 10%+20%
		assert.Equal(t, int64(24000), bd.Subtotal.MinorUnits)
		require.Len(t, bd.Lines, 1)
		assert.Equal(t, int64(2000), bd.Lines[0].UnitPrice.MinorUnits)
	})

	t.Run("fixed discount clamps at subtotal", func(t *testing.T) {
		catalog := MapCatalog{1: testTier(1, usd(500))}
		code := &domain.DiscountCode{
			ID:        9,
			EventID:   1,
			Code:      "COMP",
			Type:      domain.DiscountFixed,
			Value:     100000,
			ValidFrom: testNow.Add(-time.Hour),
		}

		bd, err := ComputeCartTotal(domain.CartSelection{1: 2}, catalog, code, testFees, testNow)
		require.NoError(t, err)

		assert.Equal(t, int64(1000), bd.DiscountAmount.MinorUnits)
		assert.Equal(t, int64(0), bd.DiscountedSubtotal.MinorUnits)
		// fully discounted carts carry no fees and skip the processor
		assert.Equal(t, int64(0), bd.PlatformFee.MinorUnits)
		assert.Equal(t, int64(0), bd.ProcessorFee.MinorUnits)
		assert.Equal(t, int64(0), bd.Total.MinorUnits)
	})

	t.Run("tier-restricted code discounts only matching lines", func(t *testing.T) {
		catalog := MapCatalog{
			1: testTier(1, usd(2500)),
			2: testTier(2, usd(10000)),
		}
		code := save10()
		code.ApplicableTierIDs = []int64{1}

		bd, err := ComputeCartTotal(domain.CartSelection{1: 2, 2: 1}, catalog, code, testFees, testNow)
		require.NoError(t, err)

		// 10% of the tier-1 contribution (5000), not of the full 15000
		assert.Equal(t, int64(15000), bd.Subtotal.MinorUnits)
		assert.Equal(t, int64(500), bd.DiscountAmount.MinorUnits)
	})

	t.Run("zero decimal currency never divided by 100", func(t *testing.T) {
		catalog := MapCatalog{1: testTier(1, jpy(1000), rule(1, 5, 10))}

		bd, err := ComputeCartTotal(domain.CartSelection{1: 5}, catalog, nil, testFees, testNow)
		require.NoError(t, err)

		assert.Equal(t, money.JPY, bd.Currency)
		assert.Equal(t, int64(4500), bd.Subtotal.MinorUnits) // 900 x 5
		assert.Equal(t, int64(225), bd.PlatformFee.MinorUnits)
		assert.Equal(t, int64(4725), bd.Total.MinorUnits)
	})

	t.Run("processor fee added on top of charged total", func(t *testing.T) {
		catalog := MapCatalog{1: testTier(1, usd(10000))}
		fees := FeePolicy{PlatformFeeBps: 500, ProcessorFeeBps: 290, ProcessorFeeFixed: 30}

		bd, err := ComputeCartTotal(domain.CartSelection{1: 1}, catalog, nil, fees, testNow)
		require.NoError(t, err)

		assert.Equal(t, int64(500), bd.PlatformFee.MinorUnits)
		// 2.9% of 10500 = 304.5 -> 305, plus 30 fixed
		assert.Equal(t, int64(335), bd.ProcessorFee.MinorUnits)
		assert.Equal(t, int64(10835), bd.Total.MinorUnits)
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		catalog := MapCatalog{
			1: testTier(1, usd(2500), rule(1, 5, 10)),
			2: testTier(2, usd(4000)),
		}
		sel := domain.CartSelection{1: 6, 2: 2}

		first, err := ComputeCartTotal(sel, catalog, save10(), testFees, testNow)
		require.NoError(t, err)
		second, err := ComputeCartTotal(sel, catalog, save10(), testFees, testNow)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("rejections", func(t *testing.T) {
		soldOut := testTier(1, usd(2500))
		soldOut.QuantityAvailable = i64(10)
		soldOut.QuantitySold = 9

		windowClosed := testTier(2, usd(2500))
		end := testNow.Add(-time.Hour)
		windowClosed.SalesEnd = &end

		hidden := testTier(3, usd(2500))
		hidden.Hidden = true

		maxed := testTier(4, usd(2500))
		maxed.MaxPerOrder = 4

		mixed := testTier(5, jpy(1000))

		catalog := MapCatalog{1: soldOut, 2: windowClosed, 3: hidden, 4: maxed, 5: mixed, 6: testTier(6, usd(2500))}

		tests := []struct {
			name string
			sel  domain.CartSelection
			want error
		}{
			{"empty cart", domain.CartSelection{}, ErrEmptyCart},
			{"unknown tier", domain.CartSelection{99: 1}, ErrTierNotFound},
			{"sold out", domain.CartSelection{1: 2}, ErrTierSoldOut},
			{"sales window closed", domain.CartSelection{2: 1}, ErrTierNotOnSale},
			{"hidden tier", domain.CartSelection{3: 1}, ErrTierNotOnSale},
			{"above max per order", domain.CartSelection{4: 5}, ErrQuantityOutOfBounds},
			{"zero quantity", domain.CartSelection{6: 0}, ErrQuantityOutOfBounds},
			{"mixed currencies", domain.CartSelection{5: 1, 6: 1}, money.ErrCurrencyMismatch},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ComputeCartTotal(tt.sel, catalog, nil, testFees, testNow)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("invalid code rejects the whole cart", func(t *testing.T) {
		catalog := MapCatalog{1: testTier(1, usd(2500))}
		code := save10()
		code.ValidFrom = testNow.Add(time.Hour)

		_, err := ComputeCartTotal(domain.CartSelection{1: 1}, catalog, code, testFees, testNow)
		assert.ErrorIs(t, err, ErrDiscountNotYetActive)
	})
}

func TestComputeBreakdown(t *testing.T) {
	t.Run("payout excludes platform fee", func(t *testing.T) {
		bd := ComputeBreakdown(usd(9000), testFees)
		assert.Equal(t, int64(450), bd.PlatformFee.MinorUnits)
		assert.Equal(t, int64(9450), bd.Amount.MinorUnits)
		assert.Equal(t, int64(8550), bd.OrganizerPayout.MinorUnits)
	})

	t.Run("zero base means zero fees", func(t *testing.T) {
		bd := ComputeBreakdown(usd(0), FeePolicy{PlatformFeeBps: 500, ProcessorFeeBps: 290, ProcessorFeeFixed: 30})
		assert.True(t, bd.PlatformFee.IsZero())
		assert.True(t, bd.ProcessorFee.IsZero())
		assert.True(t, bd.TotalCharged.IsZero())
	})
}
