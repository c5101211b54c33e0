package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communahq/communa/internal/domain"
)

func TestValidateDiscountCode(t *testing.T) {
	selection := domain.CartSelection{1: 4}
	subtotal := usd(10000)

	t.Run("valid code passes", func(t *testing.T) {
		d, err := ValidateDiscountCode(save10(), selection, subtotal, testNow)
		require.NoError(t, err)
		assert.Equal(t, domain.DiscountPercentage, d.Type)
		assert.Equal(t, int64(10), d.Value)
		assert.Equal(t, "SAVE10", d.Code)
	})

	t.Run("nil code is not found", func(t *testing.T) {
		_, err := ValidateDiscountCode(nil, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountNotFound)
	})

	t.Run("not yet active", func(t *testing.T) {
		code := save10()
		code.ValidFrom = testNow.Add(time.Hour)
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountNotYetActive)
	})

	t.Run("expired", func(t *testing.T) {
		code := save10()
		until := testNow.Add(-time.Minute)
		code.ValidUntil = &until
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountExpired)
	})

	t.Run("valid until boundary is inclusive", func(t *testing.T) {
		code := save10()
		until := testNow
		code.ValidUntil = &until
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.NoError(t, err)
	})

	t.Run("exhausted", func(t *testing.T) {
		code := save10()
		code.UsageLimit = i64(100)
		code.UsageCount = 100
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountExhausted)
	})

	t.Run("last redemption still validates", func(t *testing.T) {
		code := save10()
		code.UsageLimit = i64(100)
		code.UsageCount = 99
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.NoError(t, err)
	})

	t.Run("not applicable to cart tiers", func(t *testing.T) {
		code := save10()
		code.ApplicableTierIDs = []int64{42}
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountNotApplicable)
	})

	t.Run("applicable when one selected tier matches", func(t *testing.T) {
		code := save10()
		code.ApplicableTierIDs = []int64{42, 1}
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.NoError(t, err)
	})

	t.Run("minimum purchase not met", func(t *testing.T) {
		code := save10()
		code.MinimumPurchase = i64(20000)
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountMinimumNotMet)
	})

	t.Run("expiry checked before exhaustion", func(t *testing.T) {
		code := save10()
		until := testNow.Add(-time.Minute)
		code.ValidUntil = &until
		code.UsageLimit = i64(1)
		code.UsageCount = 1
		_, err := ValidateDiscountCode(code, selection, subtotal, testNow)
		assert.ErrorIs(t, err, ErrDiscountExpired)
	})
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "SAVE10", NormalizeCode("Save10"))
}
