package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGroupRule(t *testing.T) {
	tier := testTier(1, usd(2500), rule(1, 5, 10), rule(1, 10, 20))

	t.Run("highest qualifying threshold wins", func(t *testing.T) {
		r := ResolveGroupRule(tier, 12)
		require.NotNil(t, r)
		assert.Equal(t, int64(10), r.MinQuantity)
		assert.Equal(t, int64(20), r.DiscountPercent)
	})

	t.Run("lower threshold when quantity between rules", func(t *testing.T) {
		r := ResolveGroupRule(tier, 7)
		require.NotNil(t, r)
		assert.Equal(t, int64(5), r.MinQuantity)
	})

	t.Run("exact threshold qualifies", func(t *testing.T) {
		r := ResolveGroupRule(tier, 5)
		require.NotNil(t, r)
		assert.Equal(t, int64(5), r.MinQuantity)
	})

	t.Run("no rule below smallest threshold", func(t *testing.T) {
		assert.Nil(t, ResolveGroupRule(tier, 4))
	})

	t.Run("no rules at all", func(t *testing.T) {
		assert.Nil(t, ResolveGroupRule(testTier(2, usd(1000)), 100))
	})
}

func TestEffectiveUnitPrice(t *testing.T) {
	tier := testTier(1, usd(2500), rule(1, 5, 10), rule(1, 10, 20))

	tests := []struct {
		name string
		qty  int64
		want int64
	}{
		{"no discount below threshold", 4, 2500},
		{"ten percent at five", 5, 2250},
		{"twenty percent at twelve, not stacked", 12, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveUnitPrice(tier, tt.qty).MinorUnits)
		})
	}

	t.Run("rounds half up per unit", func(t *testing.T) {
		// 15% off 999 = 849.15 -> 849
		odd := testTier(3, usd(999), rule(3, 2, 15))
		assert.Equal(t, int64(849), EffectiveUnitPrice(odd, 2).MinorUnits)
	})

	t.Run("zero decimal currency keeps whole units", func(t *testing.T) {
		yen := testTier(4, jpy(1000), rule(4, 5, 10))
		assert.Equal(t, int64(900), EffectiveUnitPrice(yen, 5).MinorUnits)
	})
}
