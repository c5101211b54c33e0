package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		a, err := New(2500, USD)
		require.NoError(t, err)
		assert.Equal(t, int64(2500), a.MinorUnits)
		assert.Equal(t, USD, a.Currency)
	})

	t.Run("negative rejected", func(t *testing.T) {
		_, err := New(-1, USD)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown currency rejected", func(t *testing.T) {
		_, err := New(100, Code("XXX"))
		assert.ErrorIs(t, err, ErrUnknownCurrency)
	})
}

func TestAddSub(t *testing.T) {
	a, _ := New(1000, USD)
	b, _ := New(250, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.MinorUnits)

	diff, err := b.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, int64(-750), diff.MinorUnits)
	assert.True(t, diff.IsNegative())
	assert.Equal(t, int64(750), diff.Abs().MinorUnits)

	jpy, _ := New(1000, JPY)
	_, err = a.Add(jpy)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = a.Sub(jpy)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMulRateHalfUp(t *testing.T) {
	tests := []struct {
		name  string
		minor int64
		bps   int64
		want  int64
	}{
		{"five percent of 9000", 9000, 500, 450},
		{"rounds half up", 1050, 500, 53},   // 52.5 -> 53
		{"rounds down below half", 1040, 500, 52}, // 52.0
		{"ten percent", 10000, 1000, 1000},
		{"zero rate", 10000, 0, 0},
		{"jpy whole units", 1000, 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Amount{MinorUnits: tt.minor, Currency: USD}
			assert.Equal(t, tt.want, a.MulRate(tt.bps).MinorUnits)
		})
	}
}

func TestAllocate(t *testing.T) {
	t.Run("exact conservation", func(t *testing.T) {
		total := Amount{MinorUnits: 9450, Currency: USD}
		parts, err := total.Allocate([]int64{9000, 450})
		require.NoError(t, err)
		require.Len(t, parts, 2)
		assert.Equal(t, int64(9000), parts[0].MinorUnits)
		assert.Equal(t, int64(450), parts[1].MinorUnits)
	})

	t.Run("remainder goes to largest weight", func(t *testing.T) {
		total := Amount{MinorUnits: 100, Currency: USD}
		parts, err := total.Allocate([]int64{1, 1, 1})
		require.NoError(t, err)
		// floor shares 33/33/33, remainder 1 to earliest of the tied largest
		assert.Equal(t, int64(34), parts[0].MinorUnits)
		assert.Equal(t, int64(33), parts[1].MinorUnits)
		assert.Equal(t, int64(33), parts[2].MinorUnits)
	})

	t.Run("sums exactly for awkward splits", func(t *testing.T) {
		total := Amount{MinorUnits: 4725, Currency: USD}
		parts, err := total.Allocate([]int64{9000, 450})
		require.NoError(t, err)

		var sum int64
		for _, p := range parts {
			sum += p.MinorUnits
		}
		assert.Equal(t, total.MinorUnits, sum)
		assert.Equal(t, int64(4500), parts[0].MinorUnits)
		assert.Equal(t, int64(225), parts[1].MinorUnits)
	})

	t.Run("zero weight part gets nothing", func(t *testing.T) {
		total := Amount{MinorUnits: 500, Currency: USD}
		parts, err := total.Allocate([]int64{0, 500})
		require.NoError(t, err)
		assert.Equal(t, int64(0), parts[0].MinorUnits)
		assert.Equal(t, int64(500), parts[1].MinorUnits)
	})

	t.Run("invalid weights rejected", func(t *testing.T) {
		total := Amount{MinorUnits: 500, Currency: USD}

		_, err := total.Allocate(nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = total.Allocate([]int64{0, 0})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = total.Allocate([]int64{-1, 2})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestFormat(t *testing.T) {
	usd, _ := New(2500, USD)
	assert.Equal(t, "$25.00", usd.Format())

	jpy, _ := New(1000, JPY)
	assert.Equal(t, "¥1000", jpy.Format())

	gbp, _ := New(105, GBP)
	assert.Equal(t, "£1.05", gbp.Format())

	neg := Amount{MinorUnits: -450, Currency: EUR}
	assert.Equal(t, "-€4.50", neg.Format())
}

func TestCurrencyRegistry(t *testing.T) {
	c, err := CurrencyFor(JPY)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Exponent)

	c, err = CurrencyFor(TRY)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Exponent)

	_, err = CurrencyFor(Code("ABC"))
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}
