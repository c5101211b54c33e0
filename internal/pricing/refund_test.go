package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// paidOrder mirrors the quoted scenario: discounted subtotal 9000,
// platform fee 450, refundable amount 9450.
func paidOrder() *domain.Order {
	return &domain.Order{
		Currency:    money.USD,
		TicketPrice: usd(9000),
		PlatformFee: usd(450),
		Amount:      usd(9450),
		Status:      domain.OrderPaid,
	}
}

func TestComputeRefund(t *testing.T) {
	t.Run("full refund allocates original breakdown exactly", func(t *testing.T) {
		bd, err := ComputeRefund(paidOrder(), nil, usd(0))
		require.NoError(t, err)

		assert.Equal(t, int64(9450), bd.Amount.MinorUnits)
		assert.Equal(t, int64(9000), bd.TicketPortion.MinorUnits)
		assert.Equal(t, int64(450), bd.FeePortion.MinorUnits)
		assert.Equal(t, bd.TicketPortion, bd.OrganizerImpact)
	})

	t.Run("half refund allocates proportionally and conserves", func(t *testing.T) {
		half := usd(4725)
		bd, err := ComputeRefund(paidOrder(), &half, usd(0))
		require.NoError(t, err)

		assert.Equal(t, int64(4500), bd.TicketPortion.MinorUnits)
		assert.Equal(t, int64(225), bd.FeePortion.MinorUnits)
		assert.Equal(t, bd.Amount.MinorUnits, bd.TicketPortion.MinorUnits+bd.FeePortion.MinorUnits)
	})

	t.Run("conservation holds for awkward amounts", func(t *testing.T) {
		for _, req := range []int64{1, 3, 333, 1234, 9449} {
			amt := usd(req)
			bd, err := ComputeRefund(paidOrder(), &amt, usd(0))
			require.NoError(t, err)
			assert.Equal(t, req, bd.TicketPortion.MinorUnits+bd.FeePortion.MinorUnits)
		}
	})

	t.Run("prior refunds shrink the envelope", func(t *testing.T) {
		bd, err := ComputeRefund(paidOrder(), nil, usd(4725))
		require.NoError(t, err)
		assert.Equal(t, int64(4725), bd.Amount.MinorUnits)
	})

	t.Run("over-refund rejected, not clamped", func(t *testing.T) {
		req := usd(5000)
		_, err := ComputeRefund(paidOrder(), &req, usd(4725))
		assert.ErrorIs(t, err, ErrRefundExceedsRemaining)
	})

	t.Run("nothing left to refund", func(t *testing.T) {
		_, err := ComputeRefund(paidOrder(), nil, usd(9450))
		assert.ErrorIs(t, err, ErrRefundExceedsRemaining)
	})

	t.Run("zero and negative requests rejected", func(t *testing.T) {
		zero := usd(0)
		_, err := ComputeRefund(paidOrder(), &zero, usd(0))
		assert.ErrorIs(t, err, money.ErrInvalidAmount)

		neg := money.Amount{MinorUnits: -100, Currency: money.USD}
		_, err = ComputeRefund(paidOrder(), &neg, usd(0))
		assert.ErrorIs(t, err, money.ErrInvalidAmount)
	})

	t.Run("currency mismatch rejected", func(t *testing.T) {
		req := jpy(100)
		_, err := ComputeRefund(paidOrder(), &req, usd(0))
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})

	t.Run("fee-free order refunds ticket only", func(t *testing.T) {
		ord := &domain.Order{
			Currency:    money.JPY,
			TicketPrice: jpy(4500),
			PlatformFee: jpy(0),
			Amount:      jpy(4500),
			Status:      domain.OrderPaid,
		}

		bd, err := ComputeRefund(ord, nil, jpy(0))
		require.NoError(t, err)
		assert.Equal(t, int64(4500), bd.TicketPortion.MinorUnits)
		assert.Equal(t, int64(0), bd.FeePortion.MinorUnits)
	})
}

func TestRefundSequencesNeverExceedOrderAmount(t *testing.T) {
	// Simulate the workflow: each refund recomputes against the running
	// refunded total; the calculator must reject the first violating step.
	order := paidOrder()
	refunded := usd(0)

	for _, step := range []int64{4000, 4000, 4000} {
		req := usd(step)
		bd, err := ComputeRefund(order, &req, refunded)
		if err != nil {
			assert.ErrorIs(t, err, ErrRefundExceedsRemaining)
			assert.Greater(t, refunded.MinorUnits+step, order.Amount.MinorUnits)
			return
		}
		refunded.MinorUnits += bd.Amount.MinorUnits
		assert.LessOrEqual(t, refunded.MinorUnits, order.Amount.MinorUnits)
	}

	t.Fatal("expected the third refund to be rejected")
}
