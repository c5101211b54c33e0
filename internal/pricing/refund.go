package pricing

import (
	"fmt"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// RefundBreakdown allocates a refund between the ticket price and the
// platform fee. TicketPortion + FeePortion == Amount exactly; nothing is
// lost or gained to rounding. The organizer is charged back only the
// ticket portion, the platform absorbs the fee portion.
type RefundBreakdown struct {
	Amount          money.Amount `json:"amount"`
	TicketPortion   money.Amount `json:"ticket_portion"`
	FeePortion      money.Amount `json:"fee_portion"`
	OrganizerImpact money.Amount `json:"organizer_impact"`
}

// ComputeRefund builds the breakdown for a refund request against an
// order. requested == nil means a full refund of whatever remains.
// A request exceeding order.Amount - alreadyRefunded is rejected with
// ErrRefundExceedsRemaining, never silently clamped. The split between
// ticket and fee portions follows the original breakdown ratio via
// weighted allocation, so partial refunds conserve units exactly.
func ComputeRefund(
	order *domain.Order,
	requested *money.Amount,
	alreadyRefunded money.Amount,
) (*RefundBreakdown, error) {
	const op = "pricing.ComputeRefund"

	remaining, err := order.Amount.Sub(alreadyRefunded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if remaining.IsNegative() {
		return nil, fmt.Errorf("%s: refunded total exceeds order amount: %w", op, ErrRefundExceedsRemaining)
	}

	var refund money.Amount
	if requested == nil {
		refund = remaining
	} else {
		if requested.Currency != order.Currency {
			return nil, fmt.Errorf("%s: %w", op, money.ErrCurrencyMismatch)
		}
		if requested.MinorUnits <= 0 {
			return nil, fmt.Errorf("%s: %w", op, money.ErrInvalidAmount)
		}
		if requested.MinorUnits > remaining.MinorUnits {
			return nil, fmt.Errorf("%s: %w", op, ErrRefundExceedsRemaining)
		}
		refund = *requested
	}

	if refund.IsZero() {
		return nil, fmt.Errorf("%s: nothing left to refund: %w", op, ErrRefundExceedsRemaining)
	}

	parts, err := refund.Allocate([]int64{
		order.TicketPrice.MinorUnits,
		order.PlatformFee.MinorUnits,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RefundBreakdown{
		Amount:          refund,
		TicketPortion:   parts[0],
		FeePortion:      parts[1],
		OrganizerImpact: parts[0],
	}, nil
}
