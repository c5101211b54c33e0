package pricing

import (
	"github.com/communahq/communa/internal/money"
)

// FeePolicy is external configuration: the platform's cut and the
// payment processor's published formula, all in integer basis points
// and minor units.
type FeePolicy struct {
	PlatformFeeBps    int64
	ProcessorFeeBps   int64
	ProcessorFeeFixed int64
}

// OrderBreakdown is the immutable fee decomposition attached to an
// order at capture time. Amount (ticket price + platform fee) is the
// refundable envelope; the processor fee rides on top of the charged
// total and is not refunded.
type OrderBreakdown struct {
	TicketPrice     money.Amount `json:"ticket_price"`
	PlatformFee     money.Amount `json:"platform_fee"`
	ProcessorFee    money.Amount `json:"processor_fee"`
	Amount          money.Amount `json:"amount"`
	TotalCharged    money.Amount `json:"total_charged"`
	OrganizerPayout money.Amount `json:"organizer_payout"`
}

// ComputeBreakdown decomposes a base ticket price into fees and payout.
// Platform fee = base * rate, half-up. Processor fee = fixed + pct of
// the charged total, half-up, added on top; it is zero when no charge is
// made (zero base means a free order that never reaches the processor).
// Net organizer payout = base - platform fee.
func ComputeBreakdown(base money.Amount, fees FeePolicy) OrderBreakdown {
	platformFee := base.MulRate(fees.PlatformFeeBps)

	amount := money.Amount{
		MinorUnits: base.MinorUnits + platformFee.MinorUnits,
		Currency:   base.Currency,
	}

	processorFee := money.Zero(base.Currency)
	if !base.IsZero() {
		processorFee = amount.MulRate(fees.ProcessorFeeBps)
		processorFee.MinorUnits += fees.ProcessorFeeFixed
	}

	return OrderBreakdown{
		TicketPrice:  base,
		PlatformFee:  platformFee,
		ProcessorFee: processorFee,
		Amount:       amount,
		TotalCharged: money.Amount{
			MinorUnits: amount.MinorUnits + processorFee.MinorUnits,
			Currency:   base.Currency,
		},
		OrganizerPayout: money.Amount{
			MinorUnits: base.MinorUnits - platformFee.MinorUnits,
			Currency:   base.Currency,
		},
	}
}
