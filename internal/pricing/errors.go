package pricing

import "errors"

// Rejection reasons. All of these are deterministic verdicts on the
// input, never retried; each maps to a distinct user-facing message at
// the transport layer.
var (
	ErrEmptyCart              = errors.New("cart has no selections")
	ErrTierNotFound           = errors.New("ticket tier not found")
	ErrTierNotOnSale          = errors.New("ticket tier is not on sale")
	ErrTierSoldOut            = errors.New("ticket tier is sold out")
	ErrQuantityOutOfBounds    = errors.New("quantity outside tier order limits")
	ErrDiscountNotFound       = errors.New("discount code not found")
	ErrDiscountNotYetActive   = errors.New("discount code is not yet active")
	ErrDiscountExpired        = errors.New("discount code has expired")
	ErrDiscountExhausted      = errors.New("discount code usage limit reached")
	ErrDiscountNotApplicable  = errors.New("discount code does not apply to selected tiers")
	ErrDiscountMinimumNotMet  = errors.New("cart subtotal below discount minimum purchase")
	ErrRefundExceedsRemaining = errors.New("refund exceeds remaining refundable amount")
)
