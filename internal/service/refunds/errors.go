package refunds

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrMultiTierOrder = errors.New("order spans multiple tiers")
	ErrSameTier       = errors.New("target tier equals current tier")
)
