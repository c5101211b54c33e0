package admin

import "errors"

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrTierNotFound   = errors.New("tier not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrCodeExists     = errors.New("discount code already exists")
	ErrRuleExists     = errors.New("group rule already exists for this quantity")
	ErrCurrencyMixing = errors.New("tier currency differs from event currency")
)
