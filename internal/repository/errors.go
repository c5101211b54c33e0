package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrTierSoldOut       = errors.New("tier sold out")
	ErrDiscountExhausted = errors.New("discount code exhausted")
)
