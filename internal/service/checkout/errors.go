package checkout

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrRateLimited   = errors.New("rate limited")
)
