package domain

import "errors"

var (
	ErrInvalidOrderbook = errors.New("invalid orderbook")
	ErrInvalidRate      = errors.New("invalid exchange rate")
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrLockHeld         = errors.New("lock already held")
)
