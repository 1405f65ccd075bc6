package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")
	ErrInvalidMarket = errors.New("invalid market")
	ErrMarketClosed  = errors.New("market is not active")
	ErrCouncilFailed = errors.New("all council members failed to generate predictions")
)
