package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidLocator = errors.New("invalid locator")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrWindowTooLong  = errors.New("requested interval is too long")
	ErrInvalidUsage   = errors.New("invalid usage")
)
