package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPaymentUnverified  = errors.New("payment not verified by provider")
	ErrCheckoutExpired    = errors.New("checkout session expired")
	ErrRateLimited        = errors.New("too many requests")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
