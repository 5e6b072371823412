package ports

import (
	"errors"
	"fmt"
)

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Portfolio Errors
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientShares = fmt.Errorf("%w: insufficient shares to sell", ErrValidation)
	ErrParse              = errors.New("malformed portfolio data")
	ErrNoTransactions     = errors.New("no valid transactions found")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
