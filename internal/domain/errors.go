package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrSessionLimit      = errors.New("session_limit_reached")
	ErrDuplicateOrderRef = errors.New("duplicate_order_ref")
	ErrFillNotFound      = errors.New("fill_not_found")
	ErrQuoteNotFound     = errors.New("quote_not_found")
	ErrInvalidUniverse   = errors.New("invalid_universe")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
