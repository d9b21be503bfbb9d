package models

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired means the bearer token is missing or was rejected. The
	// session must re-authenticate before any further call.
	ErrAuthExpired = errors.New("authentication expired")

	ErrHoldingNotFound = errors.New("holding not found")
	ErrDuplicateSymbol = errors.New("symbol already held")
	ErrUnknownSymbol   = errors.New("unknown symbol")
)

// ValidationError reports malformed mutation input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
