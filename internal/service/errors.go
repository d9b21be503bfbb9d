package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidQuote      = errors.New("quote price must be positive")
	ErrInvalidTransition = errors.New("invalid delete request transition")
	ErrNoDeleteRequest   = errors.New("no such delete request")
)

type StoreOp string

const (
	OpList   StoreOp = "list"
	OpCreate StoreOp = "create"
	OpDelete StoreOp = "delete"
)

// QuoteLookupError is a failed price lookup for one symbol. It never aborts
// a refresh cycle.
type QuoteLookupError struct {
	Symbol string
	Err    error
}

func (e *QuoteLookupError) Error() string {
	return fmt.Sprintf("quote lookup for %s failed: %v", e.Symbol, e.Err)
}

func (e *QuoteLookupError) Unwrap() error { return e.Err }

// StoreOperationError is a rejected call to the holdings store.
type StoreOperationError struct {
	Op     StoreOp
	Symbol string
	Err    error
}

func (e *StoreOperationError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s failed: %v", e.Op, e.Symbol, e.Err)
}

func (e *StoreOperationError) Unwrap() error { return e.Err }

type DeleteFailure struct {
	Symbol string `json:"symbol"`
	Err    error  `json:"-"`
}

// BulkDeleteError reports the symbols a bulk delete could not remove. Symbols
// in Deleted stay deleted.
type BulkDeleteError struct {
	Deleted []string
	Failed  []DeleteFailure
}

func (e *BulkDeleteError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s (%v)", f.Symbol, f.Err))
	}
	return fmt.Sprintf("deleted %d of %d holdings; failed: %s",
		len(e.Deleted), len(e.Deleted)+len(e.Failed), strings.Join(parts, ", "))
}

func (e *BulkDeleteError) FailedSymbols() []string {
	out := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f.Symbol)
	}
	return out
}

type NoticeKind string

const NoticeQuoteLookupFailure NoticeKind = "quote_lookup_failure"

// Notice is a non-fatal problem recorded during a refresh cycle.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Symbol  string     `json:"symbol"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}
