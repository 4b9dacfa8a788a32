package dca

import "errors"

// Sentinel errors returned by ledger and codec operations.
var (
	// ErrInvalidInput is returned when an amount or a price is not strictly positive.
	ErrInvalidInput = errors.New("dca: invalid input")
	// ErrNotFound is returned when an entry id does not exist in the ledger.
	ErrNotFound = errors.New("dca: entry not found")
	// ErrUnrecognizedFormat is returned by imports when neither JSON nor CSV yields an entry.
	ErrUnrecognizedFormat = errors.New("dca: unrecognized import format")
)
