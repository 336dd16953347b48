package store

import "errors"

// Domain errors for the decode history store.
var (
	// ErrNotFound is returned when a device has never been recorded.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidTransaction is returned when a transaction lacks a run ID
	// or address.
	ErrInvalidTransaction = errors.New("store: invalid transaction")
)
