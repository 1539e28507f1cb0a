package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist,
	// or when a state store has not been initialized.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists: a second genesis, a reused mint id or
	// a replayed event.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when another writer advanced the persisted
	// ledger since this process loaded it.
	ErrConflict = errors.New("conflict: persisted state changed concurrently")
)
