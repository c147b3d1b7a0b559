package persistence

import "errors"

var (
	// ErrCorrupted is returned when the stored snapshot cannot be decoded.
	// Callers treat a corrupt snapshot as an empty cache, never as fatal.
	ErrCorrupted = errors.New("persistence: snapshot corrupted")
)
