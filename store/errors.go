package store

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a unique constraint was violated.
	ErrConflict = errors.New("record already exists")

	// ErrTransient indicates a backing-store I/O failure that may succeed on
	// retry. Reads are retried internally; writes surface this to the caller.
	ErrTransient = errors.New("transient store failure")
)
