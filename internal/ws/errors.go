package ws

import (
	"errors"

	"chatapp_backend/store"
)

// Coordination failures beyond what the store reports. Precondition
// violations never mutate state and are reported to the caller only.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidOperation = errors.New("invalid operation")

	// Re-exported so dispatch code matches one package's sentinels.
	ErrNotFound  = store.ErrNotFound
	ErrConflict  = store.ErrConflict
	ErrTransient = store.ErrTransient
)
