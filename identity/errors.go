package identity

import "errors"

var (
	// ErrNotFound is returned when an identity cannot be located in the store.
	ErrNotFound = errors.New("identity: not found")
	// ErrNoStore is returned by NewManager when no Store was supplied.
	ErrNoStore = errors.New("identity: no store configured")
)
