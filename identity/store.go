package identity

import "context"

// Store persists identities keyed by the configured session-storage key
// (analogous to the browser's localStorage key the original SDK used).
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the identity stored under key.
	// Returns ErrNotFound if no identity is stored.
	Get(ctx context.Context, key string) (Identity, error)

	// Save persists id under key, overwriting any previous value.
	Save(ctx context.Context, key string, id Identity) error

	// Delete removes the identity stored under key, if any.
	Delete(ctx context.Context, key string) error
}
