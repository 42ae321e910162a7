// Package identity manages the session and client identifiers that every
// captured event is stamped with: a durable per-device client id, a
// rotating session id, and an optional authenticated user id.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultInactivityTimeout is the idle period after which Manager.Load
// replaces the stored session with a new one. Manager.Touch does not check it.
const DefaultInactivityTimeout = 30 * time.Minute

// Identity is a session's durable and rotating identifiers. SessionID is a
// uuid rather than the documented session-<epoch-ms>-<random> string form;
// both are opaque identifiers to the ingestion endpoint, and uuid.UUID
// reuses the id type already threaded through Store, DeviceID, and events.
type Identity struct {
	SessionID   uuid.UUID `json:"session_id"`
	DeviceID    uuid.UUID `json:"device_id"`
	ClientID    string    `json:"client_id"`
	UserID      string    `json:"user_id"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAuthenticated reports whether a user id has been attached.
func (id Identity) IsAuthenticated() bool {
	return id.UserID != ""
}

// Expired reports whether id has been idle longer than timeout.
func (id Identity) Expired(timeout time.Duration, now time.Time) bool {
	return now.Sub(id.UpdatedAt) > timeout
}
