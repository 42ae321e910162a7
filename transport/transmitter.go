// Package transport implements the delivery strategies that push a batch of
// events to the ingestion endpoint: a retrying primary transmitter, an
// unload-safe fallback, and an optional durable spill strategy for extended
// outages.
package transport

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the wire representation of a single captured event.
type Event struct {
	EventID        uuid.UUID      `json:"eventId"`
	ProjectID      string         `json:"projectId"`
	ClientID       string         `json:"clientId"`
	SessionID      string         `json:"sessionId"`
	UserID         string         `json:"userId,omitempty"`
	Type           string         `json:"type"`
	Timestamp      int64          `json:"timestamp"`
	URL            string         `json:"url"`
	Referrer       string         `json:"referrer"`
	PageWidth      int            `json:"pageWidth"`
	PageHeight     int            `json:"pageHeight"`
	ViewportWidth  int            `json:"viewportWidth"`
	ViewportHeight int            `json:"viewportHeight"`
	Properties     map[string]any `json:"properties,omitempty"`
}

// Batch is a group of events flushed together, identified and timestamped
// at flush time.
type Batch struct {
	BatchID   uuid.UUID `json:"batchId"`
	Timestamp int64     `json:"timestamp"`
	Events    []Event   `json:"events"`
}

// Transmitter is a pluggable strategy for delivering a batch to the
// ingestion endpoint. Implementations are tried in descending Priority
// order; the batching queue stops at the first one that succeeds.
type Transmitter interface {
	// IsAvailable reports whether this transmitter can currently be used
	// (e.g. the fallback beacon API might be unsupported in some contexts).
	IsAvailable() bool

	// Send delivers batch, blocking until success, exhaustion of retries,
	// or ctx cancellation.
	Send(ctx context.Context, batch Batch) error

	// Priority orders transmitter selection; higher values are tried first.
	Priority() int
}

// nowMillis is split out so tests can't accidentally depend on wall-clock
// behavior beyond what's under test.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
