// Package batch implements the in-memory batching queue that accumulates
// events and flushes them to a transmitter chain on a size or time trigger.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omnitrack/tracker-core/internal/asyncutil"
	"github.com/omnitrack/tracker-core/internal/corelog"
	"github.com/omnitrack/tracker-core/transport"
)

// State is the lifecycle state of a Queue.
type State int32

const (
	// StateActive accepts events and flushes on trigger.
	StateActive State = iota
	// StateDestroyed rejects further adds; destroy is terminal.
	StateDestroyed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// ErrDestroyed is returned by Add and Flush once the queue has been destroyed.
var ErrDestroyed = errors.New("batch: queue is destroyed")

// Queue buffers events in the order received and flushes them, as a single
// Batch, to the first available transmitter willing to accept it. It is
// safe for concurrent use.
type Queue struct {
	mu           sync.Mutex
	pending      []transport.Event
	timer        *time.Timer
	transmitters []transport.Transmitter

	batchSize      int
	batchTimeout   time.Duration
	state          atomic.Int32
	logger         *slog.Logger
	onFlushError   func(err error)
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger attaches a logger; the default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithFlushErrorHandler registers a callback invoked when every transmitter
// in the chain fails and a batch is discarded.
func WithFlushErrorHandler(fn func(err error)) Option {
	return func(q *Queue) { q.onFlushError = fn }
}

// New constructs a Queue with the given size/time flush thresholds and
// transmitter chain. Transmitters are sorted by descending priority once,
// at construction.
func New(batchSize int, batchTimeout time.Duration, transmitters []transport.Transmitter, opts ...Option) *Queue {
	sorted := append([]transport.Transmitter{}, transmitters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})

	q := &Queue{
		pending:      make([]transport.Event, 0, batchSize),
		transmitters: sorted,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		logger:       corelog.Noop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add appends event to the pending sequence. If the sequence reaches
// batchSize it flushes immediately; otherwise, if no timer is pending, it
// arms one so the batch flushes after batchTimeout even if it never fills.
// A timer that is already pending is left as it is.
func (q *Queue) Add(ctx context.Context, event transport.Event) error {
	if State(q.state.Load()) == StateDestroyed {
		return ErrDestroyed
	}

	q.mu.Lock()
	q.pending = append(q.pending, event)
	full := len(q.pending) >= q.batchSize
	if !full && q.timer == nil {
		q.timer = time.AfterFunc(q.batchTimeout, func() {
			_ = q.Flush(context.Background())
		})
	}
	q.mu.Unlock()

	if full {
		return q.Flush(ctx)
	}
	return nil
}

// Flush atomically snapshots and clears the pending sequence into a new
// Batch, cancels any scheduled timer, and sends it through the transmitter
// chain, blocking until the send attempt completes; FlushAsync is the
// non-blocking form. Calling Flush on an empty queue is a no-op that
// returns nil immediately.
func (q *Queue) Flush(ctx context.Context) error {
	if State(q.state.Load()) == StateDestroyed {
		return ErrDestroyed
	}

	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return nil
	}
	events := q.pending
	q.pending = make([]transport.Event, 0, q.batchSize)
	q.mu.Unlock()

	batch := transport.Batch{
		BatchID:   uuid.New(),
		Timestamp: time.Now().UnixMilli(),
		Events:    events,
	}

	return q.send(ctx, batch)
}

// FlushAsync is Flush, returning a Future instead of blocking the caller.
func (q *Queue) FlushAsync(ctx context.Context) *asyncutil.Future {
	return asyncutil.Run(ctx, q.Flush)
}

// send walks the priority-sorted transmitter list, stopping at the first
// available transmitter that accepts the batch. If every transmitter fails
// or none is available, the batch is logged, reported to the flush error
// handler, and discarded rather than re-enqueued, to avoid unbounded memory
// growth under persistent outage. send still returns nil in that case, so a
// flush never fails because delivery failed.
func (q *Queue) send(ctx context.Context, b transport.Batch) error {
	var lastErr error

	for _, tx := range q.transmitters {
		if !tx.IsAvailable() {
			continue
		}
		if err := tx.Send(ctx, b); err != nil {
			lastErr = err
			q.logger.Debug("transmitter failed, trying next",
				corelog.Error(err), corelog.Priority(tx.Priority()))
			continue
		}
		q.logger.Debug("batch sent", corelog.BatchSize(len(b.Events)), corelog.Priority(tx.Priority()))
		return nil
	}

	q.logger.Warn("all transmitters exhausted, discarding batch",
		corelog.BatchSize(len(b.Events)), corelog.Error(lastErr))
	if q.onFlushError != nil {
		q.onFlushError(lastErr)
	}
	return nil
}

// Clear drops all pending events without sending them, canceling any
// scheduled flush.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = q.pending[:0]
}

// Size returns the number of events currently pending.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// State returns the queue's current lifecycle state.
func (q *Queue) State() State {
	return State(q.state.Load())
}

// Destroy cancels any pending timer, attempts one final best-effort flush,
// and marks the queue destroyed. Subsequent Add/Flush calls fail with
// ErrDestroyed.
func (q *Queue) Destroy(ctx context.Context) error {
	if !q.state.CompareAndSwap(int32(StateActive), int32(StateDestroyed)) {
		return nil
	}

	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	events := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	batch := transport.Batch{
		BatchID:   uuid.New(),
		Timestamp: time.Now().UnixMilli(),
		Events:    events,
	}
	return q.send(ctx, batch)
}
