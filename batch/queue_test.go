package batch_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/tracker-core/batch"
	"github.com/omnitrack/tracker-core/transport"
)

type recordingTransmitter struct {
	priority  int
	available bool
	fail      bool
	sent      []transport.Batch
}

func (r *recordingTransmitter) IsAvailable() bool { return r.available }
func (r *recordingTransmitter) Priority() int     { return r.priority }
func (r *recordingTransmitter) Send(_ context.Context, b transport.Batch) error {
	if r.fail {
		return assert.AnError
	}
	r.sent = append(r.sent, b)
	return nil
}

func event(name string) transport.Event {
	return transport.Event{EventID: uuid.New(), Type: "custom", Properties: map[string]any{"name": name}}
}

func TestQueue_FlushesOnBatchSizeThreshold(t *testing.T) {
	tx := &recordingTransmitter{priority: 10, available: true}
	q := batch.New(3, time.Hour, []transport.Transmitter{tx})

	require.NoError(t, q.Add(context.Background(), event("a")))
	require.NoError(t, q.Add(context.Background(), event("b")))
	assert.Equal(t, 2, q.Size())

	require.NoError(t, q.Add(context.Background(), event("c")))

	require.Len(t, tx.sent, 1)
	assert.Len(t, tx.sent[0].Events, 3)
	assert.Equal(t, 0, q.Size())
}

func TestQueue_FlushOnEmptyQueueIsNoop(t *testing.T) {
	tx := &recordingTransmitter{priority: 10, available: true}
	q := batch.New(50, time.Hour, []transport.Transmitter{tx})

	require.NoError(t, q.Flush(context.Background()))
	assert.Empty(t, tx.sent)
}

func TestQueue_FallsBackToLowerPriorityTransmitter(t *testing.T) {
	primary := &recordingTransmitter{priority: 10, available: true, fail: true}
	fallback := &recordingTransmitter{priority: 5, available: true}

	q := batch.New(1, time.Hour, []transport.Transmitter{fallback, primary})
	require.NoError(t, q.Add(context.Background(), event("a")))

	assert.Empty(t, primary.sent)
	require.Len(t, fallback.sent, 1)
}

func TestQueue_DiscardsBatchWhenAllTransmittersFail(t *testing.T) {
	tx := &recordingTransmitter{priority: 10, available: true, fail: true}

	var called int32
	q := batch.New(1, time.Hour, []transport.Transmitter{tx},
		batch.WithFlushErrorHandler(func(err error) { atomic.AddInt32(&called, 1) }))

	require.NoError(t, q.Add(context.Background(), event("a")))
	assert.Equal(t, int32(1), atomic.LoadInt32(&called))
	assert.Equal(t, 0, q.Size())
}

func TestQueue_SkipsUnavailableTransmitters(t *testing.T) {
	unavailable := &recordingTransmitter{priority: 10, available: false}
	available := &recordingTransmitter{priority: 5, available: true}

	q := batch.New(1, time.Hour, []transport.Transmitter{unavailable, available})
	require.NoError(t, q.Add(context.Background(), event("a")))

	assert.Empty(t, unavailable.sent)
	require.Len(t, available.sent, 1)
}

func TestQueue_DestroyFlushesRemainingEvents(t *testing.T) {
	tx := &recordingTransmitter{priority: 10, available: true}
	q := batch.New(50, time.Hour, []transport.Transmitter{tx})

	require.NoError(t, q.Add(context.Background(), event("a")))
	require.NoError(t, q.Destroy(context.Background()))

	require.Len(t, tx.sent, 1)
	assert.Equal(t, batch.StateDestroyed, q.State())
}

func TestQueue_RejectsOperationsAfterDestroy(t *testing.T) {
	tx := &recordingTransmitter{priority: 10, available: true}
	q := batch.New(50, time.Hour, []transport.Transmitter{tx})

	require.NoError(t, q.Destroy(context.Background()))
	assert.ErrorIs(t, q.Add(context.Background(), event("a")), batch.ErrDestroyed)
	assert.ErrorIs(t, q.Flush(context.Background()), batch.ErrDestroyed)
}

func TestQueue_TimeThresholdFlushesEventually(t *testing.T) {
	tx := &recordingTransmitter{priority: 10, available: true}
	q := batch.New(50, 20*time.Millisecond, []transport.Transmitter{tx})

	require.NoError(t, q.Add(context.Background(), event("a")))
	assert.Eventually(t, func() bool {
		return len(tx.sent) == 1
	}, time.Second, 5*time.Millisecond)
}
