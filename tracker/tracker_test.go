package tracker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/tracker-core/config"
	"github.com/omnitrack/tracker-core/identity"
	"github.com/omnitrack/tracker-core/tracker"
	"github.com/omnitrack/tracker-core/transport"
)

type recordingTransmitter struct {
	mu    sync.Mutex
	sent  []transport.Batch
}

func (r *recordingTransmitter) IsAvailable() bool { return true }
func (r *recordingTransmitter) Priority() int     { return 10 }
func (r *recordingTransmitter) Send(_ context.Context, b transport.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, b)
	return nil
}
func (r *recordingTransmitter) batches() []transport.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Batch{}, r.sent...)
}

func newTestTracker(t *testing.T, batchSize int) (*tracker.Tracker, *recordingTransmitter) {
	t.Helper()

	cfg, err := config.New("p1", "https://ingest.example/", config.WithBatchSize(batchSize), config.WithBatchTimeout(60_000))
	require.NoError(t, err)

	idMgr, err := identity.NewManager(identity.NewMemoryStore(), cfg.SessionStorageKey())
	require.NoError(t, err)

	tx := &recordingTransmitter{}
	tr := tracker.New(cfg, idMgr, []transport.Transmitter{tx})
	return tr, tx
}

func TestTracker_TrackPageView_FlushesOnBatchSize(t *testing.T) {
	tr, tx := newTestTracker(t, 1)
	require.NoError(t, tr.TrackPageView(context.Background(), true))

	batches := tx.batches()
	require.Len(t, batches, 1)
	evt := batches[0].Events[0]
	assert.Equal(t, tracker.EventTypePageView, evt.Type)
	assert.Equal(t, "p1", evt.ProjectID)
	assert.Equal(t, true, evt.Properties["isInitialLoad"])
}

func TestTracker_TrackPageView_DerivesRouteFromPageContextURL(t *testing.T) {
	cfg, err := config.New("p1", "https://ingest.example/", config.WithBatchSize(1), config.WithBatchTimeout(0))
	require.NoError(t, err)
	idMgr, err := identity.NewManager(identity.NewMemoryStore(), cfg.SessionStorageKey())
	require.NoError(t, err)

	tx := &recordingTransmitter{}
	tr := tracker.New(cfg, idMgr, []transport.Transmitter{tx}, tracker.WithPageContextProvider(func() tracker.PageContext {
		return tracker.PageContext{URL: "https://app.example/x?q=1", Title: "Page X"}
	}))

	require.NoError(t, tr.TrackPageView(context.Background(), false))

	batches := tx.batches()
	require.Len(t, batches, 1)
	props := batches[0].Events[0].Properties
	assert.Equal(t, "/x", props["route"])
	assert.Equal(t, "Page X", props["title"])
	assert.Equal(t, false, props["isInitialLoad"])
}

func TestTracker_BatchThresholdFlushesExactlyOnce(t *testing.T) {
	tr, tx := newTestTracker(t, 3)
	ctx := context.Background()

	require.NoError(t, tr.TrackCustom(ctx, "a", nil))
	require.NoError(t, tr.TrackCustom(ctx, "b", nil))
	assert.Empty(t, tx.batches())

	require.NoError(t, tr.TrackCustom(ctx, "c", nil))

	batches := tx.batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Events, 3)
	assert.Equal(t, "a", batches[0].Events[0].Properties["name"])
	assert.Equal(t, "b", batches[0].Events[1].Properties["name"])
	assert.Equal(t, "c", batches[0].Events[2].Properties["name"])
}

func TestTracker_PauseDropsEventsUntilResume(t *testing.T) {
	tr, tx := newTestTracker(t, 1)
	ctx := context.Background()

	tr.Pause()
	require.NoError(t, tr.TrackPageView(ctx, false))
	assert.Empty(t, tx.batches())

	tr.Resume()
	require.NoError(t, tr.TrackPageView(ctx, false))
	assert.Len(t, tx.batches(), 1)
}

func TestTracker_DestroyFlushesAndRejectsFurtherCalls(t *testing.T) {
	tr, tx := newTestTracker(t, 50)
	ctx := context.Background()

	require.NoError(t, tr.TrackCustom(ctx, "pending", nil))
	require.NoError(t, tr.Destroy(ctx))

	assert.Len(t, tx.batches(), 1)
	assert.ErrorIs(t, tr.TrackPageView(ctx, false), tracker.ErrDestroyed)
	assert.Equal(t, tracker.StateDestroyed, tr.State())
}

func TestTracker_EnrichmentStampsIdentityAndConfig(t *testing.T) {
	tr, tx := newTestTracker(t, 1)
	ctx := context.Background()

	require.NoError(t, tr.SetUserID(ctx, "user-9"))
	sessionID, err := tr.GetSessionID(ctx)
	require.NoError(t, err)

	require.NoError(t, tr.TrackCustom(ctx, "evt", nil))

	batches := tx.batches()
	require.Len(t, batches, 1)
	evt := batches[0].Events[0]
	assert.Equal(t, "user-9", evt.UserID)
	assert.Equal(t, sessionID, evt.SessionID)
	assert.NotEqual(t, "", evt.EventID.String())
}

func TestTracker_NewSessionRotatesIDButKeepsTrackerUsable(t *testing.T) {
	tr, _ := newTestTracker(t, 50)
	ctx := context.Background()

	first, err := tr.GetSessionID(ctx)
	require.NoError(t, err)

	second, err := tr.NewSession(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTracker_FlushIsIdleSafe(t *testing.T) {
	tr, _ := newTestTracker(t, 50)
	require.NoError(t, tr.Flush(context.Background()))
}

func TestTracker_TimeBasedFlushEventually(t *testing.T) {
	cfg, err := config.New("p1", "https://ingest.example/", config.WithBatchSize(50), config.WithBatchTimeout(20))
	require.NoError(t, err)
	idMgr, err := identity.NewManager(identity.NewMemoryStore(), cfg.SessionStorageKey())
	require.NoError(t, err)

	tx := &recordingTransmitter{}
	tr := tracker.New(cfg, idMgr, []transport.Transmitter{tx})

	require.NoError(t, tr.TrackPageView(context.Background(), true))
	assert.Eventually(t, func() bool {
		return len(tx.batches()) == 1
	}, time.Second, 5*time.Millisecond)
}
