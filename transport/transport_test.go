package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/tracker-core/transport"
)

func sampleBatch() transport.Batch {
	return transport.Batch{
		BatchID:   uuid.New(),
		Timestamp: time.Now().UnixMilli(),
		Events: []transport.Event{
			{EventID: uuid.New(), ProjectID: "p1", ClientID: "c1", SessionID: "s1", Type: "custom"},
		},
	}
}

func TestPrimaryTransmitter_SucceedsOnFirstAttempt(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var decoded transport.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		assert.Len(t, decoded.Events, 1)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	tx := transport.NewPrimaryTransmitter(server.URL, 2*time.Second, 3)
	err := tx.Send(context.Background(), sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPrimaryTransmitter_RetriesTransientFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tx := transport.NewPrimaryTransmitter(server.URL, 5*time.Second, 5)
	err := tx.Send(context.Background(), sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestPrimaryTransmitter_FailsAfterRetryBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tx := transport.NewPrimaryTransmitter(server.URL, 5*time.Second, 1)
	err := tx.Send(context.Background(), sampleBatch())
	require.Error(t, err)
}

func TestPrimaryTransmitter_Priority(t *testing.T) {
	tx := transport.NewPrimaryTransmitter("https://e.example/", time.Second, 1)
	assert.Equal(t, transport.PrimaryPriority, tx.Priority())
	assert.True(t, tx.IsAvailable())
}

func TestFallbackTransmitter_SingleAttemptNoRetry(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tx := transport.NewFallbackTransmitter(server.URL)
	err := tx.Send(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, transport.FallbackPriority, tx.Priority())
}
