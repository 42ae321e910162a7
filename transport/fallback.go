package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FallbackPriority is the priority of the unload-safe fallback transmitter.
const FallbackPriority = 5

// fallbackSendTimeout bounds the fire-and-forget request; unload-time
// delivery has no room for retries.
const fallbackSendTimeout = 2 * time.Second

// FallbackTransmitter makes a single best-effort delivery attempt with no
// retry, intended for use during page/process teardown where a long-lived
// retry loop cannot run to completion.
type FallbackTransmitter struct {
	endpoint   string
	httpClient *http.Client
}

// NewFallbackTransmitter constructs a FallbackTransmitter targeting endpoint.
func NewFallbackTransmitter(endpoint string) *FallbackTransmitter {
	return &FallbackTransmitter{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: fallbackSendTimeout},
	}
}

// IsAvailable always reports true.
func (t *FallbackTransmitter) IsAvailable() bool { return true }

// Priority implements Transmitter.
func (t *FallbackTransmitter) Priority() int { return FallbackPriority }

// Send implements Transmitter, making exactly one attempt with no retry.
func (t *FallbackTransmitter) Send(ctx context.Context, batch Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("transport: marshal batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, fallbackSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport: build fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport: fallback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transport: fallback unexpected status %d", resp.StatusCode)
	}
	return nil
}
