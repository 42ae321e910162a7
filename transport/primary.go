package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/omnitrack/tracker-core/internal/corelog"
)

// PrimaryPriority is the priority of the primary transmitter; it is always
// attempted first.
const PrimaryPriority = 10

// PrimaryTransmitter POSTs a batch as JSON to the configured endpoint,
// retrying transient failures with exponential backoff (2^attempt * 1s)
// up to a fixed retry budget, and aborting the in-flight request once the
// configured timeout elapses.
type PrimaryTransmitter struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

// PrimaryOption configures a PrimaryTransmitter.
type PrimaryOption func(*PrimaryTransmitter)

// WithHTTPClient overrides the HTTP client used to send requests.
func WithHTTPClient(client *http.Client) PrimaryOption {
	return func(t *PrimaryTransmitter) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithPrimaryLogger attaches a logger; the default discards all output.
func WithPrimaryLogger(logger *slog.Logger) PrimaryOption {
	return func(t *PrimaryTransmitter) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewPrimaryTransmitter constructs a PrimaryTransmitter targeting endpoint,
// with the given request timeout and retry budget.
func NewPrimaryTransmitter(endpoint string, timeout time.Duration, maxRetries int, opts ...PrimaryOption) *PrimaryTransmitter {
	t := &PrimaryTransmitter{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     corelog.Noop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsAvailable always reports true; the primary transmitter has no external
// precondition beyond network reachability, which Send itself accounts for.
func (t *PrimaryTransmitter) IsAvailable() bool { return true }

// Priority implements Transmitter.
func (t *PrimaryTransmitter) Priority() int { return PrimaryPriority }

// Send implements Transmitter.
func (t *PrimaryTransmitter) Send(ctx context.Context, batch Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("transport: marshal batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0 // deterministic 2^attempt*1s backoff, no jitter
	bo.MaxElapsedTime = 0      // bounded by maxRetries below, not elapsed time
	retrier := backoff.WithMaxRetries(bo, uint64(t.maxRetries))
	retrier = backoff.WithContext(retrier, ctx)

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		sendErr := t.post(ctx, payload)
		if sendErr != nil {
			t.logger.Debug("primary transmitter attempt failed",
				corelog.Error(sendErr), corelog.RetryCount(attempt))
		}
		return sendErr
	}, retrier)

	if err != nil {
		return fmt.Errorf("transport: primary send failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func (t *PrimaryTransmitter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("transport: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transport: unexpected status %d", resp.StatusCode)
	}
	return nil
}
