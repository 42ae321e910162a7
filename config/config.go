// Package config defines the tracker's runtime configuration: the values an
// embedding host supplies at initialization, their defaults, and the
// validation that must pass before a tracker can be constructed.
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Defaults mirror the host initialization record's documented defaults.
const (
	DefaultBatchSize         = 50
	DefaultBatchTimeoutMS    = 10_000
	DefaultSessionStorageKey = "omni_session_id"
	DefaultSnapshotThrottle  = 3_000
	DefaultSnapshotInterval  = 60_000
	DefaultMaxSnapshotBytes  = 500_000
	DefaultSendTimeoutMS     = 30_000
	DefaultSendRetries       = 3
)

var (
	// ErrMissingProjectID is returned when no project id was supplied.
	ErrMissingProjectID = errors.New("config: projectId is required")
	// ErrMissingEndpoint is returned when no endpoint URL was supplied.
	ErrMissingEndpoint = errors.New("config: endpoint is required")
	// ErrInvalidEndpoint is returned when the endpoint is not a parsable absolute URL.
	ErrInvalidEndpoint = errors.New("config: endpoint must be an absolute URL")
)

// SnapshotConfig controls DOM snapshot capture behavior.
type SnapshotConfig struct {
	Enabled              bool
	CaptureInitial       bool
	CaptureMutations     bool
	MutationThrottleMS   int
	CapturePeriodic      bool
	PeriodicIntervalMS   int
	MaxSnapshotSizeBytes int
}

// DefaultSnapshotConfig returns the documented snapshot defaults; snapshot
// capture itself is off unless a host explicitly enables it.
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Enabled:              false,
		CaptureInitial:       true,
		CaptureMutations:     true,
		MutationThrottleMS:   DefaultSnapshotThrottle,
		CapturePeriodic:      false,
		PeriodicIntervalMS:   DefaultSnapshotInterval,
		MaxSnapshotSizeBytes: DefaultMaxSnapshotBytes,
	}
}

// PrivacyConfig controls DOM sanitization during snapshot capture.
type PrivacyConfig struct {
	BlockSelectors    []string
	MaskSelectors     []string
	DisableSnapshots  bool
	MaxNodeTextLength int
}

// DefaultPrivacyConfig returns the documented privacy defaults. Sensitive
// fields are always masked regardless of host configuration.
func DefaultPrivacyConfig() PrivacyConfig {
	return PrivacyConfig{
		MaxNodeTextLength: 200,
	}
}

// Config is the validated, immutable-except-for-identity configuration for a
// tracker instance. Construct it with New; the zero value is not usable.
type Config struct {
	projectID         string
	endpoint          string
	clientID          string
	userID            string
	batchSize         int
	batchTimeoutMS    int
	debug             bool
	sessionStorageKey string
	captureErrors     bool
	sendTimeoutMS     int
	sendRetries       int
	snapshot          SnapshotConfig
	privacy           PrivacyConfig
}

// Option customizes a Config during construction.
type Option func(*Config)

// WithClientID pins an explicit client id instead of auto-generating one.
func WithClientID(id string) Option {
	return func(c *Config) { c.clientID = id }
}

// WithUserID sets the authenticated user id at construction time.
func WithUserID(id string) Option {
	return func(c *Config) { c.userID = id }
}

// WithBatchSize overrides the auto-flush event-count threshold.
func WithBatchSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBatchTimeout overrides the auto-flush time threshold, in milliseconds.
func WithBatchTimeout(ms int) Option {
	return func(c *Config) {
		if ms >= 0 {
			c.batchTimeoutMS = ms
		}
	}
}

// WithDebug enables verbose logging.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.debug = debug }
}

// WithSessionStorageKey overrides the identity persistence key name.
func WithSessionStorageKey(key string) Option {
	return func(c *Config) {
		if key != "" {
			c.sessionStorageKey = key
		}
	}
}

// WithCaptureErrors toggles the reserved error-capture flag.
func WithCaptureErrors(enabled bool) Option {
	return func(c *Config) { c.captureErrors = enabled }
}

// WithSendTimeout overrides the primary transmitter's request timeout, in milliseconds.
func WithSendTimeout(ms int) Option {
	return func(c *Config) {
		if ms > 0 {
			c.sendTimeoutMS = ms
		}
	}
}

// WithSendRetries overrides the primary transmitter's retry budget.
func WithSendRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.sendRetries = n
		}
	}
}

// WithSnapshot overrides the snapshot sub-configuration.
func WithSnapshot(s SnapshotConfig) Option {
	return func(c *Config) { c.snapshot = s }
}

// WithPrivacy overrides the privacy sub-configuration.
func WithPrivacy(p PrivacyConfig) Option {
	return func(c *Config) { c.privacy = p }
}

// New validates projectID and endpoint and returns a Config seeded with
// defaults, applying opts on top. An empty clientID is auto-generated in
// the form "anon-<uuid>".
func New(projectID, endpoint string, opts ...Option) (*Config, error) {
	if projectID == "" {
		return nil, ErrMissingProjectID
	}
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Config{
		projectID:         projectID,
		endpoint:          endpoint,
		batchSize:         DefaultBatchSize,
		batchTimeoutMS:    DefaultBatchTimeoutMS,
		sessionStorageKey: DefaultSessionStorageKey,
		sendTimeoutMS:     DefaultSendTimeoutMS,
		sendRetries:       DefaultSendRetries,
		snapshot:          DefaultSnapshotConfig(),
		privacy:           DefaultPrivacyConfig(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.clientID == "" {
		c.clientID = "anon-" + uuid.New().String()
	}

	return c, nil
}

// ProjectID returns the tenant identifier.
func (c *Config) ProjectID() string { return c.projectID }

// Endpoint returns the ingestion endpoint URL.
func (c *Config) Endpoint() string { return c.endpoint }

// ClientID returns the current client identifier.
func (c *Config) ClientID() string { return c.clientID }

// SetClientID updates the client identifier.
func (c *Config) SetClientID(id string) { c.clientID = id }

// UserID returns the current authenticated user identifier, empty when anonymous.
func (c *Config) UserID() string { return c.userID }

// SetUserID updates the authenticated user identifier.
func (c *Config) SetUserID(id string) { c.userID = id }

// BatchSize returns the auto-flush event-count threshold.
func (c *Config) BatchSize() int { return c.batchSize }

// BatchTimeoutMS returns the auto-flush time threshold in milliseconds.
func (c *Config) BatchTimeoutMS() int { return c.batchTimeoutMS }

// Debug reports whether verbose logging is enabled.
func (c *Config) Debug() bool { return c.debug }

// SessionStorageKey returns the identity persistence key name.
func (c *Config) SessionStorageKey() string { return c.sessionStorageKey }

// CaptureErrors reports whether the reserved error-capture flag is set.
func (c *Config) CaptureErrors() bool { return c.captureErrors }

// SendTimeoutMS returns the primary transmitter's request timeout in milliseconds.
func (c *Config) SendTimeoutMS() int { return c.sendTimeoutMS }

// SendRetries returns the primary transmitter's retry budget.
func (c *Config) SendRetries() int { return c.sendRetries }

// Snapshot returns the snapshot sub-configuration.
func (c *Config) Snapshot() SnapshotConfig { return c.snapshot }

// Privacy returns the privacy sub-configuration.
func (c *Config) Privacy() PrivacyConfig { return c.privacy }
