package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omnitrack/tracker-core/internal/corelog"
)

// Manager owns the lifecycle of a single agent's identity: loading or
// creating it, rotating the session id on inactivity, and handling
// logout/re-authentication while preserving the device id for continuity.
type Manager struct {
	store             Store
	logger            *slog.Logger
	inactivityTimeout time.Duration
	storageKey        string

	current Identity
	loaded  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInactivityTimeout overrides the idle period before session rotation.
func WithInactivityTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.inactivityTimeout = d
		}
	}
}

// WithLogger attaches a logger; the default discards all output.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager constructs a Manager backed by store, persisting under storageKey.
func NewManager(store Store, storageKey string, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, ErrNoStore
	}

	m := &Manager{
		store:             store,
		storageKey:        storageKey,
		inactivityTimeout: DefaultInactivityTimeout,
		logger:            corelog.Noop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load retrieves the persisted identity, creating a new anonymous one if
// none exists or the existing one has expired from inactivity. Expiration
// preserves the device id so analytics continuity survives rotation.
func (m *Manager) Load(ctx context.Context) (Identity, error) {
	id, err := m.store.Get(ctx, m.storageKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return m.createNew(ctx, uuid.Nil)
		}
		return Identity{}, fmt.Errorf("identity: load: %w", err)
	}

	if id.Expired(m.inactivityTimeout, time.Now()) {
		m.logger.Debug("session expired, rotating", corelog.SessionID(id.SessionID.String()))
		return m.createNew(ctx, id.DeviceID)
	}

	m.current = id
	m.loaded = true
	return id, nil
}

// Touch extends the session's activity window. Safe to call on every
// captured event; it is a no-op if Load has not yet been called.
func (m *Manager) Touch(ctx context.Context) error {
	if !m.loaded {
		return nil
	}
	m.current.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, m.storageKey, m.current); err != nil {
		return fmt.Errorf("identity: touch: %w", err)
	}
	return nil
}

// SetUserID attaches an authenticated user id to the current identity.
func (m *Manager) SetUserID(ctx context.Context, userID string) error {
	if !m.loaded {
		if _, err := m.Load(ctx); err != nil {
			return err
		}
	}
	m.current.UserID = userID
	m.current.UpdatedAt = time.Now()
	return m.save(ctx)
}

// SetClientID overrides the durable client id (e.g. a host-supplied id
// replacing the auto-generated anon-<uuid>).
func (m *Manager) SetClientID(ctx context.Context, clientID string) error {
	if !m.loaded {
		if _, err := m.Load(ctx); err != nil {
			return err
		}
	}
	m.current.ClientID = clientID
	m.current.UpdatedAt = time.Now()
	return m.save(ctx)
}

// NewSession forces rotation of the session id while preserving the device
// and client ids, for explicit "start a new session" requests.
func (m *Manager) NewSession(ctx context.Context) (Identity, error) {
	deviceID := uuid.Nil
	clientID := ""
	if m.loaded {
		deviceID = m.current.DeviceID
		clientID = m.current.ClientID
	}
	id, err := m.createNew(ctx, deviceID)
	if err != nil {
		return Identity{}, err
	}
	if clientID != "" {
		id.ClientID = clientID
		m.current = id
		if err := m.save(ctx); err != nil {
			return Identity{}, err
		}
	}
	return id, nil
}

// Logout returns the identity to anonymous state: a fresh session id, a
// cleared user id, but the same device id so analytics continuity is kept.
func (m *Manager) Logout(ctx context.Context) (Identity, error) {
	deviceID := uuid.Nil
	clientID := ""
	if m.loaded {
		deviceID = m.current.DeviceID
		clientID = m.current.ClientID
	}
	id, err := m.createNew(ctx, deviceID)
	if err != nil {
		return Identity{}, err
	}
	id.ClientID = clientID
	m.current = id
	if err := m.save(ctx); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Current returns the last loaded identity without touching the store.
func (m *Manager) Current() (Identity, bool) {
	return m.current, m.loaded
}

func (m *Manager) createNew(ctx context.Context, deviceID uuid.UUID) (Identity, error) {
	if deviceID == uuid.Nil {
		deviceID = uuid.New()
	}
	now := time.Now()
	id := Identity{
		SessionID: uuid.New(),
		DeviceID:  deviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.current = id
	m.loaded = true
	if err := m.save(ctx); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (m *Manager) save(ctx context.Context) error {
	if err := m.store.Save(ctx, m.storageKey, m.current); err != nil {
		return fmt.Errorf("identity: save: %w", err)
	}
	return nil
}
