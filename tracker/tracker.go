// Package tracker wires Configuration, Identity, the Batching Queue, and
// the Plugin Registry together into the instrumentation core's public
// surface: the operations a host calls to record page views, clicks,
// custom events, and DOM snapshots.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omnitrack/tracker-core/batch"
	"github.com/omnitrack/tracker-core/config"
	"github.com/omnitrack/tracker-core/identity"
	"github.com/omnitrack/tracker-core/internal/corelog"
	"github.com/omnitrack/tracker-core/plugin"
	"github.com/omnitrack/tracker-core/transport"
)

// State is the lifecycle state of a Tracker session.
type State int32

const (
	StateInitial State = iota
	StateRunning
	StatePaused
	StateDestroyed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event type discriminators.
const (
	EventTypePageView = "pageview"
	EventTypeClick    = "click"
	EventTypeCustom   = "custom"
	EventTypeSnapshot = "snapshot"
)

// ErrDestroyed is returned by tracking calls once the tracker has been destroyed.
var ErrDestroyed = errors.New("tracker: already destroyed")

// PageContext is the page/viewport state a host supplies at the moment of
// capture; in a CDP-driven deployment this is read from the observed tab.
type PageContext struct {
	URL            string
	Title          string
	Referrer       string
	PageWidth      int
	PageHeight     int
	ViewportWidth  int
	ViewportHeight int
}

// PageContextProvider returns the current page context at capture time.
type PageContextProvider func() PageContext

// Tracker is the public entry point for event capture. Construct it with New.
type Tracker struct {
	cfg      *config.Config
	identity *identity.Manager
	queue    *batch.Queue
	plugins  *plugin.Registry
	logger   *slog.Logger
	pageCtx  PageContextProvider

	state atomic.Int32
	mu    sync.Mutex
}

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithLogger attaches a logger; the default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithPageContextProvider overrides how the tracker reads the current page
// context. The default reports a blank context, for hosts that only track
// custom events without page/viewport concerns.
func WithPageContextProvider(fn PageContextProvider) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.pageCtx = fn
		}
	}
}

// New constructs a running Tracker over cfg, idMgr, and a Queue built from
// transmitters. The plugin registry starts empty; RegisterPlugin populates
// it and InitializePlugins initializes it.
func New(cfg *config.Config, idMgr *identity.Manager, transmitters []transport.Transmitter, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:      cfg,
		identity: idMgr,
		logger:   corelog.Noop(),
		pageCtx:  func() PageContext { return PageContext{} },
	}
	for _, opt := range opts {
		opt(t)
	}

	t.queue = batch.New(
		cfg.BatchSize(),
		time.Duration(cfg.BatchTimeoutMS())*time.Millisecond,
		transmitters,
		batch.WithLogger(t.logger),
	)
	t.plugins = plugin.NewRegistry(plugin.Context{Tracker: t, Logger: t.logger})
	t.state.Store(int32(StateRunning))

	return t
}

// RegisterPlugin registers p with the tracker's plugin registry. Valid only
// before InitializePlugins has run.
func (t *Tracker) RegisterPlugin(p plugin.Plugin) error {
	return t.plugins.Register(p)
}

// InitializePlugins initializes every registered plugin.
func (t *Tracker) InitializePlugins(ctx context.Context) error {
	return t.plugins.Initialize(ctx)
}

// TrackPageView records a page-view event for the current page context,
// carrying title, route (pathname), and isInitialLoad: true for the one
// page-view emitted after the document reaches an interactive state,
// false for every page view produced by a subsequent SPA route change.
func (t *Tracker) TrackPageView(ctx context.Context, isInitialLoad bool) error {
	page := t.pageCtx()
	route := page.URL
	if u, err := url.Parse(page.URL); err == nil && u.Path != "" {
		route = u.Path
	}

	return t.track(ctx, EventTypePageView, map[string]any{
		"title":         page.Title,
		"route":         route,
		"isInitialLoad": isInitialLoad,
	})
}

// TrackClick records a click event, typically with a "selector" property
// identifying the clicked element.
func (t *Tracker) TrackClick(ctx context.Context, properties map[string]any) error {
	return t.track(ctx, EventTypeClick, properties)
}

// TrackCustom records a named custom event.
func (t *Tracker) TrackCustom(ctx context.Context, name string, properties map[string]any) error {
	props := map[string]any{"name": name}
	for k, v := range properties {
		props[k] = v
	}
	return t.track(ctx, EventTypeCustom, props)
}

// TrackSnapshot records a pre-computed DOM snapshot event.
func (t *Tracker) TrackSnapshot(ctx context.Context, properties map[string]any) error {
	return t.track(ctx, EventTypeSnapshot, properties)
}

func (t *Tracker) track(ctx context.Context, eventType string, properties map[string]any) error {
	switch State(t.state.Load()) {
	case StateDestroyed:
		return ErrDestroyed
	case StatePaused:
		return nil // tracker still accepts calls but drops them while paused
	}

	event, err := t.enrich(ctx, eventType, properties)
	if err != nil {
		return err
	}

	return t.queue.Add(ctx, event)
}

func (t *Tracker) enrich(ctx context.Context, eventType string, properties map[string]any) (transport.Event, error) {
	id, loaded := t.identity.Current()
	if !loaded {
		var err error
		id, err = t.identity.Load(ctx)
		if err != nil {
			return transport.Event{}, fmt.Errorf("tracker: load identity: %w", err)
		}
	}
	if err := t.identity.Touch(ctx); err != nil {
		t.logger.Debug("identity touch failed", corelog.Error(err))
	}

	page := t.pageCtx()

	return transport.Event{
		EventID:        uuid.New(),
		ProjectID:      t.cfg.ProjectID(),
		ClientID:       t.cfg.ClientID(),
		SessionID:      id.SessionID.String(),
		UserID:         t.cfg.UserID(),
		Type:           eventType,
		Timestamp:      time.Now().UnixMilli(),
		URL:            page.URL,
		Referrer:       page.Referrer,
		PageWidth:      page.PageWidth,
		PageHeight:     page.PageHeight,
		ViewportWidth:  page.ViewportWidth,
		ViewportHeight: page.ViewportHeight,
		Properties:     properties,
	}, nil
}

// SetClientID updates the configured and persisted client identifier.
func (t *Tracker) SetClientID(ctx context.Context, clientID string) error {
	t.cfg.SetClientID(clientID)
	return t.identity.SetClientID(ctx, clientID)
}

// SetUserID attaches an authenticated user id to subsequent events.
func (t *Tracker) SetUserID(ctx context.Context, userID string) error {
	t.cfg.SetUserID(userID)
	return t.identity.SetUserID(ctx, userID)
}

// GetSessionID returns the current session identifier, loading identity if
// it has not been loaded yet.
func (t *Tracker) GetSessionID(ctx context.Context) (string, error) {
	id, loaded := t.identity.Current()
	if !loaded {
		var err error
		id, err = t.identity.Load(ctx)
		if err != nil {
			return "", err
		}
	}
	return id.SessionID.String(), nil
}

// NewSession forces rotation to a fresh session id, preserving client and
// device continuity.
func (t *Tracker) NewSession(ctx context.Context) (string, error) {
	id, err := t.identity.NewSession(ctx)
	if err != nil {
		return "", err
	}
	return id.SessionID.String(), nil
}

// Flush forces an immediate batch flush.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.queue.Flush(ctx)
}

// Pause transitions Running -> Paused: the plugin registry is marked paused
// and tracking calls are accepted but dropped until Resume.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if State(t.state.Load()) == StateRunning {
		t.state.Store(int32(StatePaused))
		t.plugins.PauseAll()
	}
}

// Resume transitions Paused -> Running.
func (t *Tracker) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if State(t.state.Load()) == StatePaused {
		t.state.Store(int32(StateRunning))
		t.plugins.ResumeAll()
	}
}

// State returns the tracker's current lifecycle state.
func (t *Tracker) State() State {
	return State(t.state.Load())
}

// Destroy is the terminal transition: it destroys all plugins, performs a
// final best-effort queue flush, and marks the tracker unusable.
func (t *Tracker) Destroy(ctx context.Context) error {
	t.mu.Lock()
	prev := State(t.state.Swap(int32(StateDestroyed)))
	t.mu.Unlock()

	if prev == StateDestroyed {
		return nil
	}

	if err := t.plugins.Destroy(ctx); err != nil {
		t.logger.Error("plugin destroy failed during tracker destroy", corelog.Error(err))
	}

	return t.queue.Destroy(ctx)
}
