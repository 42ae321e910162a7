// Package plugin implements the extensibility registry that the tracker's
// built-in capture behaviors (page-view, click, snapshot) are themselves
// built on, so third-party capture strategies share no privileged access
// beyond what Context exposes.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omnitrack/tracker-core/internal/corelog"
)

// ErrAlreadyInitialized is returned by Register once the registry has
// initialized its plugins.
var ErrAlreadyInitialized = errors.New("plugin: registry already initialized")

// ErrDuplicateName is returned by Register when a plugin with the same
// name has already been registered.
var ErrDuplicateName = errors.New("plugin: duplicate plugin name")

// Context is the restricted surface a plugin receives during Init/Destroy.
// It deliberately does not expose the batching queue or identity manager
// directly, so plugins can only act through the tracker's public API.
type Context struct {
	Tracker Tracker
	Logger  *slog.Logger
}

// Tracker is the subset of the tracker's public API plugins may call.
type Tracker interface {
	TrackPageView(ctx context.Context, isInitialLoad bool) error
	TrackClick(ctx context.Context, properties map[string]any) error
	TrackCustom(ctx context.Context, name string, properties map[string]any) error
	TrackSnapshot(ctx context.Context, properties map[string]any) error
}

// Plugin is a named, versioned capture strategy.
type Plugin interface {
	Name() string
	Version() string
	Init(ctx context.Context, pctx Context) error
	Destroy(ctx context.Context) error
}

// Registry holds registered plugins and manages their lifecycle.
type Registry struct {
	mu          sync.Mutex
	plugins     []Plugin
	names       map[string]struct{}
	initialized bool
	paused      bool
	logger      *slog.Logger
	pctx        Context
}

// NewRegistry constructs an empty Registry.
func NewRegistry(pctx Context) *Registry {
	logger := pctx.Logger
	if logger == nil {
		logger = corelog.Noop()
	}
	return &Registry{
		names:  make(map[string]struct{}),
		logger: logger,
		pctx:   pctx,
	}
}

// Register adds p to the registry. Valid only before Initialize has run;
// registering two plugins with the same name fails.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	if _, exists := r.names[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name())
	}

	r.names[p.Name()] = struct{}{}
	r.plugins = append(r.plugins, p)
	return nil
}

// Initialize calls each registered plugin's Init in registration order, one
// after another. A failure in one plugin is logged and does not prevent the
// later plugins from initializing or make Initialize fail.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	r.initialized = true
	plugins := append([]Plugin{}, r.plugins...)
	r.mu.Unlock()

	for _, p := range plugins {
		if err := p.Init(ctx, r.pctx); err != nil {
			r.logger.Error("plugin init failed",
				corelog.Error(err), slog.String("plugin", p.Name()), slog.String("version", p.Version()))
		}
	}
	return nil
}

// PauseAll marks the registry paused. Plugin has no Pause/Resume hook, so
// registered plugins are not notified; the flag is only reported by Paused.
func (r *Registry) PauseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// ResumeAll clears the paused flag.
func (r *Registry) ResumeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// Paused reports whether the registry is currently paused.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Destroy calls each plugin's Destroy, clears the registry, and resets the
// initialized flag so the registry could in principle be reused.
func (r *Registry) Destroy(ctx context.Context) error {
	r.mu.Lock()
	plugins := append([]Plugin{}, r.plugins...)
	r.plugins = nil
	r.names = make(map[string]struct{})
	r.initialized = false
	r.mu.Unlock()

	var firstErr error
	for _, p := range plugins {
		if err := p.Destroy(ctx); err != nil {
			r.logger.Error("plugin destroy failed", corelog.Error(err), slog.String("plugin", p.Name()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
