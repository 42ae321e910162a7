package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/tracker-core/plugin"
)

type fakeTracker struct{}

func (fakeTracker) TrackPageView(context.Context, bool) error                 { return nil }
func (fakeTracker) TrackClick(context.Context, map[string]any) error          { return nil }
func (fakeTracker) TrackCustom(context.Context, string, map[string]any) error { return nil }
func (fakeTracker) TrackSnapshot(context.Context, map[string]any) error       { return nil }

type fakePlugin struct {
	name       string
	initErr    error
	destroyErr error
	initCalled bool
	destroyed  bool
}

func (p *fakePlugin) Name() string    { return p.name }
func (p *fakePlugin) Version() string { return "1.0.0" }
func (p *fakePlugin) Init(context.Context, plugin.Context) error {
	p.initCalled = true
	return p.initErr
}
func (p *fakePlugin) Destroy(context.Context) error {
	p.destroyed = true
	return p.destroyErr
}

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry(plugin.Context{Tracker: fakeTracker{}})
}

func TestRegistry_RegisterRejectsDuplicateNames(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&fakePlugin{name: "pageview"}))
	err := r.Register(&fakePlugin{name: "pageview"})
	require.ErrorIs(t, err, plugin.ErrDuplicateName)
}

func TestRegistry_RegisterRejectedAfterInitialize(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Initialize(context.Background()))

	err := r.Register(&fakePlugin{name: "late"})
	require.ErrorIs(t, err, plugin.ErrAlreadyInitialized)
}

func TestRegistry_InitializeContinuesAfterFailure(t *testing.T) {
	r := newRegistry()
	failing := &fakePlugin{name: "bad", initErr: errors.New("boom")}
	ok := &fakePlugin{name: "good"}

	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(ok))
	require.NoError(t, r.Initialize(context.Background()))

	assert.True(t, failing.initCalled)
	assert.True(t, ok.initCalled)
}

func TestRegistry_DestroyClearsRegistryAndResetsInitialized(t *testing.T) {
	r := newRegistry()
	p := &fakePlugin{name: "pageview"}
	require.NoError(t, r.Register(p))
	require.NoError(t, r.Initialize(context.Background()))

	require.NoError(t, r.Destroy(context.Background()))
	assert.True(t, p.destroyed)

	// Registry reset: re-registering the same name should succeed again.
	require.NoError(t, r.Register(&fakePlugin{name: "pageview"}))
}

func TestRegistry_PauseResume(t *testing.T) {
	r := newRegistry()
	assert.False(t, r.Paused())
	r.PauseAll()
	assert.True(t, r.Paused())
	r.ResumeAll()
	assert.False(t, r.Paused())
}
