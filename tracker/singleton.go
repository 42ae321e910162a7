package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/omnitrack/tracker-core/config"
	"github.com/omnitrack/tracker-core/identity"
	"github.com/omnitrack/tracker-core/transport"
)

// ErrNoDefault is returned by Default when no tracker has been initialized.
var ErrNoDefault = errors.New("tracker: no default tracker initialized")

var (
	defaultMu      sync.Mutex
	defaultTracker *Tracker
)

// Init constructs a Tracker and installs it as the process-wide default,
// mirroring the original SDK's single global initializeSDK(config) entry
// point. It replaces any previously installed default without destroying
// it; callers managing multiple trackers should use New directly instead.
func Init(cfg *config.Config, idMgr *identity.Manager, transmitters []transport.Transmitter, opts ...Option) *Tracker {
	t := New(cfg, idMgr, transmitters, opts...)

	defaultMu.Lock()
	defaultTracker = t
	defaultMu.Unlock()

	return t
}

// Default returns the process-wide tracker installed by Init.
func Default() (*Tracker, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultTracker == nil {
		return nil, ErrNoDefault
	}
	return defaultTracker, nil
}

// CloseDefault destroys the process-wide default tracker, if any, and
// clears it, mirroring the original SDK's destroySDK().
func CloseDefault(ctx context.Context) error {
	defaultMu.Lock()
	t := defaultTracker
	defaultTracker = nil
	defaultMu.Unlock()

	if t == nil {
		return nil
	}
	return t.Destroy(ctx)
}
