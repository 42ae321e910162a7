package tracker

import (
	"context"

	"github.com/omnitrack/tracker-core/plugin"
)

// navigationPlugin, clickPlugin, and snapshotPlugin adapt AutoCapture's
// CDP-driven observation behaviors to the plugin.Plugin contract, so they
// share no privileged access over the registry beyond plugin.Context —
// matching the page-view/click/snapshot built-ins described for the
// plugin registry.
type navigationPlugin struct{ ac *AutoCapture }
type clickPlugin struct{ ac *AutoCapture }
type snapshotPlugin struct{ ac *AutoCapture }

// Plugins returns the three built-in plugins backed by this AutoCapture,
// ready to register with a Tracker's plugin registry.
func (a *AutoCapture) Plugins() []plugin.Plugin {
	plugins := []plugin.Plugin{
		&navigationPlugin{ac: a},
		&clickPlugin{ac: a},
	}
	if a.snapshotCfg.Enabled {
		plugins = append(plugins, &snapshotPlugin{ac: a})
	}
	return plugins
}

func (p *navigationPlugin) Name() string    { return "autocapture.navigation" }
func (p *navigationPlugin) Version() string { return "1.0.0" }
func (p *navigationPlugin) Init(ctx context.Context, _ plugin.Context) error {
	return p.ac.attachNavigation(ctx)
}
func (p *navigationPlugin) Destroy(context.Context) error { return nil }

func (p *clickPlugin) Name() string    { return "autocapture.click" }
func (p *clickPlugin) Version() string { return "1.0.0" }
func (p *clickPlugin) Init(ctx context.Context, _ plugin.Context) error {
	return p.ac.attachClicks(ctx)
}
func (p *clickPlugin) Destroy(context.Context) error {
	p.ac.mu.Lock()
	stop := p.ac.stopClick
	p.ac.stopClick = nil
	p.ac.mu.Unlock()

	if stop == nil {
		return nil
	}
	return stop()
}

func (p *snapshotPlugin) Name() string    { return "autocapture.snapshot" }
func (p *snapshotPlugin) Version() string { return "1.0.0" }
func (p *snapshotPlugin) Init(ctx context.Context, _ plugin.Context) error {
	return p.ac.attachSnapshots(ctx)
}
func (p *snapshotPlugin) Destroy(context.Context) error {
	p.ac.mu.Lock()
	if p.ac.stopPeriod != nil {
		close(p.ac.stopPeriod)
		p.ac.stopPeriod = nil
	}
	p.ac.mu.Unlock()
	return nil
}
