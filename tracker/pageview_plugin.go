package tracker

import (
	"context"

	"github.com/omnitrack/tracker-core/plugin"
)

// PageViewPlugin emits a single page-view event on initialization. Combined
// with AutoCapture's navigation listener it also fires on SPA route changes.
type PageViewPlugin struct{}

// NewPageViewPlugin constructs a PageViewPlugin.
func NewPageViewPlugin() *PageViewPlugin { return &PageViewPlugin{} }

// Name implements plugin.Plugin.
func (p *PageViewPlugin) Name() string { return "pageview" }

// Version implements plugin.Plugin.
func (p *PageViewPlugin) Version() string { return "1.0.0" }

// Init implements plugin.Plugin, emitting the initial page view.
func (p *PageViewPlugin) Init(ctx context.Context, pctx plugin.Context) error {
	return pctx.Tracker.TrackPageView(ctx, true)
}

// Destroy implements plugin.Plugin; page-view capture has nothing to tear down.
func (p *PageViewPlugin) Destroy(context.Context) error { return nil }
