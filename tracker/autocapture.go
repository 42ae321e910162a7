package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"

	"github.com/omnitrack/tracker-core/config"
	"github.com/omnitrack/tracker-core/domsnapshot"
	"github.com/omnitrack/tracker-core/internal/corelog"
)

// clickBindingName is the global function name injected into the observed
// page; a document-level delegated listener calls it on every click.
const clickBindingName = "__omnitrackClick"

// delegatedClickScript installs a single document-level click listener and
// forwards the resolved element's ancestor chain, page-relative coordinates,
// and visible text to the exposed Go binding, which replays the chain
// through domsnapshot's selector/XPath generation. Targets whose ancestor
// chain carries the suppression marker are skipped entirely.
const delegatedClickScript = `() => {
	function ancestorChain(el) {
		const parts = [];
		let node = el;
		while (node && node.tagName) {
			const tag = node.tagName.toLowerCase();
			let precedingCount = 0;
			let sib = node.previousElementSibling;
			while (sib) {
				if (sib.tagName && sib.tagName.toLowerCase() === tag) precedingCount++;
				sib = sib.previousElementSibling;
			}
			parts.unshift({
				tag: tag,
				id: node.id || '',
				class: (typeof node.className === 'string') ? node.className : '',
				precedingCount: precedingCount,
			});
			node = node.parentElement;
		}
		return parts;
	}

	document.addEventListener('click', (event) => {
		let el = event.target;
		while (el) {
			if (el.dataset && el.dataset.analyticsSnapshot === 'off') return;
			el = el.parentElement;
		}
		const target = event.target;
		window.` + clickBindingName + `({
			tagName: target.tagName ? target.tagName.toUpperCase() : '',
			ancestors: ancestorChain(target),
			x: event.pageX,
			y: event.pageY,
			text: (target.innerText || target.textContent || '').trim().slice(0, 200),
		});
	}, true);
}`

// AutoCapture attaches the tracker's built-in observation behaviors — SPA
// navigation, delegated click capture, and optional DOM snapshots — to a
// browser tab reached over the Chrome DevTools Protocol.
type AutoCapture struct {
	tracker *Tracker
	page    *rod.Page
	logger  *slog.Logger

	snapshotCfg config.SnapshotConfig
	privacy     config.PrivacyConfig

	mu          sync.Mutex
	lastHash    string
	stopNav     func() error
	stopClick   func() error
	stopPeriod  chan struct{}
	mutationSub func() error
}

// NewAutoCapture constructs an AutoCapture bound to page, recording events
// through tracker.
func NewAutoCapture(tracker *Tracker, page *rod.Page, snapshotCfg config.SnapshotConfig, privacy config.PrivacyConfig) *AutoCapture {
	return &AutoCapture{
		tracker:     tracker,
		page:        page,
		logger:      tracker.logger,
		snapshotCfg: snapshotCfg,
		privacy:     privacy,
	}
}

// Attach wires up navigation, click, and (if enabled) snapshot capture
// directly, without going through a plugin registry. Prefer Plugins when
// wiring into a Tracker so pause/destroy lifecycle stays registry-driven.
func (a *AutoCapture) Attach(ctx context.Context) error {
	if err := a.attachNavigation(ctx); err != nil {
		return err
	}
	if err := a.attachClicks(ctx); err != nil {
		return err
	}
	if a.snapshotCfg.Enabled {
		if err := a.attachSnapshots(ctx); err != nil {
			return err
		}
	}
	return nil
}

// attachNavigation subscribes to CDP frame-navigation and same-document
// navigation events, so full navigations and a single-page-application's
// client-side route changes (history.pushState) are both observed, the
// same way the original history.pushState monkey-patch would have been.
func (a *AutoCapture) attachNavigation(ctx context.Context) error {
	track := func() {
		if err := a.tracker.TrackPageView(ctx, false); err != nil {
			a.logger.Debug("autocapture: page view track failed", corelog.Error(err))
		}
	}
	go a.page.EachEvent(
		func(e *proto.PageFrameNavigated) { track() },
		func(e *proto.PageNavigatedWithinDocument) { track() },
	)()
	return nil
}

// attachClicks injects the delegated click listener and exposes the Go
// binding it calls into.
func (a *AutoCapture) attachClicks(ctx context.Context) error {
	stop, err := a.page.Expose(clickBindingName, func(payload gson.JSON) (interface{}, error) {
		props := map[string]any{
			"tagName": payload.Get("tagName").String(),
			"x":       payload.Get("x").Int(),
			"y":       payload.Get("y").Int(),
		}

		if leaf := buildAncestorChain(payload.Get("ancestors")); leaf != nil {
			props["selector"] = domsnapshot.Selector(leaf)
			props["xpath"] = domsnapshot.XPath(leaf)
		}

		if text := payload.Get("text").String(); text != "" {
			sum := sha256.Sum256([]byte(text))
			props["textHash"] = hex.EncodeToString(sum[:])
		}

		if err := a.tracker.TrackClick(ctx, props); err != nil {
			a.logger.Debug("autocapture: click track failed", corelog.Error(err))
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.stopClick = stop
	a.mu.Unlock()

	_, err = a.page.Eval(delegatedClickScript)
	return err
}

// buildAncestorChain reconstructs the clicked element's ancestor chain
// (root to leaf) as a minimal synthetic *html.Node tree, including the
// preceding same-tag siblings domsnapshot.XPath needs to disambiguate
// positional indices, and returns the leaf node representing the clicked
// element. Returns nil if the payload carries no ancestor data.
func buildAncestorChain(ancestors gson.JSON) *html.Node {
	var parent, leaf *html.Node

	for _, a := range ancestors.Arr() {
		var attrs []html.Attribute
		if id := a.Get("id").String(); id != "" {
			attrs = append(attrs, html.Attribute{Key: "id", Val: id})
		}
		if class := a.Get("class").String(); class != "" {
			attrs = append(attrs, html.Attribute{Key: "class", Val: class})
		}

		node := &html.Node{
			Type:   html.ElementNode,
			Data:   a.Get("tag").String(),
			Attr:   attrs,
			Parent: parent,
		}

		if parent != nil {
			var firstSib, prevSib *html.Node
			for i := 0; i < a.Get("precedingCount").Int(); i++ {
				dummy := &html.Node{Type: html.ElementNode, Data: node.Data, Parent: parent}
				if firstSib == nil {
					firstSib = dummy
				} else {
					prevSib.NextSibling = dummy
				}
				prevSib = dummy
			}
			if prevSib != nil {
				prevSib.NextSibling = node
			} else {
				firstSib = node
			}
			parent.FirstChild = firstSib
		}

		parent = node
		leaf = node
	}

	return leaf
}

// attachSnapshots schedules the initial snapshot and, if configured,
// periodic snapshots. Mutation-triggered snapshots are driven by
// CaptureSnapshot with KindMutation, called by a host-injected
// MutationObserver binding; AutoCapture injects no observer of its own.
func (a *AutoCapture) attachSnapshots(ctx context.Context) error {
	if a.snapshotCfg.CaptureInitial {
		if err := a.CaptureSnapshot(ctx, domsnapshot.KindInitial); err != nil {
			a.logger.Debug("autocapture: initial snapshot failed", corelog.Error(err))
		}
	}

	if a.snapshotCfg.CapturePeriodic {
		interval := time.Duration(a.snapshotCfg.PeriodicIntervalMS) * time.Millisecond
		a.stopPeriod = make(chan struct{})
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := a.CaptureSnapshot(ctx, domsnapshot.KindPeriodic); err != nil {
						a.logger.Debug("autocapture: periodic snapshot failed", corelog.Error(err))
					}
				case <-a.stopPeriod:
					return
				}
			}
		}()
	}

	return nil
}

// CaptureSnapshot reads the page's current outer HTML, runs it through the
// snapshot pipeline, and emits a snapshot event if the layout changed (or
// kind is initial). It is exported so a host-injected mutation observer can
// call it directly, debounced by mutationThrottleMs on the JS side.
func (a *AutoCapture) CaptureSnapshot(ctx context.Context, kind domsnapshot.Kind) error {
	html, err := a.page.HTML()
	if err != nil {
		return err
	}

	metrics, err := proto.PageGetLayoutMetrics{}.Call(a.page)
	viewportWidth := 0
	if err == nil && metrics != nil && metrics.LayoutViewport != nil {
		viewportWidth = metrics.LayoutViewport.ClientWidth
	}

	a.mu.Lock()
	lastHash := a.lastHash
	a.mu.Unlock()

	snap, err := domsnapshot.Capture(html, kind, viewportWidth, a.snapshotCfg, a.privacy, lastHash)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil // unchanged since the last capture, suppressed
	}

	a.mu.Lock()
	a.lastHash = snap.LayoutHash
	a.mu.Unlock()

	return a.tracker.TrackSnapshot(ctx, map[string]any{
		"kind":            string(snap.Kind),
		"screenClass":     snap.ScreenClass,
		"layoutHash":      snap.LayoutHash,
		"dom":             snap.DOM,
		"compression":     string(snap.Compression),
		"originalBytes":   snap.OriginalBytes,
		"compressedBytes": snap.CompressedBytes,
		"truncated":       snap.Truncated,
		"maskedSelectors": snap.MaskedSelectors,
		"blockedCount":    snap.BlockedCount,
		"schemaVersion":   snap.SchemaVersion,
	})
}

// Detach cancels the periodic snapshot loop and removes the click binding.
// Navigation observation stops naturally when the page closes.
func (a *AutoCapture) Detach() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopPeriod != nil {
		close(a.stopPeriod)
		a.stopPeriod = nil
	}
	if a.stopClick != nil {
		if err := a.stopClick(); err != nil {
			return err
		}
		a.stopClick = nil
	}
	return nil
}
