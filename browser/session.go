// Package browser drives a Chrome instance over the DevTools protocol and
// adapts it to the page interface the navigation controller works against.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Options configures the browser session.
type Options struct {
	ChromePath   string // path to the Chrome binary (empty = auto-detect)
	UserAgent    string
	Headless     bool
	RemoteURL    string // DevTools websocket URL of a running Chrome; empty launches one
	ProfileDir   string // user data directory (empty = per-user cache dir)
	PollInterval time.Duration
}

// DefaultOptions returns sensible defaults: a visible launched Chrome with a
// persistent profile, polling the DOM four times a second.
func DefaultOptions() Options {
	return Options{
		Headless:     false,
		PollInterval: 250 * time.Millisecond,
	}
}

// markerStyles is injected into every document so the marker classes render.
const markerStyles = `.sn-selected-light { outline: 2px solid #1a73e8; outline-offset: 2px; border-radius: 8px; }
.sn-selected-dark { outline: 2px solid #8ab4f8; outline-offset: 2px; border-radius: 8px; }`

const injectStyles = `(() => {
	if (document.getElementById('sn-marker-styles')) return;
	const style = document.createElement('style');
	style.id = 'sn-marker-styles';
	style.textContent = %q;
	document.documentElement.appendChild(style);
})()`

// Session is one attached Chrome tab. It satisfies the navigation
// controller's page interface.
type Session struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
	log         logr.Logger
	routes      chan struct{}
}

func profileDir(opts Options) string {
	if opts.ProfileDir != "" {
		return opts.ProfileDir
	}
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "searchnav-chrome-profile")
}

// Connect launches (or attaches to) Chrome and prepares the tab: marker
// styles are injected into the current document and every future one, and
// in-page navigations start feeding RouteChanges.
func Connect(parent context.Context, opts Options, log logr.Logger) (*Session, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		allocOpts := []chromedp.ExecAllocatorOption{
			chromedp.NoDefaultBrowserCheck,
			chromedp.NoFirstRun,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-infobars", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-component-update", true),
			chromedp.Flag("no-service-autorun", true),
			chromedp.UserDataDir(profileDir(opts)),
		}
		if opts.Headless {
			allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
		}
		if opts.UserAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
		}
		if opts.ChromePath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, allocOpts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.V(2).Info(fmt.Sprintf(format, args...))
	}))

	s := &Session{
		id:          uuid.NewString(),
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
		routes:      make(chan struct{}, 1),
	}
	s.log = log.WithValues("session", s.id)

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev.(type) {
		case *page.EventFrameNavigated, *page.EventNavigatedWithinDocument:
			select {
			case s.routes <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(fmt.Sprintf(injectStyles, markerStyles)).Do(ctx)
			return err
		}),
		chromedp.Evaluate(fmt.Sprintf(injectStyles, markerStyles), nil),
	)
	if err != nil {
		cancel()
		if allocCancel != nil {
			allocCancel()
		}
		return nil, fmt.Errorf("attaching to browser: %w", err)
	}
	s.log.Info("attached")
	return s, nil
}

// Close tears down the tab and, for a launched Chrome, the allocator.
func (s *Session) Close() {
	s.cancel()
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// ID returns the session identifier, for log correlation.
func (s *Session) ID() string { return s.id }

// RouteChanges delivers a signal whenever the tab navigates, including
// in-page history navigation. The channel is level-triggered: bursts
// coalesce into one signal.
func (s *Session) RouteChanges() <-chan struct{} { return s.routes }

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// The DevTools connection lives on the session context; the caller's
	// context only gates entry.
	return chromedp.Run(s.ctx, actions...)
}

func (s *Session) eval(ctx context.Context, js string, res interface{}) error {
	return s.run(ctx, chromedp.Evaluate(js, res))
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (*url.URL, error) {
	var raw string
	if err := s.run(ctx, chromedp.Location(&raw)); err != nil {
		return nil, fmt.Errorf("reading location: %w", err)
	}
	return url.Parse(raw)
}

// Snapshot parses the tab's current DOM into a document.
func (s *Session) Snapshot(ctx context.Context) (*goquery.Document, error) {
	var outer string
	if err := s.run(ctx, chromedp.OuterHTML("html", &outer, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capturing dom: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(outer))
}

// BodyBackgroundColor reads the computed background color of the body.
func (s *Session) BodyBackgroundColor(ctx context.Context) (string, error) {
	var color string
	err := s.eval(ctx, `getComputedStyle(document.body).backgroundColor`, &color)
	return color, err
}

// FocusInTextInput reports whether the focused element accepts text.
func (s *Session) FocusInTextInput(ctx context.Context) (bool, error) {
	const js = `(() => {
		const el = document.activeElement;
		if (!el) return false;
		const tag = el.tagName.toLowerCase();
		return tag === 'input' || tag === 'textarea' || el.isContentEditable;
	})()`
	var typing bool
	err := s.eval(ctx, js, &typing)
	return typing, err
}

// Navigate loads a URL in the tab and waits for the new body.
func (s *Session) Navigate(ctx context.Context, u string) error {
	s.log.V(1).Info("navigating", "url", u)
	return s.run(ctx,
		chromedp.Navigate(u),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// OpenInNewTab opens a URL in a background tab; focus stays here.
func (s *Session) OpenInNewTab(ctx context.Context, u string) error {
	s.log.V(1).Info("opening tab", "url", u)
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := target.CreateTarget(u).WithBackground(true).Do(ctx)
		return err
	}))
}

// OpenInNewWindow opens a URL in a separate browser window.
func (s *Session) OpenInNewWindow(ctx context.Context, u string) error {
	s.log.V(1).Info("opening window", "url", u)
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := target.CreateTarget(u).WithNewWindow(true).Do(ctx)
		return err
	}))
}

// ActivateLink clicks the live counterpart of a snapshot link node, so the
// page's own click handlers run.
func (s *Session) ActivateLink(ctx context.Context, link *html.Node) error {
	path, ok := nodePath(link)
	if !ok {
		return fmt.Errorf("link element has no stable path")
	}
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el) el.click();
	})()`, path)
	return s.eval(ctx, js, nil)
}
