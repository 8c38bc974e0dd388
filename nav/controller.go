// Package nav owns the navigation cursor and dispatches key events to
// actions over the discovered result list.
package nav

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-logr/logr"
	"golang.org/x/net/html"

	"searchnav/highlight"
	"searchnav/keymap"
	"searchnav/locator"
	"searchnav/pagetype"
	"searchnav/theme"
	"searchnav/verticals"
)

// Page is the live-page collaborator: the browser tab being navigated.
type Page interface {
	// Location returns the tab's current URL.
	Location(ctx context.Context) (*url.URL, error)

	// Snapshot parses the tab's current DOM.
	Snapshot(ctx context.Context) (*goquery.Document, error)

	// Observe starts delivering DOM snapshots as the page mutates, for the
	// result-root readiness wait.
	Observe(ctx context.Context) locator.Observer

	// BodyBackgroundColor reads the computed background of the body.
	BodyBackgroundColor(ctx context.Context) (string, error)

	// FocusInTextInput reports whether a text input or textarea currently
	// holds focus.
	FocusInTextInput(ctx context.Context) (bool, error)

	// Effects performs highlight side effects against the live page.
	Effects() highlight.Effects

	// Navigate loads a URL in the same tab.
	Navigate(ctx context.Context, url string) error

	// OpenInNewTab and OpenInNewWindow open a URL without leaving the page.
	OpenInNewTab(ctx context.Context, url string) error
	OpenInNewWindow(ctx context.Context, url string) error

	// ActivateLink performs the link's default activation so the host
	// page's own click handlers still run.
	ActivateLink(ctx context.Context, link *html.Node) error
}

// Config tunes the controller.
type Config struct {
	Locator   locator.Config
	Highlight highlight.Options
	RootWait  time.Duration
	Threshold int // theme luminance threshold
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Locator:   locator.DefaultConfig(),
		Highlight: highlight.DefaultOptions(),
		RootWait:  locator.DefaultRootWait,
		Threshold: theme.DefaultThreshold,
	}
}

// session is the per-page state. Re-initialization replaces the whole
// struct, never patches fields piecemeal.
type session struct {
	pageType pagetype.PageType
	theme    theme.Theme
	doc      *goquery.Document
	results  []*html.Node
	cursor   int
	query    string
}

// Controller reacts to key events and messages. All methods are called from
// the single event loop; the keymap manager internally guards the one table
// shared with the settings flow.
type Controller struct {
	page Page
	keys *keymap.Manager
	cfg  Config
	log  logr.Logger

	sess *session
}

// New creates a controller. It is inert until Init succeeds.
func New(page Page, keys *keymap.Manager, cfg Config, log logr.Logger) *Controller {
	return &Controller{page: page, keys: keys, cfg: cfg, log: log}
}

var selFirstLink = cascadia.MustCompile("a[href]")

// Init classifies the page, waits for its result root, discovers the result
// list and highlights the first entry. An unsupported or unclassifiable
// page is an error; the controller never guesses.
func (c *Controller) Init(ctx context.Context) error {
	loc, err := c.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("reading location: %w", err)
	}
	pt, err := pagetype.Classify(loc)
	if err != nil {
		return fmt.Errorf("classifying %s: %w", loc, err)
	}

	doc, err := locator.WaitForRoot(ctx, c.page.Observe(ctx), pt, c.cfg.RootWait)
	if err != nil {
		return err
	}

	results := locator.Locate(doc, pt, c.cfg.Locator)
	th := c.detectTheme(ctx)

	sess := &session{
		pageType: pt,
		theme:    th,
		doc:      doc,
		results:  results,
		cursor:   0,
		query:    queryText(loc),
	}
	if len(results) > 0 {
		if err := highlight.Highlight(results, 0, th, c.page.Effects(), c.cfg.Highlight); err != nil {
			return err
		}
	}
	c.sess = sess
	c.log.V(1).Info("initialized", "pageType", string(pt), "results", len(results), "theme", string(th))
	return nil
}

// Reinit discards the session entirely and runs Init again. Route changes
// and history navigation land here; existing state is never patched.
func (c *Controller) Reinit(ctx context.Context) error {
	c.sess = nil
	return c.Init(ctx)
}

// Ready reports whether Init has succeeded for the current page.
func (c *Controller) Ready() bool {
	return c.sess != nil
}

// Cursor returns the current cursor index, -1 when no session or results.
func (c *Controller) Cursor() int {
	if c.sess == nil || len(c.sess.results) == 0 {
		return -1
	}
	return c.sess.cursor
}

func (c *Controller) detectTheme(ctx context.Context) theme.Theme {
	return theme.Detect(samplerFunc(func() (string, error) {
		return c.page.BodyBackgroundColor(ctx)
	}), c.cfg.Threshold)
}

type samplerFunc func() (string, error)

func (f samplerFunc) BodyBackgroundColor() (string, error) { return f() }

// queryText pulls the search query out of the location, for vertical
// switches.
func queryText(loc *url.URL) string {
	params := loc.Query()
	if q := params.Get("q"); q != "" {
		return q
	}
	return params.Get("search_query")
}

// HandleKey maps one key event to an action and performs it. handled
// reports whether the event did something, in which case the caller must
// suppress the key's default behavior.
func (c *Controller) HandleKey(ctx context.Context, ev keymap.KeyEvent) (handled bool, err error) {
	if c.sess == nil {
		return false, nil
	}

	// Never hijack typing.
	if typing, err := c.page.FocusInTextInput(ctx); err == nil && typing {
		return false, nil
	}

	action, ok := c.resolveAction(ev)
	if !ok {
		return false, nil
	}

	// Held Ctrl/Cmd chords are reserved for the browser, except open_link
	// where they select the tab/window the link opens in.
	if (ev.Ctrl || ev.Meta) && action != keymap.OpenLink {
		return false, nil
	}

	switch action {
	case keymap.MoveDown:
		return c.moveDown(ctx)
	case keymap.MoveUp:
		return c.moveUp()
	case keymap.OpenLink:
		return c.openLink(ctx, ev)
	case keymap.NavigatePrevious:
		return c.paginate(ctx, verticals.PrevPageAnchorID)
	case keymap.NavigateNext:
		return c.paginate(ctx, verticals.NextPageAnchorID)
	default:
		return c.switchVertical(ctx, action)
	}
}

// keyFallbacks always work as secondary bindings, whatever the user has
// configured.
var keyFallbacks = map[string]keymap.Action{
	"ArrowUp":    keymap.MoveUp,
	"ArrowDown":  keymap.MoveDown,
	"ArrowLeft":  keymap.NavigatePrevious,
	"ArrowRight": keymap.NavigateNext,
	"Enter":      keymap.OpenLink,
}

func (c *Controller) resolveAction(ev keymap.KeyEvent) (keymap.Action, bool) {
	for _, action := range keymap.Actions {
		if c.keys.IsKeyMatch(ev, action) {
			return action, true
		}
	}
	if action, ok := keyFallbacks[ev.Key]; ok {
		return action, true
	}
	return "", false
}

// moveDown advances the cursor. At the end of a page type that streams in
// results, the list is re-derived first: a stale sequence must never be
// trusted after the DOM has grown.
func (c *Controller) moveDown(ctx context.Context) (bool, error) {
	sess := c.sess
	if len(sess.results) == 0 {
		return false, nil
	}
	if sess.cursor == len(sess.results)-1 && sess.pageType.SupportsIncrementalLoad() {
		if err := c.refreshResults(ctx); err != nil {
			return false, err
		}
		sess = c.sess
	}
	if sess.cursor >= len(sess.results)-1 {
		return false, nil
	}
	return c.moveCursor(sess.cursor + 1)
}

func (c *Controller) moveUp() (bool, error) {
	sess := c.sess
	if len(sess.results) == 0 || sess.cursor == 0 {
		return false, nil
	}
	return c.moveCursor(sess.cursor - 1)
}

func (c *Controller) moveCursor(to int) (bool, error) {
	sess := c.sess
	if err := highlight.Unhighlight(sess.results, sess.cursor, c.page.Effects(), c.cfg.Highlight); err != nil {
		return false, err
	}
	if err := highlight.Highlight(sess.results, to, sess.theme, c.page.Effects(), c.cfg.Highlight); err != nil {
		return false, err
	}
	sess.cursor = to
	return true, nil
}

// refreshResults re-derives the result list from a fresh snapshot. The
// cursor is kept; bounds are re-validated by the callers against the new
// sequence.
func (c *Controller) refreshResults(ctx context.Context) error {
	doc, err := c.page.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("refreshing results: %w", err)
	}
	results := locator.Locate(doc, c.sess.pageType, c.cfg.Locator)
	if len(results) < len(c.sess.results) {
		// A shrinking list means the page replaced its results wholesale;
		// keep the longer known sequence rather than jump backwards.
		return nil
	}
	c.sess.doc = doc
	c.sess.results = results
	c.log.V(1).Info("results refreshed", "count", len(results))
	return nil
}

// openLink activates the first link inside the current result. Held
// Ctrl/Cmd opens a new tab, Shift a new window; otherwise the link's own
// activation runs so host click handlers fire.
func (c *Controller) openLink(ctx context.Context, ev keymap.KeyEvent) (bool, error) {
	sess := c.sess
	if len(sess.results) == 0 {
		return false, nil
	}
	link := cascadia.Query(sess.results[sess.cursor], selFirstLink)
	if link == nil {
		return false, nil
	}

	switch {
	case ev.Ctrl || ev.Meta:
		href, ok := c.absoluteHref(ctx, link)
		if !ok {
			return false, nil
		}
		return true, c.page.OpenInNewTab(ctx, href)
	case ev.Shift:
		href, ok := c.absoluteHref(ctx, link)
		if !ok {
			return false, nil
		}
		return true, c.page.OpenInNewWindow(ctx, href)
	default:
		return true, c.page.ActivateLink(ctx, link)
	}
}

func (c *Controller) absoluteHref(ctx context.Context, link *html.Node) (string, bool) {
	href := attrVal(link, "href")
	if href == "" {
		return "", false
	}
	loc, err := c.page.Location(ctx)
	if err != nil {
		return href, true
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href, true
	}
	return loc.ResolveReference(ref).String(), true
}

// paginate follows the previous/next page anchor. Only paginated page
// types carry one; a missing anchor is an expected no-op.
func (c *Controller) paginate(ctx context.Context, anchorID string) (bool, error) {
	sess := c.sess
	if !sess.pageType.Paginated() {
		return false, nil
	}
	anchor := sess.doc.Find("a#" + anchorID)
	if anchor.Length() == 0 {
		return false, nil
	}
	href, ok := anchor.First().Attr("href")
	if !ok || href == "" {
		return false, nil
	}
	abs, ok := c.absoluteHref(ctx, anchor.First().Get(0))
	if !ok {
		return false, nil
	}
	return true, c.page.Navigate(ctx, abs)
}

// switchVertical navigates to another search surface with the current
// query. Already being there, or having no query to carry, is a no-op.
func (c *Controller) switchVertical(ctx context.Context, action keymap.Action) (bool, error) {
	sess := c.sess
	if target, ok := verticals.TargetType(action); ok && target == sess.pageType {
		return false, nil
	}
	dest, ok := verticals.URLFor(action, sess.query)
	if !ok {
		return false, nil
	}
	return true, c.page.Navigate(ctx, dest)
}
