package nav

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-logr/logr"
	"golang.org/x/net/html"

	"searchnav/highlight"
	"searchnav/keymap"
	"searchnav/locator"
	"searchnav/pagetype"
	"searchnav/storage"
)

const serpPage = `<html><body>
<div id="search">
  <div><h3>First</h3><a href="/url?q=one">one</a></div>
  <div><h3>Second</h3><a href="/url?q=two">two</a></div>
  <div><h3>Third</h3><a href="/url?q=three">three</a></div>
  <a id="pnnext" href="/search?q=go&amp;start=10">Next</a>
</div>
</body></html>`

type fakeObserver struct {
	ch <-chan *goquery.Document
}

func (o *fakeObserver) Snapshots() <-chan *goquery.Document { return o.ch }
func (o *fakeObserver) Stop()                               {}

type fakePage struct {
	loc        string
	doc        *goquery.Document
	nextDoc    *goquery.Document
	background string
	typing     bool
	fx         *recordingEffects

	navigated  []string
	newTabs    []string
	newWindows []string
	activated  []*html.Node
}

func newFakePage(t *testing.T, loc, page string) *fakePage {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return &fakePage{
		loc:        loc,
		doc:        doc,
		background: "rgb(255, 255, 255)",
		fx:         &recordingEffects{},
	}
}

func (p *fakePage) Location(context.Context) (*url.URL, error) {
	return url.Parse(p.loc)
}

func (p *fakePage) Snapshot(context.Context) (*goquery.Document, error) {
	if p.nextDoc != nil {
		return p.nextDoc, nil
	}
	return p.doc, nil
}

func (p *fakePage) Observe(context.Context) locator.Observer {
	ch := make(chan *goquery.Document, 1)
	ch <- p.doc
	return &fakeObserver{ch: ch}
}

func (p *fakePage) BodyBackgroundColor(context.Context) (string, error) {
	return p.background, nil
}

func (p *fakePage) FocusInTextInput(context.Context) (bool, error) {
	return p.typing, nil
}

func (p *fakePage) Effects() highlight.Effects { return p.fx }

func (p *fakePage) Navigate(_ context.Context, u string) error {
	p.navigated = append(p.navigated, u)
	return nil
}

func (p *fakePage) OpenInNewTab(_ context.Context, u string) error {
	p.newTabs = append(p.newTabs, u)
	return nil
}

func (p *fakePage) OpenInNewWindow(_ context.Context, u string) error {
	p.newWindows = append(p.newWindows, u)
	return nil
}

func (p *fakePage) ActivateLink(_ context.Context, n *html.Node) error {
	p.activated = append(p.activated, n)
	return nil
}

type recordingEffects struct {
	scrolled []*html.Node
	clicked  []*html.Node
}

func (r *recordingEffects) AddClass(*html.Node, string)    {}
func (r *recordingEffects) RemoveClass(*html.Node, string) {}
func (r *recordingEffects) ScrollIntoView(n *html.Node)    { r.scrolled = append(r.scrolled, n) }
func (r *recordingEffects) Click(n *html.Node)             { r.clicked = append(r.clicked, n) }
func (r *recordingEffects) HoverEnter(*html.Node)          {}
func (r *recordingEffects) HoverLeave(*html.Node)          {}

func newController(t *testing.T, page *fakePage) *Controller {
	t.Helper()
	keys, err := keymap.NewManager(context.Background(), storage.NewMemStore())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return New(page, keys, DefaultConfig(), logr.Discard())
}

// markedHeading returns the h3 text of the single highlighted result, or ""
// when nothing carries the marker.
func markedHeading(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	sel := doc.Find("." + highlight.ClassLight + ", ." + highlight.ClassDark)
	switch sel.Length() {
	case 0:
		return ""
	case 1:
		return sel.Find("h3").Text()
	default:
		t.Fatalf("expected at most one highlighted result, found %d", sel.Length())
		return ""
	}
}

func key(name string) keymap.KeyEvent { return keymap.KeyEvent{Key: name} }

func TestInitHighlightsFirstResult(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)

	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !c.Ready() {
		t.Fatal("controller not ready after Init")
	}
	if got := markedHeading(t, page.doc); got != "First" {
		t.Errorf("highlighted %q, want First", got)
	}
	if page.doc.Find("."+highlight.ClassLight).Length() != 1 {
		t.Error("light page should carry the light marker class")
	}
	if len(page.fx.scrolled) != 1 {
		t.Errorf("expected 1 scroll, got %d", len(page.fx.scrolled))
	}
}

func TestInitDarkBackground(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	page.background = "rgb(32, 33, 36)"
	c := newController(t, page)

	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if page.doc.Find("."+highlight.ClassDark).Length() != 1 {
		t.Error("dark page should carry the dark marker class")
	}
}

func TestInitUnsupportedHost(t *testing.T) {
	page := newFakePage(t, "https://duckduckgo.com/?q=go", serpPage)
	c := newController(t, page)

	if err := c.Init(context.Background()); !errors.Is(err, pagetype.ErrUnsupportedHost) {
		t.Fatalf("Init error = %v, want ErrUnsupportedHost", err)
	}
	if c.Ready() {
		t.Error("controller must not be ready after failed Init")
	}
}

func TestMoveDownAndUp(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("j"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(j) = %v, %v", handled, err)
	}
	if got := markedHeading(t, page.doc); got != "Second" {
		t.Errorf("after j: highlighted %q, want Second", got)
	}

	handled, err = c.HandleKey(context.Background(), key("k"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(k) = %v, %v", handled, err)
	}
	if got := markedHeading(t, page.doc); got != "First" {
		t.Errorf("after k: highlighted %q, want First", got)
	}
}

func TestMoveUpAtTopIsNoOp(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("k"))
	if err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if handled {
		t.Error("k at the first result should not be handled")
	}
	if got := markedHeading(t, page.doc); got != "First" {
		t.Errorf("highlighted %q, want First", got)
	}
}

func TestMoveDownAtBottomIsNoOp(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.HandleKey(context.Background(), key("j")); err != nil {
			t.Fatalf("HandleKey: %v", err)
		}
	}
	handled, err := c.HandleKey(context.Background(), key("j"))
	if err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if handled {
		t.Error("j at the last result should not be handled")
	}
	if got := markedHeading(t, page.doc); got != "Third" {
		t.Errorf("highlighted %q, want Third", got)
	}
}

func TestArrowFallbacks(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Rebind move_down away from both j and the arrow.
	configs := c.keys.KeyConfigs()
	configs[keymap.MoveDown] = keymap.Chord{Key: "x"}
	if _, err := c.keys.SaveKeyConfigs(context.Background(), configs); err != nil {
		t.Fatalf("SaveKeyConfigs: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("ArrowDown"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(ArrowDown) = %v, %v", handled, err)
	}
	if got := markedHeading(t, page.doc); got != "Second" {
		t.Errorf("after ArrowDown: highlighted %q, want Second", got)
	}
}

func TestModifierChordSuppressed(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, ev := range []keymap.KeyEvent{
		{Key: "j", Ctrl: true},
		{Key: "j", Meta: true},
		{Key: "ArrowDown", Ctrl: true},
	} {
		handled, err := c.HandleKey(context.Background(), ev)
		if err != nil {
			t.Fatalf("HandleKey(%+v): %v", ev, err)
		}
		if handled {
			t.Errorf("HandleKey(%+v) handled, want suppressed", ev)
		}
	}
	if got := markedHeading(t, page.doc); got != "First" {
		t.Errorf("highlighted %q, want First", got)
	}
}

func TestTypingSuppressesEverything(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	page.typing = true

	for _, name := range []string{"j", "k", "Enter", "ArrowDown", "i"} {
		handled, err := c.HandleKey(context.Background(), key(name))
		if err != nil {
			t.Fatalf("HandleKey(%s): %v", name, err)
		}
		if handled {
			t.Errorf("HandleKey(%s) handled while typing", name)
		}
	}
}

func TestOpenLink(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("Enter"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(Enter) = %v, %v", handled, err)
	}
	if len(page.activated) != 1 {
		t.Fatalf("expected 1 activated link, got %d", len(page.activated))
	}
	if got := attrVal(page.activated[0], "href"); got != "/url?q=one" {
		t.Errorf("activated href = %q, want /url?q=one", got)
	}
	if len(page.newTabs)+len(page.newWindows) != 0 {
		t.Error("plain Enter must not open a tab or window")
	}
}

func TestOpenLinkNewTabAndWindow(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), keymap.KeyEvent{Key: "Enter", Ctrl: true})
	if err != nil || !handled {
		t.Fatalf("Ctrl+Enter = %v, %v", handled, err)
	}
	if len(page.newTabs) != 1 || page.newTabs[0] != "https://www.google.com/url?q=one" {
		t.Errorf("newTabs = %v, want the resolved first-result URL", page.newTabs)
	}

	handled, err = c.HandleKey(context.Background(), keymap.KeyEvent{Key: "Enter", Shift: true})
	if err != nil || !handled {
		t.Fatalf("Shift+Enter = %v, %v", handled, err)
	}
	if len(page.newWindows) != 1 || page.newWindows[0] != "https://www.google.com/url?q=one" {
		t.Errorf("newWindows = %v, want the resolved first-result URL", page.newWindows)
	}
	if len(page.activated) != 0 {
		t.Error("modified Enter must not run default activation")
	}
}

func TestOpenLinkRebindMatchesKeyOnly(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	configs := c.keys.KeyConfigs()
	configs[keymap.OpenLink] = keymap.Chord{Key: "o"}
	if _, err := c.keys.SaveKeyConfigs(context.Background(), configs); err != nil {
		t.Fatalf("SaveKeyConfigs: %v", err)
	}

	// Ctrl+o still matches open_link: the modifier selects a new tab.
	handled, err := c.HandleKey(context.Background(), keymap.KeyEvent{Key: "o", Ctrl: true})
	if err != nil || !handled {
		t.Fatalf("Ctrl+o = %v, %v", handled, err)
	}
	if len(page.newTabs) != 1 {
		t.Errorf("newTabs = %v, want one entry", page.newTabs)
	}

	// Enter keeps working as the built-in fallback.
	handled, err = c.HandleKey(context.Background(), key("Enter"))
	if err != nil || !handled {
		t.Fatalf("Enter = %v, %v", handled, err)
	}
	if len(page.activated) != 1 {
		t.Errorf("activated = %d links, want 1", len(page.activated))
	}
}

func TestPaginateNext(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("l"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(l) = %v, %v", handled, err)
	}
	want := "https://www.google.com/search?q=go&start=10"
	if len(page.navigated) != 1 || page.navigated[0] != want {
		t.Errorf("navigated = %v, want [%s]", page.navigated, want)
	}
}

func TestPaginatePreviousAbsent(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("h"))
	if err != nil {
		t.Fatalf("HandleKey(h): %v", err)
	}
	if handled || len(page.navigated) != 0 {
		t.Errorf("missing previous anchor must be a no-op, navigated = %v", page.navigated)
	}
}

func TestSwitchVertical(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("i"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(i) = %v, %v", handled, err)
	}
	want := "https://www.google.com/search?q=go&tbm=isch"
	if len(page.navigated) != 1 || page.navigated[0] != want {
		t.Errorf("navigated = %v, want [%s]", page.navigated, want)
	}
}

func TestSwitchToCurrentVerticalIsNoOp(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("a"))
	if err != nil {
		t.Fatalf("HandleKey(a): %v", err)
	}
	if handled || len(page.navigated) != 0 {
		t.Errorf("switching to the current vertical must be a no-op, navigated = %v", page.navigated)
	}
}

func TestSwitchToYouTubeAndMaps(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go+tutorial", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if handled, err := c.HandleKey(context.Background(), key("y")); err != nil || !handled {
		t.Fatalf("HandleKey(y) = %v, %v", handled, err)
	}
	if handled, err := c.HandleKey(context.Background(), key("m")); err != nil || !handled {
		t.Fatalf("HandleKey(m) = %v, %v", handled, err)
	}
	want := []string{
		"https://www.youtube.com/results?search_query=go+tutorial",
		"https://maps.google.com/maps?q=go+tutorial",
	}
	if len(page.navigated) != 2 || page.navigated[0] != want[0] || page.navigated[1] != want[1] {
		t.Errorf("navigated = %v, want %v", page.navigated, want)
	}
}

const youtubePage = `<html><body><div id="contents">
<ytd-video-renderer id="v1"><a href="/watch?v=1">one</a></ytd-video-renderer>
<ytd-video-renderer id="v2"><a href="/watch?v=2">two</a></ytd-video-renderer>
</div></body></html>`

const youtubePageGrown = `<html><body><div id="contents">
<ytd-video-renderer id="v1"><a href="/watch?v=1">one</a></ytd-video-renderer>
<ytd-video-renderer id="v2"><a href="/watch?v=2">two</a></ytd-video-renderer>
<ytd-video-renderer id="v3"><a href="/watch?v=3">three</a></ytd-video-renderer>
</div></body></html>`

func TestIncrementalLoadRefreshesResults(t *testing.T) {
	page := newFakePage(t, "https://www.youtube.com/results?search_query=go", youtubePage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := c.HandleKey(context.Background(), key("j")); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if got := c.Cursor(); got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}

	// The page streams in a third result; the next move_down must see it.
	grown, err := goquery.NewDocumentFromReader(strings.NewReader(youtubePageGrown))
	if err != nil {
		t.Fatalf("parsing grown fixture: %v", err)
	}
	page.nextDoc = grown

	handled, err := c.HandleKey(context.Background(), key("j"))
	if err != nil || !handled {
		t.Fatalf("HandleKey(j) = %v, %v", handled, err)
	}
	if got := c.Cursor(); got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
	if grown.Find("ytd-video-renderer#v3."+highlight.ClassLight).Length() != 1 {
		t.Error("third result should carry the marker after the refresh")
	}
}

func TestPaginationNoOpOnIncrementalPages(t *testing.T) {
	page := newFakePage(t, "https://www.youtube.com/results?search_query=go", youtubePage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	handled, err := c.HandleKey(context.Background(), key("l"))
	if err != nil {
		t.Fatalf("HandleKey(l): %v", err)
	}
	if handled || len(page.navigated) != 0 {
		t.Error("pagination keys must be a no-op on incremental page types")
	}
}

func TestReinitReplacesSession(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := c.HandleKey(context.Background(), key("j")); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}

	// The tab navigated to an image search for a new query.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(serpPage))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	page.loc = "https://www.google.com/search?q=cats&tbm=isch"
	page.doc = doc

	if err := c.Reinit(context.Background()); err != nil {
		t.Fatalf("Reinit: %v", err)
	}
	if got := c.Cursor(); got != 0 {
		t.Errorf("cursor = %d after Reinit, want 0", got)
	}
	if got := markedHeading(t, page.doc); got != "First" {
		t.Errorf("highlighted %q after Reinit, want First", got)
	}

	handled, err := c.HandleKey(context.Background(), key("i"))
	if err != nil {
		t.Fatalf("HandleKey(i): %v", err)
	}
	if handled {
		t.Error("switch to image on an image page must be a no-op after Reinit")
	}
}

func TestHandleMessageUpdatesKeymap(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	configs := keymap.Defaults()
	configs[keymap.MoveDown] = keymap.Chord{Key: "n", Ctrl: true}
	if err := <-c.HandleMessage(context.Background(), Message{Type: UpdateKeyMappings, KeyConfigs: configs}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := c.keys.KeyConfigs()[keymap.MoveDown]; got != configs[keymap.MoveDown] {
		t.Errorf("move_down = %+v, want rebound chord", got)
	}

	if err := <-c.HandleMessage(context.Background(), Message{Type: ClearKeyMappings}); err != nil {
		t.Fatalf("HandleMessage(clear): %v", err)
	}
	if got := c.keys.KeyConfigs()[keymap.MoveDown]; got != keymap.Defaults()[keymap.MoveDown] {
		t.Errorf("move_down = %+v after clear, want default", got)
	}
}

func TestHandleMessageUnknownType(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)

	if err := <-c.HandleMessage(context.Background(), Message{Type: "bogus"}); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("HandleMessage = %v, want ErrUnknownMessage", err)
	}
}

func TestHandleKeyBeforeInit(t *testing.T) {
	page := newFakePage(t, "https://www.google.com/search?q=go", serpPage)
	c := newController(t, page)

	handled, err := c.HandleKey(context.Background(), key("j"))
	if err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if handled {
		t.Error("keys must pass through before Init")
	}
}
