// Package locator discovers the result-card elements on a search results
// page. The target markup is third-party, versioned and undocumented, so
// discovery runs an ordered list of structural heuristics and returns the
// first one that finds anything.
package locator

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"searchnav/pagetype"
)

// Config tunes the discovery heuristics. The ancestor-walk levels are
// empirically calibrated against the current markup generation and drift as
// it changes; they are configuration, not law.
type Config struct {
	// Levels walked up from a heading to approximate the card boundary in
	// the legacy fallback. Web results nest headings far deeper than image
	// results do.
	AncestorLevelsAll   int
	AncestorLevelsOther int

	// Which card families to include on the video platform.
	YouTube YouTubeOptions
}

// YouTubeOptions selects optional card families beyond base video cards.
type YouTubeOptions struct {
	Shorts bool
	Mix    bool
	Ads    bool
}

// DefaultConfig returns the tuning for the current markup snapshot.
func DefaultConfig() Config {
	return Config{
		AncestorLevelsAll:   9,
		AncestorLevelsOther: 2,
	}
}

var (
	selHeading     = cascadia.MustCompile("div h3")
	selNewsHeading = cascadia.MustCompile(`div div[role="heading"]`)
	selLegacyCard  = cascadia.MustCompile("div.g")
	selH3          = cascadia.MustCompile("h3")

	inlineHidden = regexp.MustCompile(`\bdisplay\s*:\s*none\b`)
)

// youtubeBaseCard is the stable video card element; the rest are optional
// card families toggled by YouTubeOptions.
const (
	youtubeBaseCard  = "ytd-video-renderer"
	youtubeAdCard    = "ytd-ad-slot-renderer"
	youtubeShortCard = "ytm-shorts-lockup-view-model-v2.shortsLockupViewModelHost.yt-horizontal-list-renderer"
	youtubeMixCard   = ".yt-lockup-view-model-wiz.yt-lockup-view-model-wiz--horizontal.yt-lockup-view-model-wiz--collection-stack-2"
)

// Strategy is one discovery heuristic: a pure function from a document and
// page type to a result sequence, empty when it has no match.
type Strategy struct {
	Name   string
	Locate func(doc *goquery.Document, pt pagetype.PageType, cfg Config) []*html.Node
}

// Strategies returns the ordered heuristics tried for a page type.
func Strategies(pt pagetype.PageType) []Strategy {
	if pt == pagetype.YouTube {
		return []Strategy{{Name: "youtube-cards", Locate: youtubeCards}}
	}
	return []Strategy{
		{Name: "heading-arity", Locate: headingArity},
		{Name: "legacy-class", Locate: legacyClass},
	}
}

// Locate returns the ordered result elements for the page type. It never
// fails: when no heuristic matches, the sequence is empty. Given an
// unchanged document, repeated calls yield identical sequences.
func Locate(doc *goquery.Document, pt pagetype.PageType, cfg Config) []*html.Node {
	for _, s := range Strategies(pt) {
		if results := s.Locate(doc, pt, cfg); len(results) > 0 {
			return results
		}
	}
	return nil
}

// RootSelector returns the CSS selector whose appearance signals that the
// result container for the page type has rendered.
func RootSelector(pt pagetype.PageType) string {
	if pt == pagetype.YouTube {
		return "#contents"
	}
	return "#rso, #search"
}

// searchRoot picks the result container: a primary id with a fallback,
// distinct for the video platform.
func searchRoot(doc *goquery.Document, pt pagetype.PageType) *html.Node {
	if pt == pagetype.YouTube {
		return elementByID(doc, "contents")
	}
	if root := elementByID(doc, "rso"); root != nil {
		return root
	}
	return elementByID(doc, "search")
}

func elementByID(doc *goquery.Document, id string) *html.Node {
	sel := doc.Find("#" + id)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// headingArity walks visible children of the root and splits containers by
// how many heading elements they hold: exactly one marks a leaf result, more
// than one means the container is still a grouping and is split further,
// none means noise.
func headingArity(doc *goquery.Document, pt pagetype.PageType, _ Config) []*html.Node {
	root := searchRoot(doc, pt)
	if root == nil {
		return nil
	}
	sel := selHeading
	if pt == pagetype.News {
		sel = selNewsHeading
	}
	return collectSingleHeadings(root, sel)
}

func collectSingleHeadings(el *html.Node, sel cascadia.Selector) []*html.Node {
	var results []*html.Node
	for _, child := range visibleChildren(el) {
		switch len(cascadia.QueryAll(child, sel)) {
		case 0:
			// noise, skip the subtree
		case 1:
			results = append(results, child)
		default:
			results = append(results, collectSingleHeadings(child, sel)...)
		}
	}
	return results
}

// visibleChildren returns element children that are not hidden by an inline
// display:none style or aria-hidden="true". Hidden subtrees are pruned, not
// descended into.
func visibleChildren(el *html.Node) []*html.Node {
	var children []*html.Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if inlineHidden.MatchString(attr(c, "style")) {
			continue
		}
		if attr(c, "aria-hidden") == "true" {
			continue
		}
		children = append(children, c)
	}
	return children
}

// legacyClass handles older markup generations: first the per-result card
// class, then headings with a fixed ancestor walk up to the approximate card
// boundary.
func legacyClass(doc *goquery.Document, pt pagetype.PageType, cfg Config) []*html.Node {
	if cards := cascadia.QueryAll(docNode(doc), selLegacyCard); len(cards) > 0 {
		return cards
	}

	root := elementByID(doc, "search")
	if root == nil {
		return nil
	}
	levels := cfg.AncestorLevelsOther
	if pt == pagetype.All {
		levels = cfg.AncestorLevelsAll
	}

	var results []*html.Node
	seen := make(map[*html.Node]bool)
	for _, h3 := range cascadia.QueryAll(root, selH3) {
		card := ancestor(h3, levels)
		if !seen[card] {
			seen[card] = true
			results = append(results, card)
		}
	}
	return results
}

// ancestor walks up the given number of element levels, stopping early at
// the last element ancestor.
func ancestor(el *html.Node, levels int) *html.Node {
	current := el
	for i := 0; i < levels; i++ {
		parent := current.Parent
		if parent == nil || parent.Type != html.ElementNode {
			break
		}
		current = parent
	}
	return current
}

// youtubeCards collects typed card elements in one combined query: the
// platform's markup is a flat list of custom elements, so no recursive
// drilling is needed.
func youtubeCards(doc *goquery.Document, pt pagetype.PageType, cfg Config) []*html.Node {
	root := searchRoot(doc, pt)
	if root == nil {
		return nil
	}
	selectors := []string{youtubeBaseCard}
	if cfg.YouTube.Ads {
		selectors = append(selectors, youtubeAdCard)
	}
	if cfg.YouTube.Shorts {
		selectors = append(selectors, youtubeShortCard)
	}
	if cfg.YouTube.Mix {
		selectors = append(selectors, youtubeMixCard)
	}
	sel, err := cascadia.Compile(strings.Join(selectors, ","))
	if err != nil {
		return nil
	}
	return cascadia.QueryAll(root, sel)
}

func docNode(doc *goquery.Document) *html.Node {
	return doc.Get(0)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
