// Package highlight applies the selected marker to one result element and
// drives its side effects (scrolling, accordion expansion, hover
// simulation) through a capability interface.
package highlight

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"searchnav/theme"
)

// ErrInvalidIndex is returned when the index is outside the result
// sequence. The cursor is never silently clamped: a wrong index means the
// visible highlight and the logical state have diverged.
var ErrInvalidIndex = errors.New("invalid result index")

// Marker classes, one per theme. Unhighlight removes both unconditionally.
const (
	ClassLight = "sn-selected-light"
	ClassDark  = "sn-selected-dark"
)

// Options controls the optional side effects. Use DefaultOptions as the
// base and flip fields off as needed; the zero value disables everything.
type Options struct {
	// ScrollIntoView performs an instant centered scroll when the element
	// is not fully within the viewport vertically.
	ScrollIntoView bool

	// AutoExpand clicks a collapsed inline accordion (the FAQ-style
	// "related questions" panel some results carry).
	AutoExpand bool

	// SimulateHover dispatches synthetic mouseenter/mouseleave on an
	// embedded thumbnail. The video platform only starts previews on real
	// hover events, which keyboard navigation never produces.
	SimulateHover bool
}

// DefaultOptions enables every side effect.
func DefaultOptions() Options {
	return Options{ScrollIntoView: true, AutoExpand: true, SimulateHover: true}
}

// Effects performs the side effects on the live page. AddClass and
// RemoveClass mirror marker mutations so the visible page tracks the
// snapshot. The pure marker-class contract stays testable without one:
// NopEffects satisfies it.
type Effects interface {
	AddClass(n *html.Node, class string)
	RemoveClass(n *html.Node, class string)
	ScrollIntoView(n *html.Node)
	Click(n *html.Node)
	HoverEnter(n *html.Node)
	HoverLeave(n *html.Node)
}

// NopEffects discards every side effect.
type NopEffects struct{}

func (NopEffects) AddClass(*html.Node, string)    {}
func (NopEffects) RemoveClass(*html.Node, string) {}
func (NopEffects) ScrollIntoView(*html.Node)      {}
func (NopEffects) Click(*html.Node)               {}
func (NopEffects) HoverEnter(*html.Node)          {}
func (NopEffects) HoverLeave(*html.Node)          {}

var (
	selAccordionWrapper  = cascadia.MustCompile(".related-question-pair")
	selAccordionClosed   = cascadia.MustCompile(`div[jsname][jsaction][role="button"][aria-expanded="false"]`)
	selAccordionExpanded = cascadia.MustCompile(`div[jsname][jsaction][role="button"][aria-expanded="true"]`)
	selThumbnail         = cascadia.MustCompile("ytd-thumbnail")
)

// Highlight marks the result at index with the theme's class. The index is
// validated first; on failure nothing is mutated.
func Highlight(results []*html.Node, index int, th theme.Theme, fx Effects, opts Options) error {
	if index < 0 || index >= len(results) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(results))
	}
	target := results[index]

	class := ClassLight
	if th == theme.Dark {
		class = ClassDark
	}
	addClass(target, class)
	fx.AddClass(target, class)

	if opts.ScrollIntoView {
		fx.ScrollIntoView(target)
	}
	if opts.AutoExpand {
		if btn := accordionButton(target, selAccordionClosed); btn != nil {
			fx.Click(btn)
		}
	}
	if opts.SimulateHover {
		if thumb := cascadia.Query(target, selThumbnail); thumb != nil {
			fx.HoverEnter(thumb)
		}
	}
	return nil
}

// Unhighlight removes both marker classes from the result at index and
// reverses the expansion/hover side effects.
func Unhighlight(results []*html.Node, index int, fx Effects, opts Options) error {
	if index < 0 || index >= len(results) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(results))
	}
	target := results[index]

	removeClass(target, ClassDark)
	removeClass(target, ClassLight)
	fx.RemoveClass(target, ClassDark)
	fx.RemoveClass(target, ClassLight)

	if opts.AutoExpand {
		if btn := accordionButton(target, selAccordionExpanded); btn != nil {
			fx.Click(btn)
		}
	}
	if opts.SimulateHover {
		if thumb := cascadia.Query(target, selThumbnail); thumb != nil {
			fx.HoverLeave(thumb)
		}
	}
	return nil
}

// accordionButton finds the accordion toggle, but only inside results that
// actually carry the related-questions wrapper.
func accordionButton(result *html.Node, state cascadia.Selector) *html.Node {
	if cascadia.Query(result, selAccordionWrapper) == nil {
		return nil
	}
	return cascadia.Query(result, state)
}

// HasMarker reports whether the element currently carries either theme's
// marker class.
func HasMarker(n *html.Node) bool {
	return hasClass(n, ClassLight) || hasClass(n, ClassDark)
}
