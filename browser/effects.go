package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"searchnav/highlight"
)

// Effects returns the live-page side effect sink for this session. Snapshot
// nodes are addressed in the live DOM by their structural CSS path.
func (s *Session) Effects() highlight.Effects {
	return &pageEffects{s: s}
}

type pageEffects struct {
	s *Session
}

func (e *pageEffects) eval(js string) {
	// Effects are fire-and-forget: a missed scroll or hover never fails the
	// navigation that triggered it.
	if err := e.s.eval(context.Background(), js, nil); err != nil {
		e.s.log.V(1).Info("effect failed", "error", err.Error())
	}
}

func (e *pageEffects) withElement(n *html.Node, body string) {
	path, ok := nodePath(n)
	if !ok {
		return
	}
	e.eval(fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return;
		%s
	})()`, path, body))
}

func (e *pageEffects) AddClass(n *html.Node, class string) {
	e.withElement(n, fmt.Sprintf(`el.classList.add(%q);`, class))
}

func (e *pageEffects) RemoveClass(n *html.Node, class string) {
	e.withElement(n, fmt.Sprintf(`el.classList.remove(%q);`, class))
}

func (e *pageEffects) ScrollIntoView(n *html.Node) {
	e.withElement(n, `const r = el.getBoundingClientRect();
		if (r.top >= 0 && r.bottom <= window.innerHeight) return;
		el.scrollIntoView({behavior: 'instant', block: 'center'});`)
}

func (e *pageEffects) Click(n *html.Node) {
	e.withElement(n, `el.click();`)
}

func (e *pageEffects) HoverEnter(n *html.Node) {
	e.withElement(n, `el.dispatchEvent(new MouseEvent('mouseenter', {bubbles: false}));
		el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));`)
}

func (e *pageEffects) HoverLeave(n *html.Node) {
	e.withElement(n, `el.dispatchEvent(new MouseEvent('mouseleave', {bubbles: false}));
		el.dispatchEvent(new MouseEvent('mouseout', {bubbles: true}));`)
}

var simpleID = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// nodePath builds a CSS selector addressing n's position in its document:
// the nearest ancestor with a usable id anchors the path, and every step
// below it is tag:nth-of-type. It reports false for nodes outside a
// document tree.
func nodePath(n *html.Node) (string, bool) {
	var steps []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			break
		}
		if id := elementID(cur); id != "" {
			steps = append(steps, "#"+id)
			return joinPath(steps), true
		}
		if cur.Data == "html" || cur.Data == "body" {
			steps = append(steps, cur.Data)
			return joinPath(steps), true
		}
		steps = append(steps, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
	}
	return "", false
}

func elementID(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "id" && simpleID.MatchString(a.Val) {
			return a.Val
		}
	}
	return ""
}

func nthOfType(n *html.Node) int {
	nth := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			nth++
		}
	}
	return nth
}

func joinPath(steps []string) string {
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}
