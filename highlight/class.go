package highlight

import (
	"strings"

	"golang.org/x/net/html"
)

// Class attribute helpers on raw nodes. Mutations happen on the snapshot;
// the browser adapter mirrors marker changes to the live page.

func classList(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classList(n) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	for i, a := range n.Attr {
		if a.Key == "class" {
			if a.Val == "" {
				n.Attr[i].Val = class
			} else {
				n.Attr[i].Val = a.Val + " " + class
			}
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

func removeClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		var kept []string
		for _, c := range strings.Fields(a.Val) {
			if c != class {
				kept = append(kept, c)
			}
		}
		n.Attr[i].Val = strings.Join(kept, " ")
		return
	}
}
