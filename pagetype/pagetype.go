// Package pagetype classifies which search surface a URL is showing.
package pagetype

import (
	"errors"
	"fmt"
	"net/url"
)

// PageType identifies the search vertical or platform being displayed.
type PageType string

const (
	All      PageType = "all"
	Image    PageType = "image"
	Videos   PageType = "videos"
	Shopping PageType = "shopping"
	News     PageType = "news"
	YouTube  PageType = "youtube-search-result"
)

var (
	// ErrNoQuery means the URL carries no search query, so no vertical can
	// be determined.
	ErrNoQuery = errors.New("no search query in URL")

	// ErrUnknownVertical means a vertical-selecting parameter was present
	// but its value is not a recognized token.
	ErrUnknownVertical = errors.New("unrecognized search vertical parameter")

	// ErrUnsupportedHost means the URL is not a supported search surface.
	ErrUnsupportedHost = errors.New("unsupported host")
)

// tbm is the legacy vertical parameter; udm is the newer unified-mode
// parameter. Both tables are exact, case-sensitive token matches.
var tbmTypes = map[string]PageType{
	"isch": Image,
	"vid":  Videos,
	"shop": Shopping,
	"nws":  News,
}

var udmTypes = map[string]PageType{
	"2":  Image,
	"7":  Videos,
	"12": News,
	"28": Shopping,
}

// Classify derives the page type from a URL. Only the Google search host and
// the YouTube results page are supported surfaces; anything else is an
// error, never a guess.
func Classify(u *url.URL) (PageType, error) {
	switch u.Hostname() {
	case "www.google.com":
		return classifyGoogle(u.Query())
	case "www.youtube.com":
		if u.Path == "/results" && u.Query().Has("search_query") {
			return YouTube, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedHost, u.Host)
}

// classifyGoogle reads the tbm and udm parameters. tbm takes priority when
// both are present. A query with neither parameter is the default "all" tab;
// a parameter that is present but empty counts as an unrecognized value, not
// as absent.
func classifyGoogle(params url.Values) (PageType, error) {
	if !params.Has("q") {
		return "", ErrNoQuery
	}
	if !params.Has("tbm") && !params.Has("udm") {
		return All, nil
	}
	tbm := params.Get("tbm")
	udm := params.Get("udm")
	if pt, ok := tbmTypes[tbm]; ok {
		return pt, nil
	}
	if pt, ok := udmTypes[udm]; ok {
		return pt, nil
	}
	return "", fmt.Errorf("%w: tbm=%q udm=%q", ErrUnknownVertical, tbm, udm)
}

// SupportsIncrementalLoad reports whether the page type streams in more
// results as the user scrolls, requiring the result list to be re-derived
// when the cursor reaches the end.
func (pt PageType) SupportsIncrementalLoad() bool {
	switch pt {
	case Image, Videos, Shopping, YouTube:
		return true
	}
	return false
}

// Paginated reports whether the page type uses previous/next page anchors
// instead of infinite scroll.
func (pt PageType) Paginated() bool {
	switch pt {
	case All, News:
		return true
	}
	return false
}
