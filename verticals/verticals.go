// Package verticals builds destination URLs for switching between search
// surfaces, carrying the current query text across.
package verticals

import (
	"net/url"

	"searchnav/keymap"
	"searchnav/pagetype"
)

// Pagination anchor ids on paginated result pages.
const (
	PrevPageAnchorID = "pnprev"
	NextPageAnchorID = "pnnext"
)

const (
	googleHome   = "https://www.google.com/"
	googleSearch = "https://www.google.com/search"
	googleMaps   = "https://maps.google.com/maps"
	youtubeHome  = "https://www.youtube.com/results"
)

// vertical parameters for the Google search URL, keyed by switch action.
var googleVerticals = map[keymap.Action]url.Values{
	keymap.SwitchToAll:      {},
	keymap.SwitchToImage:    {"tbm": {"isch"}},
	keymap.SwitchToVideos:   {"udm": {"7"}},
	keymap.SwitchToShopping: {"tbm": {"shop"}},
	keymap.SwitchToNews:     {"tbm": {"nws"}},
}

// targetType maps switch actions to the page type they land on, for the
// already-there no-op check.
var targetType = map[keymap.Action]pagetype.PageType{
	keymap.SwitchToAll:      pagetype.All,
	keymap.SwitchToImage:    pagetype.Image,
	keymap.SwitchToVideos:   pagetype.Videos,
	keymap.SwitchToShopping: pagetype.Shopping,
	keymap.SwitchToNews:     pagetype.News,
	keymap.SwitchToYouTube:  pagetype.YouTube,
}

// TargetType returns the page type a switch action navigates to, false for
// non-switch actions or targets outside the classifier's vocabulary (map).
func TargetType(action keymap.Action) (pagetype.PageType, bool) {
	pt, ok := targetType[action]
	return pt, ok
}

// URLFor builds the destination URL for a switch action and query text.
// It reports false when there is nothing to navigate to: an unknown action,
// or an empty query for a vertical that needs one. Switching to the all tab
// with an empty query falls back to the home page instead.
func URLFor(action keymap.Action, query string) (string, bool) {
	switch action {
	case keymap.SwitchToMap:
		if query == "" {
			return "", false
		}
		return googleMaps + "?q=" + url.QueryEscape(query), true

	case keymap.SwitchToYouTube:
		if query == "" {
			return "", false
		}
		return youtubeHome + "?search_query=" + url.QueryEscape(query), true
	}

	params, ok := googleVerticals[action]
	if !ok {
		return "", false
	}
	if query == "" {
		if action == keymap.SwitchToAll {
			return googleHome, true
		}
		return "", false
	}

	values := url.Values{"q": {query}}
	for key, vals := range params {
		values[key] = vals
	}
	return googleSearch + "?" + values.Encode(), true
}
