// Package keymap maps keyboard chords to navigation actions and persists
// the user's bindings.
package keymap

import (
	"runtime"
	"strings"
)

// Chord is a primary key identity plus four modifier flags. Key uses the
// browser KeyboardEvent.key vocabulary ("j", "Enter", "ArrowUp", ...).
type Chord struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
	Meta  bool   `json:"meta"`
}

// KeyEvent is a raw keyboard event as delivered by the input source.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

// specialKeys maps key identities to their display form.
var specialKeys = map[string]string{
	"ArrowUp":    "↑",
	"ArrowDown":  "↓",
	"ArrowLeft":  "←",
	"ArrowRight": "→",
	"Escape":     "Esc",
	" ":          "Space",
}

// reverseKeys is the inverse of specialKeys.
var reverseKeys = map[string]string{
	"↑":     "ArrowUp",
	"↓":     "ArrowDown",
	"←":     "ArrowLeft",
	"→":     "ArrowRight",
	"Esc":   "Escape",
	"Space": " ",
}

// metaLabel is how the meta modifier is rendered on this platform.
// Overridable in tests.
var metaLabel = defaultMetaLabel()

func defaultMetaLabel() string {
	if runtime.GOOS == "darwin" {
		return "Cmd"
	}
	return "Win"
}

// Format renders a chord in its canonical display form, modifiers first in
// fixed order, joined by " + ". A bare modifier key is not emitted as a
// primary token.
func (c Chord) Format() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Alt {
		parts = append(parts, "Alt")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Meta {
		parts = append(parts, metaLabel)
	}
	switch c.Key {
	case "Control", "Alt", "Shift", "Meta":
	default:
		if display, ok := specialKeys[c.Key]; ok {
			parts = append(parts, display)
		} else {
			parts = append(parts, c.Key)
		}
	}
	return strings.Join(parts, " + ")
}

// FormatKey renders only the primary key of a chord, for the reduced
// key-only binding form.
func (c Chord) FormatKey() string {
	if display, ok := specialKeys[c.Key]; ok {
		return display
	}
	return c.Key
}

// Parse converts a display string back into a chord. Tokens are split on
// "+" and trimmed; modifier tokens are matched case-sensitively and any
// other token becomes the primary key (last one wins). Parse never fails:
// unrecognized input simply lands in the Key field.
func Parse(s string) Chord {
	var c Chord
	for _, part := range strings.Split(s, "+") {
		switch token := strings.TrimSpace(part); token {
		case "Ctrl":
			c.Ctrl = true
		case "Alt":
			c.Alt = true
		case "Shift":
			c.Shift = true
		case "Cmd", "Win":
			c.Meta = true
		default:
			if key, ok := reverseKeys[token]; ok {
				c.Key = key
			} else {
				c.Key = token
			}
		}
	}
	return c
}
