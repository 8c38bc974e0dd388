// Package theme classifies a page background as light or dark.
package theme

import (
	"regexp"
	"strconv"
)

// Theme is the detected page theme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// DefaultThreshold is the luminance cutoff between dark and light.
const DefaultThreshold = 128

// RGB holds a background color triple. Components are plain ints and may
// fall outside [0, 255]; classification uses the raw values without clamping.
type RGB [3]int

var rgbComponents = regexp.MustCompile(`\d+`)

// ParseBackgroundRGB extracts an RGB triple from a computed background-color
// string such as "rgb(255, 255, 255)" or "rgba(32, 33, 36, 0.9)".
// It reports false when fewer than three numeric components are present
// (e.g. "transparent" or a keyword color) or a component does not fit an int.
func ParseBackgroundRGB(s string) (RGB, bool) {
	parts := rgbComponents.FindAllString(s, 3)
	if len(parts) < 3 {
		return RGB{}, false
	}
	var rgb RGB
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return RGB{}, false
		}
		rgb[i] = n
	}
	return rgb, true
}

// FromRGB classifies a background color using the perceived-brightness
// formula (r*299 + g*587 + b*114) / 1000. Luminance below the threshold is
// dark; the threshold itself belongs to light.
func FromRGB(rgb RGB, threshold int) Theme {
	luminance := float64(rgb[0]*299+rgb[1]*587+rgb[2]*114) / 1000
	if luminance < float64(threshold) {
		return Dark
	}
	return Light
}

// BackgroundSampler reads the computed background color of the page body.
// Implementations return the raw computed-style string.
type BackgroundSampler interface {
	BodyBackgroundColor() (string, error)
}

// Detect samples the page background and classifies it. When no usable
// color can be extracted it falls back to Light.
func Detect(sampler BackgroundSampler, threshold int) Theme {
	s, err := sampler.BodyBackgroundColor()
	if err != nil {
		return Light
	}
	rgb, ok := ParseBackgroundRGB(s)
	if !ok {
		return Light
	}
	return FromRGB(rgb, threshold)
}
