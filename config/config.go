// Package config provides configuration loading for searchnav using TOML.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"searchnav/keymap"
)

// Browser settings
type Browser struct {
	ChromePath         string `json:"chromePath"`
	UserAgent          string `json:"userAgent"`
	Headless           bool   `json:"headless"`
	RemoteURL          string `json:"remoteUrl"` // DevTools URL of a running Chrome
	PollIntervalMS     int    `json:"pollIntervalMs"`
	RootTimeoutSeconds int    `json:"rootTimeoutSeconds"`
}

// Locator settings
type Locator struct {
	AncestorLevelsAll   int  `json:"ancestorLevelsAll"`
	AncestorLevelsOther int  `json:"ancestorLevelsOther"`
	YouTubeShorts       bool `json:"youtubeShorts"`
	YouTubeMixes        bool `json:"youtubeMixes"`
	YouTubeAds          bool `json:"youtubeAds"`
}

// Theme settings
type Theme struct {
	LuminanceThreshold int `json:"luminanceThreshold"`
}

// Highlight settings
type Highlight struct {
	ScrollIntoView bool `json:"scrollIntoView"`
	AutoExpand     bool `json:"autoExpand"`
	SimulateHover  bool `json:"simulateHover"`
}

// Keybindings configuration. Values are chord display strings, e.g. "j" or
// "Ctrl + Enter".
type Keybindings struct {
	MoveUp           string `json:"moveUp"`
	MoveDown         string `json:"moveDown"`
	OpenLink         string `json:"openLink"`
	NavigatePrevious string `json:"navigatePrevious"`
	NavigateNext     string `json:"navigateNext"`
	SwitchToAll      string `json:"switchToAll"`
	SwitchToImage    string `json:"switchToImage"`
	SwitchToVideos   string `json:"switchToVideos"`
	SwitchToShopping string `json:"switchToShopping"`
	SwitchToNews     string `json:"switchToNews"`
	SwitchToMap      string `json:"switchToMap"`
	SwitchToYouTube  string `json:"switchToYouTube"`
}

// Config is the main configuration struct
type Config struct {
	Browser     Browser     `json:"browser"`
	Locator     Locator     `json:"locator"`
	Theme       Theme       `json:"theme"`
	Highlight   Highlight   `json:"highlight"`
	Keybindings Keybindings `json:"keybindings"`
}

// Default returns the default configuration.
func Default() *Config {
	defaults := keymap.Defaults()
	return &Config{
		Browser: Browser{
			ChromePath:         "",
			UserAgent:          "",
			Headless:           false,
			RemoteURL:          "",
			PollIntervalMS:     250,
			RootTimeoutSeconds: 5,
		},
		Locator: Locator{
			AncestorLevelsAll:   9,
			AncestorLevelsOther: 2,
			YouTubeShorts:       true,
			YouTubeMixes:        true,
			YouTubeAds:          true,
		},
		Theme: Theme{
			LuminanceThreshold: 128,
		},
		Highlight: Highlight{
			ScrollIntoView: true,
			AutoExpand:     true,
			SimulateHover:  true,
		},
		Keybindings: Keybindings{
			MoveUp:           defaults[keymap.MoveUp].Format(),
			MoveDown:         defaults[keymap.MoveDown].Format(),
			OpenLink:         defaults[keymap.OpenLink].Format(),
			NavigatePrevious: defaults[keymap.NavigatePrevious].Format(),
			NavigateNext:     defaults[keymap.NavigateNext].Format(),
			SwitchToAll:      defaults[keymap.SwitchToAll].Format(),
			SwitchToImage:    defaults[keymap.SwitchToImage].Format(),
			SwitchToVideos:   defaults[keymap.SwitchToVideos].Format(),
			SwitchToShopping: defaults[keymap.SwitchToShopping].Format(),
			SwitchToNews:     defaults[keymap.SwitchToNews].Format(),
			SwitchToMap:      defaults[keymap.SwitchToMap].Format(),
			SwitchToYouTube:  defaults[keymap.SwitchToYouTube].Format(),
		},
	}
}

// PollInterval returns the DOM poll interval as a duration.
func (b Browser) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalMS) * time.Millisecond
}

// RootTimeout returns the result-root wait as a duration.
func (b Browser) RootTimeout() time.Duration {
	return time.Duration(b.RootTimeoutSeconds) * time.Second
}

// KeyConfigs parses the keybinding strings into a chord table. Unset
// bindings keep their defaults.
func (k Keybindings) KeyConfigs() keymap.Configs {
	configs := keymap.Defaults()
	set := func(action keymap.Action, s string) {
		if s != "" {
			configs[action] = keymap.Parse(s)
		}
	}
	set(keymap.MoveUp, k.MoveUp)
	set(keymap.MoveDown, k.MoveDown)
	set(keymap.OpenLink, k.OpenLink)
	set(keymap.NavigatePrevious, k.NavigatePrevious)
	set(keymap.NavigateNext, k.NavigateNext)
	set(keymap.SwitchToAll, k.SwitchToAll)
	set(keymap.SwitchToImage, k.SwitchToImage)
	set(keymap.SwitchToVideos, k.SwitchToVideos)
	set(keymap.SwitchToShopping, k.SwitchToShopping)
	set(keymap.SwitchToNews, k.SwitchToNews)
	set(keymap.SwitchToMap, k.SwitchToMap)
	set(keymap.SwitchToYouTube, k.SwitchToYouTube)
	return configs
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "searchnav"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration, layering user config on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from an explicit path, layering it on top
// of defaults. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	user := Default()
	if _, err := toml.DecodeFile(path, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DefaultTOML returns the default configuration as a TOML string.
// Used for -init-config to generate a user config file.
func DefaultTOML() string {
	return `# searchnav configuration
# Save to ~/.config/searchnav/config.toml and customize
# Only include settings you want to change from defaults

# Browser settings
[browser]
chromePath = ""               # Path to Chrome/Chromium (empty = auto-detect)
userAgent = ""                # Override the browser user agent (empty = Chrome's own)
headless = false              # Drive a headless Chrome
remoteUrl = ""                # DevTools websocket URL of a running Chrome (empty = launch one)
pollIntervalMs = 250          # How often to snapshot the page DOM
rootTimeoutSeconds = 5        # How long to wait for the result container

# Result discovery settings
[locator]
ancestorLevelsAll = 9         # Ancestor climb for legacy all-results headings
ancestorLevelsOther = 2       # Ancestor climb for other verticals
youtubeShorts = true          # Include shorts shelves in the result list
youtubeMixes = true           # Include mix/playlist shelves in the result list
youtubeAds = true             # Include promoted slots in the result list

# Theme detection
[theme]
luminanceThreshold = 128      # Background luminance below this counts as dark

# Highlight side effects
[highlight]
scrollIntoView = true         # Keep the selected result in view
autoExpand = true             # Expand collapsed question accordions on select
simulateHover = true          # Synthesize hover so video thumbnails preview

# Keybindings - customize your keys here!
# Chords join modifiers and a key with " + ", e.g. "Ctrl + n".
[keybindings]
moveUp = "k"
moveDown = "j"
openLink = "Enter"
navigatePrevious = "h"
navigateNext = "l"
switchToAll = "a"
switchToImage = "i"
switchToVideos = "v"
switchToShopping = "s"
switchToNews = "n"
switchToMap = "m"
switchToYouTube = "y"
`
}
