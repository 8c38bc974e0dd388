package keymap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"searchnav/storage"
)

// Action names one navigation action a chord can be bound to.
type Action string

const (
	MoveUp           Action = "move_up"
	MoveDown         Action = "move_down"
	OpenLink         Action = "open_link"
	NavigatePrevious Action = "navigate_previous"
	NavigateNext     Action = "navigate_next"
	SwitchToImage    Action = "switch_to_image_search"
	SwitchToAll      Action = "switch_to_all_search"
	SwitchToVideos   Action = "switch_to_videos"
	SwitchToShopping Action = "switch_to_shopping"
	SwitchToNews     Action = "switch_to_news"
	SwitchToMap      Action = "switch_to_map"
	SwitchToYouTube  Action = "switch_to_youtube"
)

// Actions lists every bindable action.
var Actions = []Action{
	MoveUp, MoveDown, OpenLink,
	NavigatePrevious, NavigateNext,
	SwitchToImage, SwitchToAll, SwitchToVideos,
	SwitchToShopping, SwitchToNews, SwitchToMap, SwitchToYouTube,
}

// Configs is the full action-to-chord table. Exactly one chord per action.
type Configs map[Action]Chord

// storageKey is the persisted record's field name.
const storageKey = "key_configs"

// Defaults returns the built-in binding table. open_link's chord is matched
// key-only; its modifier fields are kept zeroed.
func Defaults() Configs {
	return Configs{
		MoveUp:           {Key: "k"},
		MoveDown:         {Key: "j"},
		OpenLink:         {Key: "Enter"},
		NavigatePrevious: {Key: "h"},
		NavigateNext:     {Key: "l"},
		SwitchToImage:    {Key: "i"},
		SwitchToAll:      {Key: "a"},
		SwitchToVideos:   {Key: "v"},
		SwitchToShopping: {Key: "s"},
		SwitchToNews:     {Key: "n"},
		SwitchToMap:      {Key: "m"},
		SwitchToYouTube:  {Key: "y"},
	}
}

// Manager owns the authoritative binding table. Matching and saving may be
// reached from independent flows (the key handler and an external settings
// update), so the table is guarded against partial observation.
type Manager struct {
	store storage.Store

	mu      sync.RWMutex
	current Configs
}

// NewManager loads the persisted table, falling back to defaults when the
// record is absent or malformed. A storage failure is returned, not papered
// over with defaults.
func NewManager(ctx context.Context, store storage.Store) (*Manager, error) {
	return NewManagerWithFallback(ctx, store, Defaults())
}

// NewManagerWithFallback is NewManager with a custom fallback table, for
// when the config file supplies bindings but nothing has been stored yet.
// Stored bindings still win.
func NewManagerWithFallback(ctx context.Context, store storage.Store, fallback Configs) (*Manager, error) {
	record, err := store.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("loading key configs: %w", err)
	}

	current := fallback.clone()
	if raw, ok := record[storageKey]; ok {
		var stored Configs
		if err := json.Unmarshal(raw, &stored); err == nil && len(stored) > 0 {
			current = stored
		}
	}

	return &Manager{store: store, current: current}, nil
}

// KeyConfigs returns a snapshot of the current table. The copy is the
// caller's to keep; mutating it does not affect the manager.
func (m *Manager) KeyConfigs() Configs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.clone()
}

// IsKeyMatch reports whether the event matches the chord bound to action.
// open_link compares the key identity only: Ctrl/Cmd/Shift are interpreted
// downstream as open-in-new-tab / new-window signals, not as chord parts.
func (m *Manager) IsKeyMatch(ev KeyEvent, action Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.current[action]
	if !ok {
		return false
	}
	if action == OpenLink {
		return ev.Key == cfg.Key
	}
	return ev.Key == cfg.Key &&
		ev.Ctrl == cfg.Ctrl &&
		ev.Alt == cfg.Alt &&
		ev.Shift == cfg.Shift &&
		ev.Meta == cfg.Meta
}

// SaveKeyConfigs persists the table and swaps it in. On a storage failure
// the in-memory table is left untouched.
func (m *Manager) SaveKeyConfigs(ctx context.Context, configs Configs) (Configs, error) {
	if err := m.store.Set(ctx, map[string]any{storageKey: configs}); err != nil {
		return nil, fmt.Errorf("saving key configs: %w", err)
	}
	m.mu.Lock()
	m.current = configs.clone()
	m.mu.Unlock()
	return configs, nil
}

// ClearKeyConfigs removes the persisted record and resets to defaults.
func (m *Manager) ClearKeyConfigs(ctx context.Context) (Configs, error) {
	if err := m.store.Remove(ctx, storageKey); err != nil {
		return nil, fmt.Errorf("clearing key configs: %w", err)
	}
	defaults := Defaults()
	m.mu.Lock()
	m.current = defaults
	m.mu.Unlock()
	return defaults.clone(), nil
}

func (c Configs) clone() Configs {
	out := make(Configs, len(c))
	for action, chord := range c {
		out[action] = chord
	}
	return out
}
