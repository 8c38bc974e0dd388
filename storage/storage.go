// Package storage provides the persisted key-value record store used for
// user settings.
package storage

import (
	"context"
	"encoding/json"
)

// Store is a namespaced record store. Get with no keys returns the whole
// record. Every operation reports the platform failure when one occurred,
// even if the underlying write partially landed.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, items map[string]any) error
	Remove(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
