// internal/storage/kv/interface.go
package kv

import (
	"context"
	"encoding/json"

	"github.com/newthinker/cryptodash/internal/core"
)

// Store is a string key-value store, the server-side stand-in for a
// browser's localStorage.
type Store interface {
	// Get returns the value at key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value at key into out. It reports false when the key
// is absent; a value that is present but does not decode returns
// core.ErrStorageRead.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, core.WrapError(core.ErrStorageRead, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, core.WrapError(core.ErrStorageRead, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return core.WrapError(core.ErrStorageWrite, err)
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		return core.WrapError(core.ErrStorageWrite, err)
	}
	return nil
}
