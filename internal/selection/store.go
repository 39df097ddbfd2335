// Package selection persists the ordered set of coin ids tracked by the
// live report.
package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/storage/kv"
	"go.uber.org/zap"
)

// Key is the store key holding the JSON array of selected ids.
const Key = "selectedCoins"

// Store is the persisted selection. Every mutation rewrites the stored array
// before returning.
type Store struct {
	kv     kv.Store
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore creates a selection store over a key-value store.
func NewStore(store kv.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: store, logger: logger}
}

// Get returns the selected ids in insertion order. A missing or unreadable
// value yields an empty selection.
func (s *Store) Get(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

func (s *Store) read(ctx context.Context) []string {
	var raw []string
	ok, err := kv.GetJSON(ctx, s.kv, Key, &raw)
	if err != nil {
		s.logger.Warn("discarding unreadable selection", zap.Error(err))
		return []string{}
	}
	if !ok {
		return []string{}
	}

	ids := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) > core.MaxSelection {
		s.logger.Warn("stored selection exceeds limit, truncating",
			zap.Int("stored", len(ids)),
			zap.Int("limit", core.MaxSelection),
		)
		ids = ids[:core.MaxSelection]
	}
	return ids
}

func (s *Store) write(ctx context.Context, ids []string) error {
	return kv.SetJSON(ctx, s.kv, Key, ids)
}

// Contains reports whether id is selected.
func (s *Store) Contains(ctx context.Context, id string) bool {
	return contains(s.Get(ctx), id)
}

// Size returns the number of selected ids.
func (s *Store) Size(ctx context.Context) int {
	return len(s.Get(ctx))
}

// Add admits id. Adding a selected id is a no-op. When the selection is full
// it returns core.ErrSelectionLimitExceeded and leaves the selection unchanged;
// the caller then offers the replace flow.
func (s *Store) Add(ctx context.Context, id string) error {
	if id == "" {
		return core.WrapError(core.ErrCoinNotFound, fmt.Errorf("empty coin id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.read(ctx)
	if contains(ids, id) {
		return nil
	}
	if len(ids) >= core.MaxSelection {
		return core.WrapError(core.ErrSelectionLimitExceeded,
			fmt.Errorf("%d of %d coins selected", len(ids), core.MaxSelection))
	}

	return s.write(ctx, append(ids, id))
}

// Remove drops id. Removing an unselected id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.read(ctx)
	if !contains(ids, id) {
		return nil
	}
	return s.write(ctx, without(ids, id))
}

// Replace swaps removeID for addID in one write: the confirmation step of the
// replace-one-of-five flow. The set size is unchanged.
func (s *Store) Replace(ctx context.Context, removeID, addID string) error {
	if addID == "" {
		return core.WrapError(core.ErrCoinNotFound, fmt.Errorf("empty coin id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.read(ctx)
	if !contains(ids, removeID) {
		return core.WrapError(core.ErrNotSelected, fmt.Errorf("%s", removeID))
	}
	if contains(ids, addID) {
		return nil
	}

	return s.write(ctx, append(without(ids, removeID), addID))
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
