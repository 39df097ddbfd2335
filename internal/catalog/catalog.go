// Package catalog caches the full coin listing in the key-value store so the
// grid does not refetch it on every load.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/metrics"
	"github.com/newthinker/cryptodash/internal/storage/kv"
	"go.uber.org/zap"
)

// Key is the store key holding the cached coin list.
const Key = "coins"

// Load sources reported to metrics.
const (
	SourceCache  = "cache"
	SourceRemote = "remote"
)

// Cache reads and writes the cached catalog and falls back to the remote
// listing when nothing usable is cached.
type Cache struct {
	store   kv.Store
	source  collector.CatalogSource
	metrics *metrics.Registry
	logger  *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records catalog loads.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a catalog cache.
func New(store kv.Store, source collector.CatalogSource, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadCached returns the cached list. A missing, corrupt or non-list value is
// reported as absent rather than as an error.
func (c *Cache) LoadCached(ctx context.Context) ([]core.Coin, bool) {
	var coins []core.Coin
	ok, err := kv.GetJSON(ctx, c.store, Key, &coins)
	if err != nil {
		c.logger.Debug("cached catalog unusable", zap.Error(err))
		return nil, false
	}
	if !ok || coins == nil {
		return nil, false
	}
	return coins, true
}

// Fetch retrieves the listing from the remote source.
func (c *Cache) Fetch(ctx context.Context) ([]core.Coin, error) {
	if c.source == nil {
		return nil, core.WrapError(core.ErrNetwork, fmt.Errorf("no catalog source configured"))
	}
	return c.source.FetchCatalog(ctx)
}

// Save persists coins. Failure is logged and swallowed.
func (c *Cache) Save(ctx context.Context, coins []core.Coin) {
	if err := kv.SetJSON(ctx, c.store, Key, coins); err != nil {
		c.logger.Warn("failed to cache catalog", zap.Int("coins", len(coins)), zap.Error(err))
	}
}

// Load returns the cached list when present, otherwise fetches and caches it.
func (c *Cache) Load(ctx context.Context) ([]core.Coin, error) {
	if coins, ok := c.LoadCached(ctx); ok {
		c.metrics.RecordCatalogLoad(SourceCache)
		return coins, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the listing regardless of the cache and saves it.
func (c *Cache) Refresh(ctx context.Context) ([]core.Coin, error) {
	coins, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordCatalogLoad(SourceRemote)
	c.logger.Info("catalog fetched", zap.Int("coins", len(coins)))
	c.Save(ctx, coins)
	return coins, nil
}

// Search filters coins whose name or symbol contains query, ignoring case.
// An empty query matches everything.
func Search(coins []core.Coin, query string) []core.Coin {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return coins
	}

	var out []core.Coin
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Symbol), q) {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the coin with the given id.
func Find(coins []core.Coin, id string) (core.Coin, bool) {
	for _, c := range coins {
		if c.ID == id {
			return c, true
		}
	}
	return core.Coin{}, false
}

// Symbols maps selected ids to uppercase tickers in selection order.
func Symbols(coins []core.Coin, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, core.ErrNoSelection
	}

	symbols := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c, ok := Find(coins, id)
		if !ok {
			return nil, core.WrapError(core.ErrCoinNotFound, fmt.Errorf("%s", id))
		}
		sym := c.Ticker()
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}
