package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/cryptodash/internal/card"
	"github.com/newthinker/cryptodash/internal/catalog"
	"github.com/newthinker/cryptodash/internal/chart"
	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/collector/binance"
	"github.com/newthinker/cryptodash/internal/collector/coingecko"
	"github.com/newthinker/cryptodash/internal/collector/cryptocompare"
	"github.com/newthinker/cryptodash/internal/config"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
	"github.com/newthinker/cryptodash/internal/metrics"
	"github.com/newthinker/cryptodash/internal/notifier"
	"github.com/newthinker/cryptodash/internal/notifier/webhook"
	"github.com/newthinker/cryptodash/internal/selection"
	"github.com/newthinker/cryptodash/internal/storage/archive"
	"github.com/newthinker/cryptodash/internal/storage/kv"
	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// NoSelectionMessage is shown on the live page when nothing is selected.
const NoSelectionMessage = "No coins selected for live tracking. Please choose up to 5 favorite coins on the Markets page."

// App is the main application orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry

	store     kv.Store
	catalog   *catalog.Cache
	selection *selection.Store
	deck      *card.Deck
	prices    collector.PriceSource
	archive   archive.Archive
	policy    live.SkipPolicy
	notifiers *notifier.Registry

	closers []func() error
}

// Sources are the remote collaborators of an App.
type Sources struct {
	Catalog collector.CatalogSource
	Spot    collector.SpotSource
	Prices  collector.PriceSource
}

// Option configures an App.
type Option func(*App)

// WithMetrics records business metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(a *App) { a.metrics = m }
}

// WithNotifiers reports live sessions that stop on an error.
func WithNotifiers(r *notifier.Registry) Option {
	return func(a *App) { a.notifiers = r }
}

// WithArchive stores chart snapshots of live sessions.
func WithArchive(ar archive.Archive) Option {
	return func(a *App) { a.archive = ar }
}

// New creates an App over an existing store and sources.
func New(cfg *config.Config, store kv.Store, src Sources, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no key-value store"))
	}

	policy, err := live.ParsePolicy(cfg.Live.SkipPolicy)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		prices: src.Prices,
		policy: policy,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.catalog = catalog.New(store, src.Catalog,
		catalog.WithMetrics(a.metrics),
		catalog.WithLogger(logger.Named("catalog")),
	)
	a.selection = selection.NewStore(store, logger.Named("selection"))
	a.deck = card.NewDeck(src.Spot, a.metrics, logger.Named("card"))
	a.metrics.SetSelectionSize(a.selection.Size(context.Background()))

	return a, nil
}

// NewFromConfig opens the configured store and archive and wires the
// CoinGecko collector and the configured live price source.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, closeStore, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	gecko := coingecko.NewWithBaseURL(cfg.Market.CoinGeckoAPIKey, cfg.Market.CoinGeckoURL, cfg.Market.RequestTimeout)
	prices, err := LiveSources(cfg.Market).Select(liveSourceName(cfg.Market))
	if err != nil {
		closeStore()
		return nil, err
	}

	notifiers, err := Notifiers(cfg.Notifiers)
	if err != nil {
		closeStore()
		return nil, err
	}

	opts := []Option{WithMetrics(reg), WithNotifiers(notifiers)}
	if cfg.Live.Snapshots {
		ar, err := archive.New(cfg.Archive)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		opts = append(opts, WithArchive(ar))
	}

	a, err := New(cfg, store, Sources{Catalog: gecko, Spot: gecko, Prices: prices}, logger, opts...)
	if err != nil {
		closeStore()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	logger.Info("app initialized",
		zap.String("storage", cfg.Storage.Type),
		zap.Bool("snapshots", a.archive != nil),
		zap.String("skip_policy", string(a.policy)),
		zap.String("live_source", prices.Name()),
	)
	return a, nil
}

// Notifiers builds the stop event notifiers named in the config.
func Notifiers(cfgs []config.NotifierConfig) (*notifier.Registry, error) {
	r := notifier.NewRegistry()
	for i, c := range cfgs {
		var n notifier.Notifier
		switch c.Type {
		case "webhook":
			n = &webhook.Webhook{}
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifiers[%d]: unknown type %q", i, c.Type))
		}
		if err := n.Init(notifier.Config(c)); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := r.Register(n); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	return r, nil
}

// LiveSources registers every live price source the config can name.
func LiveSources(cfg config.MarketConfig) *collector.Registry {
	r := collector.NewRegistry()
	r.Register(cryptocompare.NewWithBaseURL(cfg.CryptoCompareURL, cfg.RequestTimeout))
	if cfg.BinanceURL != "" {
		r.Register(binance.NewWithBaseURL(cfg.BinanceURL, cfg.RequestTimeout))
	}
	return r
}

func liveSourceName(cfg config.MarketConfig) string {
	if cfg.LiveSource == "" {
		return "cryptocompare"
	}
	return cfg.LiveSource
}

// OpenStore opens the key-value store named by cfg. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Type {
	case "", "memory":
		return kv.NewMemoryStore(), noop, nil
	case "file":
		s, err := kv.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "redis":
		s, err := kv.NewRedisStore(ctx, kv.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Archive returns the snapshot archive, nil when snapshots are disabled.
func (a *App) Archive() archive.Archive {
	return a.archive
}

// Catalog returns the cached coin list, fetching it on first use.
func (a *App) Catalog(ctx context.Context) ([]core.Coin, error) {
	return a.catalog.Load(ctx)
}

// RefreshCatalog refetches the coin list and replaces the cache.
func (a *App) RefreshCatalog(ctx context.Context) ([]core.Coin, error) {
	return a.catalog.Refresh(ctx)
}

// CoinView is a grid entry.
type CoinView struct {
	core.Coin
	Selected bool `json:"selected"`
}

// Coins returns the grid filtered by query with selection flags set.
func (a *App) Coins(ctx context.Context, query string) ([]CoinView, error) {
	coins, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]struct{})
	for _, id := range a.selection.Get(ctx) {
		selected[id] = struct{}{}
	}

	matches := catalog.Search(coins, query)
	out := make([]CoinView, 0, len(matches))
	for _, c := range matches {
		_, sel := selected[c.ID]
		out = append(out, CoinView{Coin: c, Selected: sel})
	}
	return out, nil
}

// Coin looks up one catalog entry.
func (a *App) Coin(ctx context.Context, id string) (core.Coin, error) {
	if err := collector.ValidateCoinID(id); err != nil {
		return core.Coin{}, core.WrapError(core.ErrCoinNotFound, err)
	}
	coins, err := a.Catalog(ctx)
	if err != nil {
		return core.Coin{}, err
	}
	c, ok := catalog.Find(coins, id)
	if !ok {
		return core.Coin{}, core.WrapError(core.ErrCoinNotFound, fmt.Errorf("%s", id))
	}
	return c, nil
}

// Selection returns the selected ids.
func (a *App) Selection(ctx context.Context) []string {
	return a.selection.Get(ctx)
}

// SelectedCoins returns the selected catalog entries. Ids missing from the
// catalog are returned with only their id set.
func (a *App) SelectedCoins(ctx context.Context) ([]core.Coin, error) {
	coins, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	ids := a.selection.Get(ctx)
	out := make([]core.Coin, 0, len(ids))
	for _, id := range ids {
		c, ok := catalog.Find(coins, id)
		if !ok {
			c = core.Coin{ID: id}
		}
		out = append(out, c)
	}
	return out, nil
}

// Select adds id to the selection. When five coins are already selected it
// returns the replace dialog together with core.ErrSelectionLimitExceeded.
func (a *App) Select(ctx context.Context, id string) (*selection.Dialog, error) {
	if err := collector.ValidateCoinID(id); err != nil {
		return nil, core.WrapError(core.ErrCoinNotFound, err)
	}
	coins, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := catalog.Find(coins, id); !ok {
		return nil, core.WrapError(core.ErrCoinNotFound, fmt.Errorf("%s", id))
	}

	err = a.selection.Add(ctx, id)
	if errors.Is(err, core.ErrSelectionLimitExceeded) {
		d := a.selection.ReplaceDialog(ctx, coins, id)
		return &d, err
	}
	if err != nil {
		return nil, err
	}
	a.syncSelectionSize(ctx)
	return nil, nil
}

// Deselect removes id from the selection.
func (a *App) Deselect(ctx context.Context, id string) error {
	if err := a.selection.Remove(ctx, id); err != nil {
		return err
	}
	a.syncSelectionSize(ctx)
	return nil
}

// Toggle flips the selection state of id and reports the new state.
func (a *App) Toggle(ctx context.Context, id string) (bool, *selection.Dialog, error) {
	if a.selection.Contains(ctx, id) {
		return false, nil, a.Deselect(ctx, id)
	}
	d, err := a.Select(ctx, id)
	if err != nil {
		return false, d, err
	}
	return true, nil, nil
}

// Replace confirms the replace dialog: removeID goes out, addID comes in.
func (a *App) Replace(ctx context.Context, removeID, addID string) error {
	if err := collector.ValidateCoinID(addID); err != nil {
		return core.WrapError(core.ErrCoinNotFound, err)
	}
	coins, err := a.Catalog(ctx)
	if err != nil {
		return err
	}
	if _, ok := catalog.Find(coins, addID); !ok {
		return core.WrapError(core.ErrCoinNotFound, fmt.Errorf("%s", addID))
	}
	if err := a.selection.Replace(ctx, removeID, addID); err != nil {
		return err
	}
	a.logger.Info("selection replaced", zap.String("removed", removeID), zap.String("added", addID))
	a.syncSelectionSize(ctx)
	return nil
}

func (a *App) syncSelectionSize(ctx context.Context) {
	a.metrics.SetSelectionSize(a.selection.Size(ctx))
}

// MoreInfo activates the info button of a card. Only coins in the catalog
// have cards.
func (a *App) MoreInfo(ctx context.Context, id string) (card.View, error) {
	if _, err := a.Coin(ctx, id); err != nil {
		return card.View{}, err
	}
	return a.deck.MoreInfo(ctx, id)
}

// Back flips a card to its front.
func (a *App) Back(id string) card.View {
	return a.deck.Back(id)
}

// LiveSymbols maps the selection to tickers using the cached catalog.
func (a *App) LiveSymbols(ctx context.Context) ([]string, error) {
	ids := a.selection.Get(ctx)
	if len(ids) == 0 {
		return nil, core.ErrNoSelection
	}
	coins, ok := a.catalog.LoadCached(ctx)
	if !ok {
		var err error
		if coins, err = a.catalog.Load(ctx); err != nil {
			return nil, err
		}
	}
	return catalog.Symbols(coins, ids)
}

// NewLiveSession builds an idle session over the current selection. When
// snapshots are enabled both charts are also rendered to the archive.
func (a *App) NewLiveSession(ctx context.Context, id string, percent, price live.Surface, onStop func(error)) (*live.Session, error) {
	symbols, err := a.LiveSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if a.prices == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no live price source"))
	}

	if a.archive != nil {
		log := a.logger.Named("snapshot")
		percent = chart.Multi(percent, chart.NewPNGSurface(id, live.KindPercent, a.archive, log))
		price = chart.Multi(price, chart.NewPNGSurface(id, live.KindPrice, a.archive, log))
	}

	opts := []live.Option{
		live.WithInterval(a.cfg.Live.Interval),
		live.WithPolicy(a.policy),
		live.WithMetrics(a.metrics),
		live.WithLogger(a.logger.Named("live")),
	}
	opts = append(opts, live.WithOnStop(func(err error) {
		if onStop != nil {
			onStop(err)
		}
		if err != nil {
			a.notifyStopped(id, symbols, err)
		}
	}))
	return live.NewSession(id, symbols, a.prices, percent, price, opts...)
}

// notifyStopped hands a failed session to the notifiers without blocking the
// session's polling goroutine.
func (a *App) notifyStopped(id string, symbols []string, err error) {
	if a.notifiers == nil || a.notifiers.Len() == 0 {
		return
	}
	ev := notifier.Event{
		Session:   id,
		Symbols:   symbols,
		Message:   live.Message(err),
		StoppedAt: time.Now(),
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		ev.Code = ce.Code
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for name, nerr := range a.notifiers.NotifyAll(ctx, ev) {
			a.logger.Warn("stop notification failed",
				zap.String("notifier", name),
				zap.String("session", id),
				zap.Error(nerr),
			)
		}
	}()
}

// Stats reports application state for the health endpoint.
func (a *App) Stats(ctx context.Context) map[string]any {
	cached, ok := a.catalog.LoadCached(ctx)
	coins := 0
	if ok {
		coins = len(cached)
	}
	return map[string]any{
		"selection":   a.selection.Size(ctx),
		"catalog":     coins,
		"skip_policy": string(a.policy),
		"snapshots":   a.archive != nil,
	}
}
