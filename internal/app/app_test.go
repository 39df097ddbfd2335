package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/cryptodash/internal/card"
	"github.com/newthinker/cryptodash/internal/config"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
	"github.com/newthinker/cryptodash/internal/metrics"
	"github.com/newthinker/cryptodash/internal/notifier"
	"github.com/newthinker/cryptodash/internal/storage/archive"
	"github.com/newthinker/cryptodash/internal/storage/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMarket struct {
	coins        []core.Coin
	catalogCalls atomic.Int32
	spotCalls    atomic.Int32
	prices       core.PriceTable
	priceErr     error
}

func (m *mockMarket) FetchCatalog(ctx context.Context) ([]core.Coin, error) {
	m.catalogCalls.Add(1)
	return m.coins, nil
}

func (m *mockMarket) FetchSpotPrices(ctx context.Context, id string) (core.SpotPrices, error) {
	m.spotCalls.Add(1)
	return core.SpotPrices{USD: 1, EUR: 0.9, ILS: 3.7}, nil
}

func (m *mockMarket) FetchPrices(ctx context.Context, symbols []string) (core.PriceTable, error) {
	return m.prices, m.priceErr
}

func testCoins(n int) []core.Coin {
	coins := make([]core.Coin, n)
	for i := range coins {
		coins[i] = core.Coin{
			ID:     fmt.Sprintf("coin-%d", i),
			Symbol: fmt.Sprintf("c%d", i),
			Name:   fmt.Sprintf("Coin %d", i),
		}
	}
	return coins
}

func newTestApp(t *testing.T, m *mockMarket, opts ...Option) *App {
	t.Helper()
	a, err := New(config.Defaults(), kv.NewMemoryStore(), Sources{Catalog: m, Spot: m, Prices: m}, nil, opts...)
	require.NoError(t, err)
	return a
}

func TestApp_New(t *testing.T) {
	a := newTestApp(t, &mockMarket{})
	stats := a.Stats(context.Background())
	assert.Equal(t, 0, stats["selection"])
	assert.Equal(t, "halt", stats["skip_policy"])
}

func TestApp_NewRejectsBadPolicy(t *testing.T) {
	cfg := config.Defaults()
	cfg.Live.SkipPolicy = "retry"
	_, err := New(cfg, kv.NewMemoryStore(), Sources{}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = New(nil, nil, Sources{}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestApp_CoinsMarksSelection(t *testing.T) {
	m := &mockMarket{coins: testCoins(3)}
	a := newTestApp(t, m)
	ctx := context.Background()

	_, err := a.Select(ctx, "coin-1")
	require.NoError(t, err)

	views, err := a.Coins(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.False(t, views[0].Selected)
	assert.True(t, views[1].Selected)

	views, err = a.Coins(ctx, "coin 2")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "coin-2", views[0].ID)

	assert.Equal(t, int32(1), m.catalogCalls.Load(), "catalog is cached after the first load")
}

func TestApp_SelectLimitReturnsDialog(t *testing.T) {
	m := &mockMarket{coins: testCoins(7)}
	a := newTestApp(t, m)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := a.Select(ctx, fmt.Sprintf("coin-%d", i))
		require.NoError(t, err)
	}

	d, err := a.Select(ctx, "coin-5")
	require.True(t, errors.Is(err, core.ErrSelectionLimitExceeded))
	require.NotNil(t, d)
	assert.Equal(t, "coin-5", d.PendingID)
	assert.Len(t, d.Options, 5)
	assert.Equal(t, "Coin 0 (C0)", d.Options[0].Label)
	assert.Contains(t, d.Message, "Coin 5 (C5)")

	require.NoError(t, a.Replace(ctx, "coin-2", "coin-5"))
	sel := a.Selection(ctx)
	assert.Len(t, sel, 5)
	assert.Contains(t, sel, "coin-5")
	assert.NotContains(t, sel, "coin-2")
}

func TestApp_SelectUnknownCoin(t *testing.T) {
	a := newTestApp(t, &mockMarket{coins: testCoins(2)})
	ctx := context.Background()

	_, err := a.Select(ctx, "dogecoin")
	assert.True(t, errors.Is(err, core.ErrCoinNotFound))

	_, err = a.Select(ctx, "bad id/..")
	assert.True(t, errors.Is(err, core.ErrCoinNotFound))

	err = a.Replace(ctx, "coin-0", "dogecoin")
	assert.True(t, errors.Is(err, core.ErrCoinNotFound))
}

func TestApp_Toggle(t *testing.T) {
	a := newTestApp(t, &mockMarket{coins: testCoins(2)})
	ctx := context.Background()

	on, d, err := a.Toggle(ctx, "coin-0")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Nil(t, d)

	on, _, err = a.Toggle(ctx, "coin-0")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, a.Selection(ctx))
}

func TestApp_SelectionGauge(t *testing.T) {
	reg := metrics.NewRegistry()
	a := newTestApp(t, &mockMarket{coins: testCoins(3)}, WithMetrics(reg))
	ctx := context.Background()

	a.Select(ctx, "coin-0")
	a.Select(ctx, "coin-1")
	a.Deselect(ctx, "coin-0")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "cryptodash_selection_size" {
			found = true
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestApp_MoreInfo(t *testing.T) {
	m := &mockMarket{coins: testCoins(1)}
	a := newTestApp(t, m)
	ctx := context.Background()

	v, err := a.MoreInfo(ctx, "coin-0")
	require.NoError(t, err)
	assert.Equal(t, card.Back, v.Face)
	assert.True(t, v.Loaded)

	v = a.Back("coin-0")
	assert.Equal(t, card.Front, v.Face)

	_, err = a.MoreInfo(ctx, "coin-0")
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.spotCalls.Load())

	_, err = a.MoreInfo(ctx, "")
	assert.True(t, errors.Is(err, core.ErrCoinNotFound))
}

func TestApp_MoreInfoUnknownCoin(t *testing.T) {
	m := &mockMarket{coins: testCoins(1)}
	a := newTestApp(t, m)
	ctx := context.Background()

	for _, id := range []string{"made-up-coin", "coin-9", "../etc"} {
		_, err := a.MoreInfo(ctx, id)
		assert.True(t, errors.Is(err, core.ErrCoinNotFound), "%s: got %v", id, err)
	}
	assert.Equal(t, int32(0), m.spotCalls.Load(), "unknown ids never reach the spot source")

	v := a.Back("coin-0")
	assert.Equal(t, card.Front, v.Face)
}

func TestApp_LiveSymbols(t *testing.T) {
	a := newTestApp(t, &mockMarket{coins: testCoins(3)})
	ctx := context.Background()

	_, err := a.LiveSymbols(ctx)
	assert.True(t, errors.Is(err, core.ErrNoSelection))

	a.Select(ctx, "coin-2")
	a.Select(ctx, "coin-0")
	syms, err := a.LiveSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C2", "C0"}, syms)
}

func TestApp_NewLiveSession(t *testing.T) {
	m := &mockMarket{
		coins:  testCoins(2),
		prices: core.PriceTable{"C0": {"USD": 10.0}, "C1": {"USD": 20.0}},
	}
	cfg := config.Defaults()
	cfg.Live.SkipPolicy = "drop"
	a, err := New(cfg, kv.NewMemoryStore(), Sources{Catalog: m, Spot: m, Prices: m}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.NewLiveSession(ctx, "s1", nil, nil, nil)
	assert.True(t, errors.Is(err, core.ErrNoSelection))

	a.Select(ctx, "coin-0")
	a.Select(ctx, "coin-1")

	s, err := a.NewLiveSession(ctx, "s1", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C0", "C1"}, s.Symbols())
	assert.Equal(t, live.Idle, s.State())
}

func TestApp_LiveSessionSnapshots(t *testing.T) {
	m := &mockMarket{
		coins:  testCoins(1),
		prices: core.PriceTable{"C0": {"USD": 10.0}},
	}
	ar, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Live.Interval = time.Hour
	a, err := New(cfg, kv.NewMemoryStore(), Sources{Catalog: m, Spot: m, Prices: m}, nil, WithArchive(ar))
	require.NoError(t, err)
	ctx := context.Background()
	a.Select(ctx, "coin-0")

	s, err := a.NewLiveSession(ctx, "snap", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Tick(ctx))

	keys, err := ar.List(ctx, "live/snap")
	require.NoError(t, err)
	assert.Equal(t, []string{"live/snap/percent.png", "live/snap/price.png"}, keys)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := OpenStore(ctx, config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = OpenStore(ctx, config.StorageConfig{Type: "file", Path: t.TempDir() + "/store.json"})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	assert.NoError(t, closeFn())

	_, _, err = OpenStore(ctx, config.StorageConfig{Type: "etcd"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestLiveSources(t *testing.T) {
	cfg := config.Defaults().Market

	r := LiveSources(cfg)
	assert.Equal(t, []string{"binance", "cryptocompare"}, r.Names())
	assert.Equal(t, "cryptocompare", liveSourceName(config.MarketConfig{}))

	s, err := r.Select(liveSourceName(cfg))
	require.NoError(t, err)
	assert.Equal(t, "cryptocompare", s.Name())

	cfg.BinanceURL = ""
	_, err = LiveSources(cfg).Select("binance")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

type chanNotifier struct {
	events chan notifier.Event
}

func (c *chanNotifier) Name() string                   { return "chan" }
func (c *chanNotifier) Init(cfg notifier.Config) error { return nil }
func (c *chanNotifier) Notify(ctx context.Context, ev notifier.Event) error {
	c.events <- ev
	return nil
}

func TestApp_LiveSessionNotifiesOnHalt(t *testing.T) {
	m := &mockMarket{
		coins:  testCoins(1),
		prices: core.PriceTable{"C0": {"USD": "n/a"}},
	}
	n := &chanNotifier{events: make(chan notifier.Event, 1)}
	reg := notifier.NewRegistry()
	require.NoError(t, reg.Register(n))

	cfg := config.Defaults()
	cfg.Live.Interval = time.Hour
	a, err := New(cfg, kv.NewMemoryStore(), Sources{Catalog: m, Spot: m, Prices: m}, nil, WithNotifiers(reg))
	require.NoError(t, err)
	ctx := context.Background()
	a.Select(ctx, "coin-0")

	var stopped error
	s, err := a.NewLiveSession(ctx, "halted", nil, nil, func(err error) { stopped = err })
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))

	assert.Error(t, s.Tick(ctx))
	assert.True(t, errors.Is(stopped, core.ErrDataQuality))

	select {
	case ev := <-n.events:
		assert.Equal(t, "halted", ev.Session)
		assert.Equal(t, "DATA_QUALITY", ev.Code)
		assert.Equal(t, "Live updates failed: No price for C0. Try other coins.", ev.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("no stop notification")
	}
}

func TestNotifiers(t *testing.T) {
	r, err := Notifiers([]config.NotifierConfig{
		{Type: "webhook", Params: map[string]any{"url": "http://hooks.local"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	_, err = Notifiers([]config.NotifierConfig{{Type: "webhook"}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = Notifiers([]config.NotifierConfig{{Type: "email"}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
