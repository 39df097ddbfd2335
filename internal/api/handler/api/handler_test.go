package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/config"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/storage/kv"
)

type mockMarket struct {
	coins   []core.Coin
	spotErr error
	prices  core.PriceTable
}

func (m *mockMarket) FetchCatalog(ctx context.Context) ([]core.Coin, error) {
	return m.coins, nil
}

func (m *mockMarket) FetchSpotPrices(ctx context.Context, id string) (core.SpotPrices, error) {
	if m.spotErr != nil {
		return core.SpotPrices{}, m.spotErr
	}
	return core.SpotPrices{USD: 65000.5, EUR: 60000, ILS: 240000}, nil
}

func (m *mockMarket) FetchPrices(ctx context.Context, symbols []string) (core.PriceTable, error) {
	return m.prices, nil
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

func newTestApp(t *testing.T, m *mockMarket) *app.App {
	t.Helper()
	a, err := app.New(config.Defaults(), kv.NewMemoryStore(), app.Sources{Catalog: m, Spot: m, Prices: m}, nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return a
}

var errUpstream = core.WrapError(core.ErrNetwork, errors.New("HTTP 429"))
