package collector

import (
	"context"

	"github.com/newthinker/cryptodash/internal/core"
)

// Getter issues a GET and decodes the JSON body into out.
type Getter interface {
	GetJSON(ctx context.Context, url string, out any) error
}

// CatalogSource fetches the full coin listing
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]core.Coin, error)
}

// SpotSource fetches one coin's price in USD, EUR and ILS
type SpotSource interface {
	FetchSpotPrices(ctx context.Context, id string) (core.SpotPrices, error)
}

// PriceSource fetches current USD quotes for many tickers in one request.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string) (core.PriceTable, error)
}
