package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
)

const (
	baseURL = "https://api.coingecko.com/api/v3"
)

// Currencies shown on the back of a coin card
var spotCurrencies = []string{"usd", "eur", "ils"}

// CoinGecko serves the coin listing and the per-coin spot prices.
type CoinGecko struct {
	getter  collector.Getter
	baseURL string
}

// New creates a new CoinGecko client. apiKey may be empty.
func New(apiKey string, timeout time.Duration) *CoinGecko {
	headers := map[string]string{}
	if apiKey != "" {
		headers["x-cg-demo-api-key"] = apiKey
	}
	return &CoinGecko{
		getter:  collector.NewClient(timeout, headers),
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a CoinGecko client with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string, timeout time.Duration) *CoinGecko {
	c := New(apiKey, timeout)
	c.baseURL = url
	return c
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// FetchCatalog fetches the market listing. A body that is not a JSON list
// is a malformed response.
func (c *CoinGecko) FetchCatalog(ctx context.Context) ([]core.Coin, error) {
	endpoint := fmt.Sprintf("%s/coins/markets?vs_currency=usd", c.baseURL)

	var raw json.RawMessage
	if err := c.getter.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, core.WrapError(core.ErrMalformedResponse, fmt.Errorf("coin listing is not a list"))
	}

	var coins []core.Coin
	if err := json.Unmarshal(raw, &coins); err != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, fmt.Errorf("decoding coin listing: %w", err))
	}
	return coins, nil
}

// FetchSpotPrices fetches one coin's USD, EUR and ILS prices. All three must
// be numbers.
func (c *CoinGecko) FetchSpotPrices(ctx context.Context, id string) (core.SpotPrices, error) {
	if err := collector.ValidateCoinID(id); err != nil {
		return core.SpotPrices{}, core.WrapError(core.ErrCoinNotFound, err)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd,eur,ils",
		c.baseURL, url.QueryEscape(id))

	var result map[string]map[string]any
	if err := c.getter.GetJSON(ctx, endpoint, &result); err != nil {
		return core.SpotPrices{}, err
	}

	coinData, ok := result[id]
	if !ok {
		return core.SpotPrices{}, core.WrapError(core.ErrMalformedResponse, fmt.Errorf("no data for coin: %s", id))
	}

	values := make(map[string]float64, len(spotCurrencies))
	for _, cur := range spotCurrencies {
		v, ok := coinData[cur].(float64)
		if !ok {
			return core.SpotPrices{}, core.WrapError(core.ErrMalformedResponse,
				fmt.Errorf("missing %s price for %s", cur, id))
		}
		values[cur] = v
	}

	return core.SpotPrices{
		USD: values["usd"],
		EUR: values["eur"],
		ILS: values["ils"],
	}, nil
}
