package cryptocompare

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
)

const (
	baseURL = "https://min-api.cryptocompare.com"
)

// CryptoCompare serves multi-symbol USD quotes for the live report.
type CryptoCompare struct {
	getter  collector.Getter
	baseURL string
}

// New creates a new CryptoCompare client
func New(timeout time.Duration) *CryptoCompare {
	return &CryptoCompare{
		getter:  collector.NewClient(timeout, nil),
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a CryptoCompare client with custom base URL (for testing)
func NewWithBaseURL(url string, timeout time.Duration) *CryptoCompare {
	c := New(timeout)
	c.baseURL = url
	return c
}

func (c *CryptoCompare) Name() string {
	return "cryptocompare"
}

// FetchPrices requests USD quotes for all symbols at once. Tickers that fail
// validation are left out of the request, so they come back missing and the
// caller treats them like any other unquoted symbol.
//
// The endpoint answers an unquoted pair with 200 and
// {"Response":"Error","Message":..}. That yields an empty table so every
// requested symbol counts as missing. A body that is not a JSON object is
// core.ErrInvalidResponse.
func (c *CryptoCompare) FetchPrices(ctx context.Context, symbols []string) (core.PriceTable, error) {
	fsyms := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if err := collector.ValidateTicker(s); err == nil {
			fsyms = append(fsyms, s)
		}
	}
	if len(fsyms) == 0 {
		return core.PriceTable{}, nil
	}

	endpoint := fmt.Sprintf("%s/data/pricemulti?fsyms=%s&tsyms=USD",
		c.baseURL, url.QueryEscape(strings.Join(fsyms, ",")))

	var body any
	if err := c.getter.GetJSON(ctx, endpoint, &body); err != nil {
		if errors.Is(err, core.ErrMalformedResponse) {
			return nil, core.WrapError(core.ErrInvalidResponse, err)
		}
		return nil, err
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return nil, core.WrapError(core.ErrInvalidResponse, fmt.Errorf("price response is not an object"))
	}
	if resp, _ := obj["Response"].(string); resp == "Error" {
		return core.PriceTable{}, nil
	}

	table := make(core.PriceTable, len(obj))
	for sym, v := range obj {
		if quotes, ok := v.(map[string]any); ok {
			table[sym] = quotes
		}
	}
	return table, nil
}
