package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
)

const (
	baseURL = "https://api.binance.com"

	// Tickers are priced against USDT, which stands in for USD.
	quoteAsset = "USDT"
)

// Binance serves live USD quotes from Binance spot tickers. It is an
// alternative to CryptoCompare for the live report.
type Binance struct {
	getter  collector.Getter
	baseURL string
}

// New creates a new Binance price source
func New(timeout time.Duration) *Binance {
	return &Binance{
		getter:  collector.NewClient(timeout, nil),
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance price source with custom base URL (for testing)
func NewWithBaseURL(url string, timeout time.Duration) *Binance {
	b := New(timeout)
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchPrices requests one ticker per symbol concurrently. Binance answers an
// unknown pair with 400, so such a symbol is left out of the table rather
// than failing the whole tick. Any other failure fails the call.
func (b *Binance) FetchPrices(ctx context.Context, symbols []string) (core.PriceTable, error) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		table = make(core.PriceTable, len(symbols))
		errs  []error
	)

	for _, sym := range symbols {
		if err := collector.ValidateTicker(sym); err != nil {
			continue
		}
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			price, ok, err := b.fetchOne(ctx, sym)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			case ok:
				table[sym] = map[string]any{"USD": price}
			}
		}(sym)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return table, nil
}

func (b *Binance) fetchOne(ctx context.Context, sym string) (float64, bool, error) {
	pair := strings.ToUpper(sym) + quoteAsset
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.baseURL, url.QueryEscape(pair))

	var result tickerPrice
	if err := b.getter.GetJSON(ctx, endpoint, &result); err != nil {
		var status *collector.StatusError
		if errors.As(err, &status) && status.StatusCode == http.StatusBadRequest {
			return 0, false, nil
		}
		return 0, false, err
	}

	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		// Unparseable price: report the symbol as unquoted.
		return 0, false, nil
	}
	return price, true, nil
}
