package core

import "strings"

// MaxSelection is the hard cap on tracked coins.
const MaxSelection = 5

// Coin is one entry of the market listing. It is cached verbatim.
type Coin struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Image          string  `json:"image"`
	CurrentPrice   float64 `json:"current_price,omitempty"`
	MarketCap      float64 `json:"market_cap,omitempty"`
	MarketCapRank  int     `json:"market_cap_rank,omitempty"`
	PriceChange24h float64 `json:"price_change_percentage_24h,omitempty"`
}

// Ticker returns the uppercased symbol used by the live pipeline.
func (c Coin) Ticker() string {
	return strings.ToUpper(c.Symbol)
}

// Label renders the coin the way the grid and dialogs show it: "Bitcoin (BTC)".
func (c Coin) Label() string {
	return c.Name + " (" + c.Ticker() + ")"
}

// SpotPrices holds a coin's price in the three detail currencies
type SpotPrices struct {
	USD float64 `json:"usd"`
	EUR float64 `json:"eur"`
	ILS float64 `json:"ils"`
}

// PriceTable is the decoded multi-symbol price response: ticker to a map of
// currency to raw JSON value. Values are left undecoded so that a missing or
// non-numeric quote can be told apart from a failed request.
type PriceTable map[string]map[string]any
