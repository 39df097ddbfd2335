package card

import (
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/shopspring/decimal"
)

// Row is one formatted price line on the back of a card.
type Row struct {
	Sign     string `json:"sign"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// String renders the row as "$ 65000.12 (USD)".
func (r Row) String() string {
	return r.Sign + " " + r.Amount + " (" + r.Currency + ")"
}

// View is the client-facing state of a card.
type View struct {
	ID      string           `json:"id"`
	Face    Face             `json:"face"`
	Busy    bool             `json:"busy"`
	Loaded  bool             `json:"loaded"`
	Ignored bool             `json:"ignored,omitempty"`
	Prices  *core.SpotPrices `json:"prices,omitempty"`
	Rows    []Row            `json:"rows,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (c *card) view(id string) View {
	v := View{
		ID:     id,
		Face:   c.face,
		Busy:   c.busy,
		Loaded: c.loaded,
		Error:  c.message,
	}
	if c.loaded {
		p := c.prices
		v.Prices = &p
		v.Rows = Rows(p)
	}
	return v
}

// Rows formats spot prices for display. Amounts keep the precision the
// source returned instead of a fixed number of decimals.
func Rows(p core.SpotPrices) []Row {
	return []Row{
		{Sign: "$", Amount: decimal.NewFromFloat(p.USD).String(), Currency: "USD"},
		{Sign: "€", Amount: decimal.NewFromFloat(p.EUR).String(), Currency: "EUR"},
		{Sign: "₪", Amount: decimal.NewFromFloat(p.ILS).String(), Currency: "ILS"},
	}
}
