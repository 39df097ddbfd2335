package web

import (
	"net/http"

	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/core"
	"go.uber.org/zap"
)

// CatalogData holds data for the coin grid template
type CatalogData struct {
	Title    string
	Query    string
	Coins    []app.CoinView
	Selected int
	Max      int
	Error    string
}

// Catalog renders the coin grid.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	data := CatalogData{
		Title: "Coins",
		Query: query,
		Max:   core.MaxSelection,
	}

	coins, err := h.data.Coins(r.Context(), query)
	if err != nil {
		h.logger.Warn("loading coin grid failed", zap.Error(err))
		data.Error = "Could not load the coin list. Please try again later."
	}
	data.Coins = coins
	for _, c := range coins {
		if c.Selected {
			data.Selected++
		}
	}

	h.render(w, "catalog.html", data)
}
