package web

import (
	"net/http"

	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/core"
	"go.uber.org/zap"
)

// LiveData holds data for the live report template
type LiveData struct {
	Title    string
	Selected []core.Coin
	Empty    string
}

// Live renders the live report page. The charts themselves arrive over the
// websocket.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	data := LiveData{Title: "Live Report"}

	coins, err := h.data.SelectedCoins(r.Context())
	if err != nil {
		h.logger.Warn("loading selection failed", zap.Error(err))
	}
	data.Selected = coins
	if len(coins) == 0 {
		data.Empty = app.NoSelectionMessage
	}

	h.render(w, "live.html", data)
}
