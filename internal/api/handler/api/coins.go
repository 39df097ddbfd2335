// Package api holds the JSON handlers of the dashboard.
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/cryptodash/internal/api/response"
	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/card"
	"go.uber.org/zap"
)

// CoinsApp defines the interface needed from app.App.
type CoinsApp interface {
	Coins(ctx context.Context, query string) ([]app.CoinView, error)
	MoreInfo(ctx context.Context, id string) (card.View, error)
	Back(id string) card.View
}

// CoinsHandler serves the coin grid and the card flips.
type CoinsHandler struct {
	app    CoinsApp
	logger *zap.Logger
}

// NewCoinsHandler creates a new coins handler.
func NewCoinsHandler(app CoinsApp, logger *zap.Logger) *CoinsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoinsHandler{app: app, logger: logger}
}

// List returns the grid, filtered by the q query parameter.
func (h *CoinsHandler) List(w http.ResponseWriter, r *http.Request) {
	coins, err := h.app.Coins(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Warn("loading coins failed", zap.Error(err))
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"coins": coins,
		"count": len(coins),
	})
}

// MoreInfo activates the info button of a card. A failed price fetch is
// part of the card state, so it is answered with the card and not an error.
func (h *CoinsHandler) MoreInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, err := h.app.MoreInfo(r.Context(), id)
	if err != nil && v.Error == "" {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, v)
}

// Back flips a card to its front.
func (h *CoinsHandler) Back(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.app.Back(r.PathValue("id")))
}
