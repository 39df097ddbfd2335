package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newthinker/cryptodash/internal/api/response"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/selection"
	"go.uber.org/zap"
)

// SelectionApp defines the interface needed from app.App.
type SelectionApp interface {
	SelectedCoins(ctx context.Context) ([]core.Coin, error)
	Select(ctx context.Context, id string) (*selection.Dialog, error)
	Deselect(ctx context.Context, id string) error
	Replace(ctx context.Context, removeID, addID string) error
}

// SelectionHandler handles selection API requests.
type SelectionHandler struct {
	app    SelectionApp
	logger *zap.Logger
}

// NewSelectionHandler creates a new selection handler.
func NewSelectionHandler(app SelectionApp, logger *zap.Logger) *SelectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionHandler{app: app, logger: logger}
}

// AddRequest is the request body for selecting a coin.
type AddRequest struct {
	ID string `json:"id"`
}

// ReplaceRequest is the body of the replace dialog confirmation.
type ReplaceRequest struct {
	Remove string `json:"remove"`
	Add    string `json:"add"`
}

// List returns the selected coins.
func (h *SelectionHandler) List(w http.ResponseWriter, r *http.Request) {
	coins, err := h.app.SelectedCoins(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"coins": coins,
		"count": len(coins),
		"max":   core.MaxSelection,
	})
}

// Add selects a coin. A full selection answers 409 with the replace dialog
// in the error details.
func (h *SelectionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if req.ID == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, errors.New("id is required")))
		return
	}

	dialog, err := h.app.Select(r.Context(), req.ID)
	if errors.Is(err, core.ErrSelectionLimitExceeded) && dialog != nil {
		response.ErrorWithDetails(w, http.StatusConflict, err, dialog)
		return
	}
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"id":    req.ID,
		"added": true,
	})
}

// Remove deselects the coin named in the path.
func (h *SelectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.app.Deselect(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"removed": true,
	})
}

// Replace confirms the replace dialog.
func (h *SelectionHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if req.Remove == "" || req.Add == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, errors.New("remove and add are required")))
		return
	}

	if err := h.app.Replace(r.Context(), req.Remove, req.Add); err != nil {
		response.Fail(w, err)
		return
	}
	h.logger.Debug("selection replaced", zap.String("removed", req.Remove), zap.String("added", req.Add))
	response.JSON(w, http.StatusOK, map[string]any{
		"removed": req.Remove,
		"added":   req.Add,
	})
}
