package selection

import (
	"context"
	"fmt"

	"github.com/newthinker/cryptodash/internal/core"
)

// Option is one selected coin offered for removal.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Dialog is what the replace-one-of-five prompt shows.
type Dialog struct {
	PendingID string   `json:"pending_id"`
	Message   string   `json:"message"`
	Options   []Option `json:"options"`
}

// NewDialog builds the replace prompt for pendingID given the current
// selection. Coins missing from the catalog are labelled by id.
func NewDialog(coins []core.Coin, selected []string, pendingID string) Dialog {
	byID := make(map[string]core.Coin, len(coins))
	for _, c := range coins {
		byID[c.ID] = c
	}

	pending := pendingID
	if c, ok := byID[pendingID]; ok {
		pending = c.Label()
	}

	d := Dialog{
		PendingID: pendingID,
		Message: fmt.Sprintf("You can only select up to %d coins. To add %s, please remove one below:",
			core.MaxSelection, pending),
		Options: make([]Option, 0, len(selected)),
	}
	for _, id := range selected {
		label := id
		if c, ok := byID[id]; ok {
			label = c.Label()
		}
		d.Options = append(d.Options, Option{ID: id, Label: label})
	}
	return d
}

// ReplaceDialog builds the replace prompt for pendingID against the current
// selection.
func (s *Store) ReplaceDialog(ctx context.Context, coins []core.Coin, pendingID string) Dialog {
	return NewDialog(coins, s.Get(ctx), pendingID)
}
