// Package card holds the two-sided coin cards of the grid: identity on the
// front, lazily fetched spot prices on the back.
package card

import (
	"context"
	"sync"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/metrics"
	"go.uber.org/zap"
)

// FetchFailedMessage is shown on the back of a card whose price fetch failed.
const FetchFailedMessage = "Failed to load prices. Please wait a moment and try again later."

// Face is the visible side of a card.
type Face string

const (
	Front Face = "front"
	Back  Face = "back"
)

type card struct {
	face    Face
	busy    bool
	loaded  bool
	prices  core.SpotPrices
	message string
}

// Deck tracks one card per coin id.
type Deck struct {
	source  collector.SpotSource
	metrics *metrics.Registry
	logger  *zap.Logger

	mu    sync.Mutex
	cards map[string]*card
}

// NewDeck creates a deck backed by a spot price source.
func NewDeck(source collector.SpotSource, reg *metrics.Registry, logger *zap.Logger) *Deck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deck{
		source:  source,
		metrics: reg,
		logger:  logger,
		cards:   make(map[string]*card),
	}
}

func (d *Deck) get(id string) *card {
	c, ok := d.cards[id]
	if !ok {
		c = &card{face: Front}
		d.cards[id] = c
	}
	return c
}

// MoreInfo handles an activation of the card's info button.
//
// A busy card ignores the activation. A card showing its back flips to the
// front. Otherwise the card flips and, unless its prices are already loaded,
// fetches them once; a failed fetch leaves a message on the back and the next
// activation tries again.
func (d *Deck) MoreInfo(ctx context.Context, id string) (View, error) {
	d.mu.Lock()
	c := d.get(id)

	if c.busy {
		v := c.view(id)
		v.Ignored = true
		d.mu.Unlock()
		return v, nil
	}
	if c.face == Back {
		c.face = Front
		v := c.view(id)
		d.mu.Unlock()
		return v, nil
	}

	c.face = Back
	if c.loaded {
		v := c.view(id)
		d.mu.Unlock()
		return v, nil
	}
	c.busy = true
	c.message = ""
	d.mu.Unlock()

	prices, err := d.source.FetchSpotPrices(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	c.busy = false
	if err != nil {
		d.metrics.RecordSpotFetch("error")
		d.logger.Warn("spot price fetch failed", zap.String("coin", id), zap.Error(err))
		c.message = FetchFailedMessage
		return c.view(id), err
	}

	d.metrics.RecordSpotFetch("ok")
	c.prices = prices
	c.loaded = true
	return c.view(id), nil
}

// Back flips the card to its front. It never fetches.
func (d *Deck) Back(id string) View {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.cards[id]
	if !ok {
		return (&card{face: Front}).view(id)
	}
	c.face = Front
	return c.view(id)
}

// View returns the current state of a card.
func (d *Deck) View(id string) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.get(id).view(id)
}
