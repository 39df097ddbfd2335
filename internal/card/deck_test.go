package card

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/newthinker/cryptodash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpot struct {
	calls   atomic.Int32
	prices  core.SpotPrices
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSpot) FetchSpotPrices(ctx context.Context, id string) (core.SpotPrices, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.prices, f.err
}

var btc = core.SpotPrices{USD: 65000.5, EUR: 60000.25, ILS: 240000}

func TestMoreInfo_FetchesOnce(t *testing.T) {
	src := &fakeSpot{prices: btc}
	d := NewDeck(src, nil, nil)
	ctx := context.Background()

	v, err := d.MoreInfo(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, Back, v.Face)
	assert.True(t, v.Loaded)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "$ 65000.5 (USD)", v.Rows[0].String())

	v = d.Back("bitcoin")
	assert.Equal(t, Front, v.Face)

	v, err = d.MoreInfo(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, Back, v.Face)
	assert.Equal(t, int32(1), src.calls.Load(), "second activation must not refetch")
}

func TestMoreInfo_FlippedCardFlipsBack(t *testing.T) {
	src := &fakeSpot{prices: btc}
	d := NewDeck(src, nil, nil)
	ctx := context.Background()

	_, err := d.MoreInfo(ctx, "bitcoin")
	require.NoError(t, err)

	v, err := d.MoreInfo(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, Front, v.Face)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestMoreInfo_FailureRetriesNextTime(t *testing.T) {
	src := &fakeSpot{err: core.WrapError(core.ErrNetwork, errors.New("429"))}
	d := NewDeck(src, nil, nil)
	ctx := context.Background()

	v, err := d.MoreInfo(ctx, "bitcoin")
	assert.True(t, errors.Is(err, core.ErrNetwork))
	assert.Equal(t, Back, v.Face)
	assert.False(t, v.Loaded)
	assert.False(t, v.Busy)
	assert.Equal(t, FetchFailedMessage, v.Error)

	d.Back("bitcoin")
	src.err = nil
	src.prices = btc

	v, err = d.MoreInfo(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, v.Loaded)
	assert.Empty(t, v.Error)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestMoreInfo_BusyIgnoresReentry(t *testing.T) {
	src := &fakeSpot{
		prices:  btc,
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	d := NewDeck(src, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.MoreInfo(ctx, "bitcoin")
	}()
	<-src.started

	v, err := d.MoreInfo(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, v.Ignored)
	assert.True(t, v.Busy)
	assert.Equal(t, Back, v.Face)

	close(src.block)
	wg.Wait()

	v = d.View("bitcoin")
	assert.True(t, v.Loaded)
	assert.False(t, v.Busy)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestBack_NeverFetches(t *testing.T) {
	src := &fakeSpot{prices: btc}
	d := NewDeck(src, nil, nil)

	v := d.Back("ethereum")
	assert.Equal(t, Front, v.Face)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestRows(t *testing.T) {
	rows := Rows(core.SpotPrices{USD: 0.00001234, EUR: 1, ILS: 3.7})
	assert.Equal(t, "0.00001234", rows[0].Amount)
	assert.Equal(t, "1", rows[1].Amount)
	assert.Equal(t, "3.7", rows[2].Amount)
	assert.Equal(t, "€", rows[1].Sign)
	assert.Equal(t, "ILS", rows[2].Currency)
}

func TestBack_UnknownCardIsNotStored(t *testing.T) {
	d := NewDeck(&fakeSpot{prices: btc}, nil, nil)

	v := d.Back("nope")
	assert.Equal(t, Front, v.Face)
	assert.Empty(t, d.cards)
}
