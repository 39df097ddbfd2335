package cryptocompare

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoCompare_ImplementsPriceSource(t *testing.T) {
	var _ collector.PriceSource = (*CryptoCompare)(nil)
}

func serve(t *testing.T, status int, body string) (*CryptoCompare, *string) {
	t.Helper()
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Path + "?" + r.URL.Query().Encode()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewWithBaseURL(server.URL, 0), &query
}

func TestCryptoCompare_FetchPrices(t *testing.T) {
	c, query := serve(t, http.StatusOK, `{"BTC":{"USD":110},"ETH":{"USD":190}}`)

	table, err := c.FetchPrices(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)

	assert.Equal(t, "/data/pricemulti?fsyms=BTC%2CETH&tsyms=USD", *query)
	assert.Equal(t, 110.0, table["BTC"]["USD"])
	assert.Equal(t, 190.0, table["ETH"]["USD"])
}

func TestCryptoCompare_FetchPrices_KeepsRawValues(t *testing.T) {
	c, _ := serve(t, http.StatusOK, `{"BTC":{"USD":"n/a"},"ETH":{"USD":190},"XRP":"oops"}`)

	table, err := c.FetchPrices(context.Background(), []string{"BTC", "ETH", "XRP"})
	require.NoError(t, err)

	assert.Equal(t, "n/a", table["BTC"]["USD"])
	_, ok := table["XRP"]
	assert.False(t, ok, "non-object entries are dropped")
}

func TestCryptoCompare_FetchPrices_SkipsInvalidTickers(t *testing.T) {
	c, query := serve(t, http.StatusOK, `{"BTC":{"USD":1}}`)

	_, err := c.FetchPrices(context.Background(), []string{"BTC", "ETH,DOGE"})
	require.NoError(t, err)
	assert.Equal(t, "/data/pricemulti?fsyms=BTC&tsyms=USD", *query)
}

func TestCryptoCompare_FetchPrices_InvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `[1,2,3]`},
		{"string", `"hello"`},
		{"not json", `<html></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := serve(t, http.StatusOK, tt.body)
			_, err := c.FetchPrices(context.Background(), []string{"BTC"})
			assert.True(t, errors.Is(err, core.ErrInvalidResponse), "got %v", err)
		})
	}
}

func TestCryptoCompare_FetchPrices_ErrorEnvelope(t *testing.T) {
	c, _ := serve(t, http.StatusOK,
		`{"Response":"Error","Message":"cccagg_or_exchange market does not exist for this coin pair (XYZ-USD)"}`)

	table, err := c.FetchPrices(context.Background(), []string{"XYZ"})
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestCryptoCompare_UnquotedPairHaltsSession(t *testing.T) {
	c, _ := serve(t, http.StatusOK,
		`{"Response":"Error","Message":"cccagg_or_exchange market does not exist for this coin pair (XYZ-USD)"}`)

	s, err := live.NewSession("xyz", []string{"XYZ"}, c, nil, nil, live.WithInterval(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	err = s.Tick(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDataQuality), "got %v", err)
	assert.False(t, errors.Is(err, core.ErrInvalidResponse))

	var skip *live.SkipError
	require.True(t, errors.As(err, &skip))
	assert.Equal(t, []string{"XYZ"}, skip.Symbols)
	assert.Equal(t, "Live updates failed: No price for XYZ. Try other coins.", live.Message(err))
}

func TestCryptoCompare_FetchPrices_BadStatus(t *testing.T) {
	c, _ := serve(t, http.StatusBadGateway, "")
	_, err := c.FetchPrices(context.Background(), []string{"BTC"})
	assert.True(t, errors.Is(err, core.ErrNetwork), "got %v", err)
}
