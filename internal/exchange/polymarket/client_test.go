package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdle/polymarket-trading-bot/internal/config"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
)

func newTestClient(gammaURL string) *Client {
	return NewClient(config.ExchangeConfig{
		GammaHost: gammaURL,
		ClobHost:  gammaURL,
		DataHost:  gammaURL,
	})
}

func TestClient_GetActiveMarkets_ResolvesTokenPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "mkt-1",
			"question": "Will it happen?",
			"clobTokenIds": "[\"tok-yes\", \"tok-no\"]",
			"outcomes": "[\"Yes\", \"No\"]",
			"outcomePrices": "[\"0.90\", \" 0.10 \"]",
			"liquidityNum": 1500.5,
			"volume24hr": 320.75,
			"active": true,
			"closed": false
		}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	markets, err := c.GetActiveMarkets(context.Background(), exchange.MarketFilters{Limit: 10, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, "mkt-1", m.ID)
	require.Len(t, m.Tokens, 2)
	assert.Equal(t, "tok-yes", m.Tokens[0].TokenID)
	assert.Equal(t, 0.90, m.Tokens[0].Price)
	assert.Equal(t, 0.10, m.Tokens[1].Price)
}

func TestClient_GetActiveMarkets_SkipsUnparsablePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "mkt-2",
			"question": "Odd payload",
			"clobTokenIds": "[\"tok-yes\", \"tok-no\"]",
			"outcomes": "[\"Yes\", \"No\"]",
			"outcomePrices": "[\"n/a\", \"0.25\"]",
			"active": true,
			"closed": false
		}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	markets, err := c.GetActiveMarkets(context.Background(), exchange.MarketFilters{Limit: 10})
	require.NoError(t, err)
	require.Len(t, markets, 1)

	assert.Equal(t, 0.0, markets[0].Tokens[0].Price)
	assert.Equal(t, 0.25, markets[0].Tokens[1].Price)
}
