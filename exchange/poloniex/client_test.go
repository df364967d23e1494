// Copyright (c) 2025 madmickstar

package poloniex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madmickstar/polo-trader/exchange"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("test-key", "test-secret", &Options{
		PublicURL:         srv.URL,
		TradingURL:        srv.URL,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return c
}

func TestGetOrderBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "returnOrderBook", r.URL.Query().Get("command"))
		assert.Equal(t, "USDT_STR", r.URL.Query().Get("currencyPair"))
		// Prices arrive as strings and sizes as numbers.
		w.Write([]byte(`{"asks":[["0.25301000",55.6]],"bids":[["0.25300000",12],["0.25100000",700.5]]}`))
	})

	bids, err := c.GetOrderBook(context.Background(), "USDT_STR", exchange.Bids)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(decimal.RequireFromString("0.253")))
	assert.True(t, bids[1].Size.Equal(decimal.RequireFromString("700.5")))

	asks, err := c.GetOrderBook(context.Background(), "USDT_STR", exchange.Asks)
	require.NoError(t, err)
	require.Len(t, asks, 1)
}

func TestPlaceSell(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sell", r.PostForm.Get("command"))
		assert.Equal(t, "USDT_STR", r.PostForm.Get("currencyPair"))
		assert.NotEmpty(t, r.PostForm.Get("nonce"))
		assert.Equal(t, "test-key", r.Header.Get("Key"))
		assert.NotEmpty(t, r.Header.Get("Sign"))
		w.Write([]byte(`{"orderNumber":"31226040","resultingTrades":[]}`))
	})

	id, err := c.PlaceSell(context.Background(), "USDT_STR",
		decimal.RequireFromString("0.253"), decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderID("31226040"), id)
}

func TestNotEnoughBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Not enough STR."}`))
	})

	_, err := c.PlaceSell(context.Background(), "USDT_STR",
		decimal.RequireFromString("0.253"), decimal.RequireFromString("100"))
	require.Error(t, err)
	assert.True(t, exchange.IsNotEnough(err))
}

func TestGetTradeHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "returnTradeHistory", r.PostForm.Get("command"))
		assert.NotEmpty(t, r.PostForm.Get("start"))
		w.Write([]byte(`[{"orderNumber":"123","type":"buy","rate":"0.90000000",` +
			`"amount":"10.00000000","total":"9.00000000","fee":"0.00250000",` +
			`"date":"2018-10-18 21:03:21"}]`))
	})

	trades, err := c.GetTradeHistory(context.Background(), "USDT_XRP", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, exchange.OrderID("123"), trades[0].OrderID)
	assert.Equal(t, "buy", trades[0].Side)
	assert.True(t, trades[0].Fee.Equal(decimal.RequireFromString("0.0025")))
	assert.Equal(t, 2018, trades[0].Date.Year())
}

func TestBalances(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"STR":"100.12345678","USDT":"50.87250000"}`))
	})

	balances, err := c.GetBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, balances["STR"].Equal(decimal.RequireFromString("100.12345678")))
	assert.True(t, balances["USDT"].Equal(decimal.RequireFromString("50.8725")))
}
