// Copyright (c) 2025 madmickstar

package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madmickstar/polo-trader/exchange"
	"github.com/madmickstar/polo-trader/exchange/exchangetest"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func trade(id exchange.OrderID, side, amount, total, fee string, at time.Time) exchange.Trade {
	return exchange.Trade{
		OrderID: id,
		Side:    side,
		Amount:  d(amount),
		Total:   d(total),
		Fee:     d(fee),
		Date:    at,
	}
}

func TestEvaluateBuy(t *testing.T) {
	ctx := context.Background()
	client := exchangetest.New()
	now := time.Now()

	// Three partial fills, fee charged on the purchased units.
	client.Trades["USDT_XRP"] = []exchange.Trade{
		trade("o1", "buy", "10", "9", "0.0025", now),
		trade("o1", "buy", "10", "9", "0.0025", now),
		trade("o1", "buy", "10", "9", "0.0025", now),
		trade("other", "buy", "99", "99", "0.0025", now),
	}

	stats, err := Evaluate(ctx, client, "USDT_XRP", "o1", now.Add(-time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "buy", stats.Side)
	assert.True(t, stats.UnitTotal.Equal(d("29.925")), "units %s", stats.UnitTotal)
	assert.True(t, stats.FiatTotal.Equal(d("27")), "fiat %s", stats.FiatTotal)
	assert.True(t, stats.PPU.Equal(d("0.90225564")), "ppu %s", stats.PPU)
}

func TestEvaluateSell(t *testing.T) {
	ctx := context.Background()
	client := exchangetest.New()
	now := time.Now()

	// Fee comes off the fiat proceeds on a sell.
	client.Trades["USDT_STR"] = []exchange.Trade{
		trade("o2", "sell", "100", "50", "0.0015", now),
		trade("o2", "sell", "100", "50", "0.0015", now),
	}

	stats, err := Evaluate(ctx, client, "USDT_STR", "o2", now.Add(-time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "sell", stats.Side)
	assert.True(t, stats.UnitTotal.Equal(d("200")))
	assert.True(t, stats.FiatTotal.Equal(d("99.85")), "fiat %s", stats.FiatTotal)
	assert.True(t, stats.PPU.Equal(d("0.49925")), "ppu %s", stats.PPU)
}

func TestEvaluateNoTrades(t *testing.T) {
	ctx := context.Background()
	client := exchangetest.New()
	now := time.Now()

	_, err := Evaluate(ctx, client, "USDT_XRP", "o1", now)
	assert.ErrorIs(t, err, ErrNoTrades)

	// Records for other orders do not count.
	client.Trades["USDT_XRP"] = []exchange.Trade{
		trade("other", "buy", "10", "9", "0.0025", now),
	}
	_, err = Evaluate(ctx, client, "USDT_XRP", "o1", now.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrNoTrades)

	// Fills before the window are excluded.
	client.Trades["USDT_XRP"] = []exchange.Trade{
		trade("o1", "buy", "10", "9", "0.0025", now.Add(-time.Hour)),
	}
	_, err = Evaluate(ctx, client, "USDT_XRP", "o1", now.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrNoTrades)
}
