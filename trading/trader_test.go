// Copyright (c) 2025 madmickstar

package trading

import (
	"context"
	"testing"
	"time"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madmickstar/polo-trader/book"
	"github.com/madmickstar/polo-trader/exchange"
	"github.com/madmickstar/polo-trader/exchange/exchangetest"
	"github.com/madmickstar/polo-trader/profile"
)

func level(price, size string) book.Level {
	return book.Level{Price: d(price), Size: d(size)}
}

// newTestTrader arranges a trader selling 100 STR bought at 0.5 against a
// previous XRP sale at 1.0, with live books quoting STR at 0.51 and XRP at
// 1.0. Purchase ratio 2, break-even 1.99, current 1.9608 in the decreasing
// regime, so a break-even threshold triggers immediately.
func newTestTrader(t *testing.T, db kv.Database, client *exchangetest.Client, opts *Options) *Trader {
	t.Helper()
	ctx := context.Background()

	store := profile.NewStore(db)
	require.NoError(t, store.Write(ctx, profile.NewPair("xrp", "usdt", "str"), profile.Record{
		Ratio:     d("2"),
		FsymPrice: d("1.0"),
		FsymUnits: d("45"),
		TsymPrice: d("0.5"),
		TsymUnits: d("100"),
	}))

	client.SetBook("USDT_STR", exchange.Bids, []book.Level{level("0.51", "200")})
	client.SetBook("USDT_XRP", exchange.Asks, []book.Level{level("1.0", "1000")})
	client.Balances["STR"] = d("100")
	client.Balances["USDT"] = d("50.8725")

	tr, err := New(ctx, db, client, nil, opts)
	require.NoError(t, err)
	return tr
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	client := exchangetest.New()
	tr := newTestTrader(t, db, client, &Options{
		Fsym: "str", Fiat: "usdt", Tsym: "xrp",
		Threshold:     0,
		SpikeSuppress: 2,
	})

	// The comparator must hold twice before the cycle commits.
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Idle, tr.status.State())
	assert.Equal(t, 1, tr.status.EvalCounter)

	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, SellPending, tr.status.State())

	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, SellOpen, tr.status.State())
	require.Len(t, client.Placed, 1)
	sell := client.Placed[0]
	assert.Equal(t, "sell", sell.Side)
	assert.Equal(t, "USDT_STR", sell.Pair)
	assert.True(t, sell.Price.Equal(d("0.51")))
	assert.True(t, sell.Units.Equal(d("100")))

	// Still resting on the exchange.
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, SellOpen, tr.status.State())
	assert.Equal(t, 1, tr.status.SellCounter)

	client.Fill("USDT_STR", sell.OrderID, exchange.Trade{
		OrderID: sell.OrderID, Side: "sell",
		Amount: d("100"), Rate: d("0.51"), Total: d("51"), Fee: d("0.0025"),
		Date: time.Now(),
	})
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, BuyPending, tr.status.State())

	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, BuyOpen, tr.status.State())
	require.Len(t, client.Placed, 2)
	buy := client.Placed[1]
	assert.Equal(t, "buy", buy.Side)
	assert.Equal(t, "USDT_XRP", buy.Pair)

	// Break-even target in the decreasing regime buys at sell*even.
	assert.True(t, buy.Price.Equal(d("1.0149")), "price %s", buy.Price)
	// The fiat wallet holds the sell proceeds, 0.25% over the expected
	// cost, so the whole wallet funds the buy.
	assert.True(t, buy.Units.Equal(d("50.8725").Div(d("1.0149")).Round(8)), "units %s", buy.Units)

	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, BuyOpen, tr.status.State())
	assert.Equal(t, 1, tr.status.BuyCounter)

	client.Fill("USDT_XRP", buy.OrderID, exchange.Trade{
		OrderID: buy.OrderID, Side: "buy",
		Amount: buy.Units, Rate: buy.Price, Total: buy.Price.Mul(buy.Units), Fee: d("0.0025"),
		Date: time.Now(),
	})
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Settle, tr.status.State())

	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Idle, tr.status.State())
	assert.True(t, tr.status.FlipCoins)
	assert.Equal(t, 0, tr.status.EvalCounter)

	// Roles flip for the next cycle.
	assert.Equal(t, profile.NewPair("xrp", "usdt", "str"), tr.currentPair())

	// The realized outcome replaced the profile under the traded triple.
	rec, err := tr.profiles.Lookup(ctx, profile.NewPair("str", "usdt", "xrp"))
	require.NoError(t, err)
	assert.True(t, rec.FsymUnits.Equal(d("100")))
	assert.True(t, rec.FsymPrice.Equal(d("0.508725")), "sell ppu %s", rec.FsymPrice)
	expectUnits := buy.Units.Sub(d("0.0025").Mul(buy.Units)).Round(8)
	assert.True(t, rec.TsymUnits.Equal(expectUnits), "buy units %s", rec.TsymUnits)
	require.NoError(t, rec.CheckCalibrated())

	// The reset status is durable.
	loaded, err := LoadStatus(ctx, db, "USDT")
	require.NoError(t, err)
	assert.Equal(t, tr.status, loaded)
}

func TestSettleRetriesUntilFillsAppear(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	client := exchangetest.New()
	tr := newTestTrader(t, db, client, &Options{
		Fsym: "str", Fiat: "usdt", Tsym: "xrp",
		SpikeSuppress: 1,
	})
	tr.opts.Threshold = 0

	require.NoError(t, tr.Step(ctx)) // trigger
	require.NoError(t, tr.Step(ctx)) // place sell
	sell := client.Placed[0]
	client.Fill("USDT_STR", sell.OrderID) // filled with history lagging
	require.NoError(t, tr.Step(ctx))      // sell filled
	require.NoError(t, tr.Step(ctx))      // place buy
	buy := client.Placed[1]
	client.Fill("USDT_XRP", buy.OrderID)
	require.NoError(t, tr.Step(ctx)) // buy filled
	require.Equal(t, Settle, tr.status.State())

	// No trade history yet for either leg, so settlement holds.
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Settle, tr.status.State())
	assert.Equal(t, 1, tr.status.EvalCounter)

	client.Trades["USDT_STR"] = []exchange.Trade{{
		OrderID: sell.OrderID, Side: "sell",
		Amount: d("100"), Rate: d("0.51"), Total: d("51"), Fee: d("0.0025"),
		Date: time.Now(),
	}}
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Settle, tr.status.State())
	assert.Equal(t, 2, tr.status.EvalCounter)

	client.Trades["USDT_XRP"] = []exchange.Trade{{
		OrderID: buy.OrderID, Side: "buy",
		Amount: buy.Units, Rate: buy.Price, Total: buy.Price.Mul(buy.Units), Fee: d("0.0025"),
		Date: time.Now(),
	}}
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Idle, tr.status.State())
}

func TestUncalibratedProfileStops(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	client := exchangetest.New()

	store := profile.NewStore(db)
	_, err := store.Seed(ctx, profile.NewPair("xrp", "usdt", "str"), d("1.0"), d("0.5"))
	require.NoError(t, err)

	tr, err := New(ctx, db, client, nil, &Options{Fsym: "str", Fiat: "usdt", Tsym: "xrp"})
	require.NoError(t, err)

	err = tr.Step(ctx)
	assert.ErrorIs(t, err, profile.ErrUncalibrated)
}

func TestMissingProfileSeedsAndStops(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	client := exchangetest.New()

	// Seeding quotes one unit of the previous trade's sell coin.
	client.SetBook("USDT_XRP", exchange.Bids, []book.Level{level("1.0", "10")})
	client.SetBook("USDT_STR", exchange.Asks, []book.Level{level("0.5", "10")})

	tr, err := New(ctx, db, client, nil, &Options{Fsym: "str", Fiat: "usdt", Tsym: "xrp"})
	require.NoError(t, err)

	err = tr.Step(ctx)
	require.ErrorIs(t, err, profile.ErrUncalibrated)

	rec, err := tr.profiles.Lookup(ctx, profile.NewPair("xrp", "usdt", "str"))
	require.NoError(t, err)
	assert.True(t, rec.FsymUnits.Equal(d("1")))
	assert.True(t, rec.TsymUnits.Equal(d("1")))
	assert.True(t, rec.FsymPrice.Equal(d("1.0")))
}

func TestFactorThresholdStops(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	client := exchangetest.New()
	tr := newTestTrader(t, db, client, &Options{Fsym: "str", Fiat: "usdt", Tsym: "xrp"})

	// A collapsed sell book makes the current ratio a huge multiple of
	// break-even, which means the orientation is suspect.
	client.SetBook("USDT_STR", exchange.Bids, []book.Level{level("0.005", "200")})

	err := tr.Step(ctx)
	assert.ErrorIs(t, err, ErrFactorSuspect)
}

func TestTransientFailuresHoldState(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	client := exchangetest.New()
	tr := newTestTrader(t, db, client, &Options{Fsym: "str", Fiat: "usdt", Tsym: "xrp"})

	// Losing the book feed skips the poll without failing the run.
	delete(client.Books, "USDT_STR")
	require.NoError(t, tr.Step(ctx))
	assert.Equal(t, Idle, tr.status.State())
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	db := kvmemdb.New()
	client := exchangetest.New()
	tr := newTestTrader(t, db, client, &Options{Fsym: "str", Fiat: "usdt", Tsym: "xrp"})

	// An operator interrupt is a clean shutdown, not a run failure.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, tr.Run(ctx))
}
