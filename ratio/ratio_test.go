// Copyright (c) 2025 madmickstar

package ratio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madmickstar/polo-trader/book"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func level(price, size string) book.Level {
	return book.Level{Price: d(price), Size: d(size)}
}

func testBaseline() *Baseline {
	return &Baseline{
		SellSymbol: "STR",
		SellPair:   "USDT_STR",
		BuySymbol:  "XRP",
		BuyPair:    "USDT_XRP",
		SellPrice:  d("1.0"),
		SellUnits:  d("100"),
		BuyPrice:   d("0.5"),
		BuyUnits:   d("150"),
	}
}

func TestComputeIncreasing(t *testing.T) {
	engine, err := NewEngine(d("0.01"))
	require.NoError(t, err)

	bids := []book.Level{level("1.0", "200")}
	asks := []book.Level{level("0.5", "1000")}

	r, err := engine.Compute(testBaseline(), bids, asks, time.Now())
	require.NoError(t, err)

	assert.True(t, r.Increasing)
	assert.True(t, r.Purchase.Ratio.Equal(d("2")), "purchase %s", r.Purchase.Ratio)
	assert.True(t, r.Current.Ratio.Equal(d("2")), "current %s", r.Current.Ratio)
	assert.True(t, r.Even.Ratio.Equal(d("2.02")), "even %s", r.Even.Ratio)

	// Proceeds carry the full round-trip fee off the sale.
	assert.True(t, r.Proceeds.Equal(d("99")), "proceeds %s", r.Proceeds)

	// Break-even buy price comes off the live sell price.
	assert.True(t, r.Even.BuyPrice.Equal(d("0.49504950")), "even buy %s", r.Even.BuyPrice)
	assert.True(t, r.Even.BuyUnits.Equal(d("99").Div(d("0.49504950")).Round(PricePlaces)))
}

func TestComputeDecreasing(t *testing.T) {
	engine, err := NewEngine(d("0.01"))
	require.NoError(t, err)

	base := testBaseline()
	base.SellPrice = d("0.5")
	base.BuyPrice = d("1.0")

	bids := []book.Level{level("0.5", "200")}
	asks := []book.Level{level("1.0", "1000")}

	r, err := engine.Compute(base, bids, asks, time.Now())
	require.NoError(t, err)

	assert.False(t, r.Increasing)
	assert.True(t, r.Even.Ratio.Equal(d("1.98")), "even %s", r.Even.Ratio)
	assert.True(t, r.Even.BuyPrice.Equal(d("0.99")), "even buy %s", r.Even.BuyPrice)
}

func TestComputeInsufficientDepth(t *testing.T) {
	engine, err := NewEngine(d("0.01"))
	require.NoError(t, err)

	// Bid side cannot strictly exceed the baseline units.
	_, err = engine.Compute(testBaseline(), []book.Level{level("1.0", "100")}, []book.Level{level("0.5", "1000")}, time.Now())
	assert.ErrorIs(t, err, book.ErrInsufficientDepth)

	// Ask side cannot cover the proceeds.
	_, err = engine.Compute(testBaseline(), []book.Level{level("1.0", "200")}, []book.Level{level("0.5", "10")}, time.Now())
	assert.ErrorIs(t, err, book.ErrInsufficientDepth)
}

func TestComputeRejectsBadBaseline(t *testing.T) {
	engine, err := NewEngine(d("0.01"))
	require.NoError(t, err)

	base := testBaseline()
	base.SellUnits = decimal.Zero
	_, err = engine.Compute(base, nil, nil, time.Now())
	assert.Error(t, err)
}

func TestNewEngineFeeRange(t *testing.T) {
	_, err := NewEngine(d("1"))
	assert.Error(t, err)
	_, err = NewEngine(d("-0.01"))
	assert.Error(t, err)
	_, err = NewEngine(decimal.Zero)
	assert.NoError(t, err)
}

func TestOf(t *testing.T) {
	assert.True(t, Of(d("1.0"), d("0.5")).Equal(d("2")))
	assert.True(t, Of(d("0.5"), d("1.0")).Equal(d("2")))
	assert.True(t, Of(d("0.3"), d("0.3")).Equal(d("1")))

	// Always rounded to four places.
	assert.True(t, Of(d("10"), d("3")).Equal(d("3.3333")))
}
