// Copyright (c) 2025 madmickstar

package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price, size string) Level {
	return Level{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

func TestSellQuote(t *testing.T) {
	bids := []Level{
		level("1.05", "100"),
		level("1.04", "250"),
		level("1.00", "5000"),
	}

	// 100 units on the first level does not strictly exceed the target.
	p, err := SellQuote(bids, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("1.04")), "got %s", p)

	p, err = SellQuote(bids, decimal.NewFromInt(99))
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("1.05")), "got %s", p)

	p, err = SellQuote(bids, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("1.00")), "got %s", p)
}

func TestSellQuoteInsufficientDepth(t *testing.T) {
	bids := []Level{
		level("1.05", "100"),
		level("1.04", "100"),
	}
	_, err := SellQuote(bids, decimal.NewFromInt(200))
	assert.ErrorIs(t, err, ErrInsufficientDepth)

	// Exactly equal cumulative size is still insufficient.
	_, err = SellQuote(bids, decimal.NewFromInt(150))
	assert.ErrorIs(t, err, ErrInsufficientDepth)

	_, err = SellQuote(nil, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInsufficientDepth)
}

func TestBuyQuote(t *testing.T) {
	asks := []Level{
		level("0.50", "100"),
		level("0.52", "400"),
		level("0.60", "10000"),
	}

	// 100 fiat at 0.50 wants 200 units; first level holds only 100, the
	// second level's running target is 100/0.52 ~ 192.3 which 500 exceeds.
	p, err := BuyQuote(asks, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("0.52")), "got %s", p)

	// Small order fills at the top of the book.
	p, err = BuyQuote(asks, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("0.50")), "got %s", p)
}

func TestBuyQuoteInsufficientDepth(t *testing.T) {
	asks := []Level{
		level("0.50", "10"),
	}
	_, err := BuyQuote(asks, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInsufficientDepth)
}

func TestQuoteRejectsNonPositiveTargets(t *testing.T) {
	asks := []Level{level("0.50", "10")}

	_, err := SellQuote(asks, decimal.Zero)
	assert.Error(t, err)
	_, err = BuyQuote(asks, decimal.NewFromInt(-1))
	assert.Error(t, err)
}
