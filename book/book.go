// Copyright (c) 2025 madmickstar

// Package book computes achievable execution prices by walking order-book
// depth. A quote is an estimate for a hypothetical trade of a given size,
// not a fill.
package book

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientDepth is returned when the book cannot absorb the
// requested size. Callers must treat this as a recoverable failure and
// retry on the next poll; quoting from a too-shallow book would silently
// misprice the trade.
var ErrInsufficientDepth = errors.New("order book too shallow for requested size")

// Level is a single order-book price level. Books are ordered best price
// first: descending for bids, ascending for asks.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// SellQuote walks the bid side accumulating size and returns the price of
// the first level at which the cumulative size strictly exceeds units.
func SellQuote(bids []Level, units decimal.Decimal) (decimal.Decimal, error) {
	if units.Sign() <= 0 {
		return decimal.Zero, errors.New("quote size must be positive")
	}
	var cum decimal.Decimal
	for _, l := range bids {
		cum = cum.Add(l.Size)
		if cum.GreaterThan(units) {
			return l.Price, nil
		}
	}
	return decimal.Zero, ErrInsufficientDepth
}

// BuyQuote walks the ask side for a purchase worth the given fiat proceeds.
// The size to buy depends on the price paid, so the target is recomputed
// from proceeds/price at every level and the walk stops at the first level
// where the cumulative size strictly exceeds that running target.
func BuyQuote(asks []Level, proceeds decimal.Decimal) (decimal.Decimal, error) {
	if proceeds.Sign() <= 0 {
		return decimal.Zero, errors.New("quote proceeds must be positive")
	}
	var cum decimal.Decimal
	for _, l := range asks {
		if l.Price.Sign() <= 0 {
			continue
		}
		cum = cum.Add(l.Size)
		units := proceeds.Div(l.Price)
		if cum.GreaterThan(units) {
			return l.Price, nil
		}
	}
	return decimal.Zero, ErrInsufficientDepth
}
