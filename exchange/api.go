// Copyright (c) 2025 madmickstar

// Package exchange defines the capability surface the trading core needs
// from an exchange. Implementations live elsewhere (see the poloniex
// subpackage); the core only dispatches on the error kinds below.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/book"
)

type OrderID string

// BookSide selects which half of the order book to fetch.
type BookSide string

const (
	Bids BookSide = "bids"
	Asks BookSide = "asks"
)

// OpenOrder is an order resting on the exchange, as reported by the
// open-orders query.
type OpenOrder struct {
	OrderID OrderID
	Side    string // "sell" or "buy"
	Amount  decimal.Decimal
	Rate    decimal.Decimal
	Total   decimal.Decimal
	Date    time.Time
}

// Trade is a single executed fill from trade history. Fee is the fee
// fraction charged on the fill, not an absolute amount.
type Trade struct {
	OrderID OrderID
	Side    string
	Amount  decimal.Decimal
	Rate    decimal.Decimal
	Total   decimal.Decimal
	Fee     decimal.Decimal
	Date    time.Time
}

// Client is the exchange capability set used by the trading core. Every
// method may fail with a transport/auth/rate-limit error; such failures are
// recoverable and the caller skips the iteration. Balance-insufficiency on
// order placement is reported through ErrNotEnough.
type Client interface {
	// GetOrderBook returns one side of the book for the pair, best price
	// first.
	GetOrderBook(ctx context.Context, pair string, side BookSide) ([]book.Level, error)

	// GetBalances returns the available (not on orders) balance per symbol.
	GetBalances(ctx context.Context) (map[string]decimal.Decimal, error)

	// GetOpenOrders returns all resting orders keyed by pair.
	GetOpenOrders(ctx context.Context) (map[string][]OpenOrder, error)

	PlaceSell(ctx context.Context, pair string, price, units decimal.Decimal) (OrderID, error)
	PlaceBuy(ctx context.Context, pair string, price, units decimal.Decimal) (OrderID, error)

	// GetTradeHistory returns the account's fills for the pair since the
	// given time.
	GetTradeHistory(ctx context.Context, pair string, since time.Time) ([]Trade, error)
}
