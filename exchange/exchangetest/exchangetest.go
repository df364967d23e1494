// Copyright (c) 2025 madmickstar

// Package exchangetest provides an in-memory exchange.Client for tests. All
// fields are plain data the test arranges directly; methods never block.
package exchangetest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/book"
	"github.com/madmickstar/polo-trader/exchange"
)

// Placement records one order the client was asked to place.
type Placement struct {
	OrderID exchange.OrderID
	Side    string
	Pair    string
	Price   decimal.Decimal
	Units   decimal.Decimal
}

type Client struct {
	// Books holds order-book snapshots keyed by pair then side.
	Books map[string]map[exchange.BookSide][]book.Level

	// Balances is the available balance per symbol.
	Balances map[string]decimal.Decimal

	// OpenOrders is the resting-order list per pair.
	OpenOrders map[string][]exchange.OpenOrder

	// Trades is the fill history per pair.
	Trades map[string][]exchange.Trade

	// SellErr and BuyErr, when set, fail the next placement.
	SellErr error
	BuyErr  error

	// Placed records every accepted placement in order.
	Placed []Placement

	nextID int
}

var _ exchange.Client = (*Client)(nil)

func New() *Client {
	return &Client{
		Books:      map[string]map[exchange.BookSide][]book.Level{},
		Balances:   map[string]decimal.Decimal{},
		OpenOrders: map[string][]exchange.OpenOrder{},
		Trades:     map[string][]exchange.Trade{},
	}
}

// SetBook installs an order-book side for a pair.
func (c *Client) SetBook(pair string, side exchange.BookSide, levels []book.Level) {
	if c.Books[pair] == nil {
		c.Books[pair] = map[exchange.BookSide][]book.Level{}
	}
	c.Books[pair][side] = levels
}

func (c *Client) GetOrderBook(ctx context.Context, pair string, side exchange.BookSide) ([]book.Level, error) {
	levels, ok := c.Books[pair][side]
	if !ok {
		return nil, fmt.Errorf("no %s book for pair %q", side, pair)
	}
	return levels, nil
}

func (c *Client) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Balances))
	for k, v := range c.Balances {
		out[k] = v
	}
	return out, nil
}

func (c *Client) GetOpenOrders(ctx context.Context) (map[string][]exchange.OpenOrder, error) {
	out := make(map[string][]exchange.OpenOrder, len(c.OpenOrders))
	for k, v := range c.OpenOrders {
		out[k] = append([]exchange.OpenOrder{}, v...)
	}
	return out, nil
}

func (c *Client) place(side, pair string, price, units decimal.Decimal, failure error) (exchange.OrderID, error) {
	if failure != nil {
		return "", failure
	}
	c.nextID++
	id := exchange.OrderID(fmt.Sprintf("%s-%d", side, c.nextID))
	c.Placed = append(c.Placed, Placement{OrderID: id, Side: side, Pair: pair, Price: price, Units: units})
	c.OpenOrders[pair] = append(c.OpenOrders[pair], exchange.OpenOrder{
		OrderID: id,
		Side:    side,
		Amount:  units,
		Rate:    price,
		Total:   price.Mul(units),
		Date:    time.Now(),
	})
	return id, nil
}

func (c *Client) PlaceSell(ctx context.Context, pair string, price, units decimal.Decimal) (exchange.OrderID, error) {
	return c.place("sell", pair, price, units, c.SellErr)
}

func (c *Client) PlaceBuy(ctx context.Context, pair string, price, units decimal.Decimal) (exchange.OrderID, error) {
	return c.place("buy", pair, price, units, c.BuyErr)
}

// Fill removes the order from the open list and appends its fills to the
// pair's trade history.
func (c *Client) Fill(pair string, id exchange.OrderID, fills ...exchange.Trade) {
	var rest []exchange.OpenOrder
	for _, o := range c.OpenOrders[pair] {
		if o.OrderID != id {
			rest = append(rest, o)
		}
	}
	c.OpenOrders[pair] = rest
	c.Trades[pair] = append(c.Trades[pair], fills...)
}

func (c *Client) GetTradeHistory(ctx context.Context, pair string, since time.Time) ([]exchange.Trade, error) {
	var out []exchange.Trade
	for _, t := range c.Trades[pair] {
		if t.Date.Before(since) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
