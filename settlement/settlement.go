// Copyright (c) 2025 madmickstar

// Package settlement turns an exchange order's fill history into realized
// totals. The order book only ever gave an estimate; what the profile stores
// for the next cycle is what the fills actually delivered, after fees.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/exchange"
	"github.com/madmickstar/polo-trader/ratio"
)

// ErrNoTrades reports that trade history holds no fills for the order yet.
// Exchanges publish fills with a delay after the open-orders list drops the
// order, so the caller retries next poll instead of treating the leg as
// zero-cost.
var ErrNoTrades = errors.New("no trade history records for order")

// Stats is the realized outcome of one order.
type Stats struct {
	OrderID exchange.OrderID
	Side    string
	Pair    string

	// UnitTotal and FiatTotal are the summed fills after fees. On a sell the
	// fee comes off the fiat side; on a buy it comes off the purchased units.
	UnitTotal decimal.Decimal
	FiatTotal decimal.Decimal

	// PPU is the realized price per unit, FiatTotal over UnitTotal.
	PPU decimal.Decimal
}

// Evaluate fetches the pair's trade history since the order was placed and
// sums the fills belonging to the order.
func Evaluate(ctx context.Context, client exchange.Client, pair string, orderID exchange.OrderID, since time.Time) (*Stats, error) {
	trades, err := client.GetTradeHistory(ctx, pair, since)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s trade history: %w", pair, err)
	}

	one := decimal.NewFromInt(1)
	stats := &Stats{OrderID: orderID, Pair: pair}
	nmatched := 0
	for _, t := range trades {
		if t.OrderID != orderID {
			continue
		}
		nmatched++
		stats.Side = t.Side
		switch t.Side {
		case "sell":
			stats.UnitTotal = stats.UnitTotal.Add(t.Amount)
			stats.FiatTotal = stats.FiatTotal.Add(t.Total.Mul(one.Sub(t.Fee)))
		case "buy":
			stats.UnitTotal = stats.UnitTotal.Add(t.Amount.Sub(t.Fee.Mul(t.Amount)))
			stats.FiatTotal = stats.FiatTotal.Add(t.Total)
		default:
			return nil, fmt.Errorf("order %s has a fill with unknown side %q", orderID, t.Side)
		}
	}
	if nmatched == 0 {
		return nil, fmt.Errorf("order %s on %s since %s: %w", orderID, pair, since.Format(time.RFC3339), ErrNoTrades)
	}

	stats.UnitTotal = stats.UnitTotal.Round(ratio.PricePlaces)
	stats.FiatTotal = stats.FiatTotal.Round(ratio.PricePlaces)
	if stats.UnitTotal.Sign() <= 0 {
		return nil, fmt.Errorf("order %s fills sum to non-positive units %s", orderID, stats.UnitTotal)
	}
	stats.PPU = stats.FiatTotal.Div(stats.UnitTotal).Round(ratio.PricePlaces)
	return stats, nil
}
