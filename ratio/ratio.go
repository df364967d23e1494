// Copyright (c) 2025 madmickstar

// Package ratio computes the price relationship between the two legs of a
// pair-swap cycle: the purchase-time baseline, the ratio currently
// achievable against live order-book depth and the fee-adjusted break-even
// ratio, plus the ladder of profit-target rungs above break-even.
package ratio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/book"
)

const (
	// PricePlaces is the minimum tradable precision of the exchange.
	// Every price, unit and fiat amount is rounded to it so the persisted
	// profile cannot drift from the wallet by residual dust.
	PricePlaces int32 = 8

	// RatioPlaces is the precision ratios are rounded to before they are
	// compared or persisted.
	RatioPlaces int32 = 4
)

var one = decimal.NewFromInt(1)

// Stats describes one snapshot of the pair relationship. One record each is
// produced for the purchase baseline, the current books and the break-even
// point, all oriented to the cycle in progress: the "sell" side is the coin
// being sold this cycle.
type Stats struct {
	Name string
	Date string

	Ratio decimal.Decimal

	SellPrice  decimal.Decimal
	SellUnits  decimal.Decimal
	SellSymbol string
	SellPair   string

	BuyPrice  decimal.Decimal
	BuyUnits  decimal.Decimal
	BuySymbol string
	BuyPair   string
}

// Baseline is the previous round trip's realized outcome, oriented to the
// cycle about to run: SellPrice/SellUnits describe the coin now held (what
// the last cycle bought), BuyPrice the coin now being bought back.
type Baseline struct {
	SellSymbol string
	SellPair   string
	BuySymbol  string
	BuyPair    string

	SellPrice decimal.Decimal
	SellUnits decimal.Decimal
	BuyPrice  decimal.Decimal
	BuyUnits  decimal.Decimal
}

func (b *Baseline) Check() error {
	if b.SellUnits.Sign() <= 0 {
		return fmt.Errorf("baseline sell units must be positive")
	}
	if b.SellPrice.Sign() <= 0 || b.BuyPrice.Sign() <= 0 {
		return fmt.Errorf("baseline prices must be positive")
	}
	if len(b.SellPair) == 0 || len(b.BuyPair) == 0 {
		return fmt.Errorf("baseline pair names cannot be empty")
	}
	return nil
}

// Result is one evaluation of the pair against live depth.
type Result struct {
	Purchase Stats
	Current  Stats
	Even     Stats

	// Increasing is the ratio regime: true when the sell-side price is the
	// numerically larger one, so profit shows as the ratio rising.
	Increasing bool

	// Proceeds is the fiat expected from selling the baseline units at the
	// current sell price, after the full round-trip fee.
	Proceeds decimal.Decimal
}

// Engine computes Results for a fixed worst-case round-trip fee fraction
// (both legs combined). It holds no state between calls.
type Engine struct {
	fee decimal.Decimal
}

func NewEngine(roundTripFee decimal.Decimal) (*Engine, error) {
	if roundTripFee.Sign() < 0 || roundTripFee.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("round-trip fee %s is out of range", roundTripFee)
	}
	return &Engine{fee: roundTripFee}, nil
}

// Of returns the direction-agnostic ratio of two prices: the larger divided
// by the smaller, rounded to RatioPlaces. It is 1 only when the prices are
// equal.
func Of(a, b decimal.Decimal) decimal.Decimal {
	if a.Equal(b) {
		return one
	}
	if a.GreaterThan(b) {
		return a.Div(b).Round(RatioPlaces)
	}
	return b.Div(a).Round(RatioPlaces)
}

// Increasing reports the ratio regime for a sell/buy price pair.
func Increasing(sellPrice, buyPrice decimal.Decimal) bool {
	return sellPrice.GreaterThan(buyPrice)
}

// Compute evaluates the pair against live depth.
//
// The sell leg is quoted by walking the bid book with the baseline units;
// the buy leg by walking the ask book with the after-fee proceeds. The
// break-even ratio is the purchase ratio pushed away by the round-trip fee
// in the regime direction, and the break-even buy price is derived from the
// live sell price at that ratio.
//
// A book.ErrInsufficientDepth from either walk is returned unchanged; the
// caller skips the iteration and re-polls. No partial result is produced.
func (e *Engine) Compute(base *Baseline, bids, asks []book.Level, now time.Time) (*Result, error) {
	if err := base.Check(); err != nil {
		return nil, err
	}
	date := now.Format("20060102-150405")

	curSell, err := book.SellQuote(bids, base.SellUnits)
	if err != nil {
		return nil, fmt.Errorf("could not quote %s sell of %s units: %w", base.SellPair, base.SellUnits, err)
	}

	unitsLessFee := base.SellUnits.Mul(one.Sub(e.fee))
	proceeds := curSell.Mul(unitsLessFee).Round(PricePlaces)

	curBuy, err := book.BuyQuote(asks, proceeds)
	if err != nil {
		return nil, fmt.Errorf("could not quote %s buy worth %s: %w", base.BuyPair, proceeds, err)
	}

	increasing := Increasing(curSell, curBuy)
	purRatio := Of(base.SellPrice, base.BuyPrice)
	curRatio := Of(curSell, curBuy)

	var evenRatio, evenBuy decimal.Decimal
	if increasing {
		evenRatio = purRatio.Add(purRatio.Mul(e.fee)).Round(RatioPlaces)
		evenBuy = curSell.Div(evenRatio)
	} else {
		evenRatio = purRatio.Sub(purRatio.Mul(e.fee)).Round(RatioPlaces)
		evenBuy = curSell.Mul(evenRatio)
	}
	evenBuy = evenBuy.Round(PricePlaces)

	r := &Result{
		Increasing: increasing,
		Proceeds:   proceeds,
		Purchase: Stats{
			Name:       "purchase",
			Date:       date,
			Ratio:      purRatio,
			SellPrice:  base.SellPrice,
			SellUnits:  base.SellUnits,
			SellSymbol: base.SellSymbol,
			SellPair:   base.SellPair,
			BuyPrice:   base.BuyPrice,
			BuyUnits:   base.BuyUnits,
			BuySymbol:  base.BuySymbol,
			BuyPair:    base.BuyPair,
		},
		Current: Stats{
			Name:       "current",
			Date:       date,
			Ratio:      curRatio,
			SellPrice:  curSell,
			SellUnits:  base.SellUnits,
			SellSymbol: base.SellSymbol,
			SellPair:   base.SellPair,
			BuyPrice:   curBuy.Round(PricePlaces),
			BuyUnits:   proceeds.Div(curBuy).Round(PricePlaces),
			BuySymbol:  base.BuySymbol,
			BuyPair:    base.BuyPair,
		},
		Even: Stats{
			Name:       "even",
			Date:       date,
			Ratio:      evenRatio,
			SellPrice:  curSell,
			SellUnits:  base.SellUnits,
			SellSymbol: base.SellSymbol,
			SellPair:   base.SellPair,
			BuyPrice:   evenBuy,
			BuyUnits:   proceeds.Div(evenBuy).Round(PricePlaces),
			BuySymbol:  base.BuySymbol,
			BuyPair:    base.BuyPair,
		},
	}
	return r, nil
}
