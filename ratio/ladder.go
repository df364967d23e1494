// Copyright (c) 2025 madmickstar

package ratio

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// RungStep is the spacing of the profit-target ladder, in percent of the
// break-even ratio.
const RungStep = 0.5

// MaxRungName is the highest rung the ladder is built to.
const MaxRungName = 20.0

// ErrNoSuchRung reports a profit threshold that does not land on the rung
// grid. The threshold is operator configuration, so this is fatal.
var ErrNoSuchRung = errors.New("no ladder rung at the requested threshold")

// Rung is one profit target: the break-even ratio pushed out by Name percent
// of itself in the regime direction, with the buy price and units that hit
// the target from the current sell price.
type Rung struct {
	Name     float64
	Date     string
	Ratio    decimal.Decimal
	BuyPrice decimal.Decimal
	BuyUnits decimal.Decimal
}

// Ladder builds the rung grid from a Result. Rung 0 restates the break-even
// point verbatim; rungs then climb in RungStep increments to MaxRungName.
// Targets move away from break-even in the regime direction, so a later rung
// is always harder to reach than an earlier one.
func (e *Engine) Ladder(r *Result) []Rung {
	even := r.Even
	rungs := []Rung{{
		Name:     0,
		Date:     even.Date,
		Ratio:    even.Ratio,
		BuyPrice: even.BuyPrice,
		BuyUnits: even.BuyUnits,
	}}

	steps := int(math.Round(MaxRungName / RungStep))
	for i := 1; i <= steps; i++ {
		name := float64(i) * RungStep
		adj := even.Ratio.Mul(decimal.NewFromFloat(name)).Div(decimal.NewFromInt(100))

		var target decimal.Decimal
		if r.Increasing {
			target = even.Ratio.Add(adj).Round(RatioPlaces)
		} else {
			target = even.Ratio.Sub(adj).Round(RatioPlaces)
		}

		price := buyPriceAt(even.SellPrice, target, r.Increasing)
		rungs = append(rungs, Rung{
			Name:     name,
			Date:     even.Date,
			Ratio:    target,
			BuyPrice: price,
			BuyUnits: r.Proceeds.Div(price).Round(PricePlaces),
		})
	}
	return rungs
}

// SelectRung picks the rung matching the operator's profit threshold. The
// threshold must land exactly on the grid.
func SelectRung(rungs []Rung, threshold float64) (Rung, error) {
	for _, r := range rungs {
		if r.Name == threshold {
			return r, nil
		}
	}
	return Rung{}, fmt.Errorf("threshold %v in steps of %v up to %v: %w", threshold, RungStep, MaxRungName, ErrNoSuchRung)
}

// Retarget re-derives the rung's buy price and units from the latest sell
// price and proceeds, keeping the target ratio fixed. The trading loop calls
// this every poll so the target tracks the live sell side.
func (r Rung) Retarget(sellPrice, proceeds decimal.Decimal, increasing bool) Rung {
	r.BuyPrice = buyPriceAt(sellPrice, r.Ratio, increasing)
	r.BuyUnits = proceeds.Div(r.BuyPrice).Round(PricePlaces)
	return r
}

// TargetMet reports whether the current ratio has reached the target in the
// regime direction.
func TargetMet(increasing bool, current, target decimal.Decimal) bool {
	if increasing {
		return current.GreaterThanOrEqual(target)
	}
	return current.LessThanOrEqual(target)
}

func buyPriceAt(sellPrice, targetRatio decimal.Decimal, increasing bool) decimal.Decimal {
	if increasing {
		return sellPrice.Div(targetRatio).Round(PricePlaces)
	}
	return sellPrice.Mul(targetRatio).Round(PricePlaces)
}
