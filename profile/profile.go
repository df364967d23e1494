// Copyright (c) 2025 madmickstar

// Package profile persists the per-pair outcome of the last completed round
// trip. Records live in one nested document keyed sell symbol, fiat symbol,
// buy symbol, and seed the next cycle's purchase baseline.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/ratio"
)

// Pair is a trading triple. Fsym is the coin being sold this cycle, Tsym the
// coin being bought and Fiat the quote currency both trade against. Symbols
// are held lowercase; the exchange-facing names come from the *Name methods.
type Pair struct {
	Fsym string
	Fiat string
	Tsym string
}

func NewPair(fsym, fiat, tsym string) Pair {
	return Pair{
		Fsym: strings.ToLower(fsym),
		Fiat: strings.ToLower(fiat),
		Tsym: strings.ToLower(tsym),
	}
}

func (p Pair) Check() error {
	if p.Fsym == "" || p.Fiat == "" || p.Tsym == "" {
		return fmt.Errorf("pair %v has an empty symbol", p)
	}
	if p.Fsym == p.Tsym {
		return fmt.Errorf("pair %v sells and buys the same symbol", p)
	}
	return nil
}

// Flip mirrors the triple for the next cycle: the coin just bought becomes
// the coin to sell.
func (p Pair) Flip() Pair {
	return Pair{Fsym: p.Tsym, Fiat: p.Fiat, Tsym: p.Fsym}
}

func (p Pair) FsymShort() string { return strings.ToUpper(p.Fsym) }
func (p Pair) TsymShort() string { return strings.ToUpper(p.Tsym) }
func (p Pair) FiatUpper() string { return strings.ToUpper(p.Fiat) }

// FsymLong is the exchange market name for the sell coin, "FIAT_SYM".
func (p Pair) FsymLong() string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(p.Fiat), strings.ToUpper(p.Fsym))
}

func (p Pair) TsymLong() string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(p.Fiat), strings.ToUpper(p.Tsym))
}

func (p Pair) String() string {
	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(p.Fsym), strings.ToUpper(p.Fiat), strings.ToUpper(p.Tsym))
}

// Record is the persisted profile for one triple, describing the completed
// trade that sold fsym and bought tsym: the fsym fields are the realized
// sell leg, the tsym fields the realized buy leg. Field names and the
// string timestamps are part of the on-disk format and must stay stable
// across releases.
type Record struct {
	Ratio decimal.Decimal `json:"ratio"`

	TimeStampLocal string `json:"time_stamp_local"`
	TimeStampUTC   string `json:"time_stamp_utc"`

	TsymPrice decimal.Decimal `json:"tsym_price"`
	TsymUnits decimal.Decimal `json:"tsym_units"`
	FsymPrice decimal.Decimal `json:"fsym_price"`
	FsymUnits decimal.Decimal `json:"fsym_units"`

	FsymNameShort string `json:"fsym_name_short"`
	TsymNameShort string `json:"tsym_name_short"`
	FsymNameLong  string `json:"fsym_name_long"`
	TsymNameLong  string `json:"tsym_name_long"`
}

// ErrUncalibrated reports a profile still carrying its seeded placeholder
// values. Trading on it would size orders off a fabricated 1:1 trade, so the
// run stops until the operator edits the record or supplies overrides.
var ErrUncalibrated = errors.New("pair profile holds uncalibrated seed values")

// CheckCalibrated returns ErrUncalibrated when the record's unit amounts are
// still the identical placeholder the seed wrote.
func (r *Record) CheckCalibrated() error {
	if r.FsymUnits.Equal(r.TsymUnits) {
		return fmt.Errorf("%s units equal %s units (%s): %w",
			r.FsymNameShort, r.TsymNameShort, r.FsymUnits, ErrUncalibrated)
	}
	return nil
}

// Baseline converts the record into the purchase baseline for the cycle
// that reverses it. A record describes the trade that sold its fsym and
// bought its tsym, so the next cycle sells the tsym coin back: the tsym
// fields become the sell side of the baseline.
func (r *Record) Baseline() *ratio.Baseline {
	return &ratio.Baseline{
		SellSymbol: r.TsymNameShort,
		SellPair:   r.TsymNameLong,
		BuySymbol:  r.FsymNameShort,
		BuyPair:    r.FsymNameLong,
		SellPrice:  r.TsymPrice,
		SellUnits:  r.TsymUnits,
		BuyPrice:   r.FsymPrice,
		BuyUnits:   r.FsymUnits,
	}
}

func (r *Record) stamp(p Pair, now time.Time) *Record {
	r.TimeStampLocal = now.Format("2006-01-02 15:04:05")
	r.TimeStampUTC = now.UTC().Format("2006-01-02 15:04:05")
	r.FsymNameShort = p.FsymShort()
	r.TsymNameShort = p.TsymShort()
	r.FsymNameLong = p.FsymLong()
	r.TsymNameLong = p.TsymLong()
	return r
}
