// Copyright (c) 2025 madmickstar

// Package trading drives the sell, buy, settle cycle. The persisted Status
// record is the single source of truth for where the cycle stands; every
// transition produces a new record that is written to the database before it
// is acted on, so a restart resumes mid-trade instead of re-deciding.
package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/bvkgo/kv"

	"github.com/madmickstar/polo-trader/exchange"
	"github.com/madmickstar/polo-trader/kvutil"
)

// StatusKey is where the trading status document lives in the database.
const StatusKey = "/trader/status"

// StampFormat is the timestamp layout used inside the status document.
const StampFormat = "2006-01-02 15:04:05"

// OrderStampSkew is subtracted from the wall clock when recording an
// order's placement time. Settlement filters trade history from this stamp;
// the skew absorbs clock drift between us and the exchange so the order's
// own fills are never filtered out.
const OrderStampSkew = 10 * time.Second

// State is the position in the cycle, derived from the Status fields.
type State int

const (
	// Idle polls the ratio and waits for the profit target.
	Idle State = iota

	// SellPending holds a sell decision with no order on the exchange yet.
	SellPending

	// SellOpen awaits the fill of a resting sell order.
	SellOpen

	// BuyPending holds a filled sell with no buy order placed yet.
	BuyPending

	// BuyOpen awaits the fill of a resting buy order.
	BuyOpen

	// Settle reconciles both legs against trade history.
	Settle
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SellPending:
		return "sell-pending"
	case SellOpen:
		return "sell-open"
	case BuyPending:
		return "buy-pending"
	case BuyOpen:
		return "buy-open"
	case Settle:
		return "settle"
	}
	return fmt.Sprintf("state-%d", int(s))
}

// Status is the persisted cycle record. Field names are part of the on-disk
// format; the document stays editable by hand when a run needs surgery.
type Status struct {
	Type            string `json:"type"`
	Trading         bool   `json:"trading"`
	TradingComplete bool   `json:"trading_complete"`
	FlipCoins       bool   `json:"flip_coins"`
	Fiat            string `json:"fiat"`

	SellCounter     int              `json:"sell_counter"`
	SellOrderPlaced bool             `json:"sell_order_placed"`
	SellOrderNumber exchange.OrderID `json:"sell_order_number"`
	SellCoinUTC     string           `json:"sell_coin_utc"`
	SellCoinLong    string           `json:"sell_coin_long"`

	BuyCounter     int              `json:"buy_counter"`
	BuyOrderPlaced bool             `json:"buy_order_placed"`
	BuyOrderNumber exchange.OrderID `json:"buy_order_number"`
	BuyCoinUTC     string           `json:"buy_coin_utc"`
	BuyCoinLong    string           `json:"buy_coin_long"`

	EvalCounter int `json:"eval_counter"`
}

// NewStatus returns the initial record for a fresh cycle.
func NewStatus(fiat string) Status {
	return Status{Type: "sell", Fiat: fiat}
}

// State derives the cycle position from the record.
func (s Status) State() State {
	switch {
	case s.TradingComplete:
		return Settle
	case !s.Trading:
		return Idle
	case s.Type == "sell" && !s.SellOrderPlaced:
		return SellPending
	case s.Type == "sell":
		return SellOpen
	case s.Type == "buy" && !s.BuyOrderPlaced:
		return BuyPending
	default:
		return BuyOpen
	}
}

func (s Status) Check() error {
	switch s.Type {
	case "sell", "buy", "eval":
	default:
		return fmt.Errorf("status has unknown type %q", s.Type)
	}
	if s.TradingComplete && !s.Trading {
		return fmt.Errorf("status is complete but not trading")
	}
	return nil
}

// EvalTick advances or resets the spike-suppression counter. The counter
// only grows while the profit comparator holds on consecutive polls.
func (s Status) EvalTick(targetMet bool) Status {
	if targetMet {
		s.EvalCounter++
	} else {
		s.EvalCounter = 0
	}
	return s
}

// StartTrading commits the cycle after the comparator held long enough.
func (s Status) StartTrading() Status {
	s.Trading = true
	return s
}

// SellPlaced records an accepted sell order. The stamp is skewed into the
// past so settlement's history window covers the order's first fill.
func (s Status) SellPlaced(id exchange.OrderID, pairLong string, now time.Time) Status {
	s.SellOrderPlaced = true
	s.SellOrderNumber = id
	s.SellCoinLong = pairLong
	s.SellCoinUTC = now.UTC().Add(-OrderStampSkew).Format(StampFormat)
	s.SellCounter = 0
	return s
}

// SellStillOpen counts a poll that found the sell order still resting.
func (s Status) SellStillOpen() Status {
	s.SellCounter++
	return s
}

// SellFilled moves the cycle to the buy leg.
func (s Status) SellFilled() Status {
	s.Type = "buy"
	return s
}

func (s Status) BuyPlaced(id exchange.OrderID, pairLong string, now time.Time) Status {
	s.BuyOrderPlaced = true
	s.BuyOrderNumber = id
	s.BuyCoinLong = pairLong
	s.BuyCoinUTC = now.UTC().Add(-OrderStampSkew).Format(StampFormat)
	s.BuyCounter = 0
	return s
}

func (s Status) BuyStillOpen() Status {
	s.BuyCounter++
	return s
}

// SettleRetried counts a settlement pass that could not reconcile both
// legs yet.
func (s Status) SettleRetried() Status {
	s.EvalCounter++
	return s
}

// BuyFilled closes the trading legs and enters settlement. The eval counter
// restarts at zero; during settlement it counts reconciliation attempts.
func (s Status) BuyFilled() Status {
	s.Type = "eval"
	s.TradingComplete = true
	s.EvalCounter = 0
	return s
}

// Reset returns the record to its initial defaults after a settled round
// trip. FlipCoins toggles so the effective pair alternates against the
// configured one on every completed cycle, surviving restarts.
func (s Status) Reset() Status {
	next := NewStatus(s.Fiat)
	next.FlipCoins = !s.FlipCoins
	return next
}

// SellPlacedAt parses the recorded sell stamp.
func (s Status) SellPlacedAt() (time.Time, error) {
	return time.ParseInLocation(StampFormat, s.SellCoinUTC, time.UTC)
}

func (s Status) BuyPlacedAt() (time.Time, error) {
	return time.ParseInLocation(StampFormat, s.BuyCoinUTC, time.UTC)
}

// LoadStatus reads the persisted record, creating and persisting the
// initial one when none exists yet.
func LoadStatus(ctx context.Context, db kv.Database, fiat string) (Status, error) {
	status, err := kvutil.GetDB[Status](ctx, db, StatusKey)
	if err == nil {
		if err := status.Check(); err != nil {
			return Status{}, err
		}
		return *status, nil
	}
	if !kvutil.IsNotExist(err) {
		return Status{}, fmt.Errorf("could not load trading status: %w", err)
	}
	initial := NewStatus(fiat)
	if err := SaveStatus(ctx, db, initial); err != nil {
		return Status{}, err
	}
	return initial, nil
}

// SaveStatus durably writes the record. A transition is only authoritative
// once this returns nil; on error the caller must stop rather than act on
// unconfirmed state.
func SaveStatus(ctx context.Context, db kv.Database, status Status) error {
	if err := kvutil.SetDB(ctx, db, StatusKey, &status); err != nil {
		return fmt.Errorf("could not save trading status: %w", err)
	}
	return nil
}
