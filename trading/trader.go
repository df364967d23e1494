// Copyright (c) 2025 madmickstar

package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/book"
	"github.com/madmickstar/polo-trader/ctxutil"
	"github.com/madmickstar/polo-trader/exchange"
	"github.com/madmickstar/polo-trader/notify"
	"github.com/madmickstar/polo-trader/profile"
	"github.com/madmickstar/polo-trader/ratio"
	"github.com/madmickstar/polo-trader/settlement"
)

// ErrFactorSuspect reports a current ratio implausibly far from break-even.
// The usual cause is a profile or pair argument with the sell and buy roles
// reversed; trading on it would place orders at absurd prices, so the run
// stops for operator review.
var ErrFactorSuspect = errors.New("current ratio is implausibly far from break-even")

type Options struct {
	// Fsym is the coin sold on the first cycle, Tsym the coin bought back
	// and Fiat the quote currency both markets trade against.
	Fsym string
	Fiat string
	Tsym string

	// MaxFee is the worst per-leg fee fraction the account can be charged.
	// The round trip pays it twice.
	MaxFee decimal.Decimal

	// Threshold is the profit-target rung, in percent over break-even on
	// the 0.5-step grid. Zero trades at break-even.
	Threshold float64

	// RatioOverride, when positive, replaces the rung's target ratio for
	// the current cycle. Cleared after a completed round trip.
	RatioOverride decimal.Decimal

	// UnitsOverride, when positive, replaces the profile's sell units for
	// the current cycle. Cleared after a completed round trip.
	UnitsOverride decimal.Decimal

	// FactorThreshold is the multiple between current and break-even ratio
	// beyond which the pair orientation is considered suspect.
	FactorThreshold decimal.Decimal

	// SpikeSuppress is how many consecutive polls the profit comparator
	// must hold before an order is committed.
	SpikeSuppress int

	// Interval is the poll period.
	Interval time.Duration

	// PrintFrequency logs a full evaluation summary every N polls.
	PrintFrequency int
}

func (o *Options) setDefaults() {
	if o.MaxFee.Sign() == 0 {
		o.MaxFee = decimal.RequireFromString("0.0025")
	}
	if o.FactorThreshold.Sign() == 0 {
		o.FactorThreshold = decimal.NewFromInt(10)
	}
	if o.SpikeSuppress == 0 {
		o.SpikeSuppress = 3
	}
	if o.Interval == 0 {
		o.Interval = 30 * time.Second
	}
	if o.PrintFrequency == 0 {
		o.PrintFrequency = 20
	}
}

func (o *Options) Check() error {
	if o.Fsym == "" || o.Fiat == "" || o.Tsym == "" {
		return fmt.Errorf("fsym, fiat and tsym are all required")
	}
	if o.MaxFee.Sign() < 0 {
		return fmt.Errorf("max fee cannot be negative")
	}
	if o.Threshold < 0 {
		return fmt.Errorf("trade threshold cannot be negative")
	}
	return nil
}

// Trader runs the sell, buy, settle cycle for one configured pair. A single
// Trader owns the persisted status record for the lifetime of the process;
// all methods must be called from one goroutine.
type Trader struct {
	opts Options

	db       kv.Database
	client   exchange.Client
	notifier notify.Notifier

	profiles *profile.Store
	engine   *ratio.Engine
	worstFee decimal.Decimal

	runID    string
	basePair profile.Pair
	status   Status

	polls int
}

func New(ctx context.Context, db kv.Database, client exchange.Client, notifier notify.Notifier, opts *Options) (*Trader, error) {
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	basePair := profile.NewPair(opts.Fsym, opts.Fiat, opts.Tsym)
	if err := basePair.Check(); err != nil {
		return nil, err
	}

	two := decimal.NewFromInt(2)
	worstFee := opts.MaxFee.Mul(two)
	engine, err := ratio.NewEngine(worstFee)
	if err != nil {
		return nil, err
	}

	status, err := LoadStatus(ctx, db, basePair.FiatUpper())
	if err != nil {
		return nil, err
	}

	t := &Trader{
		opts:     *opts,
		db:       db,
		client:   client,
		notifier: notifier,
		profiles: profile.NewStore(db),
		engine:   engine,
		worstFee: worstFee,
		runID:    uuid.New().String(),
		basePair: basePair,
		status:   status,
	}
	slog.Info("trader ready", "run", t.runID, "pair", t.currentPair(),
		"state", t.status.State(), "threshold", opts.Threshold, "fee", worstFee)
	return t, nil
}

// currentPair is the triple for the cycle in progress. It alternates
// against the configured triple on every completed round trip.
func (t *Trader) currentPair() profile.Pair {
	if t.status.FlipCoins {
		return t.basePair.Flip()
	}
	return t.basePair
}

// Run polls until the context is canceled or a fatal condition stops the
// trader. Transient failures never propagate out of a poll; an operator
// interrupt is a clean shutdown, not an error.
func (t *Trader) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := t.Step(ctx); err != nil {
			return err
		}
		ctxutil.Sleep(ctx, t.opts.Interval)
	}
	if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Step runs one poll of the cycle. A nil return means the poll either made
// progress or hit a recoverable condition that the next poll retries; a
// non-nil return is fatal to the run.
func (t *Trader) Step(ctx context.Context) error {
	t.polls++

	switch t.status.State() {
	case Settle:
		return t.settle(ctx)
	case SellOpen:
		return t.checkOpenSell(ctx)
	case BuyOpen:
		return t.checkOpenBuy(ctx)
	}

	// The remaining states need a fresh evaluation of the books.
	pair := t.currentPair()
	rec, err := t.profiles.Lookup(ctx, pair.Flip())
	if err != nil {
		var missing *profile.MissingError
		if errors.As(err, &missing) {
			return t.seed(ctx, missing)
		}
		return err
	}

	base := rec.Baseline()
	if t.opts.UnitsOverride.Sign() > 0 {
		base.SellUnits = t.opts.UnitsOverride
	}
	if base.SellUnits.Equal(base.BuyUnits) {
		return fmt.Errorf("profile for %s sells %s units and buys the same: %w",
			pair, base.SellUnits, profile.ErrUncalibrated)
	}

	res, err := t.evaluate(ctx, base)
	if err != nil {
		return t.hold(ctx, "could not evaluate pair", err)
	}

	spread := ratio.Of(res.Current.Ratio, res.Even.Ratio)
	if spread.GreaterThan(t.opts.FactorThreshold) {
		// The wallet balances tell the operator which way the roles are
		// reversed.
		if balances, berr := t.client.GetBalances(ctx); berr == nil {
			slog.Error("wallet balances for suspect pair", "run", t.runID,
				base.SellSymbol, balances[base.SellSymbol],
				base.BuySymbol, balances[base.BuySymbol])
		}
		return fmt.Errorf("current ratio %s vs break-even %s exceeds factor threshold %s: %w",
			res.Current.Ratio, res.Even.Ratio, t.opts.FactorThreshold, ErrFactorSuspect)
	}

	rung, err := t.target(res)
	if err != nil {
		return err
	}

	switch t.status.State() {
	case Idle:
		return t.evalTrigger(ctx, res, rung)
	case SellPending:
		return t.placeSell(ctx, base, res)
	default:
		return t.placeBuy(ctx, base, rung)
	}
}

func (t *Trader) evaluate(ctx context.Context, base *ratio.Baseline) (*ratio.Result, error) {
	bids, err := t.client.GetOrderBook(ctx, base.SellPair, exchange.Bids)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s bids: %w", base.SellPair, err)
	}
	asks, err := t.client.GetOrderBook(ctx, base.BuyPair, exchange.Asks)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s asks: %w", base.BuyPair, err)
	}
	return t.engine.Compute(base, bids, asks, time.Now())
}

// target picks the profit rung for this poll, retargeted to the live sell
// price, with the operator's ratio override taking precedence over the
// ladder when set.
func (t *Trader) target(res *ratio.Result) (ratio.Rung, error) {
	rungs := t.engine.Ladder(res)
	rung, err := ratio.SelectRung(rungs, t.opts.Threshold)
	if err != nil {
		return ratio.Rung{}, err
	}
	if t.opts.RatioOverride.Sign() > 0 {
		rung.Ratio = t.opts.RatioOverride
	}
	return rung.Retarget(res.Current.SellPrice, res.Proceeds, res.Increasing), nil
}

// evalTrigger decides whether to commit the cycle. The comparator must hold
// for SpikeSuppress consecutive polls so one noisy quote cannot trigger a
// trade.
func (t *Trader) evalTrigger(ctx context.Context, res *ratio.Result, rung ratio.Rung) error {
	met := ratio.TargetMet(res.Increasing, res.Current.Ratio, rung.Ratio)
	next := t.status.EvalTick(met)

	if (t.polls-1)%t.opts.PrintFrequency == 0 || met {
		slog.Info("evaluated pair", "run", t.runID, "pair", t.currentPair(),
			"current", res.Current.Ratio, "even", res.Even.Ratio, "target", rung.Ratio,
			"increasing", res.Increasing, "met", met, "held", next.EvalCounter)
		if balances, berr := t.client.GetBalances(ctx); berr == nil {
			slog.Info("wallet balances", "run", t.runID,
				res.Current.SellSymbol, balances[res.Current.SellSymbol],
				res.Current.BuySymbol, balances[res.Current.BuySymbol])
		}
	}

	if met && next.EvalCounter >= t.opts.SpikeSuppress {
		next = next.StartTrading()
		slog.Info("profit target held, starting trade", "run", t.runID,
			"pair", t.currentPair(), "target", rung.Ratio, "held", next.EvalCounter)
	}
	return t.commit(ctx, next)
}

func (t *Trader) placeSell(ctx context.Context, base *ratio.Baseline, res *ratio.Result) error {
	balances, err := t.client.GetBalances(ctx)
	if err != nil {
		return t.hold(ctx, "could not fetch balances", err)
	}

	units, resized := ValidateSellUnits(base.SellUnits, balances[base.SellSymbol])
	if resized {
		slog.Warn("sell units clamped to wallet balance", "run", t.runID,
			"target", base.SellUnits, "wallet", balances[base.SellSymbol])
	}

	price := res.Current.SellPrice
	id, err := t.client.PlaceSell(ctx, base.SellPair, price, units)
	if err != nil {
		if exchange.IsNotEnough(err) {
			slog.Error("sell rejected for insufficient balance", "run", t.runID,
				"pair", base.SellPair, "units", units, "err", err)
			return nil
		}
		return t.hold(ctx, "could not place sell order", err)
	}

	next := t.status.SellPlaced(id, base.SellPair, time.Now())
	if err := t.commit(ctx, next); err != nil {
		return err
	}
	slog.Info("sell order placed", "run", t.runID, "pair", base.SellPair,
		"order", id, "price", price, "units", units)
	t.send(ctx, "Sell order placed",
		fmt.Sprintf("Pair %s order %s", base.SellPair, id),
		fmt.Sprintf("Price %s units %s", price, units))
	return nil
}

func (t *Trader) placeBuy(ctx context.Context, base *ratio.Baseline, rung ratio.Rung) error {
	balances, err := t.client.GetBalances(ctx)
	if err != nil {
		return t.hold(ctx, "could not fetch balances", err)
	}

	fiat := t.basePair.FiatUpper()
	units, resized := ValidateBuyUnits(rung.BuyPrice, rung.BuyUnits, balances[fiat])
	if resized {
		slog.Warn("buy units resized against fiat wallet", "run", t.runID,
			"target", rung.BuyUnits, "units", units, "wallet", balances[fiat])
	}

	id, err := t.client.PlaceBuy(ctx, base.BuyPair, rung.BuyPrice, units)
	if err != nil {
		if exchange.IsNotEnough(err) {
			slog.Error("buy rejected for insufficient balance", "run", t.runID,
				"pair", base.BuyPair, "units", units, "err", err)
			return nil
		}
		return t.hold(ctx, "could not place buy order", err)
	}

	next := t.status.BuyPlaced(id, base.BuyPair, time.Now())
	if err := t.commit(ctx, next); err != nil {
		return err
	}
	slog.Info("buy order placed", "run", t.runID, "pair", base.BuyPair,
		"order", id, "price", rung.BuyPrice, "units", units)
	t.send(ctx, "Buy order placed",
		fmt.Sprintf("Pair %s order %s", base.BuyPair, id),
		fmt.Sprintf("Price %s units %s", rung.BuyPrice, units))
	return nil
}

func (t *Trader) checkOpenSell(ctx context.Context) error {
	open, err := t.client.GetOpenOrders(ctx)
	if err != nil {
		return t.hold(ctx, "could not fetch open orders", err)
	}
	if hasOrder(open[t.status.SellCoinLong], t.status.SellOrderNumber) {
		next := t.status.SellStillOpen()
		slog.Info("sell order still open", "run", t.runID,
			"order", t.status.SellOrderNumber, "polls", next.SellCounter)
		return t.commit(ctx, next)
	}
	slog.Info("sell order filled", "run", t.runID, "order", t.status.SellOrderNumber)
	return t.commit(ctx, t.status.SellFilled())
}

func (t *Trader) checkOpenBuy(ctx context.Context) error {
	open, err := t.client.GetOpenOrders(ctx)
	if err != nil {
		return t.hold(ctx, "could not fetch open orders", err)
	}
	if hasOrder(open[t.status.BuyCoinLong], t.status.BuyOrderNumber) {
		next := t.status.BuyStillOpen()
		slog.Info("buy order still open", "run", t.runID,
			"order", t.status.BuyOrderNumber, "polls", next.BuyCounter)
		return t.commit(ctx, next)
	}
	slog.Info("buy order filled", "run", t.runID, "order", t.status.BuyOrderNumber)
	return t.commit(ctx, t.status.BuyFilled())
}

// settle reconciles both legs against trade history and closes the cycle.
// Fills can lag the open-orders list, so an incomplete leg holds the state
// for the next poll instead of failing the run.
func (t *Trader) settle(ctx context.Context) error {
	sellAt, err := t.status.SellPlacedAt()
	if err != nil {
		return fmt.Errorf("could not parse sell order stamp %q: %w", t.status.SellCoinUTC, err)
	}
	buyAt, err := t.status.BuyPlacedAt()
	if err != nil {
		return fmt.Errorf("could not parse buy order stamp %q: %w", t.status.BuyCoinUTC, err)
	}

	sellStats, err := settlement.Evaluate(ctx, t.client, t.status.SellCoinLong, t.status.SellOrderNumber, sellAt)
	if err != nil {
		return t.retrySettle(ctx, "sell leg not settled yet", err)
	}
	buyStats, err := settlement.Evaluate(ctx, t.client, t.status.BuyCoinLong, t.status.BuyOrderNumber, buyAt)
	if err != nil {
		return t.retrySettle(ctx, "buy leg not settled yet", err)
	}

	pair := t.currentPair()
	realized := ratio.Of(sellStats.PPU, buyStats.PPU)
	rec := profile.Record{
		Ratio:     realized,
		FsymPrice: sellStats.PPU,
		FsymUnits: sellStats.UnitTotal,
		TsymPrice: buyStats.PPU,
		TsymUnits: buyStats.UnitTotal,
	}
	if err := t.profiles.Write(ctx, pair, rec); err != nil {
		return err
	}

	if err := t.commit(ctx, t.status.Reset()); err != nil {
		return err
	}

	// One-shot overrides die with the cycle they were set for. A break-even
	// threshold would re-trigger immediately, so it climbs back to a real
	// profit target.
	t.opts.RatioOverride = decimal.Zero
	t.opts.UnitsOverride = decimal.Zero
	if t.opts.Threshold <= 0 {
		t.opts.Threshold = 10
	}

	slog.Info("round trip settled", "run", t.runID, "pair", pair, "ratio", realized,
		"sold", sellStats.UnitTotal, "sold_for", sellStats.FiatTotal,
		"bought", buyStats.UnitTotal, "bought_for", buyStats.FiatTotal)
	t.send(ctx, "Finished trading",
		fmt.Sprintf("Pair %s realized ratio %s", pair, realized),
		fmt.Sprintf("Sold %s units at %s for %s", sellStats.UnitTotal, sellStats.PPU, sellStats.FiatTotal),
		fmt.Sprintf("Bought %s units at %s for %s", buyStats.UnitTotal, buyStats.PPU, buyStats.FiatTotal))
	return nil
}

// seed writes a placeholder profile from live 1-unit quotes and stops the
// run. Trading must not proceed on fabricated values; the operator edits
// the record to the real previous trade and restarts.
func (t *Trader) seed(ctx context.Context, missing *profile.MissingError) error {
	prev := missing.Pair
	one := decimal.NewFromInt(1)

	bids, err := t.client.GetOrderBook(ctx, prev.FsymLong(), exchange.Bids)
	if err != nil {
		return t.hold(ctx, "could not fetch bids to seed profile", err)
	}
	sellPrice, err := book.SellQuote(bids, one)
	if err != nil {
		return t.hold(ctx, "could not quote seed sell price", err)
	}

	asks, err := t.client.GetOrderBook(ctx, prev.TsymLong(), exchange.Asks)
	if err != nil {
		return t.hold(ctx, "could not fetch asks to seed profile", err)
	}
	buyPrice, err := book.BuyQuote(asks, sellPrice.Mul(one.Sub(t.worstFee)))
	if err != nil {
		return t.hold(ctx, "could not quote seed buy price", err)
	}

	if _, err := t.profiles.Seed(ctx, prev, sellPrice, buyPrice); err != nil {
		return err
	}
	return fmt.Errorf("%v; seeded profile for %s from current order book, edit its units to the real previous trade and restart: %w",
		missing, prev, profile.ErrUncalibrated)
}

// commit persists a transition and adopts it in memory. On a failed write
// the in-memory state keeps the last persisted record and the run stops;
// acting on unconfirmed state could double-place orders after a restart.
func (t *Trader) commit(ctx context.Context, next Status) error {
	if next == t.status {
		return nil
	}
	if err := SaveStatus(ctx, t.db, next); err != nil {
		return err
	}
	t.status = next
	return nil
}

func (t *Trader) retrySettle(ctx context.Context, msg string, err error) error {
	next := t.status.SettleRetried()
	slog.Warn(msg, "run", t.runID, "tries", next.EvalCounter, "err", err)
	return t.commit(ctx, next)
}

// hold logs a recoverable failure and keeps the current state for the next
// poll.
func (t *Trader) hold(ctx context.Context, msg string, err error) error {
	slog.Warn(msg, "run", t.runID, "state", t.status.State(), "err", err)
	return nil
}

func (t *Trader) send(ctx context.Context, subject string, lines ...string) {
	if err := t.notifier.SendMessage(ctx, subject, lines...); err != nil {
		slog.Warn("could not send notification", "run", t.runID, "subject", subject, "err", err)
	}
}

func hasOrder(orders []exchange.OpenOrder, id exchange.OrderID) bool {
	for _, o := range orders {
		if o.OrderID == id {
			return true
		}
	}
	return false
}
