// Copyright (c) 2025 madmickstar

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"

	"github.com/madmickstar/polo-trader/exchange/poloniex"
	"github.com/madmickstar/polo-trader/notify"
	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
	"github.com/madmickstar/polo-trader/trading"
)

type Run struct {
	cmdutil.DBFlags

	fsym string
	fiat string
	tsym string

	maxFee          string
	threshold       float64
	ratioOverride   string
	unitsOverride   string
	factorThreshold string
	spikeSuppress   int
	interval        time.Duration
	printFrequency  int

	secretsPath string
	logDir      string
	debug       bool
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.fsym, "fsym", "", "symbol to sell on the first cycle")
	fset.StringVar(&c.fiat, "fiat", "usdt", "fiat symbol both markets trade against")
	fset.StringVar(&c.tsym, "tsym", "", "symbol to buy back on the first cycle")
	fset.StringVar(&c.maxFee, "max-fee", "0.0025", "worst per-leg trade fee fraction")
	fset.Float64Var(&c.threshold, "threshold", 10, "profit target in percent over break-even, 0.5 steps")
	fset.StringVar(&c.ratioOverride, "ratio-override", "", "trade when the ratio reaches this value instead of the target rung")
	fset.StringVar(&c.unitsOverride, "units-override", "", "sell this many units instead of the profiled amount")
	fset.StringVar(&c.factorThreshold, "factor-threshold", "10", "stop when current ratio exceeds break-even by this multiple")
	fset.IntVar(&c.spikeSuppress, "spike-suppress", 3, "polls the target must hold before trading")
	fset.DurationVar(&c.interval, "interval", 30*time.Second, "poll period")
	fset.IntVar(&c.printFrequency, "print-frequency", 20, "log a full evaluation summary every N polls")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.logDir, "log-dir", "", "directory for log files; stderr when empty")
	fset.BoolVar(&c.debug, "debug", false, "enable debug logging")
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Run) Synopsis() string {
	return "Runs the pair-swap trader in the foreground"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the pair-swap trader. The trader polls the order books
of the FIAT_FSYM and FIAT_TSYM markets, and when selling the held fsym units
and buying tsym back would beat the previous trade's price ratio by the
profit threshold, it executes the swap as a sell order followed by a buy
order and records the realized outcome for the next cycle. Completed cycles
flip the pair, so the trader swaps back and forth perpetually.

SECRETS FILE

Trading requires Poloniex API credentials in a JSON secrets file, with
optional Telegram notification settings:

    {
        "poloniex":{
            "key":"111111111",
            "secret":"2222222222"
        },
        "telegram":{
            "bot_token":"33333:44444",
            "chat_id":55555
        }
    }

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.fsym == "" || c.tsym == "" {
		return fmt.Errorf("both -fsym and -tsym are required")
	}

	dataDir, err := c.DBFlags.ResolveDataDir()
	if err != nil {
		return err
	}
	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := SecretsFromFile(c.secretsPath)
	if err != nil {
		return err
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	sopts := &sglog.Options{}
	if len(c.logDir) != 0 {
		sopts.LogDirs = []string{c.logDir}
	}
	backend := sglog.NewBackend(sopts)
	defer backend.Close()
	if c.debug {
		backend.SetLevel(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(backend.Handler()))

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	slog.Info("using data directory", "dir", dataDir, "secrets", c.secretsPath)

	lockPath := filepath.Join(dataDir, "polo-trader.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
	}
	defer flock.Unlock()

	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, cmdutil.IsGoodKey)

	client, err := poloniex.New(secrets.Poloniex.Key, secrets.Poloniex.Secret, nil)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if len(secrets.Telegram.BotToken) != 0 {
		notifier, err = notify.NewTelegram(secrets.Telegram.BotToken, secrets.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("could not create telegram notifier: %w", err)
		}
	}

	opts := &trading.Options{
		Fsym:           c.fsym,
		Fiat:           c.fiat,
		Tsym:           c.tsym,
		Threshold:      c.threshold,
		SpikeSuppress:  c.spikeSuppress,
		Interval:       c.interval,
		PrintFrequency: c.printFrequency,
	}
	if opts.MaxFee, err = decimal.NewFromString(c.maxFee); err != nil {
		return fmt.Errorf("invalid -max-fee value %q: %w", c.maxFee, err)
	}
	if opts.FactorThreshold, err = decimal.NewFromString(c.factorThreshold); err != nil {
		return fmt.Errorf("invalid -factor-threshold value %q: %w", c.factorThreshold, err)
	}
	if len(c.ratioOverride) != 0 {
		if opts.RatioOverride, err = decimal.NewFromString(c.ratioOverride); err != nil {
			return fmt.Errorf("invalid -ratio-override value %q: %w", c.ratioOverride, err)
		}
	}
	if len(c.unitsOverride) != 0 {
		if opts.UnitsOverride, err = decimal.NewFromString(c.unitsOverride); err != nil {
			return fmt.Errorf("invalid -units-override value %q: %w", c.unitsOverride, err)
		}
	}

	trader, err := trading.New(ctx, db, client, notifier, opts)
	if err != nil {
		return err
	}
	return trader.Run(ctx)
}
