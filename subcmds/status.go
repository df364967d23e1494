// Copyright (c) 2025 madmickstar

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/visvasity/cli"

	"github.com/madmickstar/polo-trader/kvutil"
	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
	"github.com/madmickstar/polo-trader/trading"
)

type Status struct {
	cmdutil.DBFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Status) Synopsis() string {
	return "Prints the persisted trading cycle status"
}

func (c *Status) run(ctx context.Context, args []string) error {
	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	status, err := kvutil.GetDB[trading.Status](ctx, db, trading.StatusKey)
	if err != nil {
		if kvutil.IsNotExist(err) {
			fmt.Println("no trading status recorded yet")
			return nil
		}
		return err
	}

	fmt.Printf("state: %s\n", status.State())
	fmt.Printf("type: %s trading: %t complete: %t flipped: %t fiat: %s\n",
		status.Type, status.Trading, status.TradingComplete, status.FlipCoins, status.Fiat)
	if status.SellOrderPlaced {
		fmt.Printf("sell: pair %s order %s placed %s polls-open %d\n",
			status.SellCoinLong, status.SellOrderNumber, status.SellCoinUTC, status.SellCounter)
	}
	if status.BuyOrderPlaced {
		fmt.Printf("buy: pair %s order %s placed %s polls-open %d\n",
			status.BuyCoinLong, status.BuyOrderNumber, status.BuyCoinUTC, status.BuyCounter)
	}
	fmt.Printf("eval counter: %d\n", status.EvalCounter)
	return nil
}
