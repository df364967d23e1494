// Copyright (c) 2025 madmickstar

// Package profile implements subcommands to inspect and edit the persisted
// pair profiles.
package profile

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/visvasity/cli"

	tprofile "github.com/madmickstar/polo-trader/profile"
	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
)

type Get struct {
	cmdutil.DBFlags
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Get) Synopsis() string {
	return "Prints the stored profile for a fsym fiat tsym triple"
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("needs three (fsym fiat tsym) arguments")
	}
	pair := tprofile.NewPair(args[0], args[1], args[2])
	if err := pair.Check(); err != nil {
		return err
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	rec, err := tprofile.NewStore(db).Lookup(ctx, pair)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	os.Stdout.Write(append(data, '\n'))
	return nil
}
