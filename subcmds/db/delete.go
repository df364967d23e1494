// Copyright (c) 2025 madmickstar

package db

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"

	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
)

type Delete struct {
	cmdutil.DBFlags
}

func (c *Delete) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("delete", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Delete) Synopsis() string {
	return "Removes a key from the database"
}

func (c *Delete) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Delete(ctx, args[0])
	})
}
