// Copyright (c) 2025 madmickstar

package db

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"

	"github.com/madmickstar/polo-trader/kvutil"
	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
)

// List prints all keys in the database, optionally restricted to a key
// directory.
type List struct {
	cmdutil.DBFlags
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *List) Synopsis() string {
	return "Prints keys in the database"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("takes at most one (key directory) argument")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	dir := "/"
	if len(args) == 1 {
		dir = args[0]
	}
	begin, end := kvutil.PathRange(dir)

	return kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		it, err := r.Ascend(ctx, begin, end)
		if err != nil {
			return err
		}
		defer kv.Close(it)

		for k, _, err := it.Fetch(ctx, false); err == nil; k, _, err = it.Fetch(ctx, true) {
			fmt.Println(k)
		}
		if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("iterator fetch has failed: %w", err)
		}
		return nil
	})
}
