// Copyright (c) 2025 madmickstar

package db

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"

	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
)

// Set writes a value to a key, reading the value from a file or stdin.
type Set struct {
	cmdutil.DBFlags

	valueFile string
}

func (c *Set) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("set", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.valueFile, "value-file", "", "file with the value; stdin when empty")
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Set) Synopsis() string {
	return "Writes a value to a key in the database"
}

func (c *Set) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}
	if !cmdutil.IsGoodKey(args[0]) {
		return fmt.Errorf("key %q must be a clean absolute path", args[0])
	}

	var data []byte
	var err error
	if len(c.valueFile) != 0 {
		data, err = os.ReadFile(c.valueFile)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Set(ctx, args[0], bytes.NewReader(data))
	})
}
