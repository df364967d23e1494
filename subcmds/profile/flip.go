// Copyright (c) 2025 madmickstar

package profile

import (
	"context"
	"flag"
	"fmt"

	"github.com/visvasity/cli"

	tprofile "github.com/madmickstar/polo-trader/profile"
	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
)

// Flip prints the mirrored triple for a pair and whether a profile exists
// under it.
type Flip struct {
	cmdutil.DBFlags
}

func (c *Flip) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("flip", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Flip) Synopsis() string {
	return "Prints the mirrored triple for the next cycle"
}

func (c *Flip) run(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("needs three (fsym fiat tsym) arguments")
	}
	pair := tprofile.NewPair(args[0], args[1], args[2])
	if err := pair.Check(); err != nil {
		return err
	}
	flipped := pair.Flip()
	fmt.Printf("%s flips to %s\n", pair, flipped)

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if _, err := tprofile.NewStore(db).Lookup(ctx, flipped); err != nil {
		fmt.Printf("no profile stored for %s: %v\n", flipped, err)
		return nil
	}
	fmt.Printf("profile exists for %s\n", flipped)
	return nil
}
