// Copyright (c) 2025 madmickstar

package profile

import (
	"context"
	"flag"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"

	tprofile "github.com/madmickstar/polo-trader/profile"
	"github.com/madmickstar/polo-trader/subcmds/cmdutil"
)

// Set writes or updates the profile record for a triple. It exists mainly
// to calibrate a freshly seeded profile with the real previous trade before
// the trader is allowed to run on it.
type Set struct {
	cmdutil.DBFlags

	ratio     string
	fsymPrice string
	fsymUnits string
	tsymPrice string
	tsymUnits string
}

func (c *Set) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("set", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.ratio, "ratio", "", "realized price ratio of the recorded trade")
	fset.StringVar(&c.fsymPrice, "fsym-price", "", "price the fsym coin sold at")
	fset.StringVar(&c.fsymUnits, "fsym-units", "", "units of the fsym coin sold")
	fset.StringVar(&c.tsymPrice, "tsym-price", "", "price the tsym coin was bought at")
	fset.StringVar(&c.tsymUnits, "tsym-units", "", "units of the tsym coin bought")
	return fset.Name(), fset, cli.CmdFunc(c.run)
}

func (c *Set) Synopsis() string {
	return "Writes the stored profile for a fsym fiat tsym triple"
}

func (c *Set) run(ctx context.Context, args []string) error {
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

	store := tprofile.NewStore(db)
	rec := tprofile.Record{}
	if existing, err := store.Lookup(ctx, pair); err == nil {
		rec = *existing
	}

	set := func(dst *decimal.Decimal, value, name string) error {
		if len(value) == 0 {
			return nil
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid -%s value %q: %w", name, value, err)
		}
		*dst = v
		return nil
	}
	if err := set(&rec.Ratio, c.ratio, "ratio"); err != nil {
		return err
	}
	if err := set(&rec.FsymPrice, c.fsymPrice, "fsym-price"); err != nil {
		return err
	}
	if err := set(&rec.FsymUnits, c.fsymUnits, "fsym-units"); err != nil {
		return err
	}
	if err := set(&rec.TsymPrice, c.tsymPrice, "tsym-price"); err != nil {
		return err
	}
	if err := set(&rec.TsymUnits, c.tsymUnits, "tsym-units"); err != nil {
		return err
	}

	if err := store.Write(ctx, pair, rec); err != nil {
		return err
	}
	if err := rec.CheckCalibrated(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	return nil
}
