// Copyright (c) 2025 madmickstar

package main

import (
	"context"
	"log"
	"os"

	"github.com/visvasity/cli"

	"github.com/madmickstar/polo-trader/subcmds"
	"github.com/madmickstar/polo-trader/subcmds/db"
	"github.com/madmickstar/polo-trader/subcmds/profile"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Set),
		new(db.Delete),
		new(db.List),
	}

	profileCmds := []cli.Command{
		new(profile.Get),
		new(profile.Set),
		new(profile.Flip),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		cli.NewGroup("profile", "View/update pair trade profiles", profileCmds...),
		cli.NewGroup("db", "View/update database directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
