// Copyright (c) 2025 madmickstar

package cmdutil

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBFlags selects the database directory for commands that open the
// datastore directly. The trading daemon holds an exclusive lock on the
// same directory, so these commands are for use while it is stopped.
type DBFlags struct {
	DataDir string
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.DataDir, "data-dir", "", "path to the data directory")
}

// ResolveDataDir expands the default data directory when none was given.
func (f *DBFlags) ResolveDataDir() (string, error) {
	dir := f.DataDir
	if len(dir) == 0 {
		dir = filepath.Join(os.Getenv("HOME"), ".polo-trader")
	}
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", dir, err)
		}
	}
	return filepath.Abs(dir)
}

// IsGoodKey restricts datastore keys to clean absolute paths.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}

// GetDatabase opens the badger datastore under the data directory.
func (f *DBFlags) GetDatabase(ctx context.Context) (kv.Database, func(), error) {
	dir, err := f.ResolveDataDir()
	if err != nil {
		return nil, nil, err
	}
	bopts := badger.DefaultOptions(dir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open the database: %w", err)
	}
	db := kvbadger.New(bdb, IsGoodKey)
	return db, func() { bdb.Close() }, nil
}
