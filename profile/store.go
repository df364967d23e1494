// Copyright (c) 2025 madmickstar

package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/kvutil"
	"github.com/madmickstar/polo-trader/ratio"
)

// DefaultKey is where the profile document lives in the database.
const DefaultKey = "/profiles/pairs"

// Document is the nested on-disk shape: sell symbol, fiat symbol, buy
// symbol. Sibling triples under the same symbols are preserved across
// updates to any one of them.
type Document map[string]map[string]map[string]Record

// MissingError reports a lookup for a triple with no stored record, naming
// which level of the document was absent.
type MissingError struct {
	Pair   Pair
	Symbol string // "fsym", "fiat" or "tsym"
}

func (e *MissingError) Error() string {
	var name string
	switch e.Symbol {
	case "fsym":
		name = e.Pair.FsymShort()
	case "fiat":
		name = e.Pair.Fiat
	default:
		name = e.Pair.TsymShort()
	}
	return fmt.Sprintf("no previous trade for %s: missing %s symbol %s", e.Pair, e.Symbol, name)
}

// Store reads and writes the profile document.
type Store struct {
	db  kv.Database
	key string
}

func NewStore(db kv.Database) *Store {
	return &Store{db: db, key: DefaultKey}
}

func (s *Store) load(ctx context.Context) (Document, error) {
	doc, err := kvutil.GetDB[Document](ctx, s.db, s.key)
	if err != nil {
		if kvutil.IsNotExist(err) {
			return Document{}, nil
		}
		return nil, err
	}
	return *doc, nil
}

// Lookup returns the stored record for the triple. A *MissingError is
// returned when any level of the triple is absent; other errors are
// persistence failures.
func (s *Store) Lookup(ctx context.Context, p Pair) (*Record, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	fiats, ok := doc[p.Fsym]
	if !ok {
		return nil, &MissingError{Pair: p, Symbol: "fsym"}
	}
	tsyms, ok := fiats[p.Fiat]
	if !ok {
		return nil, &MissingError{Pair: p, Symbol: "fiat"}
	}
	rec, ok := tsyms[p.Tsym]
	if !ok {
		return nil, &MissingError{Pair: p, Symbol: "tsym"}
	}
	return &rec, nil
}

// Write merges the record into the document under the triple, filling the
// symbol names and timestamps, without disturbing sibling triples.
func (s *Store) Write(ctx context.Context, p Pair, rec Record) error {
	if err := p.Check(); err != nil {
		return err
	}
	rec.stamp(p, time.Now())

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if doc[p.Fsym] == nil {
		doc[p.Fsym] = map[string]map[string]Record{}
	}
	if doc[p.Fsym][p.Fiat] == nil {
		doc[p.Fsym][p.Fiat] = map[string]Record{}
	}
	doc[p.Fsym][p.Fiat][p.Tsym] = rec

	if err := kvutil.SetDB(ctx, s.db, s.key, &doc); err != nil {
		return fmt.Errorf("could not save profile document: %w", err)
	}
	return nil
}

// Seed writes a placeholder record for a triple never traded before, using
// live order-book prices and one unit on both sides. The record is not
// tradable until the operator calibrates it (CheckCalibrated fails on it);
// seeding exists so the operator has a concrete record to edit.
func (s *Store) Seed(ctx context.Context, p Pair, fsymPrice, tsymPrice decimal.Decimal) (*Record, error) {
	one := decimal.NewFromInt(1)
	rec := Record{
		Ratio:     ratio.Of(fsymPrice, tsymPrice),
		FsymPrice: fsymPrice.Round(ratio.PricePlaces),
		FsymUnits: one,
		TsymPrice: tsymPrice.Round(ratio.PricePlaces),
		TsymUnits: one,
	}
	if err := s.Write(ctx, p, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
