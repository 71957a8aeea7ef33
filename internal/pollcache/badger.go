// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pollcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "poll:"

// BadgerStore keeps each seen set as a JSON array under "poll:<key>".
// Put reads, unions and writes inside one transaction.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger directory at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger poll store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]string, bool, error) {
	var ids []string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ids, found, err = readSeen(txn, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return ids, found, nil
}

func (s *BadgerStore) Put(ctx context.Context, key string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		existing, _, err := readSeen(txn, key)
		if err != nil {
			return err
		}
		buf, err := json.Marshal(union(existing, ids))
		if err != nil {
			return err
		}
		return txn.Set([]byte(badgerKeyPrefix+key), buf)
	})
}

func readSeen(txn *badger.Txn, key string) ([]string, bool, error) {
	item, err := txn.Get([]byte(badgerKeyPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []string
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ids)
	}); err != nil {
		return nil, false, fmt.Errorf("decode seen set %q: %w", key, err)
	}
	return ids, true, nil
}

func (s *BadgerStore) Backend() string { return BackendBadger }

func (s *BadgerStore) Close() error { return s.db.Close() }
