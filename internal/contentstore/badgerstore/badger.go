// Package badgerstore is an embedded content-addressed blob store on top of
// BadgerDB, for single-node deployments and development.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/contentstore"
)

const ProviderName = "BADGER"

var keyPrefix = []byte("blob:")

type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path. An empty path opens an
// in-memory store.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Provider() string { return ProviderName }

func key(contentID string) []byte {
	return append(append([]byte(nil), keyPrefix...), contentID...)
}

func (s *Store) Upload(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	id, err := contentstore.ComputeCID(data)
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id), data)
	})
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	return id, nil
}

func (s *Store) Download(ctx context.Context, contentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, contentstore.Unavailable("download", err)
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(contentID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, contentstore.Unavailable("download", err)
	}
	return data, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
