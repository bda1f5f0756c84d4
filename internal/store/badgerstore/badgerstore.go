// Package badgerstore keeps library records in an embedded BadgerDB.
package badgerstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kimhsiao/photolib/backend/internal/store"
)

// Backend is a store.Backend over BadgerDB.
type Backend struct {
	db     *badger.DB
	dbPath string
}

var _ store.Backend = (*Backend)(nil)

// Open opens (creating if needed) a BadgerDB in dirPath.
func Open(dirPath string) (*Backend, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)
	return open(opts)
}

// OpenInMemory opens a BadgerDB that never touches disk.
func OpenInMemory() (*Backend, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	return open(opts)
}

func open(opts badger.Options) (*Backend, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}
	return &Backend{db: db, dbPath: opts.Dir}, nil
}

// Dir returns the database directory, empty when in memory.
func (b *Backend) Dir() string {
	return b.dbPath
}

// Close closes the BadgerDB instance.
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Get returns the payload stored under key.
func (b *Backend) Get(key string) ([]byte, error) {
	var payload []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return payload, nil
}

// Put replaces the record for key in one transaction.
func (b *Backend) Put(key string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Delete removes the record for key.
func (b *Backend) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.NotFound(key)
			}
			return err
		}
		return txn.Delete([]byte(key))
	})
}

// Keys lists stored keys that start with prefix, in key order.
func (b *Backend) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return keys, nil
}
