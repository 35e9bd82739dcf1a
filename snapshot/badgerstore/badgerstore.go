// Package badgerstore backs snapshot.Store with an embedded BadgerDB.
package badgerstore

import (
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/raterly/go-raterly/snapshot"
)

var _ snapshot.Store = (*Store)(nil)

// Config holds configuration for the snapshot database.
type Config struct {
	// Path is the directory for the database files. Required unless InMemory.
	Path string

	// InMemory disables disk persistence. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns durable on-disk settings rooted at dataFolder.
func DefaultConfig(dataFolder string) Config {
	return Config{
		Path:       filepath.Join(dataFolder, "state"),
		SyncWrites: true,
	}
}

// InMemoryConfig returns settings for tests (no disk I/O).
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type Store struct {
	db *badger.DB
}

// Open creates the directory if needed and opens the database.
// Caller must Close when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("[badgerstore.Open] path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, errors.Wrap(err, "[badgerstore.Open] create data directory")
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "[badgerstore.Open] badger.Open")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "[badgerstore.Get] read")
	}
	return value, true, nil
}

func (s *Store) Put(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return errors.Wrap(err, "[badgerstore.Put] write")
}

func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrap(err, "[badgerstore.Delete] delete")
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "[badgerstore.Close] close")
}
