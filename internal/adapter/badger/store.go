package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Store implements session.Store on BadgerDB so session state survives restarts.
type Store struct {
	db     *badgerdb.DB
	logger *slog.Logger
}

// Open opens (or creates) a Badger database at path. An empty path opens an
// in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		s.logger.Warn("badger get failed", "key", key, "error", err)
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return string(value), true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		s.logger.Warn("badger set failed", "key", key, "error", err)
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("badger remove failed", "key", key, "error", err)
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing session store")
	return s.db.Close()
}
