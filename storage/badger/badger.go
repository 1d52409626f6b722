// Package badger persists toggles and the session id in an embedded
// BadgerDB, so a restarted process can serve the last known toggles before
// its first fetch completes.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	toggled "github.com/toggled-dev/go-sdk"
)

// Storage implements toggled.StorageProvider on top of BadgerDB
type Storage struct {
	db     *badger.DB
	prefix string
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// Prefix prepended to every key, toggled.StorageKeyPrefix when empty
	Prefix string
}

var _ toggled.StorageProvider = (*Storage)(nil)

// New opens a BadgerDB storage provider
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithNumVersionsToKeep(1).
		WithLoggingLevel(badger.WARNING)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = toggled.StorageKeyPrefix
	}
	return &Storage{db: db, prefix: prefix}, nil
}

func (s *Storage) key(name string) []byte {
	return []byte(s.prefix + ":" + name)
}

// Get returns "" for a key that was never saved
func (s *Storage) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, nil
}

func (s *Storage) Save(ctx context.Context, name string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(name), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}
