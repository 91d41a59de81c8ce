package storage

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/timshannon/badgerhold/v4"
)

// DB wraps the badgerhold store shared by the cache index and the recorder.
type DB struct {
	store  *badgerhold.Store
	logger *slog.Logger
	path   string
}

// OpenDB opens (or creates) a badgerhold database at path.
func OpenDB(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	logger.Debug("badger database opened", "path", path)

	return &DB{store: store, logger: logger, path: path}, nil
}

// Store returns the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Path returns the database directory.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database.
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
