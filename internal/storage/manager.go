// Package storage provides the key-value stores that persisted site map
// snapshots live in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a flat string-keyed byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendDuckDB = "duckdb"
	BackendSQLite = "sqlite"
)

// Open creates the store for backend. For the file backend dataDir holds one
// file per key; database backends keep a single file named dbFile inside it.
func Open(backend, dataDir, dbFile string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dataDir, "snapshots"))
	case BackendDuckDB:
		if dbFile == "" {
			dbFile = "siteplanner.duckdb"
		}
		return NewDuckStore(filepath.Join(dataDir, dbFile))
	case BackendSQLite:
		if dbFile == "" {
			dbFile = "siteplanner.db"
		}
		return NewSQLiteStore(filepath.Join(dataDir, dbFile))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
