// mock_storage.go - In-memory key-value store and fixtures for testing
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/storage"
)

// MemoryStore implements storage.Store in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	puts   int
	FailOn error // when set, Get and Put return it
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailOn != nil {
		return nil, m.FailOn
	}
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOn != nil {
		return m.FailOn
	}
	m.data[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }

// Ensure MemoryStore implements storage.Store
var _ storage.Store = (*MemoryStore)(nil)

// Test Helper Methods

// Set stores raw bytes directly.
func (m *MemoryStore) Set(key string, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(value)
}

// Raw returns the stored bytes for key.
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return string(v), ok
}

// PutCount returns the number of successful writes.
func (m *MemoryStore) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// ErrInjected is a ready-made failure for FailOn.
var ErrInjected = errors.New("injected failure")

// FixtureCatalog returns a small catalog with predictable footprints.
func FixtureCatalog() *catalog.Catalog {
	c, err := catalog.New([]models.Archetype{
		{ID: "box", Name: "Box Unit", Icon: "B", Category: models.CategoryToilet, Width: 40, Height: 40, Color: "#FF0000"},
		{ID: "wide", Name: "Wide Trailer", Icon: "W", Category: models.CategoryTrailer, Width: 200, Height: 50, Color: "#00FF00"},
	})
	if err != nil {
		panic(err)
	}
	return c
}
