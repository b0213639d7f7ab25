// Package planner hosts live site map workspaces: it hydrates them from
// storage, serializes their mutations, autosaves them and evicts idle ones.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/coastal-clean/siteplanner/internal/interaction"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/persist"
	"github.com/coastal-clean/siteplanner/internal/storage"
	"github.com/coastal-clean/siteplanner/internal/surface"
)

// WorkspaceKeepAliveWindow protects recently used workspaces from eviction.
const WorkspaceKeepAliveWindow = 5 * time.Minute

var workspaceID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ErrInvalidWorkspace is returned for malformed workspace ids.
var ErrInvalidWorkspace = errors.New("invalid workspace id")

// Catalog resolves archetype ids and free-text types.
type Catalog interface {
	Lookup(id string) (models.Archetype, bool)
	Match(text string) (models.Archetype, bool)
}

// Options configures a Manager.
type Options struct {
	AutosaveDelay time.Duration
	SnapshotKey   string
	Logger        *slog.Logger
}

// Manager owns the open workspaces.
type Manager struct {
	workspaces map[string]*Workspace
	mu         sync.RWMutex
	catalog    Catalog
	adapter    *persist.Adapter
	delay      time.Duration
	logger     *slog.Logger
}

// NewManager creates a manager backed by store.
func NewManager(store storage.Store, c Catalog, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		workspaces: make(map[string]*Workspace),
		catalog:    c,
		adapter:    persist.NewAdapter(store, opts.SnapshotKey, logger),
		delay:      opts.AutosaveDelay,
		logger:     logger,
	}
}

// Adapter exposes the persistence adapter for snapshot encoding.
func (m *Manager) Adapter() *persist.Adapter {
	return m.adapter
}

// Catalog returns the catalog workspaces resolve against.
func (m *Manager) Catalog() Catalog {
	return m.catalog
}

// ValidID reports whether id is an acceptable workspace id.
func ValidID(id string) bool {
	return workspaceID.MatchString(id)
}

// Open returns the live workspace id, hydrating it from storage on first use.
// Hydration never fails: a bad snapshot yields an empty surface.
func (m *Manager) Open(ctx context.Context, id string) (*Workspace, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%q: %w", id, ErrInvalidWorkspace)
	}

	m.mu.RLock()
	ws, ok := m.workspaces[id]
	m.mu.RUnlock()
	if ok && ws.acquire() {
		return ws, nil
	}

	// Eviction holds m.mu, so a workspace still in the map here is live.
	m.mu.Lock()
	defer m.mu.Unlock()
	if ws, ok := m.workspaces[id]; ok && ws.acquire() {
		return ws, nil
	}

	ws = m.hydrate(ctx, id)
	m.workspaces[id] = ws
	m.logger.Info("workspace opened", "workspace", id, "units", len(ws.surface.Units()))
	return ws, nil
}

func (m *Manager) hydrate(ctx context.Context, id string) *Workspace {
	ws := &Workspace{
		ID:           id,
		catalog:      m.catalog,
		adapter:      m.adapter,
		lastAccessed: time.Now(),
		subscribers:  make(map[int]chan Update),
	}
	ws.autosaver = persist.NewAutosaver(m.delay, func(ctx context.Context, st models.SurfaceState) error {
		return m.adapter.Save(ctx, id, st)
	}, m.logger.With("workspace", id))
	ws.surface = surface.New(m.catalog, surface.WithObserver(ws.onChange))
	ws.surface.Restore(m.adapter.Load(ctx, id))
	ws.controller = interaction.New(ws.surface, m.catalog)
	ws.recs = m.adapter.LoadRecommendations(ctx, id)
	return ws
}

// Get returns an already open workspace.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.workspaces[id]
	return ws, ok
}

// Count returns the number of open workspaces.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// List returns the ids of stored and open workspaces, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	stored, err := m.adapter.Workspaces(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
	}
	m.mu.RLock()
	for id := range m.workspaces {
		seen[id] = struct{}{}
	}
	m.mu.RUnlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CleanupIdle flushes and evicts workspaces unused for maxAge. Workspaces
// with live subscribers or used within WorkspaceKeepAliveWindow are kept.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-WorkspaceKeepAliveWindow)

	evicted := 0
	for id, ws := range m.workspaces {
		last := ws.LastAccessed()
		if !ws.closeIfIdle(cutoff, keepAliveCutoff) {
			continue
		}
		delete(m.workspaces, id)
		evicted++
		m.logger.Info("workspace evicted", "workspace", id, "idle", time.Since(last).Round(time.Second))
	}
	return evicted
}

// FlushAll writes every pending autosave.
func (m *Manager) FlushAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ws := range m.workspaces {
		ws.Flush()
	}
}

// Close flushes all workspaces and stops autosaving.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ws := range m.workspaces {
		ws.close()
		delete(m.workspaces, id)
	}
}
