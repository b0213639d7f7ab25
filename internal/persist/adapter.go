package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/storage"
	"github.com/coastal-clean/siteplanner/internal/surface"
)

// Adapter loads and saves surface state through a store.
type Adapter struct {
	store   storage.Store
	baseKey string
	logger  *slog.Logger
	now     func() time.Time
}

// NewAdapter creates an adapter. An empty baseKey means SnapshotKey.
func NewAdapter(store storage.Store, baseKey string, logger *slog.Logger) *Adapter {
	if baseKey == "" {
		baseKey = SnapshotKey
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{store: store, baseKey: baseKey, logger: logger, now: time.Now}
}

// Key returns the snapshot key of a workspace.
func (a *Adapter) Key(workspace string) string {
	return KeyFor(a.baseKey, workspace)
}

// Load hydrates a workspace. It never fails: a missing or malformed
// snapshot is logged and replaced by an empty surface.
func (a *Adapter) Load(ctx context.Context, workspace string) models.SurfaceState {
	key := a.Key(workspace)

	data, err := a.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return surface.Empty()
	}
	if err != nil {
		a.logger.Warn("failed to read snapshot, starting empty", "key", key, "error", err)
		return surface.Empty()
	}

	snap, err := DecodeJSON(data)
	if err != nil {
		a.logger.Warn("malformed snapshot, starting empty", "key", key, "error", err)
		return surface.Empty()
	}

	a.logger.Debug("snapshot loaded", "key", key, "units", len(snap.PlacedUnits), "savedAt", snap.SavedAt)
	return FromSnapshot(snap)
}

// Save writes the state of a workspace.
func (a *Adapter) Save(ctx context.Context, workspace string, st models.SurfaceState) error {
	data, err := EncodeJSON(ToSnapshot(st, a.now()))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := a.store.Put(ctx, a.Key(workspace), data); err != nil {
		return err
	}
	return nil
}

// Snapshot returns the persisted form of st stamped with the current time.
func (a *Adapter) Snapshot(st models.SurfaceState) models.Snapshot {
	return ToSnapshot(st, a.now())
}

// LoadRecommendations returns the recommendations handed to a workspace.
// Absent or malformed data yields none.
func (a *Adapter) LoadRecommendations(ctx context.Context, workspace string) []models.Recommendation {
	key := KeyFor(RecommendationsKey, workspace)
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("failed to read recommendations", "key", key, "error", err)
		}
		return nil
	}

	var recs []models.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		a.logger.Warn("malformed recommendations ignored", "key", key, "error", err)
		return nil
	}
	return recs
}

// SaveRecommendations stores the recommendations for a workspace.
func (a *Adapter) SaveRecommendations(ctx context.Context, workspace string, recs []models.Recommendation) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return a.store.Put(ctx, KeyFor(RecommendationsKey, workspace), data)
}

// Workspaces lists workspaces that have a stored snapshot.
func (a *Adapter) Workspaces(ctx context.Context) ([]string, error) {
	keys, err := a.store.Keys(ctx, a.baseKey)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, k := range keys {
		switch {
		case k == a.baseKey:
			ids = append(ids, DefaultWorkspace)
		case len(k) > len(a.baseKey) && k[len(a.baseKey)] == '/':
			ids = append(ids, k[len(a.baseKey)+1:])
		}
	}
	return ids, nil
}
