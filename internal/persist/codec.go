// Package persist stores surface state as snapshots in a key-value store
// and debounces autosaves.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/surface"
	"github.com/vmihailenco/msgpack/v5"
)

// Key families. The default workspace uses the bare key.
const (
	SnapshotKey        = "siteMapPlanner"
	RecommendationsKey = "calculatorRecommendations"
	DefaultWorkspace   = "default"
)

// KeyFor returns the storage key of a workspace within a key family.
func KeyFor(base, workspace string) string {
	if workspace == "" || workspace == DefaultWorkspace {
		return base
	}
	return base + "/" + workspace
}

// ToSnapshot converts a surface state to its persisted form.
func ToSnapshot(st models.SurfaceState, savedAt time.Time) models.Snapshot {
	snap := models.Snapshot{
		PlacedUnits: slices.Clone(st.Units),
		MapName:     st.MapName,
		CanvasMode:  st.Mode,
		SavedAt:     savedAt.UTC(),
		GridSize:    st.GridSize,
	}
	if snap.PlacedUnits == nil {
		snap.PlacedUnits = []models.PlacedUnit{}
	}
	if st.BackgroundImage != "" {
		img := st.BackgroundImage
		snap.BackgroundImage = &img
	}
	showGrid := st.ShowGrid
	snap.ShowGrid = &showGrid
	return snap
}

// FromSnapshot rebuilds a surface state, filling defaults for anything the
// snapshot omits.
func FromSnapshot(snap models.Snapshot) models.SurfaceState {
	st := surface.Empty()
	if snap.PlacedUnits != nil {
		st.Units = slices.Clone(snap.PlacedUnits)
	}
	if snap.CanvasMode.Valid() {
		st.Mode = snap.CanvasMode
	}
	if snap.BackgroundImage != nil {
		st.BackgroundImage = *snap.BackgroundImage
	}
	if snap.MapName != "" {
		st.MapName = snap.MapName
	}
	if snap.GridSize > 0 {
		st.GridSize = snap.GridSize
	}
	if snap.ShowGrid != nil {
		st.ShowGrid = *snap.ShowGrid
	}
	return st
}

// EncodeJSON serializes a snapshot.
func EncodeJSON(snap models.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeJSON parses a snapshot and rejects unit entries without an id or type.
func DecodeJSON(data []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	for i, u := range snap.PlacedUnits {
		if u.ID == "" || u.Type == "" {
			return models.Snapshot{}, fmt.Errorf("decoding snapshot: unit %d has no id or type", i)
		}
	}
	return snap, nil
}

// EncodeMsgpack serializes a snapshot as MessagePack using the JSON field names.
func EncodeMsgpack(snap models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack parses a MessagePack snapshot.
func DecodeMsgpack(data []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
