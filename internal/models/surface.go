package models

import "time"

// CanvasMode selects what is drawn behind the placed units.
type CanvasMode string

const (
	CanvasModeGrid  CanvasMode = "grid"
	CanvasModeImage CanvasMode = "image"
)

// Valid reports whether m is a known canvas mode.
func (m CanvasMode) Valid() bool {
	return m == CanvasModeGrid || m == CanvasModeImage
}

const (
	DefaultMapName  = "Untitled Site Map"
	DefaultGridSize = 20
)

// SurfaceState is an immutable view of a surface. Units are in z-order,
// the last entry drawn on top. Selected is transient and never persisted.
type SurfaceState struct {
	Units           []PlacedUnit `json:"units"`
	Mode            CanvasMode   `json:"mode"`
	BackgroundImage string       `json:"backgroundImage,omitempty"`
	MapName         string       `json:"mapName"`
	GridSize        int          `json:"gridSize"`
	ShowGrid        bool         `json:"showGrid"`
	Selected        string       `json:"selected,omitempty"`
	Version         uint64       `json:"version"`
}

// HasBackground reports whether an uploaded image should be composited.
func (s SurfaceState) HasBackground() bool {
	return s.Mode == CanvasModeImage && s.BackgroundImage != ""
}

// Snapshot is the persisted record of a surface, stored under the
// "siteMapPlanner" key family. GridSize and ShowGrid are optional.
type Snapshot struct {
	PlacedUnits     []PlacedUnit `json:"placedUnits"`
	BackgroundImage *string      `json:"backgroundImage"`
	MapName         string       `json:"mapName"`
	CanvasMode      CanvasMode   `json:"canvasMode"`
	SavedAt         time.Time    `json:"savedAt"`
	GridSize        int          `json:"gridSize,omitempty"`
	ShowGrid        *bool        `json:"showGrid,omitempty"`
}
