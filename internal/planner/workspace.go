package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/importer"
	"github.com/coastal-clean/siteplanner/internal/interaction"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/persist"
	"github.com/coastal-clean/siteplanner/internal/surface"
)

var (
	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrUnitNotFound is returned for operations on an unknown unit id.
	ErrUnitNotFound = errors.New("unit not found")
	// ErrInvalidMode is returned for an unknown canvas mode.
	ErrInvalidMode = errors.New("invalid canvas mode")
)

// View is everything a client needs to draw a workspace.
type View struct {
	ID              string                  `json:"id"`
	State           models.SurfaceState     `json:"state"`
	Interaction     interaction.View        `json:"interaction"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// Update is pushed to subscribers after every change.
type Update struct {
	Workspace   string              `json:"workspace"`
	State       models.SurfaceState `json:"state"`
	Interaction interaction.View    `json:"interaction"`
}

// Workspace is one live site map. All methods are safe for concurrent use;
// mutations are applied one at a time in arrival order.
type Workspace struct {
	ID string

	mu           sync.Mutex
	surface      *surface.Surface
	controller   *interaction.Controller
	catalog      Catalog
	recs         []models.Recommendation
	autosaver    *persist.Autosaver
	adapter      *persist.Adapter
	lastAccessed time.Time
	subscribers  map[int]chan Update
	nextSub      int
	closed       bool
}

func (w *Workspace) touch() {
	w.lastAccessed = time.Now()
}

// acquire marks the workspace as used. It fails once the workspace has been
// evicted, so callers re-open a fresh copy instead of editing a dead one.
func (w *Workspace) acquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.touch()
	return true
}

// closeIfIdle closes the workspace when it was last used before cutoff,
// outside the keep-alive window, and has no subscribers.
func (w *Workspace) closeIfIdle(cutoff, keepAliveCutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastAccessed.After(keepAliveCutoff) || !w.lastAccessed.Before(cutoff) || len(w.subscribers) > 0 {
		return false
	}
	w.closeLocked()
	return true
}

func (w *Workspace) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Workspace) closeLocked() {
	w.closed = true
	w.autosaver.Stop()
}

// LastAccessed returns when the workspace was last used.
func (w *Workspace) LastAccessed() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAccessed
}

// View returns the current state, controller view and recommendations.
func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	recs := w.recs
	if recs == nil {
		recs = []models.Recommendation{}
	}
	return View{
		ID:              w.ID,
		State:           w.surface.State(),
		Interaction:     w.controller.View(),
		Recommendations: slices.Clone(recs),
	}
}

// State returns the current surface state.
func (w *Workspace) State() models.SurfaceState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.surface.State()
}

// Recommendations returns the stored recommendation payload.
func (w *Workspace) Recommendations() []models.Recommendation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Recommendation(nil), w.recs...)
}

// AddUnit places a unit of archetypeID. A nil position uses the palette
// drop position.
func (w *Workspace) AddUnit(archetypeID string, pos *models.Point) (models.PlacedUnit, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	var (
		u  models.PlacedUnit
		ok bool
	)
	if pos == nil {
		u, ok = w.controller.AddFromPalette(archetypeID)
	} else {
		u, ok = w.surface.AddInstance(archetypeID, *pos)
	}
	if !ok {
		return models.PlacedUnit{}, fmt.Errorf("%q: %w", archetypeID, catalog.ErrUnknownArchetype)
	}
	return u, nil
}

// MoveUnit repositions a unit; negative coordinates clamp to zero.
func (w *Workspace) MoveUnit(id string, pos models.Point) (models.PlacedUnit, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if !w.surface.MoveInstance(id, pos) {
		return models.PlacedUnit{}, fmt.Errorf("%s: %w", id, ErrUnitNotFound)
	}
	u, _ := w.surface.Unit(id)
	return u, nil
}

// RotateUnit adds delta degrees to a unit's rotation.
func (w *Workspace) RotateUnit(id string, delta int) (models.PlacedUnit, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if !w.surface.RotateInstance(id, delta) {
		return models.PlacedUnit{}, fmt.Errorf("%s: %w", id, ErrUnitNotFound)
	}
	u, _ := w.surface.Unit(id)
	return u, nil
}

// RemoveUnit deletes a unit.
func (w *Workspace) RemoveUnit(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if id == w.controller.View().Dragging {
		w.controller.Reset()
	}
	if !w.surface.RemoveInstance(id) {
		return fmt.Errorf("%s: %w", id, ErrUnitNotFound)
	}
	return nil
}

// ClearAll removes every unit once the caller has confirmed.
func (w *Workspace) ClearAll(confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	w.controller.Reset()
	w.surface.ClearAll()
	return nil
}

// Select marks a unit as selected. An empty id clears the selection.
func (w *Workspace) Select(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if id == "" {
		w.surface.ClearSelection()
		return nil
	}
	if !w.surface.Select(id) {
		return fmt.Errorf("%s: %w", id, ErrUnitNotFound)
	}
	return nil
}

// SetBackground switches the canvas mode, optionally replacing the image.
func (w *Workspace) SetBackground(mode models.CanvasMode, image *string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if !w.surface.SetBackground(mode, image) {
		return fmt.Errorf("%q: %w", mode, ErrInvalidMode)
	}
	return nil
}

// Settings holds optional map settings; nil fields are left unchanged.
type Settings struct {
	MapName  *string `json:"mapName,omitempty"`
	GridSize *int    `json:"gridSize,omitempty"`
	ShowGrid *bool   `json:"showGrid,omitempty"`
}

// UpdateSettings applies the non-nil settings.
func (w *Workspace) UpdateSettings(s Settings) models.SurfaceState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if s.MapName != nil {
		w.surface.SetMapName(*s.MapName)
	}
	if s.GridSize != nil || s.ShowGrid != nil {
		st := w.surface.State()
		size, show := st.GridSize, st.ShowGrid
		if s.GridSize != nil {
			size = *s.GridSize
		}
		if s.ShowGrid != nil {
			show = *s.ShowGrid
		}
		w.surface.SetGrid(size, show)
	}
	return w.surface.State()
}

// Zoom steps the view scale in (+1) or out (-1).
func (w *Workspace) Zoom(steps int) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	for ; steps > 0; steps-- {
		w.controller.ZoomIn()
	}
	for ; steps < 0; steps++ {
		w.controller.ZoomOut()
	}
	w.publish(w.surface.State())
	return w.controller.Scale()
}

// SetScale sets the view scale directly, clamped to the zoom limits.
func (w *Workspace) SetScale(scale float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	s := w.controller.SetScale(scale)
	w.publish(w.surface.State())
	return s
}

// Pointer feeds one pointer event to the interaction controller.
func (w *Workspace) Pointer(ev interaction.Event) interaction.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	before := w.controller.View()
	w.controller.Handle(ev)
	after := w.controller.View()
	if before != after {
		w.publish(w.surface.State())
	}
	return after
}

// RotateSelected rotates the selected unit by steps of 15 degrees.
func (w *Workspace) RotateSelected(steps int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if !w.controller.RotateSelected(steps) {
		return ErrUnitNotFound
	}
	return nil
}

// DeleteSelected removes the selected unit.
func (w *Workspace) DeleteSelected() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if !w.controller.DeleteSelected() {
		return ErrUnitNotFound
	}
	return nil
}

// SetRecommendations stores the recommendation handoff for this workspace.
func (w *Workspace) SetRecommendations(ctx context.Context, recs []models.Recommendation) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	w.recs = append([]models.Recommendation(nil), recs...)
	return w.adapter.SaveRecommendations(ctx, w.ID, w.recs)
}

// ApplyRecommendations places the stored recommendations with shelf packing
// and returns the new units.
func (w *Workspace) ApplyRecommendations() []models.PlacedUnit {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	units := importer.Plan(w.recs, w.catalog, w.surface)
	w.surface.AddMany(units)
	return units
}

// Subscribe returns a channel of updates. Slow subscribers only ever miss
// intermediate states, never the latest one.
func (w *Workspace) Subscribe() (<-chan Update, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	ch := make(chan Update, 16)
	id := w.nextSub
	w.nextSub++
	w.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subscribers, id)
		})
	}
}

func (w *Workspace) subscriberCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscribers)
}

// onChange runs with w.mu held.
func (w *Workspace) onChange(st models.SurfaceState) {
	w.autosaver.Schedule(st)
	w.publish(st)
}

func (w *Workspace) publish(st models.SurfaceState) {
	if len(w.subscribers) == 0 {
		return
	}
	u := Update{Workspace: w.ID, State: st, Interaction: w.controller.View()}
	for _, ch := range w.subscribers {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

// Flush writes any pending autosave now.
func (w *Workspace) Flush() {
	w.autosaver.Flush()
}
