// Package surface owns the placed units and canvas configuration of one
// site map. Every mutation produces a new immutable state snapshot.
package surface

import (
	"slices"

	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/google/uuid"
)

// RotationStep is the canonical rotate increment in degrees.
const RotationStep = 15

// Catalog resolves archetype ids.
type Catalog interface {
	Lookup(id string) (models.Archetype, bool)
}

// Surface is the single source of truth for a site map. It is not safe
// for concurrent use; callers serialize access.
type Surface struct {
	catalog  Catalog
	state    models.SurfaceState
	onChange func(models.SurfaceState)
	newID    func(archetypeID string) string
}

// Option configures a Surface.
type Option func(*Surface)

// WithObserver registers fn to receive every new state after a mutation.
func WithObserver(fn func(models.SurfaceState)) Option {
	return func(s *Surface) { s.onChange = fn }
}

// WithIDGenerator overrides instance id generation.
func WithIDGenerator(fn func(archetypeID string) string) Option {
	return func(s *Surface) { s.newID = fn }
}

// New returns an empty surface in grid mode.
func New(catalog Catalog, opts ...Option) *Surface {
	s := &Surface{
		catalog: catalog,
		state:   Empty(),
		newID: func(archetypeID string) string {
			return archetypeID + "-" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Empty returns the default state of a fresh surface.
func Empty() models.SurfaceState {
	return models.SurfaceState{
		Units:    []models.PlacedUnit{},
		Mode:     models.CanvasModeGrid,
		MapName:  models.DefaultMapName,
		GridSize: models.DefaultGridSize,
		ShowGrid: true,
	}
}

// State returns the current snapshot. The returned value shares nothing
// with the surface.
func (s *Surface) State() models.SurfaceState {
	return clone(s.state)
}

// Restore replaces the whole state, typically after hydration. Selection
// is dropped and the observer is not notified.
func (s *Surface) Restore(state models.SurfaceState) {
	state = clone(state)
	if state.Units == nil {
		state.Units = []models.PlacedUnit{}
	}
	if !state.Mode.Valid() {
		state.Mode = models.CanvasModeGrid
	}
	if state.GridSize <= 0 {
		state.GridSize = models.DefaultGridSize
	}
	state.Selected = ""
	state.Version = s.state.Version
	s.state = state
}

// AddInstance appends a new unit of archetypeID at pos on top of the
// stack. Unknown archetypes are a no-op reported by ok == false.
func (s *Surface) AddInstance(archetypeID string, pos models.Point) (unit models.PlacedUnit, ok bool) {
	a, found := s.catalog.Lookup(archetypeID)
	if !found {
		return models.PlacedUnit{}, false
	}

	unit = s.NewInstance(a, pos)
	s.state.Units = append(slices.Clip(s.state.Units), unit)
	s.changed()
	return unit, true
}

// AddMany appends units in order, notifying once.
func (s *Surface) AddMany(units []models.PlacedUnit) {
	if len(units) == 0 {
		return
	}
	s.state.Units = append(slices.Clip(s.state.Units), units...)
	s.changed()
}

// NewInstance builds a unit for archetype a without adding it.
func (s *Surface) NewInstance(a models.Archetype, pos models.Point) models.PlacedUnit {
	return models.PlacedUnit{
		ID:    s.newID(a.ID),
		Type:  a.ID,
		Icon:  a.Icon,
		X:     pos.X,
		Y:     pos.Y,
		Label: a.Name,
	}
}

// MoveInstance moves a unit, clamping each coordinate to at least zero.
func (s *Surface) MoveInstance(id string, pos models.Point) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}

	units := slices.Clone(s.state.Units)
	units[i].X = max(0, pos.X)
	units[i].Y = max(0, pos.Y)
	s.state.Units = units
	s.changed()
	return true
}

// RotateInstance adds delta degrees to a unit's stored rotation.
func (s *Surface) RotateInstance(id string, delta int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}

	units := slices.Clone(s.state.Units)
	units[i].Rotation += delta
	s.state.Units = units
	s.changed()
	return true
}

// RemoveInstance deletes a unit and clears the selection if it pointed there.
func (s *Surface) RemoveInstance(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}

	s.state.Units = slices.Delete(slices.Clone(s.state.Units), i, i+1)
	if s.state.Selected == id {
		s.state.Selected = ""
	}
	s.changed()
	return true
}

// ClearAll removes every unit. Confirmation is the caller's job.
func (s *Surface) ClearAll() {
	s.state.Units = []models.PlacedUnit{}
	s.state.Selected = ""
	s.changed()
}

// SetBackground switches the canvas mode. A nil image keeps whatever was
// uploaded before, so grid mode can toggle back to the same image.
func (s *Surface) SetBackground(mode models.CanvasMode, image *string) bool {
	if !mode.Valid() {
		return false
	}
	s.state.Mode = mode
	if image != nil {
		s.state.BackgroundImage = *image
	}
	s.changed()
	return true
}

// SetMapName renames the map. A blank name falls back to the default.
func (s *Surface) SetMapName(name string) {
	if name == "" {
		name = models.DefaultMapName
	}
	s.state.MapName = name
	s.changed()
}

// SetGrid updates the grid cell size and visibility. Non-positive sizes
// leave the current size unchanged.
func (s *Surface) SetGrid(size int, visible bool) {
	if size > 0 {
		s.state.GridSize = size
	}
	s.state.ShowGrid = visible
	s.changed()
}

// Select marks a unit as selected.
func (s *Surface) Select(id string) bool {
	if s.index(id) < 0 {
		return false
	}
	if s.state.Selected != id {
		s.state.Selected = id
		s.changed()
	}
	return true
}

// ClearSelection drops the current selection.
func (s *Surface) ClearSelection() {
	if s.state.Selected == "" {
		return
	}
	s.state.Selected = ""
	s.changed()
}

// Selected returns the selected unit id, or "".
func (s *Surface) Selected() string {
	return s.state.Selected
}

// Unit returns the unit with id.
func (s *Surface) Unit(id string) (models.PlacedUnit, bool) {
	i := s.index(id)
	if i < 0 {
		return models.PlacedUnit{}, false
	}
	return s.state.Units[i], true
}

// Units returns a copy of the units in z-order.
func (s *Surface) Units() []models.PlacedUnit {
	return slices.Clone(s.state.Units)
}

func (s *Surface) index(id string) int {
	return slices.IndexFunc(s.state.Units, func(u models.PlacedUnit) bool { return u.ID == id })
}

func (s *Surface) changed() {
	s.state.Version++
	if s.onChange != nil {
		s.onChange(clone(s.state))
	}
}

func clone(st models.SurfaceState) models.SurfaceState {
	st.Units = slices.Clone(st.Units)
	return st
}
