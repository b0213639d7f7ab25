// Package interaction turns raw pointer input into surface operations.
//
// The controller is a two-state machine. A pointer-down over a unit enters
// Dragging and captures the grab offset; moves reposition the unit so the
// grabbed point stays under the cursor; a pointer-up anywhere returns to
// Idle. Selection is tracked by the surface and is independent of dragging.
package interaction

import (
	"math"

	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/surface"
)

// Phase is the drag state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDragging Phase = "dragging"
)

// EventKind identifies a pointer event.
type EventKind string

const (
	PointerDown EventKind = "down"
	PointerMove EventKind = "move"
	PointerUp   EventKind = "up"
)

// Event is a pointer event in viewport coordinates relative to the
// surface origin. The controller divides by the zoom scale.
type Event struct {
	Kind EventKind `json:"kind"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

// Zoom limits.
const (
	MinScale  = 0.5
	MaxScale  = 2.0
	ScaleStep = 0.1
)

// DropPosition is where palette clicks place new units.
var DropPosition = models.Point{X: 100, Y: 100}

// View is the transient controller state exposed to clients.
type View struct {
	Phase    Phase   `json:"phase"`
	Dragging string  `json:"dragging,omitempty"`
	Scale    float64 `json:"scale"`
}

// Controller maps input to a surface. Not safe for concurrent use.
type Controller struct {
	surface *surface.Surface
	catalog surface.Catalog

	phase    Phase
	dragID   string
	grab     models.Point
	pressing bool
	moved    bool
	scale    float64
}

// New returns an idle controller at scale 1.
func New(s *surface.Surface, catalog surface.Catalog) *Controller {
	return &Controller{
		surface: s,
		catalog: catalog,
		phase:   PhaseIdle,
		scale:   1,
	}
}

// View returns the controller state.
func (c *Controller) View() View {
	return View{Phase: c.phase, Dragging: c.dragID, Scale: c.scale}
}

// Phase returns the drag state.
func (c *Controller) Phase() Phase { return c.phase }

// Scale returns the zoom factor.
func (c *Controller) Scale() float64 { return c.scale }

// Handle applies one pointer event. Events are applied in arrival order.
func (c *Controller) Handle(ev Event) {
	switch ev.Kind {
	case PointerDown:
		c.pointerDown(ev)
	case PointerMove:
		c.pointerMove(ev)
	case PointerUp:
		c.pointerUp()
	}
}

func (c *Controller) pointerDown(ev Event) {
	p := c.toSurface(ev)
	c.pressing = true
	c.moved = false

	u, ok := c.HitTest(p)
	if !ok {
		c.phase = PhaseIdle
		c.dragID = ""
		return
	}

	c.phase = PhaseDragging
	c.dragID = u.ID
	c.grab = p.Sub(u.Position())
	c.surface.Select(u.ID)
}

func (c *Controller) pointerMove(ev Event) {
	if !c.pressing {
		return
	}
	c.moved = true
	if c.phase != PhaseDragging {
		return
	}
	p := c.toSurface(ev).Sub(c.grab)
	if !c.surface.MoveInstance(c.dragID, p) {
		// unit vanished mid-drag
		c.phase = PhaseIdle
		c.dragID = ""
	}
}

func (c *Controller) pointerUp() {
	if c.pressing && c.phase == PhaseIdle && !c.moved {
		c.surface.ClearSelection()
	}
	c.phase = PhaseIdle
	c.dragID = ""
	c.pressing = false
	c.moved = false
}

func (c *Controller) toSurface(ev Event) models.Point {
	return models.Point{X: ev.X / c.scale, Y: ev.Y / c.scale}
}

// HitTest returns the topmost rendered unit whose rotated footprint
// contains p. Orphaned units are never hit.
func (c *Controller) HitTest(p models.Point) (models.PlacedUnit, bool) {
	units := c.surface.Units()
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		a, ok := c.catalog.Lookup(u.Type)
		if !ok {
			continue
		}
		if Contains(u, a, p) {
			return u, true
		}
	}
	return models.PlacedUnit{}, false
}

// Contains reports whether p lies inside u's footprint rotated about its center.
func Contains(u models.PlacedUnit, a models.Archetype, p models.Point) bool {
	cx := u.X + a.Width/2
	cy := u.Y + a.Height/2
	rad := -float64(u.Rotation) * math.Pi / 180
	sin, cos := math.Sincos(rad)

	dx, dy := p.X-cx, p.Y-cy
	lx := dx*cos - dy*sin
	ly := dx*sin + dy*cos

	const eps = 1e-9
	return math.Abs(lx) <= a.Width/2+eps && math.Abs(ly) <= a.Height/2+eps
}

// AddFromPalette places a new unit at the palette drop position.
func (c *Controller) AddFromPalette(archetypeID string) (models.PlacedUnit, bool) {
	return c.surface.AddInstance(archetypeID, DropPosition)
}

// RotateSelected rotates the selected unit by steps of RotationStep.
// Negative steps rotate left.
func (c *Controller) RotateSelected(steps int) bool {
	id := c.surface.Selected()
	if id == "" {
		return false
	}
	return c.surface.RotateInstance(id, steps*surface.RotationStep)
}

// DeleteSelected removes the selected unit.
func (c *Controller) DeleteSelected() bool {
	id := c.surface.Selected()
	if id == "" {
		return false
	}
	if id == c.dragID {
		c.phase = PhaseIdle
		c.dragID = ""
	}
	return c.surface.RemoveInstance(id)
}

// ZoomIn increases the scale by one step up to MaxScale.
func (c *Controller) ZoomIn() float64 {
	return c.SetScale(c.scale + ScaleStep)
}

// ZoomOut decreases the scale by one step down to MinScale.
func (c *Controller) ZoomOut() float64 {
	return c.SetScale(c.scale - ScaleStep)
}

// SetScale clamps and applies a zoom factor.
func (c *Controller) SetScale(scale float64) float64 {
	scale = math.Round(scale*10) / 10
	c.scale = min(MaxScale, max(MinScale, scale))
	return c.scale
}

// Reset returns the controller to Idle, e.g. after the surface was restored.
func (c *Controller) Reset() {
	c.phase = PhaseIdle
	c.dragID = ""
	c.pressing = false
	c.moved = false
}
