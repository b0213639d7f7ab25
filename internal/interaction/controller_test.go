package interaction

import (
	"testing"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*surface.Surface, *Controller) {
	t.Helper()
	cat := catalog.Default()
	s := surface.New(cat)
	return s, New(s, cat)
}

func TestDragKeepsGrabOffset(t *testing.T) {
	s, c := setup(t)
	u, ok := c.AddFromPalette("standard-toilet")
	require.True(t, ok)
	assert.Equal(t, DropPosition, u.Position())

	// grab 10,20 inside the unit
	c.Handle(Event{Kind: PointerDown, X: 110, Y: 120})
	assert.Equal(t, PhaseDragging, c.Phase())
	assert.Equal(t, u.ID, s.Selected(), "pointer-down selects")

	c.Handle(Event{Kind: PointerMove, X: 210, Y: 320})
	got, _ := s.Unit(u.ID)
	assert.Equal(t, models.Point{X: 200, Y: 300}, got.Position())

	// release far outside the canvas still ends the drag
	c.Handle(Event{Kind: PointerUp, X: -5000, Y: -5000})
	assert.Equal(t, PhaseIdle, c.Phase())
	got, _ = s.Unit(u.ID)
	assert.Equal(t, models.Point{X: 200, Y: 300}, got.Position())
	assert.Equal(t, u.ID, s.Selected(), "selection persists across drags")

	// moves after release do nothing
	c.Handle(Event{Kind: PointerMove, X: 0, Y: 0})
	got, _ = s.Unit(u.ID)
	assert.Equal(t, models.Point{X: 200, Y: 300}, got.Position())
}

func TestDragClampsAtOrigin(t *testing.T) {
	s, c := setup(t)
	u, _ := c.AddFromPalette("handwash")

	// grab offset is 5,5
	c.Handle(Event{Kind: PointerDown, X: 105, Y: 105})
	c.Handle(Event{Kind: PointerMove, X: -100, Y: 50})
	c.Handle(Event{Kind: PointerUp})

	got, _ := s.Unit(u.ID)
	assert.Equal(t, 0.0, got.X)
	assert.Equal(t, 45.0, got.Y)
}

func TestClickEmptyClearsSelection(t *testing.T) {
	s, c := setup(t)
	u, _ := c.AddFromPalette("standard-toilet")
	require.True(t, s.Select(u.ID))

	// press on empty space then pan away: selection kept
	c.Handle(Event{Kind: PointerDown, X: 600, Y: 600})
	c.Handle(Event{Kind: PointerMove, X: 610, Y: 600})
	c.Handle(Event{Kind: PointerUp, X: 610, Y: 600})
	assert.Equal(t, u.ID, s.Selected())

	// plain click on empty space clears it
	c.Handle(Event{Kind: PointerDown, X: 600, Y: 600})
	c.Handle(Event{Kind: PointerUp, X: 600, Y: 600})
	assert.Equal(t, "", s.Selected())
}

func TestHitTestTopmostAndRotated(t *testing.T) {
	s, c := setup(t)
	bottom, _ := s.AddInstance("standard-toilet", models.Point{X: 0, Y: 0})
	top, _ := s.AddInstance("standard-toilet", models.Point{X: 20, Y: 20})

	hit, ok := c.HitTest(models.Point{X: 30, Y: 30})
	require.True(t, ok)
	assert.Equal(t, top.ID, hit.ID)

	hit, ok = c.HitTest(models.Point{X: 5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, bottom.ID, hit.ID)

	// fencing panel 100x20 at 200,200; rotated 90° it stands upright
	fence, _ := s.AddInstance("fencing", models.Point{X: 200, Y: 200})
	a, _ := catalog.Default().Lookup("fencing")

	inside := models.Point{X: 295, Y: 210}
	assert.True(t, Contains(fence, a, inside))
	s.RotateInstance(fence.ID, 90)
	fence, _ = s.Unit(fence.ID)
	assert.False(t, Contains(fence, a, inside))
	assert.True(t, Contains(fence, a, models.Point{X: 250, Y: 255}))

	_, ok = c.HitTest(models.Point{X: 1000, Y: 1000})
	assert.False(t, ok)
}

func TestOrphansAreNotHit(t *testing.T) {
	s, c := setup(t)
	s.Restore(models.SurfaceState{Units: []models.PlacedUnit{{ID: "ghost-1", Type: "ghost", X: 0, Y: 0}}})

	_, ok := c.HitTest(models.Point{X: 1, Y: 1})
	assert.False(t, ok)
}

func TestZoomConvertsCoordinates(t *testing.T) {
	s, c := setup(t)
	u, _ := c.AddFromPalette("standard-toilet")

	for i := 0; i < 10; i++ {
		c.ZoomIn()
	}
	assert.Equal(t, MaxScale, c.Scale())

	// at scale 2 the unit at 100,100 appears at 200,200
	c.Handle(Event{Kind: PointerDown, X: 210, Y: 210})
	require.Equal(t, PhaseDragging, c.Phase())
	c.Handle(Event{Kind: PointerMove, X: 410, Y: 210})
	c.Handle(Event{Kind: PointerUp})

	got, _ := s.Unit(u.ID)
	assert.Equal(t, models.Point{X: 200, Y: 100}, got.Position())

	for i := 0; i < 30; i++ {
		c.ZoomOut()
	}
	assert.Equal(t, MinScale, c.Scale())
	assert.Equal(t, 1.0, c.SetScale(1.04))
}

func TestRotateAndDeleteSelected(t *testing.T) {
	s, c := setup(t)
	assert.False(t, c.RotateSelected(1))
	assert.False(t, c.DeleteSelected())

	u, _ := c.AddFromPalette("deluxe-toilet")
	s.Select(u.ID)

	require.True(t, c.RotateSelected(1))
	require.True(t, c.RotateSelected(1))
	require.True(t, c.RotateSelected(-1))
	got, _ := s.Unit(u.ID)
	assert.Equal(t, 15, got.Rotation)

	require.True(t, c.DeleteSelected())
	assert.Empty(t, s.Units())
	assert.Equal(t, "", s.Selected())
}

func TestAddFromPaletteUnknown(t *testing.T) {
	s, c := setup(t)
	_, ok := c.AddFromPalette("nope")
	assert.False(t, ok)
	assert.Empty(t, s.Units())
}
