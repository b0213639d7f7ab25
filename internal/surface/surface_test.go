package surface

import (
	"fmt"
	"testing"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSurface(opts ...Option) *Surface {
	n := 0
	opts = append([]Option{WithIDGenerator(func(archetypeID string) string {
		n++
		return fmt.Sprintf("%s-%d", archetypeID, n)
	})}, opts...)
	return New(catalog.Default(), opts...)
}

func TestAddInstance(t *testing.T) {
	s := newTestSurface()

	u, ok := s.AddInstance("standard-toilet", models.Point{X: 100, Y: 100})
	require.True(t, ok)
	assert.Equal(t, "standard-toilet", u.Type)
	assert.Equal(t, "Standard Toilet", u.Label)
	assert.Equal(t, 0, u.Rotation)
	assert.Equal(t, 100.0, u.X)

	u2, ok := s.AddInstance("handwash", models.Point{X: 100, Y: 100})
	require.True(t, ok)

	units := s.Units()
	require.Len(t, units, 2)
	assert.Equal(t, u.ID, units[0].ID)
	assert.Equal(t, u2.ID, units[1].ID, "new units go on top")
}

func TestAddInstanceUnknownArchetypeIsNoop(t *testing.T) {
	s := newTestSurface()
	before := s.State().Version

	_, ok := s.AddInstance("unicorn", models.Point{})
	assert.False(t, ok)
	assert.Empty(t, s.Units())
	assert.Equal(t, before, s.State().Version)
}

func TestMoveInstanceClampsNegative(t *testing.T) {
	s := newTestSurface()
	u, _ := s.AddInstance("standard-toilet", models.Point{X: 100, Y: 100})

	require.True(t, s.MoveInstance(u.ID, models.Point{X: -50, Y: 30}))
	got, _ := s.Unit(u.ID)
	assert.Equal(t, models.Point{X: 0, Y: 30}, got.Position())

	require.True(t, s.MoveInstance(u.ID, models.Point{X: 5000, Y: -1}))
	got, _ = s.Unit(u.ID)
	assert.Equal(t, models.Point{X: 5000, Y: 0}, got.Position(), "no upper bound")

	assert.False(t, s.MoveInstance("missing", models.Point{}))
}

func TestRotateInstanceIsAdditive(t *testing.T) {
	s := newTestSurface()
	u, _ := s.AddInstance("fencing", models.Point{})

	for i := 0; i < 8; i++ {
		require.True(t, s.RotateInstance(u.ID, RotationStep))
	}
	got, _ := s.Unit(u.ID)
	assert.Equal(t, 120, got.Rotation)

	for i := 0; i < 10; i++ {
		s.RotateInstance(u.ID, -RotationStep)
	}
	got, _ = s.Unit(u.ID)
	assert.Equal(t, -30, got.Rotation)
	assert.Equal(t, 330, got.DisplayRotation())
}

func TestRemoveInstanceSelection(t *testing.T) {
	s := newTestSurface()
	a, _ := s.AddInstance("standard-toilet", models.Point{})
	b, _ := s.AddInstance("handwash", models.Point{})

	require.True(t, s.Select(a.ID))

	// removing a non-selected unit keeps the selection
	require.True(t, s.RemoveInstance(b.ID))
	assert.Equal(t, a.ID, s.Selected())

	// removing the selected unit clears it
	require.True(t, s.RemoveInstance(a.ID))
	assert.Equal(t, "", s.Selected())
	assert.Empty(t, s.Units())

	assert.False(t, s.RemoveInstance(a.ID))
}

func TestCountAndUniqueIDs(t *testing.T) {
	s := New(catalog.Default())
	ids := []string{}
	for i := 0; i < 20; i++ {
		u, ok := s.AddInstance("ada-unit", models.Point{X: float64(i)})
		require.True(t, ok)
		ids = append(ids, u.ID)
	}
	for i := 0; i < 20; i += 3 {
		s.MoveInstance(ids[i], models.Point{X: -1, Y: -1})
		s.RotateInstance(ids[i], 45)
	}
	removed := 0
	for i := 0; i < 20; i += 4 {
		require.True(t, s.RemoveInstance(ids[i]))
		removed++
	}

	units := s.Units()
	assert.Len(t, units, 20-removed)

	seen := map[string]bool{}
	for _, u := range units {
		assert.False(t, seen[u.ID], "duplicate id %s", u.ID)
		seen[u.ID] = true
	}
}

func TestClearAll(t *testing.T) {
	s := newTestSurface()
	u, _ := s.AddInstance("attendant", models.Point{})
	s.Select(u.ID)

	s.ClearAll()
	assert.Empty(t, s.Units())
	assert.Equal(t, "", s.Selected())
	assert.NotNil(t, s.State().Units)
}

func TestSetBackgroundPreservesImage(t *testing.T) {
	s := newTestSurface()
	img := "data:image/png;base64,AAAA"

	require.True(t, s.SetBackground(models.CanvasModeImage, &img))
	assert.True(t, s.State().HasBackground())

	require.True(t, s.SetBackground(models.CanvasModeGrid, nil))
	st := s.State()
	assert.False(t, st.HasBackground())
	assert.Equal(t, img, st.BackgroundImage)

	require.True(t, s.SetBackground(models.CanvasModeImage, nil))
	assert.True(t, s.State().HasBackground())

	// image mode without data falls back to blank
	s2 := newTestSurface()
	require.True(t, s2.SetBackground(models.CanvasModeImage, nil))
	assert.False(t, s2.State().HasBackground())

	assert.False(t, s.SetBackground("hologram", nil))
}

func TestSettings(t *testing.T) {
	s := newTestSurface()
	s.SetMapName("Beach Festival")
	s.SetGrid(40, false)

	st := s.State()
	assert.Equal(t, "Beach Festival", st.MapName)
	assert.Equal(t, 40, st.GridSize)
	assert.False(t, st.ShowGrid)

	s.SetMapName("")
	s.SetGrid(0, true)
	st = s.State()
	assert.Equal(t, models.DefaultMapName, st.MapName)
	assert.Equal(t, 40, st.GridSize)
	assert.True(t, st.ShowGrid)
}

func TestObserverReceivesImmutableSnapshots(t *testing.T) {
	var got []models.SurfaceState
	s := newTestSurface(WithObserver(func(st models.SurfaceState) {
		got = append(got, st)
	}))

	u, _ := s.AddInstance("standard-toilet", models.Point{X: 10, Y: 10})
	s.MoveInstance(u.ID, models.Point{X: 50, Y: 60})

	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Units[0].X, "earlier snapshot is not mutated")
	assert.Equal(t, 50.0, got[1].Units[0].X)
	assert.Less(t, got[0].Version, got[1].Version)

	st := s.State()
	st.Units[0].X = 999
	again, _ := s.Unit(u.ID)
	assert.Equal(t, 50.0, again.X)
}

func TestRestore(t *testing.T) {
	s := newTestSurface()
	s.Restore(models.SurfaceState{
		Units:    []models.PlacedUnit{{ID: "x-1", Type: "gone-archetype", X: 5, Y: 6, Rotation: -15}},
		Mode:     "",
		MapName:  "Restored",
		Selected: "x-1",
	})

	st := s.State()
	require.Len(t, st.Units, 1)
	assert.Equal(t, "gone-archetype", st.Units[0].Type, "orphans are retained")
	assert.Equal(t, models.CanvasModeGrid, st.Mode)
	assert.Equal(t, models.DefaultGridSize, st.GridSize)
	assert.Equal(t, "", st.Selected)
}
