package planner

import (
	"context"
	"testing"
	"time"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/interaction"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/persist"
	"github.com/coastal-clean/siteplanner/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, *testutil.MemoryStore) {
	t.Helper()
	store := testutil.NewMemoryStore()
	m := NewManager(store, catalog.Default(), Options{AutosaveDelay: 20 * time.Millisecond})
	t.Cleanup(m.Close)
	return m, store
}

func TestOpenHydratesAndReuses(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	store.Set(persist.SnapshotKey, `{"placedUnits":[{"id":"u1","type":"handwash","x":10,"y":20,"rotation":30}],"backgroundImage":null,"mapName":"Park","canvasMode":"grid","savedAt":"2025-01-01T00:00:00Z"}`)
	store.Set(persist.RecommendationsKey, `[{"type":"Handwash","quantity":2,"description":"","icon":""}]`)

	m := NewManager(store, catalog.Default(), Options{})
	defer m.Close()

	ws, err := m.Open(ctx, "default")
	require.NoError(t, err)
	v := ws.View()
	require.Len(t, v.State.Units, 1)
	assert.Equal(t, "Park", v.State.MapName)
	assert.Len(t, v.Recommendations, 1)

	again, err := m.Open(ctx, "default")
	require.NoError(t, err)
	assert.Same(t, ws, again)

	_, err = m.Open(ctx, "../etc")
	assert.ErrorIs(t, err, ErrInvalidWorkspace)
}

func TestMalformedSnapshotStartsEmpty(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Set("siteMapPlanner/broken", "{oops")

	m := NewManager(store, catalog.Default(), Options{})
	defer m.Close()

	ws, err := m.Open(context.Background(), "broken")
	require.NoError(t, err)
	assert.Empty(t, ws.State().Units)
}

func TestMutationsAutosave(t *testing.T) {
	m, store := newManager(t)
	ws, err := m.Open(context.Background(), "beach")
	require.NoError(t, err)

	u, err := ws.AddUnit("standard-toilet", nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, u.X)

	_, err = ws.AddUnit("unicorn", nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownArchetype)

	moved, err := ws.MoveUnit(u.ID, models.Point{X: -10, Y: 40})
	require.NoError(t, err)
	assert.Equal(t, models.Point{X: 0, Y: 40}, moved.Position())

	rotated, err := ws.RotateUnit(u.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, rotated.Rotation)

	_, err = ws.MoveUnit("nope", models.Point{})
	assert.ErrorIs(t, err, ErrUnitNotFound)

	assert.Eventually(t, func() bool {
		raw, ok := store.Raw("siteMapPlanner/beach")
		return ok && len(raw) > 0
	}, 2*time.Second, 10*time.Millisecond)

	reloaded := m.Adapter().Load(context.Background(), "beach")
	require.Len(t, reloaded.Units, 1)
	assert.Equal(t, 15, reloaded.Units[0].Rotation)
	assert.Equal(t, 40.0, reloaded.Units[0].Y)
}

func TestClearAllNeedsConfirmation(t *testing.T) {
	m, _ := newManager(t)
	ws, _ := m.Open(context.Background(), "default")
	_, err := ws.AddUnit("ada-unit", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, ws.ClearAll(false), ErrConfirmationRequired)
	assert.Len(t, ws.State().Units, 1)

	require.NoError(t, ws.ClearAll(true))
	assert.Empty(t, ws.State().Units)
}

func TestSelectionAndRemove(t *testing.T) {
	m, _ := newManager(t)
	ws, _ := m.Open(context.Background(), "default")
	a, _ := ws.AddUnit("standard-toilet", nil)
	b, _ := ws.AddUnit("handwash", &models.Point{X: 400, Y: 400})

	require.NoError(t, ws.Select(a.ID))
	require.NoError(t, ws.RemoveUnit(b.ID))
	assert.Equal(t, a.ID, ws.State().Selected)

	require.NoError(t, ws.RotateSelected(-1))
	assert.Equal(t, -15, ws.State().Units[0].Rotation)

	require.NoError(t, ws.DeleteSelected())
	assert.Equal(t, "", ws.State().Selected)
	assert.ErrorIs(t, ws.DeleteSelected(), ErrUnitNotFound)
	assert.ErrorIs(t, ws.Select("missing"), ErrUnitNotFound)
	assert.ErrorIs(t, ws.RemoveUnit("missing"), ErrUnitNotFound)
}

func TestSettingsAndBackground(t *testing.T) {
	m, _ := newManager(t)
	ws, _ := m.Open(context.Background(), "default")

	name := "Marathon"
	size := 40
	st := ws.UpdateSettings(Settings{MapName: &name, GridSize: &size})
	assert.Equal(t, "Marathon", st.MapName)
	assert.Equal(t, 40, st.GridSize)
	assert.True(t, st.ShowGrid)

	hide := false
	st = ws.UpdateSettings(Settings{ShowGrid: &hide})
	assert.Equal(t, 40, st.GridSize)
	assert.False(t, st.ShowGrid)

	img := "data:image/png;base64,AAAA"
	require.NoError(t, ws.SetBackground(models.CanvasModeImage, &img))
	require.NoError(t, ws.SetBackground(models.CanvasModeGrid, nil))
	assert.Equal(t, img, ws.State().BackgroundImage)
	assert.ErrorIs(t, ws.SetBackground("plaid", nil), ErrInvalidMode)
}

func TestPointerDragAndZoom(t *testing.T) {
	m, _ := newManager(t)
	ws, _ := m.Open(context.Background(), "default")
	u, _ := ws.AddUnit("standard-toilet", nil)

	assert.Equal(t, 1.1, ws.Zoom(1))
	assert.Equal(t, 1.0, ws.Zoom(-1))
	assert.Equal(t, 2.0, ws.SetScale(9))
	ws.SetScale(1)

	v := ws.Pointer(interaction.Event{Kind: interaction.PointerDown, X: 110, Y: 110})
	assert.Equal(t, interaction.PhaseDragging, v.Phase)
	ws.Pointer(interaction.Event{Kind: interaction.PointerMove, X: 160, Y: 130})
	v = ws.Pointer(interaction.Event{Kind: interaction.PointerUp})
	assert.Equal(t, interaction.PhaseIdle, v.Phase)

	st := ws.State()
	assert.Equal(t, models.Point{X: 150, Y: 120}, st.Units[0].Position())
	assert.Equal(t, u.ID, st.Selected)
}

func TestRecommendationsApply(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()
	ws, _ := m.Open(ctx, "fair")

	require.NoError(t, ws.SetRecommendations(ctx, []models.Recommendation{
		{Type: "Standard Toilet", Quantity: 3},
		{Type: "Unicorn Station", Quantity: 5},
	}))
	_, ok := store.Raw("calculatorRecommendations/fair")
	assert.True(t, ok)

	units := ws.ApplyRecommendations()
	require.Len(t, units, 3)
	assert.Len(t, ws.State().Units, 3)
	assert.Equal(t, 260.0, units[2].X)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	m, _ := newManager(t)
	ws, _ := m.Open(context.Background(), "default")

	updates, cancel := ws.Subscribe()
	defer cancel()

	_, err := ws.AddUnit("fencing", nil)
	require.NoError(t, err)

	select {
	case u := <-updates:
		assert.Equal(t, "default", u.Workspace)
		assert.Len(t, u.State.Units, 1)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	cancel()
	assert.Equal(t, 0, ws.subscriberCount())
}

func TestCleanupIdle(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	idle, _ := m.Open(ctx, "idle")
	_, err := idle.AddUnit("attendant", nil)
	require.NoError(t, err)
	_, _ = m.Open(ctx, "busy")

	idle.mu.Lock()
	idle.lastAccessed = time.Now().Add(-2 * time.Hour)
	idle.mu.Unlock()

	assert.Equal(t, 1, m.CleanupIdle(30*time.Minute))
	assert.Equal(t, 1, m.Count())
	_, ok := m.Get("idle")
	assert.False(t, ok)

	// eviction flushed the pending autosave
	_, ok = store.Raw("siteMapPlanner/idle")
	assert.True(t, ok)

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"busy", "idle"}, ids)
}

func TestOpenKeepsWorkspaceAlive(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	ws, err := m.Open(ctx, "site")
	require.NoError(t, err)
	ws.mu.Lock()
	ws.lastAccessed = time.Now().Add(-2 * time.Hour)
	ws.mu.Unlock()

	again, err := m.Open(ctx, "site")
	require.NoError(t, err)
	assert.Same(t, ws, again)
	assert.Zero(t, m.CleanupIdle(30*time.Minute), "re-opening counts as use")
	assert.Equal(t, 1, m.Count())
}

func TestEvictedWorkspaceIsReopenedAndLateChangesSaved(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	stale, err := m.Open(ctx, "site")
	require.NoError(t, err)
	_, err = stale.AddUnit("handwash", nil)
	require.NoError(t, err)
	stale.mu.Lock()
	stale.lastAccessed = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()
	require.Equal(t, 1, m.CleanupIdle(30*time.Minute))

	// a request still holding the evicted workspace does not lose its change
	_, err = stale.AddUnit("attendant", nil)
	require.NoError(t, err)
	raw, ok := store.Raw("siteMapPlanner/site")
	require.True(t, ok)
	assert.Contains(t, raw, `"attendant"`)

	fresh, err := m.Open(ctx, "site")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Len(t, fresh.State().Units, 2)
}
