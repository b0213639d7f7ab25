// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/planner"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CatalogHandler serves the equipment palette
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
}

// PlannerHandler handles site map editing operations
type PlannerHandler interface {
	HandleListWorkspaces(c echo.Context) error
	HandleGetWorkspace(c echo.Context) error
	HandleAddUnit(c echo.Context) error
	HandleMoveUnit(c echo.Context) error
	HandleRotateUnit(c echo.Context) error
	HandleRemoveUnit(c echo.Context) error
	HandleClearUnits(c echo.Context) error
	HandleSelect(c echo.Context) error
	HandleSetBackground(c echo.Context) error
	HandleUploadBackground(c echo.Context) error
	HandleUpdateSettings(c echo.Context) error
	HandleZoom(c echo.Context) error
	HandlePointer(c echo.Context) error
	HandleSetRecommendations(c echo.Context) error
	HandleApplyRecommendations(c echo.Context) error
	HandleGetSnapshot(c echo.Context) error
	HandleGetSnapshotMsgpack(c echo.Context) error
}

// ExportHandler handles site map downloads
type ExportHandler interface {
	HandleExportPNG(c echo.Context) error
	HandleExportText(c echo.Context) error
	HandleExportSVG(c echo.Context) error
}

// PointerStreamHandler handles the websocket pointer stream
type PointerStreamHandler interface {
	HandlePointerStream(c echo.Context) error
}

// WorkspaceManager defines the workspace operations handlers depend on.
// This allows mocking in tests
type WorkspaceManager interface {
	Open(ctx context.Context, id string) (*planner.Workspace, error)
	List(ctx context.Context) ([]string, error)
	Count() int
}

// ArchetypeSource resolves archetypes for rendering and listing
type ArchetypeSource interface {
	Lookup(id string) (models.Archetype, bool)
	All() []models.Archetype
}
