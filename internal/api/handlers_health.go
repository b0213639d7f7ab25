// handlers_health.go - Health check and catalog handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	manager WorkspaceManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, manager WorkspaceManager) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		manager: manager,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.manager != nil {
		resp["workspaces"] = h.manager.Count()
	}
	return c.JSON(http.StatusOK, resp)
}

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	source ArchetypeSource
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(source ArchetypeSource) CatalogHandler {
	return &CatalogHandlerImpl{source: source}
}

// HandleGetCatalog returns the palette in display order
func (h *CatalogHandlerImpl) HandleGetCatalog(c echo.Context) error {
	archetypes := h.source.All()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"archetypes": archetypes,
		"count":      len(archetypes),
	})
}
