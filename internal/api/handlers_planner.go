// handlers_planner.go - Site map editing handlers
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coastal-clean/siteplanner/internal/export"
	"github.com/coastal-clean/siteplanner/internal/importer"
	"github.com/coastal-clean/siteplanner/internal/interaction"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/persist"
	"github.com/coastal-clean/siteplanner/internal/planner"
	"github.com/coastal-clean/siteplanner/internal/surface"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// maxGridSize bounds the grid spacing accepted from clients
const maxGridSize = 500

// PlannerHandlerImpl implements the PlannerHandler interface
type PlannerHandlerImpl struct {
	manager       WorkspaceManager
	maxBackground int64
	logger        *slog.Logger
}

// NewPlannerHandler creates a new planner handler instance
func NewPlannerHandler(manager WorkspaceManager, maxBackground int64, logger *slog.Logger) PlannerHandler {
	return &PlannerHandlerImpl{
		manager:       manager,
		maxBackground: maxBackground,
		logger:        logger,
	}
}

// openWorkspace resolves the :id path parameter to a live workspace
func openWorkspace(c echo.Context, manager WorkspaceManager) (*planner.Workspace, error) {
	id := c.Param("id")
	ws, err := manager.Open(c.Request().Context(), id)
	if err != nil {
		return nil, fromDomainError(err, id)
	}
	return ws, nil
}

// HandleListWorkspaces returns stored and open workspace ids
func (h *PlannerHandlerImpl) HandleListWorkspaces(c echo.Context) error {
	ids, err := h.manager.List(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list workspaces", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workspaces": ids,
	})
}

// HandleGetWorkspace returns everything needed to draw the workspace
func (h *PlannerHandlerImpl) HandleGetWorkspace(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws.View())
}

// HandleAddUnit places a unit from the palette
func (h *PlannerHandlerImpl) HandleAddUnit(c echo.Context) error {
	var req addUnitRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	var pos *models.Point
	if req.X != nil {
		pos = &models.Point{X: *req.X, Y: *req.Y}
	}
	unit, err := ws.AddUnit(req.ArchetypeID, pos)
	if err != nil {
		return fromDomainError(err, req.ArchetypeID)
	}
	return c.JSON(http.StatusCreated, unit)
}

// HandleMoveUnit repositions a unit
func (h *PlannerHandlerImpl) HandleMoveUnit(c echo.Context) error {
	var req moveUnitRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	unitID := c.Param("unitId")
	unit, err := ws.MoveUnit(unitID, models.Point{X: *req.X, Y: *req.Y})
	if err != nil {
		return fromDomainError(err, unitID)
	}
	return c.JSON(http.StatusOK, unit)
}

// HandleRotateUnit rotates a unit by a delta or one step left/right
func (h *PlannerHandlerImpl) HandleRotateUnit(c echo.Context) error {
	var req rotateUnitRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	unitID := c.Param("unitId")
	unit, err := ws.RotateUnit(unitID, req.degrees())
	if err != nil {
		return fromDomainError(err, unitID)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"unit":            unit,
		"displayRotation": unit.DisplayRotation(),
	})
}

// HandleRemoveUnit deletes a unit
func (h *PlannerHandlerImpl) HandleRemoveUnit(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	unitID := c.Param("unitId")
	if err := ws.RemoveUnit(unitID); err != nil {
		return fromDomainError(err, unitID)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleClearUnits removes every unit; requires confirm=true
func (h *PlannerHandlerImpl) HandleClearUnits(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if err := ws.ClearAll(confirmed); err != nil {
		return fromDomainError(err, "clearing all units")
	}
	return c.JSON(http.StatusOK, ws.State())
}

// HandleSelect selects a unit, or clears the selection for an empty id
func (h *PlannerHandlerImpl) HandleSelect(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	if err := ws.Select(req.UnitID); err != nil {
		return fromDomainError(err, req.UnitID)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"selected": ws.State().Selected,
	})
}

// HandleSetBackground switches between grid and image mode
func (h *PlannerHandlerImpl) HandleSetBackground(c echo.Context) error {
	var req backgroundRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if req.Image != nil && *req.Image != "" {
		if _, _, err := export.DecodeDataURL(*req.Image); err != nil {
			return NewBadRequestError("background image could not be decoded", err)
		}
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	if err := ws.SetBackground(req.Mode, req.Image); err != nil {
		return fromDomainError(err, string(req.Mode))
	}
	return c.JSON(http.StatusOK, ws.State())
}

// HandleUploadBackground accepts an image (multipart/form-data), inlines it
// as a data URL and switches the canvas to image mode
func (h *PlannerHandlerImpl) HandleUploadBackground(c echo.Context) error {
	// Get file from form
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if h.maxBackground > 0 && file.Size > h.maxBackground {
		return NewPayloadTooLargeError(fmt.Sprintf("background image exceeds %s",
			humanize.IBytes(uint64(h.maxBackground))))
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	url, info, err := export.EncodeDataURL(file.Filename, data)
	if err != nil {
		return NewBadRequestError("unsupported or corrupt image", err)
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}
	if err := ws.SetBackground(models.CanvasModeImage, &url); err != nil {
		return fromDomainError(err, string(models.CanvasModeImage))
	}

	h.logger.Info("background uploaded",
		"workspace", ws.ID,
		"name", info.Name,
		"format", info.Format,
		"size", humanize.Bytes(uint64(info.Size)),
		"dimensions", fmt.Sprintf("%dx%d", info.Width, info.Height))

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"background": info,
		"state":      ws.State(),
	})
}

// HandleUpdateSettings changes the map name and grid settings
func (h *PlannerHandlerImpl) HandleUpdateSettings(c echo.Context) error {
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws.UpdateSettings(planner.Settings(req)))
}

// HandleZoom steps or sets the view scale
func (h *PlannerHandlerImpl) HandleZoom(c echo.Context) error {
	var req zoomRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	var scale float64
	switch {
	case req.Scale != nil:
		scale = ws.SetScale(*req.Scale)
	case req.Direction == "in":
		scale = ws.Zoom(1)
	default:
		scale = ws.Zoom(-1)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"scale": scale,
	})
}

// HandlePointer feeds one pointer event to the workspace
func (h *PlannerHandlerImpl) HandlePointer(c echo.Context) error {
	var ev interaction.Event
	if err := c.Bind(&ev); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := validatePointer(ev); err != nil {
		return err
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	view := ws.Pointer(ev)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"interaction": view,
		"selected":    ws.State().Selected,
	})
}

// HandleSetRecommendations stores a recommendation payload for later import
func (h *PlannerHandlerImpl) HandleSetRecommendations(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}

	recs, err := importer.ParsePayload(body, h.logger)
	if err != nil {
		if errors.Is(err, importer.ErrEmptyPayload) {
			return NewValidationError("recommendations")
		}
		return NewBadRequestError("invalid recommendations payload", err)
	}

	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}
	if err := ws.SetRecommendations(c.Request().Context(), recs); err != nil {
		return NewInternalError("failed to store recommendations", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// HandleApplyRecommendations places units for the stored recommendations
func (h *PlannerHandlerImpl) HandleApplyRecommendations(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	units := ws.ApplyRecommendations()
	if units == nil {
		units = []models.PlacedUnit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"added": units,
		"count": len(units),
		"state": ws.State(),
	})
}

// HandleGetSnapshot returns the workspace in its persisted format
func (h *PlannerHandlerImpl) HandleGetSnapshot(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, persist.ToSnapshot(ws.State(), time.Now()))
}

// HandleGetSnapshotMsgpack returns the persisted snapshot in MessagePack format
func (h *PlannerHandlerImpl) HandleGetSnapshotMsgpack(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	data, err := persist.EncodeMsgpack(persist.ToSnapshot(ws.State(), time.Now()))
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// Request/Response types

type addUnitRequest struct {
	ArchetypeID string   `json:"archetypeId"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
}

func (r *addUnitRequest) validate() error {
	if r.ArchetypeID == "" {
		return NewValidationError("archetypeId")
	}
	if (r.X == nil) != (r.Y == nil) {
		return NewBadRequestError("x and y must be given together", nil)
	}
	return nil
}

type moveUnitRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (r *moveUnitRequest) validate() error {
	if r.X == nil {
		return NewValidationError("x")
	}
	if r.Y == nil {
		return NewValidationError("y")
	}
	return nil
}

type rotateUnitRequest struct {
	Delta     *int   `json:"delta"`
	Direction string `json:"direction"` // "left" or "right"
}

func (r *rotateUnitRequest) validate() error {
	if r.Delta == nil && r.Direction == "" {
		return NewValidationError("delta")
	}
	if r.Delta != nil && r.Direction != "" {
		return NewBadRequestError("give either delta or direction, not both", nil)
	}
	if r.Direction != "" && r.Direction != "left" && r.Direction != "right" {
		return NewBadRequestError("direction must be left or right", nil)
	}
	return nil
}

func (r *rotateUnitRequest) degrees() int {
	switch r.Direction {
	case "left":
		return -surface.RotationStep
	case "right":
		return surface.RotationStep
	}
	return *r.Delta
}

type selectRequest struct {
	UnitID string `json:"unitId"`
}

type backgroundRequest struct {
	Mode  models.CanvasMode `json:"mode"`
	Image *string           `json:"image"`
}

func (r *backgroundRequest) validate() error {
	if !r.Mode.Valid() {
		return NewValidationError("mode")
	}
	return nil
}

type settingsRequest struct {
	MapName  *string `json:"mapName,omitempty"`
	GridSize *int    `json:"gridSize,omitempty"`
	ShowGrid *bool   `json:"showGrid,omitempty"`
}

func (r *settingsRequest) validate() error {
	if r.GridSize != nil && (*r.GridSize <= 0 || *r.GridSize > maxGridSize) {
		return NewBadRequestError(fmt.Sprintf("gridSize must be between 1 and %d", maxGridSize), nil)
	}
	return nil
}

type zoomRequest struct {
	Direction string   `json:"direction"` // "in" or "out"
	Scale     *float64 `json:"scale"`
}

func (r *zoomRequest) validate() error {
	if r.Scale != nil {
		return nil
	}
	if r.Direction != "in" && r.Direction != "out" {
		return NewValidationError("direction")
	}
	return nil
}

func validatePointer(ev interaction.Event) error {
	switch ev.Kind {
	case interaction.PointerDown, interaction.PointerMove, interaction.PointerUp:
		return nil
	}
	return NewValidationError("kind")
}
