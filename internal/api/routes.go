// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Manager            WorkspaceManager
	Catalog            ArchetypeSource
	ExportWidth        int
	ExportHeight       int
	FooterText         string
	MaxBackgroundBytes int64
	Version            string
	Logger             *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Catalog CatalogHandler
	Planner PlannerHandler
	Export  ExportHandler
	Stream  PointerStreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Manager),
		Catalog: NewCatalogHandler(deps.Catalog),
		Planner: NewPlannerHandler(deps.Manager, deps.MaxBackgroundBytes, logger),
		Export:  NewExportHandler(deps.Manager, deps.Catalog, deps.ExportWidth, deps.ExportHeight, deps.FooterText),
		Stream:  NewPointerStreamHandler(deps.Manager, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	// Equipment palette
	api.GET("/catalog", handlers.Catalog.HandleGetCatalog)

	// Workspace routes
	plannerGroup := api.Group("/planner")
	plannerGroup.GET("", handlers.Planner.HandleListWorkspaces)
	plannerGroup.GET("/:id", handlers.Planner.HandleGetWorkspace)
	plannerGroup.POST("/:id/units", handlers.Planner.HandleAddUnit)
	plannerGroup.DELETE("/:id/units", handlers.Planner.HandleClearUnits)
	plannerGroup.PUT("/:id/units/:unitId/position", handlers.Planner.HandleMoveUnit)
	plannerGroup.POST("/:id/units/:unitId/rotate", handlers.Planner.HandleRotateUnit)
	plannerGroup.DELETE("/:id/units/:unitId", handlers.Planner.HandleRemoveUnit)
	plannerGroup.POST("/:id/selection", handlers.Planner.HandleSelect)
	plannerGroup.PUT("/:id/background", handlers.Planner.HandleSetBackground)
	plannerGroup.POST("/:id/background/upload", handlers.Planner.HandleUploadBackground)
	plannerGroup.PUT("/:id/settings", handlers.Planner.HandleUpdateSettings)
	plannerGroup.POST("/:id/zoom", handlers.Planner.HandleZoom)
	plannerGroup.POST("/:id/pointer", handlers.Planner.HandlePointer)
	plannerGroup.PUT("/:id/recommendations", handlers.Planner.HandleSetRecommendations)
	plannerGroup.POST("/:id/recommendations/apply", handlers.Planner.HandleApplyRecommendations)
	plannerGroup.GET("/:id/snapshot", handlers.Planner.HandleGetSnapshot)
	plannerGroup.GET("/:id/snapshot/msgpack", handlers.Planner.HandleGetSnapshotMsgpack)

	// Downloads
	plannerGroup.GET("/:id/export/png", handlers.Export.HandleExportPNG)
	plannerGroup.GET("/:id/export/txt", handlers.Export.HandleExportText)
	plannerGroup.GET("/:id/export/svg", handlers.Export.HandleExportSVG)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/planner/:id/ws", handlers.Stream.HandlePointerStream)
}

// MiddlewareOptions controls the common middleware stack
type MiddlewareOptions struct {
	EnableRequestLogging bool
	EnableCompression    bool
	CompressionLevel     int
	BodyLimit            string
	EnableCORS           bool
	AllowOrigins         string
	RequestTimeout       time.Duration
}

// isLongLived reports whether a request may outlive the request timeout
func isLongLived(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/ws") ||
		strings.HasSuffix(path, "/background/upload")
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !opts.EnableRequestLogging || c.Path() == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Skipper:      isLongLived,
			Timeout:      opts.RequestTimeout,
			ErrorMessage: "request timed out",
		}))
	}

	if opts.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   opts.CompressionLevel,
			Skipper: isLongLived,
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if !opts.EnableCORS {
		return
	}
	origins := []string{"*"}
	if opts.AllowOrigins != "" {
		origins = strings.Split(opts.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
}
