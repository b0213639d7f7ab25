// handlers_export.go - Site map download handlers
package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/coastal-clean/siteplanner/internal/export"
	"github.com/labstack/echo/v4"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	manager  WorkspaceManager
	source   ArchetypeSource
	renderer *export.Renderer
	footer   string
}

// NewExportHandler creates a new export handler instance
func NewExportHandler(manager WorkspaceManager, source ArchetypeSource, width, height int, footer string) ExportHandler {
	return &ExportHandlerImpl{
		manager:  manager,
		source:   source,
		renderer: export.NewRenderer(source, width, height),
		footer:   footer,
	}
}

// attachment sets Content-Disposition so browsers download the file
func attachment(c echo.Context, mapName, ext string) {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.FileName(mapName, ext)))
}

// HandleExportPNG renders the workspace to a PNG image
func (h *ExportHandlerImpl) HandleExportPNG(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	st := ws.State()
	var buf bytes.Buffer
	if err := h.renderer.RenderPNG(c.Request().Context(), &buf, st); err != nil {
		return NewExportFailedError(err)
	}

	attachment(c, st.MapName, "png")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// HandleExportText returns the plain-text manifest
func (h *ExportHandlerImpl) HandleExportText(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	st := ws.State()
	text := export.Manifest(st, h.source, export.ManifestOptions{
		Recommendations: ws.Recommendations(),
		Footer:          h.footer,
	})

	attachment(c, st.MapName, "txt")
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(text))
}

// HandleExportSVG renders the workspace as a standalone SVG document
func (h *ExportHandlerImpl) HandleExportSVG(c echo.Context) error {
	ws, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	st := ws.State()
	svg, err := h.renderer.RenderSVG(st)
	if err != nil {
		return NewExportFailedError(err)
	}

	attachment(c, st.MapName, "svg")
	return c.Blob(http.StatusOK, "image/svg+xml", []byte(svg))
}
