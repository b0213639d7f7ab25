package api

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/coastal-clean/siteplanner/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHandler(t *testing.T) {
	env := newTestEnv(t)
	addUnit(t, env, `{"archetypeId":"handwash","x":100,"y":100}`)
	_, err := call(t, env.handlers.Planner.HandleUpdateSettings, http.MethodPut, "/", `{"mapName":"County  Fair 2025"}`, "id", "site")
	require.NoError(t, err)
	h := env.handlers.Export

	t.Run("png", func(t *testing.T) {
		rec, err := call(t, h.HandleExportPNG, http.MethodGet, "/", "", "id", "site")
		require.NoError(t, err)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, `attachment; filename="County-Fair-2025.png"`, rec.Header().Get(echo.HeaderContentDisposition))

		img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 1200, img.Bounds().Dx())
		assert.Equal(t, 800, img.Bounds().Dy())
	})

	t.Run("text", func(t *testing.T) {
		rec, err := call(t, h.HandleExportText, http.MethodGet, "/", "", "id", "site")
		require.NoError(t, err)
		assert.Equal(t, `attachment; filename="County-Fair-2025.txt"`, rec.Header().Get(echo.HeaderContentDisposition))

		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "SITE MAP: County  Fair 2025\n"))
		assert.Contains(t, body, "PLACED UNITS (1):")
		assert.Contains(t, body, "1. Handwash Station\n   Position: X=100, Y=100\n   Rotation: 0°")
		assert.NotContains(t, body, "RECOMMENDATIONS:")
	})

	t.Run("svg", func(t *testing.T) {
		rec, err := call(t, h.HandleExportSVG, http.MethodGet, "/", "", "id", "site")
		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
		assert.Contains(t, rec.Body.String(), "<svg")
		assert.Contains(t, rec.Body.String(), "Handwash Station")
	})
}

func TestExportHandler_CorruptBackgroundFails(t *testing.T) {
	env := newTestEnv(t)
	ws, err := env.manager.Open(t.Context(), "site")
	require.NoError(t, err)

	bad := "data:image/png;base64,AAAA"
	require.NoError(t, ws.SetBackground("image", &bad))

	rec, err := call(t, env.handlers.Export.HandleExportPNG, http.MethodGet, "/", "", "id", "site")
	requireAPIError(t, err, http.StatusUnprocessableEntity, "EXPORT_FAILED")
	assert.Empty(t, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Zero(t, rec.Body.Len())
}

func TestExportHandler_OversizedBackgroundFails(t *testing.T) {
	env := newTestEnv(t)
	ws, err := env.manager.Open(t.Context(), "site")
	require.NoError(t, err)

	huge := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testutil.PNGHeader(16000, 16000))
	require.NoError(t, ws.SetBackground("image", &huge))

	rec, err := call(t, env.handlers.Export.HandleExportPNG, http.MethodGet, "/", "", "id", "site")
	requireAPIError(t, err, http.StatusUnprocessableEntity, "EXPORT_FAILED")
	assert.Zero(t, rec.Body.Len())
}
