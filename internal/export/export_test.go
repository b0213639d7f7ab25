package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/coastal-clean/siteplanner/internal/surface"
	"github.com/coastal-clean/siteplanner/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func rgbAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestEmptySurfaceProducesValidPNG(t *testing.T) {
	r := NewRenderer(catalog.Default(), 400, 300)

	var buf bytes.Buffer
	require.NoError(t, r.RenderPNG(context.Background(), &buf, surface.Empty()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	red, green, blue := rgbAt(img, 10, 10)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{red, green, blue}, "between grid lines is white")

	red, _, _ = rgbAt(img, 20, 10)
	assert.Less(t, red, uint8(255), "grid line drawn")
}

func TestGridHiddenOrImageMode(t *testing.T) {
	r := NewRenderer(catalog.Default(), 100, 100)

	st := surface.Empty()
	st.ShowGrid = false
	img, err := r.Rasterize(context.Background(), st)
	require.NoError(t, err)
	red, _, _ := rgbAt(img, 20, 10)
	assert.Equal(t, uint8(255), red)

	// image mode without an image is blank
	st = surface.Empty()
	st.Mode = models.CanvasModeImage
	img, err = r.Rasterize(context.Background(), st)
	require.NoError(t, err)
	red, _, _ = rgbAt(img, 20, 10)
	assert.Equal(t, uint8(255), red)
}

func TestUnitsAreDrawnAndOrphansSkipped(t *testing.T) {
	r := NewRenderer(catalog.Default(), 400, 300)
	st := surface.Empty()
	st.ShowGrid = false
	st.Units = []models.PlacedUnit{
		{ID: "a", Type: "standard-toilet", Icon: "🚻", X: 100, Y: 100, Label: "Standard Toilet"},
		{ID: "b", Type: "retired-model", X: 250, Y: 150},
	}

	img, err := r.Rasterize(context.Background(), st)
	require.NoError(t, err)

	red, _, blue := rgbAt(img, 105, 105)
	assert.Less(t, red, uint8(255))
	assert.Greater(t, blue, red, "tinted with the archetype color")

	red, green, blue := rgbAt(img, 260, 160)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{red, green, blue}, "orphan not drawn")
}

func TestBackgroundImageIsStretched(t *testing.T) {
	url, info, err := EncodeDataURL("red.png", redPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 4, info.Width)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	st := surface.Empty()
	st.Mode = models.CanvasModeImage
	st.BackgroundImage = url

	img, err := NewRenderer(catalog.Default(), 200, 100).Rasterize(context.Background(), st)
	require.NoError(t, err)
	red, green, blue := rgbAt(img, 150, 80)
	assert.Greater(t, red, uint8(200))
	assert.Less(t, green, uint8(50))
	assert.Less(t, blue, uint8(50))
}

func TestExportFailureWritesNothing(t *testing.T) {
	st := surface.Empty()
	st.Mode = models.CanvasModeImage
	st.BackgroundImage = "data:image/png;base64,bm90IGFuIGltYWdl"
	r := NewRenderer(catalog.Default(), 100, 100)

	var buf bytes.Buffer
	err := r.RenderPNG(context.Background(), &buf, st)
	assert.ErrorIs(t, err, ErrImageDecode)
	assert.Zero(t, buf.Len())

	_, err = r.RenderSVG(st)
	assert.ErrorIs(t, err, ErrImageDecode)

	bad := &Renderer{Width: 0, Height: 10, catalog: catalog.Default()}
	err = bad.RenderPNG(context.Background(), &buf, surface.Empty())
	assert.ErrorIs(t, err, ErrCanvasUnavailable)
	assert.Zero(t, buf.Len())
}

func TestEncodeDataURLRejectsGarbage(t *testing.T) {
	_, _, err := EncodeDataURL("x.png", []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrImageDecode)

	_, _, err = DecodeDataURL("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrImageDecode)
}

func TestOversizedBackgroundRejectedBeforeDecode(t *testing.T) {
	huge := testutil.PNGHeader(16000, 16000)

	_, _, err := EncodeDataURL("huge.png", huge)
	assert.ErrorIs(t, err, ErrImageDecode)
	assert.ErrorContains(t, err, "16000x16000 exceeds")

	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(huge)
	_, _, err = DecodeDataURL(url)
	assert.ErrorIs(t, err, ErrImageDecode)
	assert.ErrorContains(t, err, "exceeds")

	st := surface.Empty()
	st.Mode = models.CanvasModeImage
	st.BackgroundImage = url
	var buf bytes.Buffer
	err = NewRenderer(catalog.Default(), 100, 100).RenderPNG(context.Background(), &buf, st)
	assert.ErrorIs(t, err, ErrImageDecode)
	assert.Zero(t, buf.Len())
}

func TestRenderSVG(t *testing.T) {
	st := surface.Empty()
	st.Units = []models.PlacedUnit{
		{ID: "a", Type: "fencing", X: 10, Y: 20, Rotation: 45, Label: "North <fence>"},
		{ID: "b", Type: "ghost", X: 0, Y: 0},
	}

	svg, err := NewRenderer(catalog.Default(), 200, 100).RenderSVG(st)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, `<?xml`))
	assert.Contains(t, svg, `viewBox="0 0 200 100"`)
	assert.Contains(t, svg, `translate(60 30) rotate(45)`)
	assert.Contains(t, svg, `North &lt;fence&gt;`)
	assert.Contains(t, svg, `stroke="#e5e7eb"`)
	assert.Equal(t, 1, strings.Count(svg, "<g "), "orphan skipped")
}

func TestManifest(t *testing.T) {
	st := surface.Empty()
	st.MapName = "Beach Day"
	st.Units = []models.PlacedUnit{
		{ID: "a", Type: "standard-toilet", X: 100.4, Y: 99.5, Rotation: 15},
		{ID: "b", Type: "ghost", X: 0, Y: 0, Rotation: -30},
	}

	got := Manifest(st, catalog.Default(), ManifestOptions{
		GeneratedAt: time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC),
		Recommendations: []models.Recommendation{
			{Type: "Standard Toilet", Quantity: 4, Description: "1 per 50 guests"},
		},
	})

	want := `SITE MAP: Beach Day
Generated: 3/7/2025

PLACED UNITS (2):
1. Standard Toilet
   Position: X=100, Y=100
   Rotation: 15°

2. ghost
   Position: X=0, Y=0
   Rotation: -30°

RECOMMENDATIONS:
- 4 × Standard Toilet: 1 per 50 guests

---
Generated by Coastal Clean Rentals Site Map Planner`
	assert.Equal(t, want, got)
}

func TestManifestEmpty(t *testing.T) {
	got := Manifest(surface.Empty(), catalog.Default(), ManifestOptions{Footer: "custom"})
	assert.Contains(t, got, "PLACED UNITS (0):")
	assert.NotContains(t, got, "RECOMMENDATIONS")
	assert.True(t, strings.HasSuffix(got, "---\ncustom"))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name, ext, want string
	}{
		{"Untitled Site Map", "png", "Untitled-Site-Map.png"},
		{"Beach   Festival\t2025", ".txt", "Beach-Festival-2025.txt"},
		{"a/b:c", "svg", "abc.svg"},
		{"   ", "png", "site-map.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.name, tt.ext))
	}
}
