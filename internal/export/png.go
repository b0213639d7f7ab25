// Package export renders a surface state to PNG, SVG and a plain-text
// manifest. Renderers are pure functions of the state: they never touch
// the surface, and a failed render writes nothing.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/models"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Raster style.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800

	iconSize      = 24.0
	labelSize     = 12.0
	labelOffset   = 15.0
	strokeWidth   = 2.0
	fillAlpha     = 0x20
	gridLineWidth = 1.0
)

var (
	gridColor  = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	labelColor = color.NRGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff}
)

// Catalog resolves archetypes.
type Catalog interface {
	Lookup(id string) (models.Archetype, bool)
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontTTF, fontErr
}

// Renderer rasterizes surfaces at a fixed canvas size.
type Renderer struct {
	Width   int
	Height  int
	catalog Catalog
}

// NewRenderer creates a renderer. Non-positive sizes use the defaults.
func NewRenderer(c Catalog, width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{Width: width, Height: height, catalog: c}
}

// RenderPNG draws st and writes a PNG to w. On error nothing is written.
func (r *Renderer) RenderPNG(ctx context.Context, w io.Writer, st models.SurfaceState) error {
	img, err := r.Rasterize(ctx, st)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Rasterize composes, in order, the white fill, the background image, the
// grid and every resolvable unit in z-order.
func (r *Renderer) Rasterize(ctx context.Context, st models.SurfaceState) (image.Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrCanvasUnavailable, r.Width, r.Height)
	}
	ttf, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("%w: loading font: %v", ErrCanvasUnavailable, err)
	}

	var bg image.Image
	if st.HasBackground() {
		bg, _, err = DecodeDataURL(st.BackgroundImage)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(r.Width, r.Height)
	dc.SetColor(color.White)
	dc.Clear()

	if bg != nil {
		dst, ok := dc.Image().(*image.RGBA)
		if !ok {
			return nil, ErrCanvasUnavailable
		}
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), bg, bg.Bounds(), xdraw.Over, nil)
	}

	if st.Mode == models.CanvasModeGrid && st.ShowGrid {
		r.drawGrid(dc, st.GridSize)
	}

	iconFace := truetype.NewFace(ttf, &truetype.Options{Size: iconSize, DPI: 72, Hinting: font.HintingFull})
	labelFace := truetype.NewFace(ttf, &truetype.Options{Size: labelSize, DPI: 72, Hinting: font.HintingFull})
	defer iconFace.Close()
	defer labelFace.Close()

	for _, u := range st.Units {
		a, ok := r.catalog.Lookup(u.Type)
		if !ok {
			continue
		}
		drawUnit(dc, ttf, iconFace, labelFace, u, a)
	}

	return dc.Image(), nil
}

func (r *Renderer) drawGrid(dc *gg.Context, size int) {
	if size <= 0 {
		size = models.DefaultGridSize
	}
	dc.SetColor(gridColor)
	dc.SetLineWidth(gridLineWidth)

	w, h := float64(r.Width), float64(r.Height)
	for x := 0; x < r.Width; x += size {
		dc.DrawLine(float64(x), 0, float64(x), h)
		dc.Stroke()
	}
	for y := 0; y < r.Height; y += size {
		dc.DrawLine(0, float64(y), w, float64(y))
		dc.Stroke()
	}
}

func drawUnit(dc *gg.Context, ttf *truetype.Font, iconFace, labelFace font.Face, u models.PlacedUnit, a models.Archetype) {
	base, err := catalog.ParseColor(a.Color)
	if err != nil {
		base = color.NRGBA{A: 0xff}
	}

	dc.Push()
	defer dc.Pop()

	dc.Translate(u.X+a.Width/2, u.Y+a.Height/2)
	dc.Rotate(gg.Radians(float64(u.Rotation)))

	dc.DrawRectangle(-a.Width/2, -a.Height/2, a.Width, a.Height)
	dc.SetColor(catalog.WithAlpha(base, fillAlpha))
	dc.FillPreserve()
	dc.SetColor(base)
	dc.SetLineWidth(strokeWidth)
	dc.Stroke()

	dc.SetFontFace(iconFace)
	dc.DrawStringAnchored(iconGlyph(ttf, u, a), 0, 0, 0.5, 0.5)

	label := u.Label
	if label == "" {
		label = a.Name
	}
	dc.SetFontFace(labelFace)
	dc.SetColor(labelColor)
	dc.DrawStringAnchored(label, 0, a.Height/2+labelOffset, 0.5, 0)
}

// iconGlyph returns the unit icon, or the first letter of the archetype
// name when the font cannot draw it.
func iconGlyph(ttf *truetype.Font, u models.PlacedUnit, a models.Archetype) string {
	icon := u.Icon
	if icon == "" {
		icon = a.Icon
	}
	if icon != "" {
		covered := true
		for _, r := range icon {
			if r == 0xFE0F || r == 0x200D {
				continue
			}
			if ttf.Index(r) == 0 {
				covered = false
				break
			}
		}
		if covered {
			return icon
		}
	}
	first, _ := utf8.DecodeRuneInString(a.Name)
	if first == utf8.RuneError {
		return ""
	}
	return string(first)
}
