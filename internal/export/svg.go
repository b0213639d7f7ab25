package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/coastal-clean/siteplanner/internal/models"
)

// RenderSVG builds a vector rendition of st with the same layering as the
// raster export. Orphaned units are skipped.
func (r *Renderer) RenderSVG(st models.SurfaceState) (string, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return "", fmt.Errorf("%w: invalid size %dx%d", ErrCanvasUnavailable, r.Width, r.Height)
	}
	if st.HasBackground() {
		if _, _, err := DecodeDataURL(st.BackgroundImage); err != nil {
			return "", err
		}
	}

	w, h := formatFloat(float64(r.Width)), formatFloat(float64(r.Height))

	var elements []string
	elements = append(elements, fmt.Sprintf(`<rect x="0" y="0" width="%s" height="%s" fill="#ffffff"/>`, w, h))
	if st.HasBackground() {
		elements = append(elements, fmt.Sprintf(`<image x="0" y="0" width="%s" height="%s" preserveAspectRatio="none" href="%s"/>`,
			w, h, escape(st.BackgroundImage)))
	}
	if st.Mode == models.CanvasModeGrid && st.ShowGrid {
		elements = append(elements, r.svgGrid(st.GridSize))
	}
	for _, u := range st.Units {
		a, ok := r.catalog.Lookup(u.Type)
		if !ok {
			continue
		}
		elements = append(elements, svgUnit(u, a))
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`, w, h, w, h))
	builder.WriteString("\n")
	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}
	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

func (r *Renderer) svgGrid(size int) string {
	if size <= 0 {
		size = models.DefaultGridSize
	}

	var d strings.Builder
	for x := 0; x < r.Width; x += size {
		fmt.Fprintf(&d, "M%d 0V%d", x, r.Height)
	}
	for y := 0; y < r.Height; y += size {
		fmt.Fprintf(&d, "M0 %dH%d", y, r.Width)
	}
	return fmt.Sprintf(`<path d="%s" stroke="#e5e7eb" stroke-width="1" fill="none"/>`, d.String())
}

func svgUnit(u models.PlacedUnit, a models.Archetype) string {
	cx := u.X + a.Width/2
	cy := u.Y + a.Height/2

	label := u.Label
	if label == "" {
		label = a.Name
	}
	icon := u.Icon
	if icon == "" {
		icon = a.Icon
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<g transform="translate(%s %s) rotate(%d)">`, formatFloat(cx), formatFloat(cy), u.Rotation)
	fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" fill-opacity="0.125" stroke="%s" stroke-width="2"/>`,
		formatFloat(-a.Width/2), formatFloat(-a.Height/2), formatFloat(a.Width), formatFloat(a.Height), escape(a.Color), escape(a.Color))
	fmt.Fprintf(&b, `<text x="0" y="0" font-size="24" text-anchor="middle" dominant-baseline="middle">%s</text>`, escape(icon))
	fmt.Fprintf(&b, `<text x="0" y="%s" font-size="12" fill="#374151" text-anchor="middle">%s</text>`,
		formatFloat(a.Height/2+labelOffset), escape(label))
	b.WriteString(`</g>`)
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
