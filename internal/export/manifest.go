package export

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/coastal-clean/siteplanner/internal/models"
)

// DefaultFooter closes every text manifest.
const DefaultFooter = "Generated by Coastal Clean Rentals Site Map Planner"

// ManifestOptions tunes the text manifest.
type ManifestOptions struct {
	GeneratedAt     time.Time
	Recommendations []models.Recommendation
	Footer          string
}

// Manifest produces the human-readable summary of st. Orphaned units are
// listed by their raw type id. Rotation is the stored value.
func Manifest(st models.SurfaceState, c Catalog, opts ManifestOptions) string {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	if opts.Footer == "" {
		opts.Footer = DefaultFooter
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SITE MAP: %s\n", st.MapName)
	fmt.Fprintf(&b, "Generated: %s\n\n", opts.GeneratedAt.Format("1/2/2006"))

	fmt.Fprintf(&b, "PLACED UNITS (%d):\n", len(st.Units))
	entries := make([]string, 0, len(st.Units))
	for i, u := range st.Units {
		name := u.Type
		if a, ok := c.Lookup(u.Type); ok {
			name = a.Name
		}
		entries = append(entries, fmt.Sprintf("%d. %s\n   Position: X=%d, Y=%d\n   Rotation: %d°",
			i+1, name, roundHalfUp(u.X), roundHalfUp(u.Y), u.Rotation))
	}
	b.WriteString(strings.Join(entries, "\n\n"))

	if len(opts.Recommendations) > 0 {
		b.WriteString("\n\nRECOMMENDATIONS:\n")
		lines := make([]string, 0, len(opts.Recommendations))
		for _, rec := range opts.Recommendations {
			lines = append(lines, fmt.Sprintf("- %d × %s: %s", rec.Quantity, rec.Type, rec.Description))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	b.WriteString("\n\n---\n")
	b.WriteString(opts.Footer)
	return b.String()
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
)

// FileName derives a download name from the map name: every whitespace run
// becomes "-" and characters that are unsafe in file names are dropped.
func FileName(mapName, ext string) string {
	name := whitespaceRun.ReplaceAllString(strings.TrimSpace(mapName), "-")
	name = unsafeChars.ReplaceAllString(name, "")
	if name == "" {
		name = "site-map"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
