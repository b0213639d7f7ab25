package models

// Point is a position in surface-local coordinates (top-left origin).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// PlacedUnit is one concrete placement of an archetype on the surface.
// Type is a weak reference to Archetype.ID; it may dangle after a catalog change.
type PlacedUnit struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Icon     string  `json:"icon,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation int     `json:"rotation"`
	Label    string  `json:"label,omitempty"`
}

// Position returns the unit's top-left corner.
func (u PlacedUnit) Position() Point {
	return Point{X: u.X, Y: u.Y}
}

// DisplayRotation is the stored rotation folded into [0, 360).
func (u PlacedUnit) DisplayRotation() int {
	return NormalizeRotation(u.Rotation)
}

// NormalizeRotation folds deg into [0, 360).
func NormalizeRotation(deg int) int {
	r := deg % 360
	if r < 0 {
		r += 360
	}
	return r
}
