package models

// Category groups archetypes in the palette.
type Category string

const (
	CategoryToilet   Category = "toilet"
	CategoryTrailer  Category = "trailer"
	CategoryHandwash Category = "handwash"
	CategoryFencing  Category = "fencing"
	CategoryOther    Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryToilet, CategoryTrailer, CategoryHandwash, CategoryFencing, CategoryOther:
		return true
	}
	return false
}

// Archetype is a catalog entry that placed units are instantiated from.
// Width and Height are the footprint in surface units.
type Archetype struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Icon     string   `json:"icon" yaml:"icon"`
	Category Category `json:"category" yaml:"category"`
	Width    float64  `json:"width" yaml:"width"`
	Height   float64  `json:"height" yaml:"height"`
	Color    string   `json:"color" yaml:"color"`
}

// Center returns the footprint center relative to the top-left origin.
func (a Archetype) Center() Point {
	return Point{X: a.Width / 2, Y: a.Height / 2}
}
