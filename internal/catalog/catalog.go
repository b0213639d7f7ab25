// Package catalog holds the equipment palette: the fixed set of archetypes
// that placed units are instantiated from.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coastal-clean/siteplanner/internal/models"
)

// ErrUnknownArchetype is returned when an archetype id does not resolve.
var ErrUnknownArchetype = errors.New("unknown archetype")

// Catalog is an immutable, ordered set of archetypes indexed by id.
type Catalog struct {
	archetypes []models.Archetype
	byID       map[string]int
}

// New validates archetypes and builds a catalog preserving their order.
func New(archetypes []models.Archetype) (*Catalog, error) {
	c := &Catalog{
		archetypes: make([]models.Archetype, 0, len(archetypes)),
		byID:       make(map[string]int, len(archetypes)),
	}

	for i, a := range archetypes {
		if err := validate(a); err != nil {
			return nil, fmt.Errorf("archetype %d: %w", i, err)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("archetype %d: duplicate id %q", i, a.ID)
		}
		c.byID[a.ID] = len(c.archetypes)
		c.archetypes = append(c.archetypes, a)
	}

	return c, nil
}

func validate(a models.Archetype) error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%s: name is required", a.ID)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("%s: invalid category %q", a.ID, a.Category)
	}
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("%s: footprint must be positive, got %gx%g", a.ID, a.Width, a.Height)
	}
	if _, err := ParseColor(a.Color); err != nil {
		return fmt.Errorf("%s: %w", a.ID, err)
	}
	return nil
}

// Lookup resolves an archetype by id.
func (c *Catalog) Lookup(id string) (models.Archetype, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Archetype{}, false
	}
	return c.archetypes[i], true
}

// All returns the archetypes in palette order.
func (c *Catalog) All() []models.Archetype {
	out := make([]models.Archetype, len(c.archetypes))
	copy(out, c.archetypes)
	return out
}

// Len returns the number of archetypes.
func (c *Catalog) Len() int {
	return len(c.archetypes)
}

// Match resolves free text against archetype names with a case-insensitive
// substring test in either direction. The first archetype in palette order
// wins. Text is not trimmed, so an empty string matches the first archetype.
func (c *Catalog) Match(text string) (models.Archetype, bool) {
	needle := strings.ToLower(text)
	for _, a := range c.archetypes {
		name := strings.ToLower(a.Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return a, true
		}
	}
	return models.Archetype{}, false
}
