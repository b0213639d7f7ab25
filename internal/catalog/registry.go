package catalog

import (
	"sync/atomic"

	"github.com/coastal-clean/siteplanner/internal/models"
)

// Registry holds the active catalog and allows it to be swapped while
// readers keep resolving archetypes.
type Registry struct {
	current atomic.Pointer[Catalog]
}

// NewRegistry creates a registry serving c.
func NewRegistry(c *Catalog) *Registry {
	r := &Registry{}
	r.current.Store(c)
	return r
}

// Current returns the active catalog.
func (r *Registry) Current() *Catalog {
	return r.current.Load()
}

// Swap replaces the active catalog.
func (r *Registry) Swap(c *Catalog) {
	r.current.Store(c)
}

// Reload re-reads path and swaps it in. The active catalog is left
// untouched when the file is invalid.
func (r *Registry) Reload(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	r.Swap(c)
	return nil
}

func (r *Registry) Lookup(id string) (models.Archetype, bool) {
	return r.Current().Lookup(id)
}

func (r *Registry) All() []models.Archetype {
	return r.Current().All()
}

func (r *Registry) Match(text string) (models.Archetype, bool) {
	return r.Current().Match(text)
}
