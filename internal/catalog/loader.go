package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/coastal-clean/siteplanner/internal/models"
	"gopkg.in/yaml.v3"
)

// file is the on-disk shape of a catalog override:
//
//	archetypes:
//	  - id: standard-toilet
//	    name: Standard Toilet
//	    icon: "🚻"
//	    category: toilet
//	    width: 60
//	    height: 80
//	    color: "#3B82F6"
type file struct {
	Archetypes []models.Archetype `yaml:"archetypes"`
}

// Load parses a YAML catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadFromReader(f)
}

// LoadFromReader parses a YAML catalog from r.
func LoadFromReader(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw file
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(raw.Archetypes) == 0 {
		return nil, fmt.Errorf("catalog defines no archetypes")
	}

	return New(raw.Archetypes)
}

// LoadOrDefault loads path when it is set, otherwise returns the built-in palette.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
