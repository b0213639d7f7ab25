package catalog

import "github.com/coastal-clean/siteplanner/internal/models"

var defaultArchetypes = []models.Archetype{
	{ID: "standard-toilet", Name: "Standard Toilet", Icon: "🚻", Category: models.CategoryToilet, Width: 60, Height: 80, Color: "#3B82F6"},
	{ID: "deluxe-toilet", Name: "Deluxe Unit", Icon: "🚿", Category: models.CategoryToilet, Width: 70, Height: 90, Color: "#8B5CF6"},
	{ID: "ada-unit", Name: "ADA Unit", Icon: "♿", Category: models.CategoryToilet, Width: 90, Height: 100, Color: "#10B981"},
	{ID: "handwash", Name: "Handwash Station", Icon: "🧼", Category: models.CategoryHandwash, Width: 50, Height: 40, Color: "#F59E0B"},
	{ID: "2-stall-trailer", Name: "2-Stall Trailer", Icon: "🚐", Category: models.CategoryTrailer, Width: 120, Height: 80, Color: "#EC4899"},
	{ID: "4-stall-trailer", Name: "4-Stall Trailer", Icon: "🚌", Category: models.CategoryTrailer, Width: 180, Height: 80, Color: "#EC4899"},
	{ID: "fencing", Name: "Fencing Panel", Icon: "🔗", Category: models.CategoryFencing, Width: 100, Height: 20, Color: "#6B7280"},
	{ID: "attendant", Name: "Attendant Station", Icon: "👤", Category: models.CategoryOther, Width: 50, Height: 50, Color: "#14B8A6"},
}

// Default returns the built-in rental palette.
func Default() *Catalog {
	c, err := New(defaultArchetypes)
	if err != nil {
		panic("catalog: invalid built-in palette: " + err.Error())
	}
	return c
}
