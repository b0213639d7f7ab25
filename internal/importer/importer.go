// Package importer turns an estimate of quantity-by-type recommendations
// into placed units.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coastal-clean/siteplanner/internal/models"
)

// Shelf packing layout.
const (
	StartX    = 100.0
	StartY    = 100.0
	Gap       = 20.0
	WrapWidth = 600.0
)

// ErrEmptyPayload is returned when a payload carries no usable
// recommendation.
var ErrEmptyPayload = errors.New("empty recommendation payload")

// Matcher resolves free-text equipment types to archetypes.
type Matcher interface {
	Match(text string) (models.Archetype, bool)
}

// Builder creates a unit for an archetype at a position.
type Builder interface {
	NewInstance(a models.Archetype, pos models.Point) models.PlacedUnit
}

// Payload is the handoff contract between an estimator and the planner.
type Payload struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// ParsePayload decodes either a bare JSON array of recommendations or an
// object with a "recommendations" field. Items that are malformed or carry
// a negative quantity are skipped and logged. ErrEmptyPayload is returned
// when nothing usable remains.
func ParsePayload(data []byte, logger *slog.Logger) ([]models.Recommendation, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, ErrEmptyPayload
	}

	var raw []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, fmt.Errorf("decoding recommendations: %w", err)
		}
	} else {
		var wrapper struct {
			Recommendations []json.RawMessage `json:"recommendations"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
			return nil, fmt.Errorf("decoding recommendations: %w", err)
		}
		raw = wrapper.Recommendations
	}

	recs := make([]models.Recommendation, 0, len(raw))
	for i, item := range raw {
		var rec models.Recommendation
		if err := json.Unmarshal(item, &rec); err != nil {
			logger.Warn("skipping malformed recommendation", "index", i, "error", err)
			continue
		}
		if rec.Quantity < 0 {
			logger.Warn("skipping recommendation with negative quantity", "index", i, "type", rec.Type)
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, ErrEmptyPayload
	}
	return recs, nil
}

// Plan lays out recommendations with a left-to-right, top-to-bottom shelf
// heuristic. One cursor is shared across all groups, so groups of
// different footprints may overlap. Unmatched types are skipped.
func Plan(recs []models.Recommendation, matcher Matcher, builder Builder) []models.PlacedUnit {
	var units []models.PlacedUnit
	x, y := StartX, StartY

	for _, rec := range recs {
		a, ok := matcher.Match(rec.Type)
		if !ok {
			continue
		}
		for i := 0; i < rec.Quantity; i++ {
			units = append(units, builder.NewInstance(a, models.Point{X: x, Y: y}))
			x += a.Width + Gap
			if x > WrapWidth {
				x = StartX
				y += a.Height + Gap
			}
		}
	}
	return units
}
