package geocoding

import (
	"context"

	"busfare-compare/internal/models"
)

// StaticGeocoder resolves place names from a fixed in-memory table. It is
// the offline deployment mode, interchangeable with the live geocoder.
type StaticGeocoder struct {
	places map[string]models.Coordinates
}

// NewStaticGeocoder creates a geocoder over the given place table
func NewStaticGeocoder(places map[string]models.Coordinates) *StaticGeocoder {
	table := make(map[string]models.Coordinates, len(places))
	for name, coords := range places {
		table[name] = coords
	}
	return &StaticGeocoder{places: table}
}

func (g *StaticGeocoder) Resolve(ctx context.Context, place string) (models.Coordinates, error) {
	coords, ok := g.places[place]
	if !ok {
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindNotFound, Reason: "place not in static table"}
	}
	return coords, nil
}
