package testutil

import (
	"context"

	"busfare-compare/internal/distance"
	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/models"
)

// GeocodeCall tracks a call to the geocoder
type GeocodeCall struct {
	Place string
}

// MockGeocoder is a test double for geocoding.Geocoder with call recording
type MockGeocoder struct {
	Places map[string]models.Coordinates
	Errors map[string]error
	Calls  []GeocodeCall
}

func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		Places: make(map[string]models.Coordinates),
		Errors: make(map[string]error),
	}
}

// SetPlace registers coordinates for a place name
func (m *MockGeocoder) SetPlace(place string, lat, lng float64) {
	m.Places[place] = models.Coordinates{Lat: lat, Lng: lng}
}

// SetError makes resolution of the given place fail
func (m *MockGeocoder) SetError(place string, err error) {
	m.Errors[place] = err
}

func (m *MockGeocoder) Resolve(ctx context.Context, place string) (models.Coordinates, error) {
	m.Calls = append(m.Calls, GeocodeCall{Place: place})

	if err, ok := m.Errors[place]; ok {
		return models.Coordinates{}, err
	}
	if coords, ok := m.Places[place]; ok {
		return coords, nil
	}
	return models.Coordinates{}, &geocoding.ResolutionError{
		Place:  place,
		Kind:   geocoding.KindNotFound,
		Reason: "not registered in mock",
	}
}

// CallCount returns how many times the given place was resolved
func (m *MockGeocoder) CallCount(place string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Place == place {
			n++
		}
	}
	return n
}

// DistanceCall tracks a call to the distance resolver
type DistanceCall struct {
	Origin      string
	Destination string
}

// MockDistanceResolver is a test double for distance.DistanceResolver
type MockDistanceResolver struct {
	Results map[string]*distance.Result
	Errors  map[string]error
	Default *distance.Result
	Calls   []DistanceCall
}

func NewMockDistanceResolver() *MockDistanceResolver {
	return &MockDistanceResolver{
		Results: make(map[string]*distance.Result),
		Errors:  make(map[string]error),
	}
}

func pairKey(origin, destination string) string {
	return origin + "\x00" + destination
}

// SetDistance registers a result for a specific origin-destination pair
func (m *MockDistanceResolver) SetDistance(origin, destination string, km float64, label string) {
	m.Results[pairKey(origin, destination)] = &distance.Result{DistanceKm: km, DurationLabel: label}
}

// SetError makes resolution of the given pair fail
func (m *MockDistanceResolver) SetError(origin, destination string, err error) {
	m.Errors[pairKey(origin, destination)] = err
}

func (m *MockDistanceResolver) ResolveDistance(ctx context.Context, origin, destination string) (*distance.Result, error) {
	m.Calls = append(m.Calls, DistanceCall{Origin: origin, Destination: destination})

	key := pairKey(origin, destination)
	if err, ok := m.Errors[key]; ok {
		return nil, err
	}
	if result, ok := m.Results[key]; ok {
		return result, nil
	}
	if m.Default != nil {
		return m.Default, nil
	}
	return &distance.Result{DistanceKm: 100, DurationLabel: "02h 00m"}, nil
}
