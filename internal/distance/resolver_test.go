package distance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/models"
)

type fakeMatrix struct {
	result *MatrixResult
	err    error
	calls  int
}

func (f *fakeMatrix) Lookup(ctx context.Context, origin, destination string) (*MatrixResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGeocoder struct {
	places map[string]models.Coordinates
}

func (g *fakeGeocoder) Resolve(ctx context.Context, place string) (models.Coordinates, error) {
	coords, ok := g.places[place]
	if !ok {
		return models.Coordinates{}, &geocoding.ResolutionError{Place: place, Kind: geocoding.KindNotFound, Reason: "unknown"}
	}
	return coords, nil
}

type fakeDistanceStore struct {
	entries map[string]*models.RouteDistanceEntry
	sets    int
}

func (s *fakeDistanceStore) key(origin, dest string) string { return origin + "|" + dest }

func (s *fakeDistanceStore) Get(ctx context.Context, origin, destination string) (*models.RouteDistanceEntry, error) {
	return s.entries[s.key(origin, destination)], nil
}

func (s *fakeDistanceStore) Set(ctx context.Context, entry *models.RouteDistanceEntry) error {
	s.entries[s.key(entry.Origin, entry.Destination)] = entry
	s.sets++
	return nil
}

func (s *fakeDistanceStore) Clear(ctx context.Context) error {
	s.entries = make(map[string]*models.RouteDistanceEntry)
	return nil
}

var testPlaces = map[string]models.Coordinates{
	"Delhi":  {Lat: 28.6139, Lng: 77.2090},
	"Manali": {Lat: 32.2396, Lng: 77.1887},
}

func TestResolveDistancePrimary(t *testing.T) {
	matrix := &fakeMatrix{result: &MatrixResult{DistanceMeters: 570000, DurationSecs: 44100}}
	r := NewResolver(matrix, &fakeGeocoder{places: testPlaces}, nil)

	result, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")
	require.NoError(t, err)

	assert.Equal(t, 570.0, result.DistanceKm)
	assert.Equal(t, "12h 15m", result.DurationLabel)
}

func TestResolveDistancePrimaryRounding(t *testing.T) {
	matrix := &fakeMatrix{result: &MatrixResult{DistanceMeters: 123456, DurationSecs: 0}}
	r := NewResolver(matrix, &fakeGeocoder{places: testPlaces}, nil)

	result, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")
	require.NoError(t, err)

	assert.Equal(t, 123.46, result.DistanceKm)
	assert.Equal(t, "00h 00m", result.DurationLabel)
}

func TestResolveDistanceFallback(t *testing.T) {
	matrix := &fakeMatrix{err: &ErrDistanceLookupFailed{Reason: "empty result set"}}
	r := NewResolver(matrix, &fakeGeocoder{places: testPlaces}, nil)

	result, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")
	require.NoError(t, err)

	want := models.Round2(Haversine(testPlaces["Delhi"], testPlaces["Manali"]))
	assert.Equal(t, want, result.DistanceKm)
	assert.Equal(t, FallbackDuration, result.DurationLabel)
}

func TestResolveDistanceFallbackGeocodeFailure(t *testing.T) {
	matrix := &fakeMatrix{err: &ErrDistanceLookupFailed{Reason: "network error"}}
	r := NewResolver(matrix, &fakeGeocoder{places: map[string]models.Coordinates{}}, nil)

	_, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")

	var resErr *geocoding.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, geocoding.KindNotFound, resErr.Kind)
}

func TestResolveDistanceCacheHitSkipsPrimary(t *testing.T) {
	store := &fakeDistanceStore{entries: map[string]*models.RouteDistanceEntry{
		"Delhi|Manali": {Origin: "Delhi", Destination: "Manali", DistanceMeters: 570000, DurationSecs: 44100},
	}}
	matrix := &fakeMatrix{result: &MatrixResult{DistanceMeters: 1, DurationSecs: 1}}
	r := NewResolver(matrix, &fakeGeocoder{places: testPlaces}, store)

	result, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")
	require.NoError(t, err)

	assert.Equal(t, 570.0, result.DistanceKm)
	assert.Equal(t, "12h 15m", result.DurationLabel)
	assert.Equal(t, 0, matrix.calls)
}

type failingDistanceStore struct{}

func (s *failingDistanceStore) Get(ctx context.Context, origin, destination string) (*models.RouteDistanceEntry, error) {
	return nil, errors.New("database disk image is malformed")
}

func (s *failingDistanceStore) Set(ctx context.Context, entry *models.RouteDistanceEntry) error {
	return errors.New("database disk image is malformed")
}

func (s *failingDistanceStore) Clear(ctx context.Context) error {
	return errors.New("database disk image is malformed")
}

func TestResolveDistanceSurvivesBrokenStore(t *testing.T) {
	matrix := &fakeMatrix{result: &MatrixResult{DistanceMeters: 570000, DurationSecs: 44100}}
	r := NewResolver(matrix, &fakeGeocoder{places: testPlaces}, &failingDistanceStore{})

	// Cache read and write failures are absorbed; the primary lookup
	// still answers
	result, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")
	require.NoError(t, err)
	assert.Equal(t, 570.0, result.DistanceKm)
	assert.Equal(t, 1, matrix.calls)
}

func TestResolveDistancePersistsPrimaryResult(t *testing.T) {
	store := &fakeDistanceStore{entries: make(map[string]*models.RouteDistanceEntry)}
	matrix := &fakeMatrix{result: &MatrixResult{DistanceMeters: 570000, DurationSecs: 44100}}
	r := NewResolver(matrix, &fakeGeocoder{places: testPlaces}, store)

	_, err := r.ResolveDistance(context.Background(), "Delhi", "Manali")
	require.NoError(t, err)

	assert.Equal(t, 1, store.sets)
}

func TestHaversineSymmetry(t *testing.T) {
	a := models.Coordinates{Lat: 28.6139, Lng: 77.2090}
	b := models.Coordinates{Lat: 32.2396, Lng: 77.1887}

	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestHaversineZeroForSamePoint(t *testing.T) {
	a := models.Coordinates{Lat: 28.6139, Lng: 77.2090}
	assert.Equal(t, 0.0, Haversine(a, a))
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of longitude on the equator is ~111.19 km
	a := models.Coordinates{Lat: 0, Lng: 0}
	b := models.Coordinates{Lat: 0, Lng: 1}

	assert.InDelta(t, 111.19, Haversine(a, b), 0.01)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{0, "00h 00m"},
		{59, "00h 00m"},
		{60, "00h 01m"},
		{3660, "01h 01m"},
		{44100, "12h 15m"},
		{90000, "25h 00m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.secs))
	}
}
