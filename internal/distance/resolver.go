package distance

import (
	"context"
	"fmt"
	"log"
	"math"

	"busfare-compare/internal/database"
	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/models"
)

const earthRadiusKm = 6371.0

// FallbackDuration is the duration label when only the geometric fallback
// is available, since great-circle math yields no travel time.
const FallbackDuration = "00h 00m"

// Result is a resolved route distance
type Result struct {
	DistanceKm    float64
	DurationLabel string
}

// DistanceResolver resolves the distance between two named places
type DistanceResolver interface {
	ResolveDistance(ctx context.Context, origin, destination string) (*Result, error)
}

// Resolver resolves distances via the routing API, falling back to the
// great-circle distance between geocoded endpoints when the API fails.
type Resolver struct {
	matrix   MatrixClient
	geocoder geocoding.Geocoder
	cache    database.RouteDistanceRepository // may be nil
}

// NewResolver creates a distance resolver. cache may be nil to disable
// persistent distance caching.
func NewResolver(matrix MatrixClient, geocoder geocoding.Geocoder, cache database.RouteDistanceRepository) *Resolver {
	return &Resolver{matrix: matrix, geocoder: geocoder, cache: cache}
}

func (r *Resolver) ResolveDistance(ctx context.Context, origin, destination string) (*Result, error) {
	if r.cache != nil {
		entry, err := r.cache.Get(ctx, origin, destination)
		if err != nil {
			// A broken cache must not fail the run; the live lookup
			// still answers, matching the write path below
			log.Printf("[DISTANCE] Distance cache read failed, continuing without it: origin=%s dest=%s err=%v", origin, destination, err)
		}
		if entry != nil {
			return &Result{
				DistanceKm:    models.Round2(entry.DistanceMeters / 1000),
				DurationLabel: FormatDuration(entry.DurationSecs),
			}, nil
		}
	}

	result, err := r.matrix.Lookup(ctx, origin, destination)
	if err == nil {
		if r.cache != nil {
			cacheErr := r.cache.Set(ctx, &models.RouteDistanceEntry{
				Origin:         origin,
				Destination:    destination,
				DistanceMeters: result.DistanceMeters,
				DurationSecs:   result.DurationSecs,
			})
			if cacheErr != nil {
				log.Printf("[DISTANCE] Failed to persist distance cache entry: origin=%s dest=%s err=%v", origin, destination, cacheErr)
			}
		}
		return &Result{
			DistanceKm:    models.Round2(result.DistanceMeters / 1000),
			DurationLabel: FormatDuration(result.DurationSecs),
		}, nil
	}

	log.Printf("[DISTANCE] Primary lookup failed, using haversine fallback: origin=%s dest=%s err=%v", origin, destination, err)

	// The fallback fails only when geocoding fails; that error carries the
	// resolution kind and propagates to the caller.
	start, err := r.geocoder.Resolve(ctx, origin)
	if err != nil {
		return nil, err
	}
	end, err := r.geocoder.Resolve(ctx, destination)
	if err != nil {
		return nil, err
	}

	return &Result{
		DistanceKm:    models.Round2(Haversine(start, end)),
		DurationLabel: FallbackDuration,
	}, nil
}

// Haversine computes the great-circle distance in kilometers between two
// coordinate pairs
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lng1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lng2 := b.Lng * math.Pi / 180

	dLat := lat2 - lat1
	dLng := lng2 - lng1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// FormatDuration renders seconds as a zero-padded "HHh MMm" label
func FormatDuration(secs float64) string {
	total := int(secs)
	hours := total / 3600
	minutes := (total % 3600) / 60
	return fmt.Sprintf("%02dh %02dm", hours, minutes)
}
