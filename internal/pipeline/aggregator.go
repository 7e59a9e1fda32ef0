package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"busfare-compare/internal/distance"
	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/models"
)

// Result is the full output of one aggregation run
type Result struct {
	Routes     []models.Route    `json:"routes"`
	RouteIndex []models.RouteRef `json:"routeIndex"`
}

// ErrZeroDistance is returned when a route's distance resolves to zero,
// which would make price-per-km undefined. This is a data-quality error,
// not a silently infinite metric.
type ErrZeroDistance struct {
	RouteID string
}

func (e *ErrZeroDistance) Error() string {
	return fmt.Sprintf("route %s resolved to zero distance, price-per-km is undefined", e.RouteID)
}

// Aggregator groups listings into unique routes and enriches each route
// with coordinates, distance and price-per-km metrics
type Aggregator struct {
	geocoder geocoding.Geocoder
	distance distance.DistanceResolver
}

// NewAggregator creates an aggregator over the given resolvers
func NewAggregator(geocoder geocoding.Geocoder, dist distance.DistanceResolver) *Aggregator {
	return &Aggregator{geocoder: geocoder, distance: dist}
}

// Aggregate groups listings by parent-location pair, resolves coordinates
// and distance once per unique route, and attaches derived metrics to every
// listing. Groups are processed strictly sequentially to keep external call
// rates predictable. Any resolution failure aborts the whole run.
func (a *Aggregator) Aggregate(ctx context.Context, listings []models.Listing) (*Result, error) {
	result := &Result{
		Routes:     []models.Route{},
		RouteIndex: []models.RouteRef{},
	}
	if len(listings) == 0 {
		return result, nil
	}

	// Partition by composite key, preserving first-seen group order
	var order []models.RouteKey
	groups := make(map[models.RouteKey][]models.Listing)
	for _, listing := range listings {
		key := listing.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], listing)
	}

	log.Printf("[AGGREGATE] Processing %d listings in %d route groups", len(listings), len(order))

	for _, key := range order {
		route, err := a.enrichGroup(ctx, key, groups[key])
		if err != nil {
			log.Printf("[ERROR] Aggregation aborted: route=%s err=%v", key.ID(), err)
			return nil, err
		}

		result.Routes = append(result.Routes, *route)
		result.RouteIndex = append(result.RouteIndex, models.RouteRef{
			ID:            route.ID,
			StartLocation: route.StartLocation,
			EndLocation:   route.EndLocation,
		})
	}

	return result, nil
}

// enrichGroup resolves one route group. Coordinates are resolved even when
// the routing API could answer the distance on its own, since the map layer
// needs start/end markers regardless.
func (a *Aggregator) enrichGroup(ctx context.Context, key models.RouteKey, group []models.Listing) (*models.Route, error) {
	start, err := a.geocoder.Resolve(ctx, key.Origin)
	if err != nil {
		return nil, err
	}
	end, err := a.geocoder.Resolve(ctx, key.Dest)
	if err != nil {
		return nil, err
	}

	dist, err := a.distance.ResolveDistance(ctx, key.Origin, key.Dest)
	if err != nil {
		return nil, err
	}
	if dist.DistanceKm == 0 {
		return nil, &ErrZeroDistance{RouteID: key.ID()}
	}

	enriched := make([]models.Listing, len(group))
	for i, listing := range group {
		listing.DistanceKm = dist.DistanceKm
		listing.RouteDuration = dist.DurationLabel
		listing.PricePerKmLow = models.Round2(listing.LowestPrice / dist.DistanceKm)
		listing.PricePerKmHigh = models.Round2(listing.HighestPrice / dist.DistanceKm)
		enriched[i] = listing
	}

	// Stable: equal metrics keep their CSV order
	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].PricePerKmHigh < enriched[j].PricePerKmHigh
	})

	return &models.Route{
		ID:            key.ID(),
		Key:           key,
		StartLocation: key.Origin,
		EndLocation:   key.Dest,
		StartCoords:   start,
		EndCoords:     end,
		DistanceKm:    dist.DistanceKm,
		Duration:      dist.DurationLabel,
		Listings:      enriched,
	}, nil
}
