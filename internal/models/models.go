package models

import (
	"fmt"
	"math"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within the WGS84 ranges
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m precision)
func RoundCoordinate(coord float64) float64 {
	return math.Round(coord*100000) / 100000
}

// Round2 rounds a value to 2 decimal places. Distances and price-per-km
// metrics are stored with this precision throughout.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Listing represents one bus-operator offering between two boarding points
type Listing struct {
	BusID           int64   `json:"bus_id"`
	BusName         string  `json:"bus_name"`
	BusType         string  `json:"bus_type"`
	DepartureTime   string  `json:"departure_time"`
	ArrivalTime     string  `json:"arrival_time"`
	JourneyDuration string  `json:"journey_duration"`
	LowestPrice     float64 `json:"lowest_price"`
	HighestPrice    float64 `json:"highest_price"`
	StartingPoint   string  `json:"starting_point"`
	Destination     string  `json:"destination"`
	OriginParent    string  `json:"origin_parent"`
	DestParent      string  `json:"dest_parent"`

	// Enrichment fields, populated by the aggregator
	DistanceKm     float64 `json:"distance_km"`
	RouteDuration  string  `json:"route_duration"`
	PricePerKmLow  float64 `json:"price_per_km_low"`
	PricePerKmHigh float64 `json:"price_per_km_high"`
}

// Key returns the aggregation key for the listing
func (l *Listing) Key() RouteKey {
	return RouteKey{Origin: l.OriginParent, Dest: l.DestParent}
}

// RouteKey identifies a route by its parent-location pair. Grouping uses
// this struct rather than the joined ID string so parent names containing
// hyphens cannot collide.
type RouteKey struct {
	Origin string `json:"origin"`
	Dest   string `json:"dest"`
}

// ID returns the presentation-facing route identifier
func (k RouteKey) ID() string {
	return fmt.Sprintf("%s-%s", k.Origin, k.Dest)
}

// Route is an aggregation of listings sharing one parent-location pair
type Route struct {
	ID            string      `json:"id"`
	Key           RouteKey    `json:"key"`
	StartLocation string      `json:"start_location"`
	EndLocation   string      `json:"end_location"`
	StartCoords   Coordinates `json:"start_coords"`
	EndCoords     Coordinates `json:"end_coords"`
	DistanceKm    float64     `json:"distance_km"`
	Duration      string      `json:"duration"`
	Listings      []Listing   `json:"listings"`
}

// RouteRef is a lightweight index entry for presentation-layer selectors
type RouteRef struct {
	ID            string `json:"id"`
	StartLocation string `json:"start_location"`
	EndLocation   string `json:"end_location"`
}

// PlaceCacheEntry is a cached place-name resolution
type PlaceCacheEntry struct {
	Place  string      `json:"place"`
	Coords Coordinates `json:"coords"`
}

// RouteDistanceEntry is a cached distance lookup between two named places
type RouteDistanceEntry struct {
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationSecs   float64 `json:"duration_secs"`
}
