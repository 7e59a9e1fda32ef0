// Command aggregate runs the enrichment pipeline once over one or more CSV
// exports and prints the resulting route set as JSON. Multiple -csv flags
// are merged in order, the way per-route scraper exports are combined into
// one dataset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"busfare-compare/internal/config"
	"busfare-compare/internal/database"
	"busfare-compare/internal/distance"
	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/ingest"
	"busfare-compare/internal/models"
	"busfare-compare/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

// csvPaths collects repeated -csv flags
type csvPaths []string

func (p *csvPaths) String() string { return strings.Join(*p, ",") }

func (p *csvPaths) Set(value string) error {
	*p = append(*p, value)
	return nil
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	var paths csvPaths
	flag.Var(&paths, "csv", "path to a CSV export, or - for stdin; repeat to merge several exports in order")
	resequence := flag.Bool("resequence-ids", false, "reassign Bus IDs sequentially from 1 across the merged dataset")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(paths) == 0 {
		paths = csvPaths{"-"}
	}

	batches := make([][]models.Listing, 0, len(paths))
	for _, path := range paths {
		batch, err := readListingsFile(path)
		if err != nil {
			return err
		}
		batches = append(batches, batch)
	}

	listings := ingest.MergeListings(batches...)
	if *resequence {
		ingest.ResequenceIDs(listings)
	}

	var placeCache database.PlaceCacheRepository
	var routeDistance database.RouteDistanceRepository
	if cfg.Cache.Backend == config.CacheSQLite {
		store, err := database.New(cfg.Cache.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to initialize cache store: %w", err)
		}
		defer store.Close()
		placeCache = store.PlaceCache()
		routeDistance = store.RouteDistance()
	}

	var base geocoding.Geocoder
	switch cfg.Geocoder.Mode {
	case config.GeocoderStatic:
		base = geocoding.NewStaticGeocoder(cfg.StaticPlaces())
	default:
		base = geocoding.NewNominatimGeocoder(cfg.Geocoder.NominatimURL)
	}
	geocoder := geocoding.NewCachedGeocoder(base, placeCache)

	matrix := distance.NewMatrixClient(cfg.Matrix.BaseURL, cfg.Matrix.APIKey)
	resolver := distance.NewResolver(matrix, geocoder, routeDistance)
	aggregator := pipeline.NewAggregator(geocoder, resolver)

	result, err := aggregator.Aggregate(context.Background(), listings)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readListingsFile(path string) ([]models.Listing, error) {
	var input io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV: %w", err)
		}
		defer f.Close()
		input = f
	}

	listings, err := ingest.ReadListings(input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return listings, nil
}
