package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"busfare-compare/internal/models"
)

// Recognized CSV column headers, matching the scraper export schema.
const (
	colBusID           = "Bus ID"
	colBusName         = "Bus Name"
	colBusType         = "Bus Type"
	colDepartureTime   = "Departure Time"
	colArrivalTime     = "Arrival Time"
	colJourneyDuration = "Journey Duration"
	colLowestPrice     = "Lowest Price(INR)"
	colHighestPrice    = "Highest Price(INR)"
	colStartingPoint   = "Starting Point"
	colDestination     = "Destination"
	colStartParent     = "Starting Point Parent"
	colDestParent      = "Destination Point Parent"
)

// Defaults applied to missing or unparsable fields. Malformed rows degrade
// to defaulted records instead of aborting the batch.
const (
	defaultName     = "Unknown"
	defaultBusType  = "Standard"
	defaultClock    = "--:--"
	defaultDuration = "0h 0m"
)

// ReadListings decodes a CSV export into normalized listings. The header row
// is required; unrecognized columns are ignored and missing recognized
// columns fall back to per-field defaults. Zero data rows yield an empty
// slice and a nil error.
func ReadListings(r io.Reader) ([]models.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing CSV header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	listings := []models.Listing{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken row is a malformed row, not a batch
			// failure. Transport errors persist across reads and must
			// abort instead.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		listings = append(listings, normalizeRow(record, cols))
	}

	return listings, nil
}

// MergeListings concatenates per-route CSV exports into one dataset,
// preserving the order of the batches and of the rows within them.
func MergeListings(batches ...[]models.Listing) []models.Listing {
	merged := []models.Listing{}
	for _, batch := range batches {
		merged = append(merged, batch...)
	}
	return merged
}

// ResequenceIDs reassigns Bus IDs sequentially from 1 in listing order.
// Merged exports carry per-file IDs that collide across files.
func ResequenceIDs(listings []models.Listing) {
	for i := range listings {
		listings[i].BusID = int64(i + 1)
	}
}

// normalizeRow converts one raw record into a canonical Listing
func normalizeRow(record []string, cols map[string]int) models.Listing {
	field := func(col string) (string, bool) {
		idx, ok := cols[col]
		if !ok || idx >= len(record) {
			return "", false
		}
		v := strings.TrimSpace(record[idx])
		if v == "" {
			return "", false
		}
		return v, true
	}

	stringField := func(col, fallback string) string {
		if v, ok := field(col); ok {
			return v
		}
		return fallback
	}

	priceField := func(col string) float64 {
		v, ok := field(col)
		if !ok {
			return 0
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil || price < 0 {
			return 0
		}
		return price
	}

	idField := func(col string) int64 {
		v, ok := field(col)
		if !ok {
			return 0
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			return 0
		}
		return id
	}

	return models.Listing{
		BusID:           idField(colBusID),
		BusName:         stringField(colBusName, defaultName),
		BusType:         stringField(colBusType, defaultBusType),
		DepartureTime:   stringField(colDepartureTime, defaultClock),
		ArrivalTime:     stringField(colArrivalTime, defaultClock),
		JourneyDuration: stringField(colJourneyDuration, defaultDuration),
		LowestPrice:     priceField(colLowestPrice),
		HighestPrice:    priceField(colHighestPrice),
		StartingPoint:   stringField(colStartingPoint, defaultName),
		Destination:     stringField(colDestination, defaultName),
		OriginParent:    stringField(colStartParent, defaultName),
		DestParent:      stringField(colDestParent, defaultName),
	}
}
