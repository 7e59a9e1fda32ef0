package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"busfare-compare/internal/models"
)

type nominatimGeocoder struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *time.Ticker
	ready       chan struct{}
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a live geocoder backed by the Nominatim API,
// rate limited to one request per second per its usage policy.
func NewNominatimGeocoder(baseURL string) Geocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	// One primed token so the first request goes out immediately; the
	// ticker paces everything after it
	ready := make(chan struct{}, 1)
	ready <- struct{}{}
	return &nominatimGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: time.NewTicker(1 * time.Second),
		ready:       ready,
	}
}

func (g *nominatimGeocoder) Resolve(ctx context.Context, place string) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}
	select {
	case <-g.ready:
	case <-g.rateLimiter.C:
	case <-ctx.Done():
		return models.Coordinates{}, ctx.Err()
	}

	queryURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(place))
	log.Printf("[GEOCODING] Request: place=%s url=%s", place, queryURL)

	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindUnavailable, Reason: err.Error()}
	}

	req.Header.Set("User-Agent", "BusFareCompare/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Geocoding API request failed: place=%s err=%v", place, err)
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindUnavailable, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Geocoding API error: place=%s status=%d body=%s", place, resp.StatusCode, string(body))
		return models.Coordinates{}, &ResolutionError{
			Place:  place,
			Kind:   kindForStatus(resp.StatusCode),
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		log.Printf("[ERROR] Failed to decode geocoding response: place=%s err=%v", place, err)
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindUnavailable, Reason: err.Error()}
	}

	if len(results) == 0 {
		log.Printf("[ERROR] No geocoding results found: place=%s", place)
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindNotFound, Reason: "no results found"}
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindUnavailable, Reason: "invalid latitude"}
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindUnavailable, Reason: "invalid longitude"}
	}

	coords := models.Coordinates{Lat: lat, Lng: lng}
	if !coords.Valid() {
		log.Printf("[ERROR] Out-of-range coordinates in geocoding response: place=%s lat=%s lng=%s", place, result.Lat, result.Lon)
		return models.Coordinates{}, &ResolutionError{Place: place, Kind: KindUnavailable, Reason: "coordinates out of range"}
	}

	log.Printf("[GEOCODING] Response: place=%s lat=%.6f lng=%.6f display_name=%s", place, lat, lng, result.DisplayName)
	return coords, nil
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAccessDenied
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnavailable
	}
}
