package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// MatrixResult contains the raw result of a routing lookup
type MatrixResult struct {
	DistanceMeters float64
	DurationSecs   float64
}

// MatrixClient asks an external routing service for the driving distance
// between two named places. The service performs its own place resolution.
type MatrixClient interface {
	Lookup(ctx context.Context, origin, destination string) (*MatrixResult, error)
}

// ErrDistanceLookupFailed is returned when the routing API fails or yields
// no usable result. Any such failure triggers the haversine fallback.
type ErrDistanceLookupFailed struct {
	Origin      string
	Destination string
	Reason      string
}

func (e *ErrDistanceLookupFailed) Error() string {
	return fmt.Sprintf("distance lookup failed: %s", e.Reason)
}

type matrixClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type matrixResponse struct {
	Status string      `json:"status"`
	Rows   []matrixRow `json:"rows"`
}

type matrixRow struct {
	Elements []matrixElement `json:"elements"`
}

type matrixElement struct {
	Status   string      `json:"status"`
	Distance matrixValue `json:"distance"`
	Duration matrixValue `json:"duration"`
}

type matrixValue struct {
	Value float64 `json:"value"`
}

// NewMatrixClient creates a distance-matrix API client
func NewMatrixClient(baseURL, apiKey string) MatrixClient {
	return &matrixClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *matrixClient) Lookup(ctx context.Context, origin, destination string) (*MatrixResult, error) {
	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("mode", "driving")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	queryURL := fmt.Sprintf("%s/distancematrix/json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		return nil, &ErrDistanceLookupFailed{Origin: origin, Destination: destination, Reason: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Matrix API request failed: origin=%s dest=%s err=%v", origin, destination, err)
		return nil, &ErrDistanceLookupFailed{Origin: origin, Destination: destination, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Matrix API error: origin=%s dest=%s status=%d body=%s", origin, destination, resp.StatusCode, string(body))
		return nil, &ErrDistanceLookupFailed{
			Origin:      origin,
			Destination: destination,
			Reason:      fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var matrixResp matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&matrixResp); err != nil {
		log.Printf("[ERROR] Failed to decode matrix response: origin=%s dest=%s err=%v", origin, destination, err)
		return nil, &ErrDistanceLookupFailed{Origin: origin, Destination: destination, Reason: err.Error()}
	}

	if matrixResp.Status != "OK" {
		return nil, &ErrDistanceLookupFailed{
			Origin:      origin,
			Destination: destination,
			Reason:      fmt.Sprintf("matrix API status: %s", matrixResp.Status),
		}
	}

	if len(matrixResp.Rows) == 0 || len(matrixResp.Rows[0].Elements) == 0 {
		return nil, &ErrDistanceLookupFailed{Origin: origin, Destination: destination, Reason: "empty result set"}
	}

	element := matrixResp.Rows[0].Elements[0]
	if element.Status != "OK" {
		return nil, &ErrDistanceLookupFailed{
			Origin:      origin,
			Destination: destination,
			Reason:      fmt.Sprintf("element status: %s", element.Status),
		}
	}

	log.Printf("[MATRIX] Distance: origin=%s dest=%s meters=%.0f secs=%.0f",
		origin, destination, element.Distance.Value, element.Duration.Value)
	return &MatrixResult{
		DistanceMeters: element.Distance.Value,
		DurationSecs:   element.Duration.Value,
	}, nil
}
