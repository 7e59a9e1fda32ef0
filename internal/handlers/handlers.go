package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/ingest"
	"busfare-compare/internal/pipeline"
)

// maxCSVBytes bounds uploaded CSV size
const maxCSVBytes = 16 << 20

// Handler provides common handler utilities and dependencies
type Handler struct {
	Geocoder   geocoding.Geocoder
	Aggregator *pipeline.Aggregator
	Health     func(r *http.Request) error
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// HandleAggregate handles POST /api/aggregate. The request body carries the
// raw CSV export (a multipart "file" field is also accepted); the response
// is the enriched route set plus the selector index.
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	body, err := h.csvBody(w, r)
	if err != nil {
		log.Printf("[ERROR] Failed to read CSV body: err=%v", err)
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read CSV body")
		return
	}

	listings, err := ingest.ReadListings(body)
	if err != nil {
		log.Printf("[ERROR] Failed to parse CSV: err=%v", err)
		h.writeError(w, http.StatusBadRequest, "BAD_CSV", err.Error())
		return
	}

	result, err := h.Aggregator.Aggregate(r.Context(), listings)
	if err != nil {
		h.writeAggregateError(w, err)
		return
	}

	log.Printf("[HTTP] POST /api/aggregate: listings=%d routes=%d", len(listings), len(result.Routes))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) csvBody(w http.ResponseWriter, r *http.Request) (io.Reader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVBytes)
	if err := r.ParseMultipartForm(maxCSVBytes); err == nil {
		file, _, err := r.FormFile("file")
		if err == nil {
			return file, nil
		}
	}
	return r.Body, nil
}

func (h *Handler) writeAggregateError(w http.ResponseWriter, err error) {
	var resErr *geocoding.ResolutionError
	if errors.As(err, &resErr) {
		status := http.StatusBadGateway
		code := "RESOLUTION_FAILED"
		switch resErr.Kind {
		case geocoding.KindNotFound:
			status = http.StatusUnprocessableEntity
			code = "LOCATION_NOT_FOUND"
		case geocoding.KindAccessDenied:
			code = "ACCESS_DENIED"
		case geocoding.KindQuotaExceeded:
			status = http.StatusTooManyRequests
			code = "QUOTA_EXCEEDED"
		}
		h.writeError(w, status, code, resErr.UserMessage())
		return
	}

	var zeroErr *pipeline.ErrZeroDistance
	if errors.As(err, &zeroErr) {
		h.writeError(w, http.StatusUnprocessableEntity, "ZERO_DISTANCE", zeroErr.Error())
		return
	}

	log.Printf("[ERROR] Aggregation failed: err=%v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL", "aggregation failed, try again")
}

// HandleGeocode handles GET /api/geocode. It resolves a single place name,
// used by the map layer to drop ad-hoc pins.
func (h *Handler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	if place == "" {
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "place parameter is required")
		return
	}

	coords, err := h.Geocoder.Resolve(r.Context(), place)
	if err != nil {
		h.writeAggregateError(w, err)
		return
	}

	log.Printf("[HTTP] GET /api/geocode: place=%s lat=%.6f lng=%.6f", place, coords.Lat, coords.Lng)
	h.writeJSON(w, http.StatusOK, coords)
}

// HandleHealth handles GET /api/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", err.Error())
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
