package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"busfare-compare/internal/config"
	"busfare-compare/internal/database"
	"busfare-compare/internal/distance"
	"busfare-compare/internal/geocoding"
	"busfare-compare/internal/handlers"
	"busfare-compare/internal/pipeline"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	store      *database.Store // nil for the memory cache backend
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(cfg *config.Config) (*Server, error) {
	var store *database.Store
	var placeCache database.PlaceCacheRepository
	var routeDistance database.RouteDistanceRepository

	if cfg.Cache.Backend == config.CacheSQLite {
		log.Printf("Initializing sqlite cache store at %s...", cfg.Cache.SQLitePath)
		s, err := database.New(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache store: %w", err)
		}
		store = s
		placeCache = s.PlaceCache()
		routeDistance = s.RouteDistance()
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

	handler := &handlers.Handler{
		Geocoder:   geocoder,
		Aggregator: aggregator,
	}
	if store != nil {
		handler.Health = func(r *http.Request) error {
			return store.HealthCheck(r.Context())
		}
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/aggregate", handler.HandleAggregate).Methods(http.MethodPost)
	router.HandleFunc("/api/geocode", handler.HandleGeocode).Methods(http.MethodGet)
	router.HandleFunc("/api/health", handler.HandleHealth).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      loggingMiddleware(corsHandler.Handler(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		store:      store,
		addr:       cfg.Server.Addr,
	}, nil
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// loggingMiddleware logs each request with method, path, status and duration
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[HTTP] %s %s status=%d duration=%v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
