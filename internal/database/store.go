package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"busfare-compare/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// PlaceCacheRepository handles persistent place-name resolutions
type PlaceCacheRepository interface {
	Get(ctx context.Context, place string) (*models.PlaceCacheEntry, error)
	Set(ctx context.Context, entry *models.PlaceCacheEntry) error
	Clear(ctx context.Context) error
}

// RouteDistanceRepository handles persistent distance lookups keyed by
// the origin/destination name pair
type RouteDistanceRepository interface {
	Get(ctx context.Context, origin, destination string) (*models.RouteDistanceEntry, error)
	Set(ctx context.Context, entry *models.RouteDistanceEntry) error
	Clear(ctx context.Context) error
}

// Store wraps the sqlite connection and provides access to the cache
// repositories
type Store struct {
	conn          *sql.DB
	placeCache    PlaceCacheRepository
	routeDistance RouteDistanceRepository
}

func (s *Store) PlaceCache() PlaceCacheRepository       { return s.placeCache }
func (s *Store) RouteDistance() RouteDistanceRepository { return s.routeDistance }

// New opens the sqlite database at dbPath and runs migrations
func New(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		conn:          conn,
		placeCache:    &placeCacheRepository{db: conn},
		routeDistance: &routeDistanceRepository{db: conn},
	}, nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// HealthCheck verifies the database connection is alive
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}
