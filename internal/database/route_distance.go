package database

import (
	"context"
	"database/sql"
	"fmt"

	"busfare-compare/internal/models"
)

type routeDistanceRepository struct {
	db *sql.DB
}

func (r *routeDistanceRepository) Get(ctx context.Context, origin, destination string) (*models.RouteDistanceEntry, error) {
	query := `
		SELECT origin, destination, distance_meters, duration_secs
		FROM route_distance_cache
		WHERE origin = ? AND destination = ?
	`

	var entry models.RouteDistanceEntry
	err := r.db.QueryRowContext(ctx, query, origin, destination).Scan(
		&entry.Origin, &entry.Destination, &entry.DistanceMeters, &entry.DurationSecs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached distance: %w", err)
	}

	return &entry, nil
}

func (r *routeDistanceRepository) Set(ctx context.Context, entry *models.RouteDistanceEntry) error {
	query := `
		INSERT INTO route_distance_cache (origin, destination, distance_meters, duration_secs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(origin, destination)
		DO UPDATE SET distance_meters = excluded.distance_meters, duration_secs = excluded.duration_secs, cached_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Origin, entry.Destination, entry.DistanceMeters, entry.DurationSecs,
	)
	if err != nil {
		return fmt.Errorf("failed to set cached distance: %w", err)
	}

	return nil
}

func (r *routeDistanceRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM route_distance_cache`); err != nil {
		return fmt.Errorf("failed to clear distance cache: %w", err)
	}
	return nil
}
