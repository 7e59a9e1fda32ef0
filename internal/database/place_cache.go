package database

import (
	"context"
	"database/sql"
	"fmt"

	"busfare-compare/internal/models"
)

type placeCacheRepository struct {
	db *sql.DB
}

func (r *placeCacheRepository) Get(ctx context.Context, place string) (*models.PlaceCacheEntry, error) {
	query := `SELECT place, lat, lng FROM place_cache WHERE place = ?`

	var entry models.PlaceCacheEntry
	err := r.db.QueryRowContext(ctx, query, place).Scan(&entry.Place, &entry.Coords.Lat, &entry.Coords.Lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached place: %w", err)
	}

	return &entry, nil
}

func (r *placeCacheRepository) Set(ctx context.Context, entry *models.PlaceCacheEntry) error {
	query := `
		INSERT INTO place_cache (place, lat, lng)
		VALUES (?, ?, ?)
		ON CONFLICT(place)
		DO UPDATE SET lat = excluded.lat, lng = excluded.lng, cached_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, entry.Place, entry.Coords.Lat, entry.Coords.Lng)
	if err != nil {
		return fmt.Errorf("failed to set cached place: %w", err)
	}

	return nil
}

func (r *placeCacheRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM place_cache`); err != nil {
		return fmt.Errorf("failed to clear place cache: %w", err)
	}
	return nil
}
