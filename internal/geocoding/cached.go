package geocoding

import (
	"context"
	"log"

	gocache "github.com/patrickmn/go-cache"

	"busfare-compare/internal/database"
	"busfare-compare/internal/models"
)

// CachedGeocoder wraps another geocoder with a process-scoped place cache so
// each distinct place name triggers at most one outbound lookup. Keys are
// the exact input strings, case-sensitive, never evicted. An optional
// persistent store carries resolutions across process restarts.
type CachedGeocoder struct {
	inner Geocoder
	cache *gocache.Cache
	store database.PlaceCacheRepository // may be nil
}

// NewCachedGeocoder wraps inner with an in-memory cache. store may be nil
// for memory-only caching.
func NewCachedGeocoder(inner Geocoder, store database.PlaceCacheRepository) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: gocache.New(gocache.NoExpiration, 0),
		store: store,
	}
}

func (g *CachedGeocoder) Resolve(ctx context.Context, place string) (models.Coordinates, error) {
	if cached, ok := g.cache.Get(place); ok {
		return cached.(models.Coordinates), nil
	}

	if g.store != nil {
		entry, err := g.store.Get(ctx, place)
		if err != nil {
			// A broken cache must not fail resolution; the inner
			// geocoder still answers, matching the write path below
			log.Printf("[GEOCODING] Place cache read failed, continuing without it: place=%s err=%v", place, err)
		}
		if entry != nil {
			g.cache.Set(place, entry.Coords, gocache.NoExpiration)
			return entry.Coords, nil
		}
	}

	coords, err := g.inner.Resolve(ctx, place)
	if err != nil {
		// Only successes are cached; a failed name stays eligible for
		// resolution on the next pipeline run.
		return models.Coordinates{}, err
	}

	g.cache.Set(place, coords, gocache.NoExpiration)

	if g.store != nil {
		if err := g.store.Set(ctx, &models.PlaceCacheEntry{Place: place, Coords: coords}); err != nil {
			log.Printf("[GEOCODING] Failed to persist place cache entry: place=%s err=%v", place, err)
		}
	}

	return coords, nil
}
