package repository

import (
	"context"
	"time"

	"github.com/forest-density-service/internal/domain"
)

// CacheRepository defines cache operations
type CacheRepository interface {
	// Get returns the cached value for key, nil on miss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key from the cache
	Delete(ctx context.Context, key string) error

	// GetStats returns a cached aggregation result, nil on miss
	GetStats(ctx context.Context, key string) (*domain.StatsResult, error)

	// SetStats caches an aggregation result
	SetStats(ctx context.Context, key string, stats *domain.StatsResult, ttl time.Duration) error

	// Generation returns the current data generation of the cell store
	Generation(ctx context.Context) (int64, error)

	// BumpGeneration marks the cell store as changed
	BumpGeneration(ctx context.Context) (int64, error)
}
