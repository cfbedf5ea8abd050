package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/repository/cache"
)

func getTestRedis(t *testing.T) *cache.Redis {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use DB 1 for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	client.Del(ctx, "forest_density:generation", "test:stats:a")
	t.Cleanup(func() { client.Close() })

	return cache.NewRedisFromClient(client, zap.NewNop())
}

func TestCacheRepository_StatsRoundTrip(t *testing.T) {
	repo := cache.NewCacheRepository(getTestRedis(t))
	ctx := context.Background()

	miss, err := repo.GetStats(ctx, "test:stats:a")
	require.NoError(t, err)
	assert.Nil(t, miss)

	stats := &domain.StatsResult{
		MeanCanopy:  48.8,
		TotalAreaM2: 2.46e10,
		PixelCount:  2,
		BinEdges:    []float64{0, 20, 40, 60, 80, 100},
		Threshold:   60,
		AreaByClass: []domain.AreaClass{{Min: 40, Max: 60, AreaM2: 2.46e10}},
	}
	require.NoError(t, repo.SetStats(ctx, "test:stats:a", stats, time.Minute))

	got, err := repo.GetStats(ctx, "test:stats:a")
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	require.NoError(t, repo.Delete(ctx, "test:stats:a"))
	got, err = repo.GetStats(ctx, "test:stats:a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheRepository_Generation(t *testing.T) {
	repo := cache.NewCacheRepository(getTestRedis(t))
	ctx := context.Background()

	gen, err := repo.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	bumped, err := repo.BumpGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bumped)

	gen, err = repo.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}
