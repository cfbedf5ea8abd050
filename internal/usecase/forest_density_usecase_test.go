package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/usecase"
)

func square(lon, lat, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon, lat}, {lon, lat + size}, {lon + size, lat + size}, {lon + size, lat}, {lon, lat},
	}}
}

func twoCellAreas() []domain.CanopyArea {
	return []domain.CanopyArea{
		{CanopyPct: decimal.RequireFromString("42.5"), AreaM2: 1.23e10, CellCount: 1},
		{CanopyPct: decimal.RequireFromString("55.1"), AreaM2: 1.23e10, CellCount: 1},
	}
}

func defaultQuery(geom orb.Polygon) domain.StatsQuery {
	return domain.StatsQuery{
		Geometry:  geom,
		Threshold: domain.DefaultThreshold,
		BinEdges:  domain.DefaultBinEdges(),
	}
}

func TestForestDensityUseCase_ComputeStats(t *testing.T) {
	ctx := context.Background()

	t.Run("two cells without cache", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		uc := usecase.NewForestDensityUseCase(repo, nil, zap.NewNop(), 0)

		query := square(0, 0, 2)
		repo.On("IntersectByCanopy", ctx, query).Return(twoCellAreas(), nil)

		result, err := uc.ComputeStats(ctx, defaultQuery(query))
		require.NoError(t, err)

		assert.InDelta(t, 48.8, result.MeanCanopy, 1e-9)
		assert.InDelta(t, 2.46e10, result.TotalAreaM2, 1)
		assert.Zero(t, result.AreaAboveThresholdM2)
		assert.Equal(t, int64(2), result.PixelCount)
		assert.InDelta(t, 2.46e10, result.AreaByClass[2].AreaM2, 1)
		assert.Greater(t, result.QueryAreaM2, 4.9e10)
		repo.AssertExpectations(t)
	})

	t.Run("disjoint query", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		uc := usecase.NewForestDensityUseCase(repo, nil, zap.NewNop(), 0)

		repo.On("IntersectByCanopy", ctx, mock.Anything).Return([]domain.CanopyArea{}, nil)

		result, err := uc.ComputeStats(ctx, defaultQuery(square(50, 50, 1)))
		require.NoError(t, err)

		assert.Zero(t, result.MeanCanopy)
		assert.Zero(t, result.TotalAreaM2)
		assert.Zero(t, result.PixelCount)
		assert.Len(t, result.AreaByClass, 5)
	})

	t.Run("empty bins fall back to defaults", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		uc := usecase.NewForestDensityUseCase(repo, nil, zap.NewNop(), 0)

		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(twoCellAreas(), nil)

		result, err := uc.ComputeStats(ctx, domain.StatsQuery{Geometry: square(0, 0, 1), Threshold: decimal.NewFromInt(50)})
		require.NoError(t, err)

		assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, result.BinEdges)
		assert.InDelta(t, 1.23e10, result.AreaAboveThresholdM2, 1)
	})

	t.Run("invalid bins never reach the repository", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		uc := usecase.NewForestDensityUseCase(repo, nil, zap.NewNop(), 0)

		q := defaultQuery(square(0, 0, 1))
		q.BinEdges = []decimal.Decimal{decimal.NewFromInt(0), decimal.NewFromInt(40), decimal.NewFromInt(20), decimal.NewFromInt(100)}

		_, err := uc.ComputeStats(ctx, q)
		assert.ErrorIs(t, err, domain.ErrBinsNotAscending)
		repo.AssertNotCalled(t, "IntersectByCanopy", mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		uc := usecase.NewForestDensityUseCase(repo, nil, zap.NewNop(), 0)

		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 1)))
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("idempotent", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		uc := usecase.NewForestDensityUseCase(repo, nil, zap.NewNop(), 0)

		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(twoCellAreas(), nil)

		first, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 2)))
		require.NoError(t, err)
		second, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 2)))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestForestDensityUseCase_ComputeStats_Cache(t *testing.T) {
	ctx := context.Background()
	isStatsKey := mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "forest_density:stats:7:")
	})

	t.Run("cache hit skips the database", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		cache := &MockCacheRepository{}
		uc := usecase.NewForestDensityUseCase(repo, cache, zap.NewNop(), time.Hour)

		cached := &domain.StatsResult{MeanCanopy: 12}
		cache.On("Generation", ctx).Return(int64(7), nil)
		cache.On("GetStats", ctx, isStatsKey).Return(cached, nil)

		result, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 1)))
		require.NoError(t, err)

		assert.Same(t, cached, result)
		repo.AssertNotCalled(t, "IntersectByCanopy", mock.Anything, mock.Anything)
	})

	t.Run("cache miss stores the result", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		cache := &MockCacheRepository{}
		uc := usecase.NewForestDensityUseCase(repo, cache, zap.NewNop(), time.Hour)

		cache.On("Generation", ctx).Return(int64(7), nil)
		cache.On("GetStats", ctx, isStatsKey).Return(nil, nil)
		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(twoCellAreas(), nil)
		cache.On("SetStats", ctx, isStatsKey, mock.AnythingOfType("*domain.StatsResult"), time.Hour).Return(nil)

		_, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 1)))
		require.NoError(t, err)

		cache.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("cache failures do not fail the query", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		cache := &MockCacheRepository{}
		uc := usecase.NewForestDensityUseCase(repo, cache, zap.NewNop(), time.Hour)

		cache.On("Generation", ctx).Return(int64(7), nil)
		cache.On("GetStats", ctx, mock.Anything).Return(nil, errors.New("redis down"))
		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(twoCellAreas(), nil)
		cache.On("SetStats", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		result, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 1)))
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.PixelCount)
	})

	t.Run("unknown generation bypasses the cache", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		cache := &MockCacheRepository{}
		uc := usecase.NewForestDensityUseCase(repo, cache, zap.NewNop(), time.Hour)

		cache.On("Generation", ctx).Return(int64(0), errors.New("redis down"))
		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(twoCellAreas(), nil)

		_, err := uc.ComputeStats(ctx, defaultQuery(square(0, 0, 1)))
		require.NoError(t, err)
		cache.AssertNotCalled(t, "GetStats", mock.Anything, mock.Anything)
		cache.AssertNotCalled(t, "SetStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("different parameters use different keys", func(t *testing.T) {
		repo := &MockForestDensityRepository{}
		cache := &MockCacheRepository{}
		uc := usecase.NewForestDensityUseCase(repo, cache, zap.NewNop(), time.Hour)

		var keys []string
		cache.On("Generation", ctx).Return(int64(7), nil)
		cache.On("GetStats", ctx, mock.Anything).Run(func(args mock.Arguments) {
			keys = append(keys, args.String(1))
		}).Return(nil, nil)
		repo.On("IntersectByCanopy", ctx, mock.Anything).Return(twoCellAreas(), nil)
		cache.On("SetStats", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		q := defaultQuery(square(0, 0, 1))
		_, err := uc.ComputeStats(ctx, q)
		require.NoError(t, err)

		q.Threshold = decimal.NewFromInt(30)
		_, err = uc.ComputeStats(ctx, q)
		require.NoError(t, err)

		_, err = uc.ComputeStats(ctx, defaultQuery(square(0, 0, 2)))
		require.NoError(t, err)

		require.Len(t, keys, 3)
		assert.NotEqual(t, keys[0], keys[1])
		assert.NotEqual(t, keys[0], keys[2])
	})
}

func TestForestDensityUseCase_GetLegend(t *testing.T) {
	uc := usecase.NewForestDensityUseCase(&MockForestDensityRepository{}, nil, zap.NewNop(), 0)

	legend := uc.GetLegend()

	assert.Equal(t, "Forest canopy cover (%)", legend.Title)
	assert.Equal(t, "Canopy cover percentage per grid cell.", legend.Description)
	assert.Equal(t, []string{"#f7fcf5", "#c7e9c0", "#74c476", "#31a354", "#006d2c"}, legend.Colors)
	assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, legend.BinEdges)

	legend.Colors[0] = "#000000"
	assert.Equal(t, "#f7fcf5", uc.GetLegend().Colors[0])
}
