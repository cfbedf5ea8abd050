package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/pkg/geo"
	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"
)

const statsKeyPrefix = "forest_density:stats"

// ForestDensityUseCase answers canopy statistics queries.
type ForestDensityUseCase struct {
	repo      repository.ForestDensityRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewForestDensityUseCase creates the use case. cacheRepo may be nil, in
// which case every query goes to the database.
func NewForestDensityUseCase(
	repo repository.ForestDensityRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *ForestDensityUseCase {
	return &ForestDensityUseCase{
		repo:      repo,
		cacheRepo: cacheRepo,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// ComputeStats intersects q.Geometry with the stored cells and aggregates the
// result. Cache failures are logged and never fail the query.
func (uc *ForestDensityUseCase) ComputeStats(ctx context.Context, q domain.StatsQuery) (*domain.StatsResult, error) {
	if len(q.BinEdges) == 0 {
		q.BinEdges = domain.DefaultBinEdges()
	}
	if err := domain.ValidateBinEdges(q.BinEdges); err != nil {
		return nil, err
	}
	if err := domain.ValidateThreshold(q.Threshold); err != nil {
		return nil, err
	}

	key := uc.cacheKey(ctx, q)
	if key != "" {
		cached, err := uc.cacheRepo.GetStats(ctx, key)
		if err != nil {
			uc.logger.Warn("Failed to get stats from cache", zap.Error(err))
		} else if cached != nil {
			uc.logger.Debug("Stats fetched from cache", zap.String("key", key))
			return cached, nil
		}
	}

	areas, err := uc.repo.IntersectByCanopy(ctx, q.Geometry)
	if err != nil {
		return nil, fmt.Errorf("intersect cells: %w", err)
	}

	result := domain.Aggregate(areas, q.Threshold, q.BinEdges)
	result.QueryAreaM2 = geo.Area(q.Geometry)

	uc.logger.Debug("Stats computed",
		zap.Int("canopy_values", len(areas)),
		zap.Int64("pixel_count", result.PixelCount),
		zap.Float64("total_area_m2", result.TotalAreaM2),
	)

	if key != "" {
		if err := uc.cacheRepo.SetStats(ctx, key, result, uc.cacheTTL); err != nil {
			uc.logger.Warn("Failed to cache stats", zap.Error(err))
		}
	}

	return result, nil
}

// GetLegend returns the static legend of the layer.
func (uc *ForestDensityUseCase) GetLegend() domain.Legend {
	return domain.DefaultLegend()
}

// cacheKey returns "" when caching is off or the generation is unknown.
func (uc *ForestDensityUseCase) cacheKey(ctx context.Context, q domain.StatsQuery) string {
	if uc.cacheRepo == nil || uc.cacheTTL <= 0 {
		return ""
	}

	gen, err := uc.cacheRepo.Generation(ctx)
	if err != nil {
		uc.logger.Warn("Failed to read cache generation", zap.Error(err))
		return ""
	}

	geom, err := wkb.Marshal(q.Geometry)
	if err != nil {
		return ""
	}

	h := xxhash.New()
	h.Write(geom)
	h.WriteString("|" + q.Threshold.String())
	for _, e := range q.BinEdges {
		h.WriteString("|" + e.String())
	}

	return statsKeyPrefix + ":" + strconv.FormatInt(gen, 10) + ":" + strconv.FormatUint(h.Sum64(), 16)
}
