package repository

import (
	"context"

	"github.com/forest-density-service/internal/domain"
	"github.com/paulmach/orb"
)

// ForestDensityRepository - spatial store of forest density cells
type ForestDensityRepository interface {
	// InsertBatch inserts the cells in one transaction. A failure rolls back this batch only.
	// With ignoreConflicts rows violating a constraint are dropped instead of failing the batch.
	InsertBatch(ctx context.Context, cells []*domain.ForestDensityCell, ignoreConflicts bool) (int64, error)

	// DeleteBySource removes every cell of a source in one transaction and returns the count
	DeleteBySource(ctx context.Context, source string) (int64, error)

	// CountBySource returns the number of stored cells of a source
	CountBySource(ctx context.Context, source string) (int64, error)

	// IntersectByCanopy intersects polygon with the stored cells and returns,
	// per distinct canopy value, the geodesic intersection area (m2) and the
	// number of matched cells. Zero-area intersections are excluded.
	IntersectByCanopy(ctx context.Context, polygon orb.Polygon) ([]domain.CanopyArea, error)
}
