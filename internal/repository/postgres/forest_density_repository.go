package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/pkg/geo"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"go.uber.org/zap"
)

type forestDensityRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewForestDensityRepository(db *DB, logger *zap.Logger) repository.ForestDensityRepository {
	return &forestDensityRepository{
		db:     db,
		logger: logger,
	}
}

const insertCellQuery = `
	INSERT INTO forest_density_cells (geom, canopy_pct, source, tile_id, updated_at)
	VALUES (ST_GeomFromEWKB($1), $2, $3, $4, now())`

// InsertBatch writes cells in one transaction; either all rows land or none.
func (r *forestDensityRepository) InsertBatch(ctx context.Context, cells []*domain.ForestDensityCell, ignoreConflicts bool) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}

	query := insertCellQuery
	if ignoreConflicts {
		query += " ON CONFLICT DO NOTHING"
	}

	var inserted int64
	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, cell := range cells {
			wkb, err := ewkb.Marshal(cell.Geometry, geo.SRIDWGS84)
			if err != nil {
				return fmt.Errorf("encode geometry of row %d: %w", i, err)
			}

			res, err := stmt.ExecContext(ctx, wkb, cell.CanopyPct, cell.Source, cell.TileID)
			if err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("batch inserted",
		zap.Int("rows", len(cells)),
		zap.Int64("inserted", inserted),
	)
	return inserted, nil
}

// DeleteBySource removes every cell of one source label.
func (r *forestDensityRepository) DeleteBySource(ctx context.Context, source string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM forest_density_cells WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("delete source %q: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *forestDensityRepository) CountBySource(ctx context.Context, source string) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM forest_density_cells WHERE source = $1`, source); err != nil {
		return 0, fmt.Errorf("count source %q: %w", source, err)
	}
	return n, nil
}

// IntersectByCanopy groups the geodesic intersection area of every cell that
// overlaps polygon by canopy value. Cells touching the polygon only along an
// edge or a point contribute no area and are left out.
func (r *forestDensityRepository) IntersectByCanopy(ctx context.Context, polygon orb.Polygon) ([]domain.CanopyArea, error) {
	wkb, err := ewkb.Marshal(polygon, geo.SRIDWGS84)
	if err != nil {
		return nil, fmt.Errorf("encode query geometry: %w", err)
	}

	query := `
		WITH q AS (
			SELECT ST_GeomFromEWKB($1) AS geom
		),
		matched AS (
			SELECT
				c.canopy_pct,
				ST_Area(ST_Intersection(c.geom::geography, q.geom::geography)) AS area_m2
			FROM forest_density_cells c, q
			WHERE c.geom && q.geom
			  AND ST_Intersects(c.geom, q.geom)
		)
		SELECT
			canopy_pct,
			SUM(area_m2) AS area_m2,
			COUNT(*) AS cell_count
		FROM matched
		WHERE area_m2 > 0
		GROUP BY canopy_pct
		ORDER BY canopy_pct
	`

	var areas []domain.CanopyArea
	if err := r.db.SelectContext(ctx, &areas, query, wkb); err != nil {
		if isTopologyError(err) {
			r.logger.Warn("query polygon rejected by GEOS", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrQueryGeometry, err)
		}
		r.logger.Error("failed to intersect forest density cells", zap.Error(err))
		return nil, fmt.Errorf("intersect by canopy: %w", err)
	}

	return areas, nil
}

// isTopologyError reports GEOS failures on geometry PostGIS could not
// intersect, raised as internal_error (XX000).
func isTopologyError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "XX000" && strings.Contains(pgErr.Message, "TopologyException")
}
