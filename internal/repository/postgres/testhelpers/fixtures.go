package testhelpers

import (
	"github.com/forest-density-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

// Square returns a closed axis-aligned polygon with its lower left corner at
// (lon, lat).
func Square(lon, lat, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon, lat},
		{lon, lat + size},
		{lon + size, lat + size},
		{lon + size, lat},
		{lon, lat},
	}}
}

// Cell builds a valid cell or panics; fixtures are always valid.
func Cell(geom orb.Polygon, canopy, source, tileID string) *domain.ForestDensityCell {
	cell, err := domain.NewForestDensityCell(geom, decimal.RequireFromString(canopy), source, tileID)
	if err != nil {
		panic(err)
	}
	return cell
}
