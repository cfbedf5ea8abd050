package domain

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

var (
	ErrTooFewBinEdges      = errors.New("provide at least two bin edges")
	ErrBinsNotAscending    = errors.New("bins must be in ascending order")
	ErrBinsBounds          = errors.New("bins must start at 0 and end at 100")
	ErrBinEdgeOutOfRange   = errors.New("bin edges must be between 0 and 100")
	ErrThresholdOutOfRange = errors.New("threshold must be between 0 and 100")

	// ErrQueryGeometry marks a query polygon the database could not intersect.
	ErrQueryGeometry = errors.New("query geometry rejected by the database")
)

var defaultBinEdges = []int64{0, 20, 40, 60, 80, 100}

// DefaultThreshold is used when the request does not specify one.
var DefaultThreshold = decimal.NewFromInt(60)

// DefaultBinEdges returns a fresh copy of the default histogram edges.
func DefaultBinEdges() []decimal.Decimal {
	edges := make([]decimal.Decimal, len(defaultBinEdges))
	for i, e := range defaultBinEdges {
		edges[i] = decimal.NewFromInt(e)
	}
	return edges
}

// ValidateBinEdges checks that edges are within [0, 100], ascending, start at
// 0, end at 100 and describe at least one interval.
func ValidateBinEdges(edges []decimal.Decimal) error {
	if len(edges) < 2 {
		return ErrTooFewBinEdges
	}
	for i, e := range edges {
		if err := CheckDecimalExponent(e); err != nil {
			return err
		}
		if e.LessThan(CanopyMin) || e.GreaterThan(CanopyMax) {
			return ErrBinEdgeOutOfRange
		}
		if i > 0 && e.LessThan(edges[i-1]) {
			return ErrBinsNotAscending
		}
	}
	if !edges[0].Equal(CanopyMin) || !edges[len(edges)-1].Equal(CanopyMax) {
		return ErrBinsBounds
	}
	return nil
}

// ValidateThreshold checks that t is within [0, 100].
func ValidateThreshold(t decimal.Decimal) error {
	if err := CheckDecimalExponent(t); err != nil {
		return err
	}
	if t.LessThan(CanopyMin) || t.GreaterThan(CanopyMax) {
		return ErrThresholdOutOfRange
	}
	return nil
}

// StatsQuery - validated aggregation request. Geometry is already in WGS84.
type StatsQuery struct {
	Geometry  orb.Polygon
	Threshold decimal.Decimal
	BinEdges  []decimal.Decimal
}

// AreaClass - area falling into one half-open bin [Min, Max).
type AreaClass struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	AreaM2 float64 `json:"area_m2"`
}

// StatsResult - canopy statistics for a query polygon.
type StatsResult struct {
	MeanCanopy           float64     `json:"mean_canopy"`
	TotalAreaM2          float64     `json:"total_area_m2"`
	AreaAboveThresholdM2 float64     `json:"area_above_threshold_m2"`
	AreaByClass          []AreaClass `json:"area_by_class"`
	PixelCount           int64       `json:"pixel_count"`
	BinEdges             []float64   `json:"bin_edges"`
	Threshold            float64     `json:"threshold"`
	QueryAreaM2          float64     `json:"query_area_m2"`
}

// Legend - display configuration of the forest density layer.
type Legend struct {
	BinEdges    []float64 `json:"bin_edges"`
	Colors      []string  `json:"colors"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

var legendColors = []string{"#f7fcf5", "#c7e9c0", "#74c476", "#31a354", "#006d2c"}

// DefaultLegend returns the static legend. Each call returns new slices so
// callers cannot mutate the shared configuration.
func DefaultLegend() Legend {
	edges := make([]float64, len(defaultBinEdges))
	for i, e := range defaultBinEdges {
		edges[i] = float64(e)
	}
	colors := make([]string, len(legendColors))
	copy(colors, legendColors)

	return Legend{
		BinEdges:    edges,
		Colors:      colors,
		Title:       "Forest canopy cover (%)",
		Description: "Canopy cover percentage per grid cell.",
	}
}
