package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/forest-density-service/internal/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

const (
	// DefaultSource is stored when neither the load nor the feature names a source.
	DefaultSource = "unknown"

	MaxSourceLength = 64
	MaxTileIDLength = 64

	// CanopyPrecision is the number of decimal places kept for canopy_pct.
	CanopyPrecision = 2
)

var (
	CanopyMin = decimal.Zero
	CanopyMax = decimal.NewFromInt(100)
)

// Accepted decimal exponents. Comparing or rounding a value such as
// 1e-40000000 rescales its coefficient by 10^40000000, so anything outside
// this window is rejected before any arithmetic.
const (
	MinDecimalExponent = -20
	MaxDecimalExponent = 6
)

var (
	ErrCanopyOutOfRange = errors.New("canopy percentage must be between 0 and 100")
	ErrDecimalExponent  = errors.New("decimal exponent out of range")
)

// ForestDensityCell - grid cell with its canopy cover percentage.
// Geometry is always a valid WGS84 (EPSG:4326) polygon.
type ForestDensityCell struct {
	ID        int64           `json:"id" db:"id"`
	Geometry  orb.Polygon     `json:"geometry" db:"-"`
	CanopyPct decimal.Decimal `json:"canopy_pct" db:"canopy_pct"`
	Source    string          `json:"source" db:"source"`
	TileID    string          `json:"tile_id" db:"tile_id"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// NewForestDensityCell validates the inputs and builds a cell ready for
// persistence. Canopy values are rounded to two decimal places.
func NewForestDensityCell(geometry orb.Polygon, canopyPct decimal.Decimal, source, tileID string) (*ForestDensityCell, error) {
	if err := geo.ValidatePolygon(geometry); err != nil {
		return nil, err
	}

	pct, err := ValidateCanopyPct(canopyPct)
	if err != nil {
		return nil, err
	}

	if source == "" {
		source = DefaultSource
	}
	if len(source) > MaxSourceLength {
		return nil, fmt.Errorf("source %q longer than %d characters", source, MaxSourceLength)
	}
	if len(tileID) > MaxTileIDLength {
		return nil, fmt.Errorf("tile_id %q longer than %d characters", tileID, MaxTileIDLength)
	}

	return &ForestDensityCell{
		Geometry:  geometry,
		CanopyPct: pct,
		Source:    source,
		TileID:    tileID,
	}, nil
}

// ValidateCanopyPct rounds v to the stored precision and checks the [0, 100] range.
func ValidateCanopyPct(v decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckDecimalExponent(v); err != nil {
		return decimal.Zero, err
	}
	v = v.Round(CanopyPrecision)
	if v.LessThan(CanopyMin) || v.GreaterThan(CanopyMax) {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrCanopyOutOfRange, v.String())
	}
	return v, nil
}

// CheckDecimalExponent rejects values whose exponent lies outside
// [MinDecimalExponent, MaxDecimalExponent].
func CheckDecimalExponent(v decimal.Decimal) error {
	if e := v.Exponent(); e < MinDecimalExponent || e > MaxDecimalExponent {
		return fmt.Errorf("%w: exponent %d", ErrDecimalExponent, e)
	}
	return nil
}

// CanopyArea - intersected area of all matched cells sharing one canopy value.
type CanopyArea struct {
	CanopyPct decimal.Decimal `db:"canopy_pct"`
	AreaM2    float64         `db:"area_m2"`
	CellCount int64           `db:"cell_count"`
}
