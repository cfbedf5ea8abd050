package dto

import (
	"encoding/json"
	"fmt"

	"github.com/forest-density-service/internal/domain"
	apperrors "github.com/forest-density-service/internal/pkg/errors"
	"github.com/forest-density-service/internal/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// maxDecimalPlaces of threshold and bin edges, matching the stored canopy precision.
const maxDecimalPlaces = domain.CanopyPrecision

// StatsRequest - canopy statistics request
type StatsRequest struct {
	// GeoJSON Polygon; an optional "crs" member names its CRS, WGS84 otherwise
	Geometry  json.RawMessage   `json:"geometry" swaggertype:"object"`
	Threshold *decimal.Decimal  `json:"threshold,omitempty" swaggertype:"number" example:"60"`
	Bins      []decimal.Decimal `json:"bins,omitempty" swaggertype:"array,number"`
}

// ToQuery validates the request and builds a WGS84 query. Problems are
// reported per field as a VALIDATION_ERROR.
func (r *StatsRequest) ToQuery() (domain.StatsQuery, error) {
	fields := map[string][]string{}

	polygon, msg := parseQueryGeometry(r.Geometry)
	if msg != "" {
		fields["geometry"] = append(fields["geometry"], msg)
	}

	threshold := domain.DefaultThreshold
	if r.Threshold != nil {
		threshold = *r.Threshold
		if msg := checkPercentage(threshold); msg != "" {
			fields["threshold"] = append(fields["threshold"], msg)
		}
	}

	bins := domain.DefaultBinEdges()
	if r.Bins != nil {
		bins = r.Bins
		if msg := checkBins(bins); msg != "" {
			fields["bins"] = append(fields["bins"], msg)
		}
	}

	if len(fields) > 0 {
		return domain.StatsQuery{}, apperrors.FieldErrors(fields)
	}

	return domain.StatsQuery{
		Geometry:  polygon,
		Threshold: threshold,
		BinEdges:  bins,
	}, nil
}

// parseQueryGeometry returns the WGS84 polygon or a user facing message.
func parseQueryGeometry(raw json.RawMessage) (orb.Polygon, string) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) || gjson.ParseBytes(raw).Type == gjson.Null {
		return nil, "This field is required."
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, "Expected a GeoJSON geometry object."
	}

	crs := doc.Get("crs.properties.name").String()
	srid, err := geo.ParseCRS(crs)
	if err != nil {
		return nil, fmt.Sprintf("Unsupported CRS %q.", crs)
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, "Invalid GeoJSON geometry."
	}

	polygon, ok := g.Coordinates.(orb.Polygon)
	if !ok {
		return nil, fmt.Sprintf("Expected a Polygon, got %s.", g.Type)
	}

	polygon, err = geo.ToWGS84(polygon, srid)
	if err != nil {
		return nil, fmt.Sprintf("Unsupported CRS %q.", crs)
	}
	if err := geo.ValidatePolygon(polygon); err != nil {
		return nil, fmt.Sprintf("Invalid polygon: %s.", err.Error())
	}

	return polygon, ""
}

func checkPercentage(v decimal.Decimal) string {
	if domain.CheckDecimalExponent(v) != nil {
		if v.Exponent() < 0 {
			return fmt.Sprintf("Ensure that there are no more than %d decimal places.", maxDecimalPlaces)
		}
		return "Ensure this value is between 0 and 100."
	}
	if domain.ValidateThreshold(v) != nil {
		return "Ensure this value is between 0 and 100."
	}
	if !v.Equal(v.Round(maxDecimalPlaces)) {
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", maxDecimalPlaces)
	}
	return ""
}

func checkBins(bins []decimal.Decimal) string {
	for _, b := range bins {
		if msg := checkPercentage(b); msg != "" {
			return msg
		}
	}

	switch domain.ValidateBinEdges(bins) {
	case nil:
		return ""
	case domain.ErrTooFewBinEdges:
		return "Provide at least two bin edges."
	case domain.ErrBinsNotAscending:
		return "Bins must be in ascending order."
	case domain.ErrBinsBounds:
		return "Bins must start at 0 and end at 100."
	}
	return "Invalid bin edges."
}

// LoadRequest - queued ingestion request. Path refers to the server host.
type LoadRequest struct {
	File            string `json:"file" validate:"required" example:"/data/canopy.ndjson.gz"`
	Source          string `json:"source,omitempty" validate:"omitempty,max=64" example:"hansen_2023"`
	Replace         bool   `json:"replace,omitempty"`
	CanopyField     string `json:"canopy_field,omitempty" example:"canopy_pct"`
	TileField       string `json:"tile_field,omitempty" example:"tile_id"`
	BatchSize       int    `json:"batch_size,omitempty" validate:"omitempty,min=1" example:"500"`
	SRID            int    `json:"srid,omitempty" validate:"omitempty,srid" example:"4326"`
	Mode            string `json:"mode,omitempty" validate:"omitempty,oneof=strict lenient" example:"strict"`
	IgnoreConflicts bool   `json:"ignore_conflicts,omitempty"`
}

// ToOptions maps the request onto load options; unset fields keep the
// loader defaults.
func (r *LoadRequest) ToOptions() domain.LoadOptions {
	return domain.LoadOptions{
		Path:            r.File,
		Source:          r.Source,
		Replace:         r.Replace,
		CanopyField:     r.CanopyField,
		TileField:       r.TileField,
		BatchSize:       r.BatchSize,
		SRID:            r.SRID,
		Mode:            domain.LoadMode(r.Mode),
		IgnoreConflicts: r.IgnoreConflicts,
	}
}
