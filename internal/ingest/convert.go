package ingest

import (
	"fmt"
	"strings"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Converter maps raw features onto forest density cells.
type Converter struct {
	canopyField    string
	tileField      string
	sourceOverride string
	defaultSource  string
	srid           int
}

// NewConverter builds a converter from load options; unset fields take
// their defaults.
func NewConverter(opts domain.LoadOptions) *Converter {
	opts = opts.WithDefaults()
	return &Converter{
		canopyField:    opts.CanopyField,
		tileField:      opts.TileField,
		sourceOverride: opts.Source,
		defaultSource:  opts.DefaultSource,
		srid:           opts.SRID,
	}
}

// Convert validates f and builds a cell. Errors are *domain.GeometryError or
// *domain.MalformedInputError and carry the feature location.
func (c *Converter) Convert(f *RawFeature) (*domain.ForestDensityCell, error) {
	polygon, err := c.polygon(f)
	if err != nil {
		return nil, &domain.GeometryError{Line: f.Line, Index: f.Index, Err: err}
	}

	props := gjson.GetBytes(f.Data, "properties")

	canopy, err := c.canopy(props)
	if err != nil {
		return nil, &domain.MalformedInputError{Line: f.Line, Index: f.Index, Reason: "canopy attribute", Err: err}
	}

	cell, err := domain.NewForestDensityCell(polygon, canopy, c.source(props), stringValue(property(props, c.tileField)))
	if err != nil {
		return nil, &domain.MalformedInputError{Line: f.Line, Index: f.Index, Reason: "invalid cell", Err: err}
	}

	return cell, nil
}

func (c *Converter) polygon(f *RawFeature) (orb.Polygon, error) {
	raw := gjson.GetBytes(f.Data, "geometry").Raw

	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	var polygon orb.Polygon
	switch geom := g.Coordinates.(type) {
	case orb.Polygon:
		polygon = geom
	case orb.MultiPolygon:
		if len(geom) != 1 {
			return nil, fmt.Errorf("expected a Polygon, got a MultiPolygon with %d members", len(geom))
		}
		polygon = geom[0]
	default:
		return nil, fmt.Errorf("expected a Polygon, got %s", g.Type)
	}

	polygon, err = geo.ToWGS84(polygon, c.srid)
	if err != nil {
		return nil, err
	}

	if err := geo.ValidatePolygon(polygon); err != nil {
		return nil, err
	}

	return polygon, nil
}

func (c *Converter) canopy(props gjson.Result) (decimal.Decimal, error) {
	v := property(props, c.canopyField)

	var text string
	switch v.Type {
	case gjson.Number:
		text = v.Raw
	case gjson.String:
		text = strings.TrimSpace(v.Str)
	case gjson.Null:
		return decimal.Zero, fmt.Errorf("missing %q", c.canopyField)
	default:
		return decimal.Zero, fmt.Errorf("%q is not numeric: %s", c.canopyField, v.Raw)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not numeric: %s", c.canopyField, v.Raw)
	}

	pct, err := domain.ValidateCanopyPct(d)
	if err != nil {
		return decimal.Zero, err
	}
	return pct, nil
}

// source resolves the label: override, then "source", then "dataset", then
// the configured default.
func (c *Converter) source(props gjson.Result) string {
	if c.sourceOverride != "" {
		return c.sourceOverride
	}
	for _, key := range []string{"source", "dataset"} {
		if s := stringValue(property(props, key)); s != "" {
			return s
		}
	}
	return c.defaultSource
}

// property looks key up literally; gjson paths would treat dots and
// wildcards in attribute names specially.
func property(props gjson.Result, key string) gjson.Result {
	var found gjson.Result
	if !props.IsObject() {
		return found
	}
	props.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			found = v
			return false
		}
		return true
	})
	return found
}

func stringValue(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	}
	return v.String()
}
