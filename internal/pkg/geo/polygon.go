package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// Supported spatial reference identifiers. Everything is stored in WGS84;
// Web Mercator input is unprojected on the way in.
const (
	SRIDWGS84       = 4326
	SRIDWebMercator = 3857
	sridGoogle      = 900913
)

var ErrUnsupportedSRID = errors.New("unsupported SRID")

// ParseCRS maps a GeoJSON "crs" name to an SRID. An empty name means the
// geometry is untagged and is treated as WGS84.
func ParseCRS(name string) (int, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "", "EPSG:4326", "URN:OGC:DEF:CRS:EPSG::4326", "URN:OGC:DEF:CRS:OGC:1.3:CRS84", "CRS84":
		return SRIDWGS84, nil
	case "EPSG:3857", "URN:OGC:DEF:CRS:EPSG::3857", "EPSG:900913":
		return SRIDWebMercator, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSRID, name)
}

// SupportedSRID reports whether ToWGS84 can normalize geometries in srid.
func SupportedSRID(srid int) bool {
	return srid == SRIDWGS84 || srid == SRIDWebMercator || srid == sridGoogle
}

// ToWGS84 returns p expressed in EPSG:4326. The input polygon is not modified.
func ToWGS84(p orb.Polygon, srid int) (orb.Polygon, error) {
	switch srid {
	case SRIDWGS84:
		return p, nil
	case SRIDWebMercator, sridGoogle:
		return project.Polygon(p.Clone(), project.Mercator.ToWGS84), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedSRID, srid)
}

// Area returns the geodesic area of p in square meters.
func Area(p orb.Polygon) float64 {
	return math.Abs(orbgeo.Area(p))
}

// ValidatePolygon checks that p is a simple WGS84 polygon: closed rings of at
// least four positions, coordinates within lon/lat range, non-zero area and no
// self-intersections. Holes must lie inside the shell without touching it or
// each other.
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.New("polygon has no rings")
	}

	for i, ring := range p {
		if err := validateRing(ring); err != nil {
			if i == 0 {
				return fmt.Errorf("exterior ring: %w", err)
			}
			return fmt.Errorf("interior ring %d: %w", i, err)
		}
	}

	rings := make([]orb.Ring, len(p))
	for i, ring := range p {
		rings[i] = dedupe(ring)
	}

	for i := 1; i < len(rings); i++ {
		if ringsCross(rings[0], rings[i]) {
			return fmt.Errorf("interior ring %d crosses the exterior ring", i)
		}
		if !planar.RingContains(rings[0], rings[i][0]) {
			return fmt.Errorf("interior ring %d lies outside the exterior ring", i)
		}
		for j := 1; j < i; j++ {
			if ringsCross(rings[j], rings[i]) ||
				planar.RingContains(rings[j], rings[i][0]) ||
				planar.RingContains(rings[i], rings[j][0]) {
				return fmt.Errorf("interior rings %d and %d overlap", j, i)
			}
		}
	}

	return nil
}

func validateRing(r orb.Ring) error {
	if len(r) < 4 {
		return fmt.Errorf("ring has %d positions, need at least 4", len(r))
	}
	if !r.Closed() {
		return errors.New("ring is not closed")
	}

	for _, pt := range r {
		lon, lat := pt[0], pt[1]
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return errors.New("ring has non-finite coordinates")
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("coordinate (%g, %g) outside WGS84 range", lon, lat)
		}
	}

	// A bow tie has zero signed area, so crossings are reported first.
	if selfIntersects(dedupe(r)) {
		return errors.New("ring self-intersects")
	}

	if math.Abs(planar.Area(r)) == 0 {
		return errors.New("ring has zero area")
	}

	return nil
}

func dedupe(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for _, pt := range r {
		if len(out) > 0 && out[len(out)-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// selfIntersects does a pairwise segment test. Cells are small grid polygons,
// so the quadratic scan is fine.
func selfIntersects(r orb.Ring) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[i+1]
		for j := i + 1; j < n; j++ {
			// neighbours share an endpoint by construction
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(a1, a2, r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

// ringsCross reports whether any edge of a touches or crosses any edge of b.
func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
