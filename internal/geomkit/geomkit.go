// Package geomkit centralizes geodesic length, spatial indexing, and
// coordinate validation so the rest of the coverage engine never mixes
// coordinate reference systems. Every distance-bearing component depends
// on it.
package geomkit

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidCoordinate is returned by ValidateCoordinate for an
// out-of-range WGS84 point.
type ErrInvalidCoordinate struct {
	Point orb.Point
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate: lon=%f lat=%f", e.Point[0], e.Point[1])
}

// ValidateCoordinate fails if p falls outside the WGS84 lon/lat ranges.
func ValidateCoordinate(p orb.Point) error {
	lon, lat := p[0], p[1]
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 || math.IsNaN(lon) || math.IsNaN(lat) {
		return &ErrInvalidCoordinate{Point: p}
	}

	return nil
}

// ValidateLineString fails unless every point is a valid WGS84 coordinate
// and the line has at least two points.
func ValidateLineString(ls orb.LineString) error {
	if len(ls) < 2 {
		return fmt.Errorf("linestring has %d points, need >= 2", len(ls))
	}
	for _, p := range ls {
		if err := ValidateCoordinate(p); err != nil {
			return err
		}
	}

	return nil
}

// Haversine returns the great-circle distance between two WGS84 points in
// meters, using the haversine formula on a sphere of the WGS84 mean radius.
func Haversine(a, b orb.Point) float64 {
	const meanEarthRadiusM = 6371008.8

	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b[0] - a[0]) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * meanEarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// LengthMeters returns the geodesic length of a linestring by projecting
// every vertex into its UTM zone and summing planar segment lengths. The
// zone is derived once, from the linestring's first point, matching
// Segmenter's expectation that a way lies within a single UTM zone.
func LengthMeters(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}

	tr := TransformerFor(ls[0][1], ls[0][0])

	total := 0.0
	prevX, prevY := tr.Project(ls[0])
	for _, p := range ls[1:] {
		x, y := tr.Project(p)
		dx, dy := x-prevX, y-prevY
		total += math.Hypot(dx, dy)
		prevX, prevY = x, y
	}

	return total
}
