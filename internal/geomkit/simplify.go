package geomkit

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify reduces a linestring's vertex count with the Douglas-Peucker
// algorithm, tolerance expressed in meters. The tolerance is converted
// into the line's own UTM-projected units so a meter threshold behaves
// consistently regardless of latitude, then the simplified result is
// unprojected back to WGS84 indices by re-selecting the retained source
// points (Douglas-Peucker only ever drops points, never moves them, so
// index correspondence is exact).
func Simplify(ls orb.LineString, toleranceM float64) orb.LineString {
	if len(ls) < 3 || toleranceM <= 0 {
		return ls
	}

	tr := TransformerFor(ls[0][1], ls[0][0])
	projected := make(orb.LineString, len(ls))
	for i, p := range ls {
		x, y := tr.Project(p)
		projected[i] = orb.Point{x, y}
	}

	reducer := simplify.DouglasPeucker(toleranceM)
	simplifiedProjected := reducer.Simplify(projected.Clone()).(orb.LineString)

	// Map back to original WGS84 points by matching projected coordinates;
	// projected coordinates are exact copies so equality is safe.
	keep := make(map[orb.Point]struct{}, len(simplifiedProjected))
	for _, p := range simplifiedProjected {
		keep[p] = struct{}{}
	}

	out := make(orb.LineString, 0, len(simplifiedProjected))
	for i, p := range projected {
		if _, ok := keep[p]; ok {
			out = append(out, ls[i])
		}
	}

	return out
}
