package geomkit

import "github.com/paulmach/orb"

// Repair collapses consecutive duplicate points and discards a linestring
// that degenerates to a single distinct point, reporting ok=false so the
// caller can fall back to a Point geometry (spec §4.5 output validation).
// orb has no general buffer/zero-width-buffer operator for arbitrary
// geometries, so repair here is the dedup-and-degenerate-check orb itself
// omits, rather than a geometric buffer.
func Repair(ls orb.LineString) (repaired orb.LineString, ok bool) {
	if len(ls) == 0 {
		return nil, false
	}

	out := make(orb.LineString, 0, len(ls))
	out = append(out, ls[0])
	for _, p := range ls[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}

	if len(out) < 2 {
		return out, false
	}

	return out, true
}

// IsDistinctPoint reports whether a linestring degenerates to a single
// repeated coordinate.
func IsDistinctPoint(ls orb.LineString) (orb.Point, bool) {
	if len(ls) == 0 {
		return orb.Point{}, false
	}
	first := ls[0]
	for _, p := range ls[1:] {
		if p != first {
			return orb.Point{}, false
		}
	}

	return first, true
}
