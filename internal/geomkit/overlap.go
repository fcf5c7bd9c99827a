package geomkit

import (
	"math"

	"github.com/paulmach/orb"
)

// OverlapLengthM approximates the length of segment that falls within
// bufferM meters of trip, standing in for CoverageAttributor's
// strtree.query(G.buffer(match_buffer_m)) intersection-length test (orb
// ships no buffer/intersection operators). segment is sampled at a fixed
// planar step in the UTM zone of segment's first point and the sub-length
// whose sample points
// fall inside the buffer is accumulated, linearly apportioning a sample
// straddling the buffer boundary.
func OverlapLengthM(segment orb.LineString, trip orb.Geometry, bufferM float64) float64 {
	if len(segment) < 2 {
		return 0
	}

	tr := TransformerFor(segment[0][1], segment[0][0])

	projSeg := make([][2]float64, len(segment))
	for i, p := range segment {
		x, y := tr.Project(p)
		projSeg[i] = [2]float64{x, y}
	}

	projTrip, ok := projectTrip(tr, trip)
	if !ok {
		return 0
	}

	const sampleStepM = 1.0

	total := 0.0
	for i := 0; i < len(projSeg)-1; i++ {
		a, b := projSeg[i], projSeg[i+1]
		segLen := math.Hypot(b[0]-a[0], b[1]-a[1])
		if segLen == 0 {
			continue
		}

		steps := int(segLen / sampleStepM)
		if steps < 1 {
			steps = 1
		}
		stepLen := segLen / float64(steps)

		prevIn := distanceToPolyline(a, projTrip) <= bufferM
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			cur := [2]float64{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
			curIn := distanceToPolyline(cur, projTrip) <= bufferM

			switch {
			case prevIn && curIn:
				total += stepLen
			case prevIn != curIn:
				total += stepLen / 2
			}

			prevIn = curIn
		}
	}

	return total
}

// NearestDistanceM returns the planar distance from p to the closest point
// on segment, used for the point-trip attribution edge case (spec §4.6:
// "points attribute only if a candidate segment covers the point within
// match_buffer_m").
func NearestDistanceM(segment orb.LineString, p orb.Point) float64 {
	if len(segment) == 0 {
		return math.Inf(1)
	}

	tr := TransformerFor(segment[0][1], segment[0][0])

	px, py := tr.Project(p)
	projSeg := make([][2]float64, len(segment))
	for i, sp := range segment {
		x, y := tr.Project(sp)
		projSeg[i] = [2]float64{x, y}
	}

	return distanceToPolyline([2]float64{px, py}, projSeg)
}

func projectTrip(tr *Transformer, trip orb.Geometry) ([][2]float64, bool) {
	switch g := trip.(type) {
	case orb.Point:
		x, y := tr.Project(g)

		return [][2]float64{{x, y}}, true
	case orb.LineString:
		if len(g) == 0 {
			return nil, false
		}
		out := make([][2]float64, len(g))
		for i, p := range g {
			x, y := tr.Project(p)
			out[i] = [2]float64{x, y}
		}

		return out, true
	default:
		return nil, false
	}
}

func distanceToPolyline(p [2]float64, line [][2]float64) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return math.Hypot(p[0]-line[0][0], p[1]-line[0][1])
	}

	best := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		if d := distancePointToSegment(p, line[i], line[i+1]); d < best {
			best = d
		}
	}

	return best
}

func distancePointToSegment(p, a, b [2]float64) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	cx, cy := a[0]+t*dx, a[1]+t*dy

	return math.Hypot(p[0]-cx, p[1]-cy)
}
