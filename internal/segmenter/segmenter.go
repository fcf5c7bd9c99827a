// Package segmenter converts each drivable way into one or more
// fixed-length segments, preserving direction and tagging each piece with
// a stable identifier and the parent way's street metadata.
package segmenter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/geomkit"
	"streetcoverage/internal/streetfetcher"
)

// Segment splits one way into segments of about targetLengthM: a way no
// longer than 1.1x target is emitted whole; a longer way is subdivided at
// equal arc-length intervals, every piece at most 1.1x target. For ways
// under 5x target no equal split may land in [0.9, 1.1]x target, and then
// the pieces come out shorter than 0.9x target (down to 0.55x); a split
// into full pieces plus one short final piece is never produced.
func Segment(way streetfetcher.Way, areaID, areaDisplayName string, targetLengthM float64) ([]*entity.Segment, error) {
	ls := wayLineString(way)
	if err := geomkit.ValidateLineString(ls); err != nil {
		return nil, fmt.Errorf("way %s: %w", way.WayID, err)
	}

	totalLen := geomkit.LengthMeters(ls)
	if totalLen <= 0 {
		return nil, fmt.Errorf("way %s: zero length", way.WayID)
	}

	var pieces []orb.LineString
	if totalLen <= 1.1*targetLengthM {
		pieces = []orb.LineString{ls}
	} else {
		pieces = subdivide(ls, totalLen, targetLengthM)
	}

	out := make([]*entity.Segment, 0, len(pieces))
	for i, piece := range pieces {
		length := geomkit.LengthMeters(piece)
		id := SegmentID(way.WayID, i, areaID, length)

		out = append(out, &entity.Segment{
			SegmentID:      id,
			AreaName:       areaDisplayName,
			Geometry:       piece,
			HighwayTag:     way.HighwayTag,
			StreetName:     way.Name,
			SegmentLengthM: length,
			Oneway:         way.Oneway,
		})
	}

	return out, nil
}

// subdivide splits ls into n pieces of equal arc length. n starts at
// floor(totalLen/target), so pieces are at least target long, and grows by
// one while pieces exceed 1.1x target; the lower bound is not checked.
func subdivide(ls orb.LineString, totalLen, target float64) []orb.LineString {
	n := int(totalLen / target)
	if n < 1 {
		n = 1
	}
	pieceLen := totalLen / float64(n)

	// Growing n until no piece exceeds 1.1x target; all pieces, the final
	// one included, share the same length.
	for pieceLen > 1.1*target {
		n++
		pieceLen = totalLen / float64(n)
	}

	tr := geomkit.TransformerFor(ls[0][1], ls[0][0])
	projected := make([][2]float64, len(ls))
	for i, p := range ls {
		x, y := tr.Project(p)
		projected[i] = [2]float64{x, y}
	}

	cumDist := make([]float64, len(projected))
	for i := 1; i < len(projected); i++ {
		dx := projected[i][0] - projected[i-1][0]
		dy := projected[i][1] - projected[i-1][1]
		cumDist[i] = cumDist[i-1] + math.Hypot(dx, dy)
	}

	pieces := make([]orb.LineString, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * pieceLen
		end := start + pieceLen
		if i == n-1 {
			end = totalLen
		}

		piece := sliceAtArcLength(ls, projected, cumDist, start, end, tr)
		if len(piece) >= 2 {
			pieces = append(pieces, piece)
		}
	}

	return pieces
}

// sliceAtArcLength extracts the portion of ls between arc lengths
// [start, end], interpolating new endpoints along the nearest segment
// when start/end fall strictly between two existing vertices.
func sliceAtArcLength(ls orb.LineString, projected [][2]float64, cumDist []float64, start, end float64, tr *geomkit.Transformer) orb.LineString {
	var out orb.LineString

	first := true
	for i := 0; i < len(projected); i++ {
		d := cumDist[i]

		if d < start {
			continue
		}
		if first && d > start {
			// interpolate the start point on edge (i-1, i)
			pt := interpolate(projected[i-1], projected[i], cumDist[i-1], cumDist[i], start)
			out = append(out, tr.Unproject(pt[0], pt[1]))
		}
		first = false

		if d > end {
			pt := interpolate(projected[i-1], projected[i], cumDist[i-1], cumDist[i], end)
			out = append(out, tr.Unproject(pt[0], pt[1]))

			break
		}

		out = append(out, ls[i])

		if d == end {
			break
		}
	}

	return out
}

func interpolate(a, b [2]float64, da, db, target float64) [2]float64 {
	if db == da {
		return a
	}
	t := (target - da) / (db - da)

	return [2]float64{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

func wayLineString(w streetfetcher.Way) orb.LineString {
	ls := make(orb.LineString, len(w.Geometry))
	for i, p := range w.Geometry {
		ls[i] = orb.Point{p[0], p[1]}
	}

	return ls
}

// SegmentID derives a stable, deterministic id from (way_id, piece_index,
// area_id, segment_length_m), so re-running Segment with identical inputs
// always reproduces the same ids (spec's open question on segment_id
// stability, resolved in favor of full determinism).
func SegmentID(wayID string, pieceIndex int, areaID string, segmentLengthM float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%.6f", wayID, pieceIndex, areaID, segmentLengthM)

	return hex.EncodeToString(h.Sum(nil))[:24]
}
