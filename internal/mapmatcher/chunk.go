package mapmatcher

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"streetcoverage/config"
	"streetcoverage/internal/geomkit"
)

const (
	urbanRadiusM      = 25
	highwayRadiusM    = 50
	highwaySpeedGapM  = 100
)

// buildCoords assigns each point an adaptive matching radius (spec §4.5
// step 3) and attaches the parallel timestamp, if provided.
func buildCoords(points orb.LineString, timestamps []time.Time, cfg config.MapMatchConfig) []Coord {
	urban := cfg.UrbanRadiusM
	if urban == 0 {
		urban = urbanRadiusM
	}
	highway := cfg.HighwayRadiusM
	if highway == 0 {
		highway = highwayRadiusM
	}
	gap := cfg.HighwaySpeedGapM
	if gap == 0 {
		gap = highwaySpeedGapM
	}

	out := make([]Coord, len(points))
	for i, p := range points {
		radius := urban
		if i > 0 {
			d := geomkit.Haversine(points[i-1], p)
			if d > gap {
				radius = highway
			}
		}

		c := Coord{Lon: p[0], Lat: p[1], RadiusM: radius}
		if timestamps != nil && i < len(timestamps) {
			ts := timestamps[i]
			c.Time = &ts
		}
		out[i] = c
	}

	return out
}

// chunkCoords slices coords into chunks of at most size with overlap
// shared points between consecutive chunks (spec §4.5 step 2).
func chunkCoords(coords []Coord, size, overlap int) [][]Coord {
	if len(coords) <= size {
		return [][]Coord{coords}
	}

	var chunks [][]Coord
	step := size - overlap
	if step < 1 {
		step = 1
	}

	for start := 0; start < len(coords); start += step {
		end := start + size
		if end > len(coords) {
			end = len(coords)
		}
		chunks = append(chunks, coords[start:end])
		if end == len(coords) {
			break
		}
	}

	return chunks
}

func geometryToCoords(geometry [][2]float64) []Coord {
	out := make([]Coord, len(geometry))
	for i, p := range geometry {
		out[i] = Coord{Lon: p[0], Lat: p[1]}
	}

	return out
}

func coordsToLineString(coords []Coord) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = orb.Point{c.Lon, c.Lat}
	}

	return ls
}

func asLineString(g orb.Geometry) (orb.LineString, bool) {
	switch v := g.(type) {
	case orb.LineString:
		return v, true
	case orb.Point:
		return nil, false
	default:
		return nil, false
	}
}

func orbPointGeom(p orb.Point) orb.Geometry {
	return p
}

// repairJumps walks the stitched result and re-matches local windows
// around consecutive points further apart than thresholdM, up to
// maxPasses times (spec §4.5 step 8).
func repairJumps(m *Matcher, ctx context.Context, coords []Coord, thresholdM float64, maxPasses int) []Coord {
	for pass := 0; pass < maxPasses; pass++ {
		jumped := false

		for i := 1; i < len(coords); i++ {
			a := orb.Point{coords[i-1].Lon, coords[i-1].Lat}
			b := orb.Point{coords[i].Lon, coords[i].Lat}
			if geomkit.Haversine(a, b) <= thresholdM {
				continue
			}

			jumped = true

			lo := i - 1
			if lo < 0 {
				lo = 0
			}
			hi := i + 2
			if hi > len(coords) {
				hi = len(coords)
			}

			window := coords[lo:hi]
			rematched, status := m.matchChunkWithRetry(ctx, window, 0)
			if status == "" && len(rematched) > 0 {
				coords = append(coords[:lo], append(rematched, coords[hi:]...)...)

				break
			}
		}

		if !jumped {
			break
		}
	}

	return coords
}
