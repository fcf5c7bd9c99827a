package routesolver

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetcoverage/internal/domain/entity"
)

func segmentBetween(id string, a, b orb.Point, lengthM float64, driven bool) *entity.Segment {
	return &entity.Segment{
		SegmentID:      id,
		Geometry:       orb.LineString{a, b},
		SegmentLengthM: lengthM,
		Driven:         driven,
	}
}

func TestSolve_NoUndrivenSegmentsIsEarlySuccess(t *testing.T) {
	segs := []*entity.Segment{
		segmentBetween("s1", orb.Point{0, 0}, orb.Point{0, 0.001}, 100, true),
	}

	_, err := Solve(segs, nil, nil)
	assert.ErrorIs(t, err, ErrNoUndrivenSegments)
}

func TestSolve_TrivialSingleEdgeTourIsOutAndBack(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{0, 0.001}
	segs := []*entity.Segment{
		segmentBetween("s1", a, b, 100, false),
	}

	route, err := Solve(segs, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, route.SegmentCount)
	assert.InDelta(t, 100, route.RequiredDistanceM, 0.001)
	// A single edge has two odd-degree nodes; the only matching path is
	// the edge itself traversed again as deadhead, so the tour is out and
	// back: total = 2x the edge length.
	assert.InDelta(t, 200, route.TotalDistanceM, 0.001)
	assert.InDelta(t, 100, route.DeadheadDistanceM, 0.001)
	assert.InDelta(t, 50, route.DeadheadPct, 0.001)
	assert.Len(t, route.Coordinates, 3)
}

func TestSolve_AllDriveableDrivenIsNoUndrivenSegments(t *testing.T) {
	segs := []*entity.Segment{
		segmentBetween("s1", orb.Point{0, 0}, orb.Point{0, 0.001}, 100, false),
	}
	segs[0].Undriveable = true

	_, err := Solve(segs, nil, nil)
	assert.ErrorIs(t, err, ErrNoUndrivenSegments)
}
