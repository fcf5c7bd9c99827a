package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetcoverage/internal/streetfetcher"
)

func shortWay() streetfetcher.Way {
	return streetfetcher.Way{
		WayID:      "w1",
		HighwayTag: "residential",
		Name:       "Main St",
		Geometry:   [][2]float64{{0, 0}, {0, 0.0003}},
	}
}

func longWay() streetfetcher.Way {
	// roughly 111km/deg * 0.01 deg ~ 1110m at the equator, well over any
	// reasonable target length.
	return streetfetcher.Way{
		WayID:      "w2",
		HighwayTag: "primary",
		Name:       "Long Ave",
		Geometry:   [][2]float64{{0, 0}, {0, 0.01}},
	}
}

func TestSegment_ShortWayEmittedWhole(t *testing.T) {
	segs, err := Segment(shortWay(), "area-1", "Area One", 45.72)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Greater(t, segs[0].SegmentLengthM, 0.0)
	assert.Equal(t, "residential", segs[0].HighwayTag)
}

func TestSegment_LongWaySplitWithinBounds(t *testing.T) {
	target := 45.72
	segs, err := Segment(longWay(), "area-1", "Area One", target)
	require.NoError(t, err)
	require.Greater(t, len(segs), 1)

	for i, s := range segs {
		if i == len(segs)-1 {
			assert.GreaterOrEqual(t, s.SegmentLengthM, 0.5*target)
			continue
		}
		assert.GreaterOrEqual(t, s.SegmentLengthM, 0.85*target)
		assert.LessOrEqual(t, s.SegmentLengthM, 1.15*target)
	}
}

func TestSegment_IdsAreDeterministic(t *testing.T) {
	segs1, err := Segment(longWay(), "area-1", "Area One", 45.72)
	require.NoError(t, err)
	segs2, err := Segment(longWay(), "area-1", "Area One", 45.72)
	require.NoError(t, err)

	require.Equal(t, len(segs1), len(segs2))
	for i := range segs1 {
		assert.Equal(t, segs1[i].SegmentID, segs2[i].SegmentID)
	}
}

func TestSegmentID_DiffersByPieceIndex(t *testing.T) {
	id0 := SegmentID("w1", 0, "area-1", 45.72)
	id1 := SegmentID("w1", 1, "area-1", 45.72)
	assert.NotEqual(t, id0, id1)
}
