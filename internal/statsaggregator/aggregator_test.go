package statsaggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetcoverage/internal/domain/entity"
)

func TestCompute_CoveragePctZeroWhenNoDriveableLength(t *testing.T) {
	segs := []*entity.Segment{
		{HighwayTag: "residential", SegmentLengthM: 100, Undriveable: true},
	}

	agg := Compute(segs)
	require.Len(t, agg.StreetTypes, 1)
	assert.Equal(t, 0.0, agg.StreetTypes[0].CoveragePct)
	assert.Equal(t, 0.0, agg.DriveableLengthM)
}

func TestCompute_SortsByLengthDescending(t *testing.T) {
	segs := []*entity.Segment{
		{HighwayTag: "residential", SegmentLengthM: 30},
		{HighwayTag: "primary", SegmentLengthM: 100},
		{HighwayTag: "footway", SegmentLengthM: 60},
	}

	agg := Compute(segs)
	require.Len(t, agg.StreetTypes, 3)
	assert.Equal(t, "primary", agg.StreetTypes[0].HighwayTag)
	assert.Equal(t, "footway", agg.StreetTypes[1].HighwayTag)
	assert.Equal(t, "residential", agg.StreetTypes[2].HighwayTag)
}

func TestCompute_CoveragePctAndIdempotence(t *testing.T) {
	segs := []*entity.Segment{
		{HighwayTag: "residential", SegmentLengthM: 50, Driven: true},
		{HighwayTag: "residential", SegmentLengthM: 50, Driven: false},
	}

	agg1 := Compute(segs)
	agg2 := Compute(segs)

	assert.Equal(t, agg1, agg2)
	require.Len(t, agg1.StreetTypes, 1)
	assert.InDelta(t, 50.0, agg1.StreetTypes[0].CoveragePct, 0.001)
	assert.InDelta(t, 50.0, agg1.CoveragePercentage, 0.001)
}
