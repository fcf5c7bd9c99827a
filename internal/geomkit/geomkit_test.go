package geomkit

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		point   orb.Point
		wantErr bool
	}{
		{"valid", orb.Point{-122.4, 37.7}, false},
		{"lon too high", orb.Point{181, 0}, true},
		{"lon too low", orb.Point{-181, 0}, true},
		{"lat too high", orb.Point{0, 91}, true},
		{"lat too low", orb.Point{0, -91}, true},
		{"boundary ok", orb.Point{180, 90}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate(tt.point)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLineString(t *testing.T) {
	require.Error(t, ValidateLineString(orb.LineString{{0, 0}}))
	require.NoError(t, ValidateLineString(orb.LineString{{0, 0}, {0, 0.001}}))
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Roughly 1 degree of longitude at the equator is ~111.2 km.
	d := Haversine(orb.Point{0, 0}, orb.Point{1, 0})
	assert.InDelta(t, 111195.0, d, 2000)
}

func TestLengthMeters_MatchesHaversineForShortSegment(t *testing.T) {
	ls := orb.LineString{{-122.42, 37.77}, {-122.419, 37.7705}}
	projected := LengthMeters(ls)
	haversine := Haversine(ls[0], ls[1])

	// Over short distances, UTM planar length and haversine should agree
	// closely.
	assert.InDelta(t, haversine, projected, haversine*0.01+1)
}

func TestTransformer_ProjectUnprojectRoundTrip(t *testing.T) {
	p := orb.Point{-122.42, 37.77}
	tr := TransformerFor(p[1], p[0])
	x, y := tr.Project(p)
	back := tr.Unproject(x, y)

	assert.InDelta(t, p[0], back[0], 1e-6)
	assert.InDelta(t, p[1], back[1], 1e-6)
}

func TestUTMZoneFor(t *testing.T) {
	zone, northern := UTMZoneFor(37.7, -122.4)
	assert.Equal(t, 10, zone)
	assert.True(t, northern)

	zone, northern = UTMZoneFor(-33.9, 151.2)
	assert.Equal(t, 56, zone)
	assert.False(t, northern)
}

func TestSimplify_DropsRedundantVertices(t *testing.T) {
	ls := orb.LineString{
		{0, 0}, {0, 0.0001}, {0, 0.0002}, {0, 0.0003}, {1, 1},
	}
	out := Simplify(ls, 1000000)
	assert.LessOrEqual(t, len(out), len(ls))
	assert.Equal(t, ls[0], out[0])
	assert.Equal(t, ls[len(ls)-1], out[len(out)-1])
}

func TestRepair_DropsDuplicatesAndDetectsDegenerate(t *testing.T) {
	ls := orb.LineString{{0, 0}, {0, 0}, {0, 0.001}, {0, 0.001}}
	repaired, ok := Repair(ls)
	require.True(t, ok)
	assert.Len(t, repaired, 2)

	degenerate := orb.LineString{{1, 1}, {1, 1}, {1, 1}}
	_, ok = Repair(degenerate)
	assert.False(t, ok)

	p, isPoint := IsDistinctPoint(degenerate)
	require.True(t, isPoint)
	assert.Equal(t, orb.Point{1, 1}, p)
}

func TestSpatialIndex_QueryAndNearest(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}
	idx := NewSpatialIndex(bound)
	idx.Add("a", orb.Point{0, 0})
	idx.Add("b", orb.Point{0.5, 0.5})

	assert.Equal(t, 2, idx.Size())

	ids := idx.Query(orb.Bound{Min: orb.Point{-0.1, -0.1}, Max: orb.Point{0.1, 0.1}})
	assert.Contains(t, ids, "a")
	assert.NotContains(t, ids, "b")

	nearest, ok := idx.Nearest(orb.Point{0.4, 0.4})
	require.True(t, ok)
	assert.Equal(t, "b", nearest)
}
