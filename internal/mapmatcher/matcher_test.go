package mapmatcher

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetcoverage/config"
	"streetcoverage/internal/domain/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.MapMatchConfig {
	cfg := config.DefaultMapMatchConfig()
	cfg.BaseURL = "http://provider.invalid"

	return cfg
}

type fakeClient struct {
	calls   int32
	scripts []func(coords []Coord) (Outcome, error)
}

func (f *fakeClient) Match(_ context.Context, coords []Coord) (Outcome, error) {
	idx := int(atomic.AddInt32(&f.calls, 1)) - 1
	if idx >= len(f.scripts) {
		return Outcome{Kind: OutcomeOK, Geometry: coordsGeometry(coords)}, nil
	}

	return f.scripts[idx](coords)
}

func coordsGeometry(coords []Coord) [][2]float64 {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c.Lon, c.Lat}
	}

	return out
}

func TestMatch_SkipsPoint(t *testing.T) {
	m := NewMatcher(&fakeClient{}, testConfig(), discardLogger())
	trip := &entity.Trip{GPS: orb.Point{0, 0}}

	require.NoError(t, m.Match(context.Background(), trip))
	assert.Equal(t, entity.SkippedReason("point"), trip.MatchStatus)
}

func TestMatch_SkipsInsufficientPoints(t *testing.T) {
	m := NewMatcher(&fakeClient{}, testConfig(), discardLogger())
	trip := &entity.Trip{GPS: orb.LineString{{0, 0}}}

	require.NoError(t, m.Match(context.Background(), trip))
	assert.Equal(t, entity.SkippedReason("insufficient-points"), trip.MatchStatus)
}

func TestMatch_RateLimitRetryHonorsRetryAfter(t *testing.T) {
	client := &fakeClient{
		scripts: []func([]Coord) (Outcome, error){
			func(c []Coord) (Outcome, error) {
				return Outcome{Kind: OutcomeRateLimited, RetryAfter: time.Second}, nil
			},
			func(c []Coord) (Outcome, error) {
				return Outcome{Kind: OutcomeOK, Geometry: coordsGeometry(c)}, nil
			},
		},
	}

	m := NewMatcher(client, testConfig(), discardLogger())

	var slept []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)

		return nil
	}

	trip := &entity.Trip{GPS: orb.LineString{{0, 0}, {0, 0.001}}}
	require.NoError(t, m.Match(context.Background(), trip))

	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], time.Second)
	assert.Equal(t, entity.MatchStatusOK, trip.MatchStatus)
}

func TestMatch_ClientErrorFailsChunk(t *testing.T) {
	cfg := testConfig()
	cfg.MinSubChunk = 100 // disable subdivision for this trip size
	client := &fakeClient{
		scripts: []func([]Coord) (Outcome, error){
			func(c []Coord) (Outcome, error) {
				return Outcome{Kind: OutcomeClientError, Message: "bad request"}, nil
			},
		},
	}

	m := NewMatcher(client, cfg, discardLogger())
	trip := &entity.Trip{GPS: orb.LineString{{0, 0}, {0, 0.001}, {0, 0.002}}}

	require.NoError(t, m.Match(context.Background(), trip))
	assert.Contains(t, string(trip.MatchStatus), "error:")
}

func TestChunkCoords_RespectsOverlap(t *testing.T) {
	coords := make([]Coord, 120)
	for i := range coords {
		coords[i] = Coord{Lon: float64(i), Lat: 0}
	}

	chunks := chunkCoords(coords, 100, 15)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 100)
	assert.Equal(t, coords[85:], chunks[1])
}

func TestRepairJumps_ReMatchesLargeGap(t *testing.T) {
	coords := []Coord{
		{Lon: 0, Lat: 0},
		{Lon: 0.01, Lat: 0}, // ~1100m jump
		{Lon: 0.0101, Lat: 0},
	}

	client := &fakeClient{}
	m := NewMatcher(client, testConfig(), discardLogger())

	out := repairJumps(m, context.Background(), coords, 200, 2)
	assert.NotEmpty(t, out)
	assert.Positive(t, atomic.LoadInt32(&client.calls), "the window around the jump is sent back to the provider")
}
