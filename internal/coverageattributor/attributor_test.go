package coverageattributor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSegmentRepo struct {
	bySegmentID   map[string]*entity.Segment
	candidates    map[string][]*entity.Segment // keyed by area
	contributions []*entity.TripContribution
	saved         []*entity.Segment
}

func newFakeSegmentRepo(segs ...*entity.Segment) *fakeSegmentRepo {
	r := &fakeSegmentRepo{
		bySegmentID: map[string]*entity.Segment{},
		candidates:  map[string][]*entity.Segment{},
	}
	for _, s := range segs {
		r.bySegmentID[s.SegmentID] = s
		r.candidates["area-1"] = append(r.candidates["area-1"], s)
	}

	return r
}

func (r *fakeSegmentRepo) SaveSegments(ctx context.Context, areaDisplayName string, segments []*entity.Segment) error {
	return nil
}

func (r *fakeSegmentRepo) FindByID(ctx context.Context, segmentID string) (*entity.Segment, error) {
	return r.bySegmentID[segmentID], nil
}

func (r *fakeSegmentRepo) FindByArea(ctx context.Context, areaDisplayName string) ([]*entity.Segment, error) {
	return r.candidates[areaDisplayName], nil
}

func (r *fakeSegmentRepo) QueryByViewport(ctx context.Context, areaDisplayName string, bbox orb.Bound, filter repository.SegmentFilter) ([]*entity.Segment, error) {
	return nil, nil
}

func (r *fakeSegmentRepo) QueryCandidates(ctx context.Context, areaDisplayName string, g orb.Geometry) ([]*entity.Segment, error) {
	return r.candidates[areaDisplayName], nil
}

func (r *fakeSegmentRepo) SaveState(ctx context.Context, segments []*entity.Segment) error {
	r.saved = append(r.saved, segments...)

	return nil
}

func (r *fakeSegmentRepo) SaveContribution(ctx context.Context, c *entity.TripContribution) error {
	r.contributions = append(r.contributions, c)

	return nil
}

type fakeTripRepo struct {
	trips []*entity.Trip
}

func (r *fakeTripRepo) FindSince(ctx context.Context, since time.Time) ([]*entity.Trip, error) {
	var out []*entity.Trip
	for _, t := range r.trips {
		if t.MatchedAt != nil && t.MatchedAt.After(since) {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *fakeTripRepo) FindIntersecting(ctx context.Context, bound orb.Bound) ([]*entity.Trip, error) {
	return r.trips, nil
}

func (r *fakeTripRepo) SaveMatch(ctx context.Context, trip *entity.Trip) error {
	return nil
}

func straightSegment(id string, y float64) *entity.Segment {
	return &entity.Segment{
		SegmentID:      id,
		HighwayTag:     "residential",
		SegmentLengthM: 50,
		Geometry:       orb.LineString{{0, y}, {0.001, y}},
	}
}

func areaFixture() *entity.CoverageArea {
	return &entity.CoverageArea{
		ID:          "area-1",
		DisplayName: "area-1",
		Boundary:    orb.Polygon{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}},
		Params:      entity.NewAreaParams(45.72, 20, 4.57),
	}
}

func TestFullCalc_SingleTripCoversIntersectingSegment(t *testing.T) {
	seg := straightSegment("seg-1", 0)
	segRepo := newFakeSegmentRepo(seg)

	matchedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	trip := &entity.Trip{
		TripID:      "trip-1",
		StartTime:   matchedAt,
		MatchedGPS:  orb.LineString{{0, 0.0000001}, {0.001, 0.0000001}},
		MatchStatus: entity.MatchStatusOK,
		MatchedAt:   &matchedAt,
	}
	tripRepo := &fakeTripRepo{trips: []*entity.Trip{trip}}

	a := New(segRepo, tripRepo, discardLogger())
	area := areaFixture()

	require.NoError(t, a.FullCalc(context.Background(), area, nil))

	assert.True(t, seg.Driven)
	require.NotNil(t, seg.FirstDrivenAt)
	assert.Equal(t, matchedAt, *seg.FirstDrivenAt)
	require.Len(t, segRepo.contributions, 1)
	assert.Equal(t, "seg-1", segRepo.contributions[0].SegmentID)
	require.NotNil(t, area.LastCoveredAt)
	assert.Equal(t, matchedAt, *area.LastCoveredAt)
}

func TestFullCalc_NonIntersectingTripLeavesSegmentUndriven(t *testing.T) {
	seg := straightSegment("seg-1", 5) // far away, no overlap within buffer
	segRepo := newFakeSegmentRepo(seg)

	matchedAt := time.Now()
	trip := &entity.Trip{
		TripID:      "trip-1",
		StartTime:   matchedAt,
		MatchedGPS:  orb.LineString{{0, 0}, {0.001, 0}},
		MatchStatus: entity.MatchStatusOK,
		MatchedAt:   &matchedAt,
	}
	tripRepo := &fakeTripRepo{trips: []*entity.Trip{trip}}

	a := New(segRepo, tripRepo, discardLogger())
	area := areaFixture()

	require.NoError(t, a.FullCalc(context.Background(), area, nil))

	assert.False(t, seg.Driven)
	assert.Empty(t, segRepo.contributions)
}

func TestFullCalc_ManualUndrivenSurvives(t *testing.T) {
	seg := straightSegment("seg-1", 0)
	seg.ManualUndriven = true
	segRepo := newFakeSegmentRepo(seg)

	matchedAt := time.Now()
	trip := &entity.Trip{
		TripID:      "trip-1",
		StartTime:   matchedAt,
		MatchedGPS:  orb.LineString{{0, 0.0000001}, {0.001, 0.0000001}},
		MatchStatus: entity.MatchStatusOK,
		MatchedAt:   &matchedAt,
	}
	tripRepo := &fakeTripRepo{trips: []*entity.Trip{trip}}

	a := New(segRepo, tripRepo, discardLogger())
	area := areaFixture()

	require.NoError(t, a.FullCalc(context.Background(), area, nil))

	assert.False(t, seg.Driven, "manual_undriven must veto automatic attribution")
}

func TestIncrementalCalc_OnlyProcessesTripsSinceWatermark(t *testing.T) {
	seg := straightSegment("seg-1", 0)
	segRepo := newFakeSegmentRepo(seg)

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	watermark := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	oldTrip := &entity.Trip{
		TripID:      "old",
		MatchedGPS:  orb.LineString{{0, 0.0000001}, {0.001, 0.0000001}},
		MatchStatus: entity.MatchStatusOK,
		MatchedAt:   &older,
	}
	newTrip := &entity.Trip{
		TripID:      "new",
		StartTime:   newer,
		MatchedGPS:  orb.LineString{{0, 0.0000001}, {0.001, 0.0000001}},
		MatchStatus: entity.MatchStatusOK,
		MatchedAt:   &newer,
	}
	tripRepo := &fakeTripRepo{trips: []*entity.Trip{oldTrip, newTrip}}

	a := New(segRepo, tripRepo, discardLogger())
	area := areaFixture()
	area.LastCoveredAt = &watermark

	require.NoError(t, a.IncrementalCalc(context.Background(), area, nil))

	require.Len(t, segRepo.contributions, 1)
	assert.Equal(t, "new", segRepo.contributions[0].TripID)
}
