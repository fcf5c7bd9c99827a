package repository

import (
	"context"

	"streetcoverage/internal/domain/entity"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ErrSegmentNotFound is returned when a segment id does not exist.
var ErrSegmentNotFound = errors.New("segment not found")

// SegmentFilter narrows query_segments_by_viewport results.
type SegmentFilter string

const (
	FilterNone       SegmentFilter = ""
	FilterDriven     SegmentFilter = "driven"
	FilterUndriven   SegmentFilter = "undriven"
	FilterDriveable  SegmentFilter = "driveable"
)

// SegmentRepository defines the interface for Segment persistence and
// spatial queries.
type SegmentRepository interface {
	// SaveSegments atomically replaces an area's segment set and
	// re-indexes it for spatial queries.
	SaveSegments(ctx context.Context, areaDisplayName string, segments []*entity.Segment) error

	// FindByID retrieves a single segment by its stable id.
	FindByID(ctx context.Context, segmentID string) (*entity.Segment, error)

	// FindByArea retrieves every segment belonging to an area.
	FindByArea(ctx context.Context, areaDisplayName string) ([]*entity.Segment, error)

	// QueryByViewport returns segments intersecting bbox, filtered by
	// driven state.
	QueryByViewport(ctx context.Context, areaDisplayName string, bbox orb.Bound, filter SegmentFilter) ([]*entity.Segment, error)

	// QueryCandidates returns segments whose geometry may intersect g,
	// used by CoverageAttributor's buffered spatial query.
	QueryCandidates(ctx context.Context, areaDisplayName string, g orb.Geometry) ([]*entity.Segment, error)

	// SaveState persists mutated segment state (driven/undriveable/manual
	// flags/timestamps) without touching geometry.
	SaveState(ctx context.Context, segments []*entity.Segment) error

	// SaveContribution records a TripContribution row.
	SaveContribution(ctx context.Context, c *entity.TripContribution) error
}
