package networkstore

import (
	"context"
	"time"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"

	"github.com/paulmach/orb"
)

// Service composes AreaStore/SegmentStore into the higher-level
// operations spec §4.2 and §6 describe (set_segment_state,
// query_segments_by_viewport, snapshot_stats, mark_segment) on top of the
// plain repository CRUD.
type Service struct {
	Areas    repository.AreaRepository
	Segments repository.SegmentRepository
}

// NewService builds a Service.
func NewService(areas repository.AreaRepository, segments repository.SegmentRepository) *Service {
	return &Service{Areas: areas, Segments: segments}
}

// MarkSegment applies a manual override (spec §6 mark_segment), setting
// needs_stats_update on the owning area so the caller can schedule a
// StatsAggregator pass and GeoJSON regeneration.
func (s *Service) MarkSegment(ctx context.Context, segmentID string, mutation entity.ManualMutation, now time.Time) error {
	seg, err := s.Segments.FindByID(ctx, segmentID)
	if err != nil {
		return err
	}

	seg.ApplyManual(mutation, now)

	if err := s.Segments.SaveState(ctx, []*entity.Segment{seg}); err != nil {
		return err
	}

	area, err := s.Areas.FindByDisplayName(ctx, seg.AreaName)
	if err != nil {
		return err
	}

	area.NeedsStatsUpdate = true

	return s.Areas.Save(ctx, area)
}

// QuerySegmentsByViewport returns segments intersecting bbox, filtered by
// driven state (spec §6 query_streets).
func (s *Service) QuerySegmentsByViewport(ctx context.Context, areaDisplayName string, bbox orb.Bound, filter repository.SegmentFilter) ([]*entity.Segment, error) {
	return s.Segments.QueryByViewport(ctx, areaDisplayName, bbox, filter)
}

// SnapshotStats returns an area's current aggregates.
func (s *Service) SnapshotStats(ctx context.Context, areaDisplayName string) (entity.AreaAggregates, error) {
	area, err := s.Areas.FindByDisplayName(ctx, areaDisplayName)
	if err != nil {
		return entity.AreaAggregates{}, err
	}

	return area.Aggregates, nil
}
