package networkstore

import (
	"context"
	"sync"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"
	"streetcoverage/internal/geomkit"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// candidateMarginDeg bounds the viewport/candidate spatial query expansion
// applied around a query geometry's own bound; generous relative to the
// spec's match_buffer_m default (7.62m) so the subsequent exact
// buffered-intersection test in CoverageAttributor never starves on a
// too-tight candidate set.
const candidateMarginDeg = 0.01

// areaCache is the in-memory spatial index rebuilt on SaveSegments and
// reused by QueryCandidates/QueryByViewport without a DB round trip for
// candidate generation (spec §4.2/§5: "per-area spatial index ... cached
// in memory for attribution").
type areaCache struct {
	index    *geomkit.SpatialIndex
	segments map[string]*entity.Segment
}

// SegmentStore implements repository.SegmentRepository against Postgres,
// backed by a per-area in-memory spatial cache.
type SegmentStore struct {
	db *gorm.DB

	mu    sync.RWMutex
	cache map[string]*areaCache
}

// NewSegmentStore builds a SegmentStore.
func NewSegmentStore(db *gorm.DB) *SegmentStore {
	return &SegmentStore{db: db, cache: map[string]*areaCache{}}
}

// SaveSegments atomically replaces an area's segment set (spec §4.2:
// "atomically replaces the area's segment set. Re-indexes for spatial
// queries.").
func (s *SegmentStore) SaveSegments(ctx context.Context, areaDisplayName string, segments []*entity.Segment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("area_name = ?", areaDisplayName).Delete(&SegmentModel{}).Error; err != nil {
			return errors.Wrap(err, "networkstore: clear prior segments failed")
		}

		if len(segments) == 0 {
			return nil
		}

		models := make([]*SegmentModel, 0, len(segments))
		for _, seg := range segments {
			models = append(models, toSegmentModel(seg))
		}

		const batchSize = 500
		if err := tx.CreateInBatches(models, batchSize).Error; err != nil {
			return errors.Wrap(err, "networkstore: save segments failed")
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.rebuildCache(areaDisplayName, segments)

	return nil
}

func (s *SegmentStore) rebuildCache(areaDisplayName string, segments []*entity.Segment) {
	bound := orb.Bound{}
	for i, seg := range segments {
		b := seg.Geometry.Bound()
		if i == 0 {
			bound = b
		} else {
			bound = bound.Union(b)
		}
	}
	if len(segments) == 0 {
		bound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
	}

	idx := geomkit.NewSpatialIndex(bound)
	bySeg := make(map[string]*entity.Segment, len(segments))

	for _, seg := range segments {
		idx.Add(seg.SegmentID, midpoint(seg.Geometry))
		bySeg[seg.SegmentID] = seg
	}

	s.mu.Lock()
	s.cache[areaDisplayName] = &areaCache{index: idx, segments: bySeg}
	s.mu.Unlock()
}

func midpoint(ls orb.LineString) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}

	return ls[len(ls)/2]
}

// FindByID retrieves a single segment by its stable id.
func (s *SegmentStore) FindByID(ctx context.Context, segmentID string) (*entity.Segment, error) {
	var m SegmentModel
	if err := s.db.WithContext(ctx).Where("segment_id = ?", segmentID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSegmentNotFound
		}

		return nil, errors.Wrap(err, "networkstore: find segment by id failed")
	}

	return toSegmentEntity(&m), nil
}

// FindByArea retrieves every segment belonging to an area, populating the
// in-memory cache if it is cold.
func (s *SegmentStore) FindByArea(ctx context.Context, areaDisplayName string) ([]*entity.Segment, error) {
	if cached, ok := s.cachedArea(areaDisplayName); ok {
		return cached, nil
	}

	var models []SegmentModel
	if err := s.db.WithContext(ctx).Where("area_name = ?", areaDisplayName).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "networkstore: find segments by area failed")
	}

	segs := make([]*entity.Segment, 0, len(models))
	for i := range models {
		segs = append(segs, toSegmentEntity(&models[i]))
	}

	s.rebuildCache(areaDisplayName, segs)

	return segs, nil
}

func (s *SegmentStore) cachedArea(areaDisplayName string) ([]*entity.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cache[areaDisplayName]
	if !ok {
		return nil, false
	}

	out := make([]*entity.Segment, 0, len(c.segments))
	for _, seg := range c.segments {
		out = append(out, seg)
	}

	return out, true
}

// QueryByViewport returns segments intersecting bbox, filtered by driven
// state.
func (s *SegmentStore) QueryByViewport(ctx context.Context, areaDisplayName string, bbox orb.Bound, filter repository.SegmentFilter) ([]*entity.Segment, error) {
	segs, err := s.candidatesInBound(ctx, areaDisplayName, bbox)
	if err != nil {
		return nil, err
	}

	out := segs[:0]
	for _, seg := range segs {
		if !seg.Geometry.Bound().Intersects(bbox) {
			continue
		}
		if matchesFilter(seg, filter) {
			out = append(out, seg)
		}
	}

	return out, nil
}

func matchesFilter(seg *entity.Segment, filter repository.SegmentFilter) bool {
	switch filter {
	case repository.FilterDriven:
		return seg.Driven
	case repository.FilterUndriven:
		return !seg.Driven && !seg.Undriveable
	case repository.FilterDriveable:
		return !seg.Undriveable
	default:
		return true
	}
}

// QueryCandidates returns segments whose geometry may intersect g,
// expanding g's bound by a fixed margin; CoverageAttributor narrows this
// with its own exact buffered-intersection test.
func (s *SegmentStore) QueryCandidates(ctx context.Context, areaDisplayName string, g orb.Geometry) ([]*entity.Segment, error) {
	bound := g.Bound()
	bound = orb.Bound{
		Min: orb.Point{bound.Min[0] - candidateMarginDeg, bound.Min[1] - candidateMarginDeg},
		Max: orb.Point{bound.Max[0] + candidateMarginDeg, bound.Max[1] + candidateMarginDeg},
	}

	return s.candidatesInBound(ctx, areaDisplayName, bound)
}

func (s *SegmentStore) candidatesInBound(ctx context.Context, areaDisplayName string, bound orb.Bound) ([]*entity.Segment, error) {
	if _, ok := s.cachedArea(areaDisplayName); !ok {
		if _, err := s.FindByArea(ctx, areaDisplayName); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	c := s.cache[areaDisplayName]
	s.mu.RUnlock()

	if c == nil {
		return nil, nil
	}

	ids := c.index.Query(bound)
	out := make([]*entity.Segment, 0, len(ids))
	for _, id := range ids {
		if seg, ok := c.segments[id]; ok {
			out = append(out, seg)
		}
	}

	return out, nil
}

// SaveState persists mutated segment state without touching geometry,
// updating both the DB row and the in-memory cache entry in place.
func (s *SegmentStore) SaveState(ctx context.Context, segments []*entity.Segment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seg := range segments {
			updates := map[string]any{
				"driven":              seg.Driven,
				"undriveable":         seg.Undriveable,
				"manual_driven":       seg.ManualDriven,
				"manual_undriven":     seg.ManualUndriven,
				"manual_undriveable":  seg.ManualUndriveable,
				"manual_driveable":    seg.ManualDriveable,
				"last_manual_update":  seg.LastManualUpdate,
				"first_driven_at":     seg.FirstDrivenAt,
				"last_driven_at":      seg.LastDrivenAt,
			}

			if err := tx.Model(&SegmentModel{}).Where("segment_id = ?", seg.SegmentID).Updates(updates).Error; err != nil {
				return errors.Wrap(err, "networkstore: save segment state failed")
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, seg := range segments {
		if c, ok := s.cache[seg.AreaName]; ok {
			c.segments[seg.SegmentID] = seg
		}
	}
	s.mu.Unlock()

	return nil
}

// SaveContribution records a TripContribution row.
func (s *SegmentStore) SaveContribution(ctx context.Context, c *entity.TripContribution) error {
	m := &ContributionModel{SegmentID: c.SegmentID, TripID: c.TripID, MatchedAt: c.MatchedAt}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return errors.Wrap(err, "networkstore: save contribution failed")
	}

	return nil
}

func toSegmentModel(seg *entity.Segment) *SegmentModel {
	return &SegmentModel{
		SegmentID:      seg.SegmentID,
		AreaName:       seg.AreaName,
		Geometry:       GormGeometry{Geometry: seg.Geometry},
		HighwayTag:     seg.HighwayTag,
		StreetName:     seg.StreetName,
		SegmentLengthM: seg.SegmentLengthM,
		Oneway:         seg.Oneway,

		Driven:      seg.Driven,
		Undriveable: seg.Undriveable,

		ManualDriven:      seg.ManualDriven,
		ManualUndriven:    seg.ManualUndriven,
		ManualUndriveable: seg.ManualUndriveable,
		ManualDriveable:   seg.ManualDriveable,

		LastManualUpdate: seg.LastManualUpdate,
		FirstDrivenAt:    seg.FirstDrivenAt,
		LastDrivenAt:     seg.LastDrivenAt,
	}
}

func toSegmentEntity(m *SegmentModel) *entity.Segment {
	return &entity.Segment{
		SegmentID:      m.SegmentID,
		AreaName:       m.AreaName,
		Geometry:       asLineString(m.Geometry.Geometry),
		HighwayTag:     m.HighwayTag,
		StreetName:     m.StreetName,
		SegmentLengthM: m.SegmentLengthM,
		Oneway:         m.Oneway,

		Driven:      m.Driven,
		Undriveable: m.Undriveable,

		ManualDriven:      m.ManualDriven,
		ManualUndriven:    m.ManualUndriven,
		ManualUndriveable: m.ManualUndriveable,
		ManualDriveable:   m.ManualDriveable,

		LastManualUpdate: m.LastManualUpdate,
		FirstDrivenAt:    m.FirstDrivenAt,
		LastDrivenAt:     m.LastDrivenAt,
	}
}
