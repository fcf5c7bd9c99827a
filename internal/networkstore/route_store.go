package networkstore

import (
	"context"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteStore implements repository.RouteRepository against Postgres.
type RouteStore struct {
	db *gorm.DB
}

// NewRouteStore builds a RouteStore.
func NewRouteStore(db *gorm.DB) repository.RouteRepository {
	return &RouteStore{db: db}
}

// Save replaces an area's stored route.
func (s *RouteStore) Save(ctx context.Context, route *entity.OptimalRoute) error {
	m := toRouteModel(route)

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "area_display_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"coordinates", "start_point", "total_distance_m",
				"required_distance_m", "deadhead_distance_m", "deadhead_pct",
				"segment_count", "generated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return errors.Wrap(err, "networkstore: save route failed")
	}

	return nil
}

// FindByArea retrieves an area's most recently generated route.
func (s *RouteStore) FindByArea(ctx context.Context, areaDisplayName string) (*entity.OptimalRoute, error) {
	var m RouteModel
	err := s.db.WithContext(ctx).Where("area_display_name = ?", areaDisplayName).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRouteNotFound
		}

		return nil, errors.Wrap(err, "networkstore: find route failed")
	}

	return toRouteEntity(&m), nil
}

func toRouteModel(r *entity.OptimalRoute) *RouteModel {
	return &RouteModel{
		AreaDisplayName:   r.AreaDisplayName,
		Coordinates:       GormGeometry{Geometry: r.Coordinates},
		StartPoint:        GormGeometry{Geometry: r.StartPoint},
		TotalDistanceM:    r.TotalDistanceM,
		RequiredDistanceM: r.RequiredDistanceM,
		DeadheadDistanceM: r.DeadheadDistanceM,
		DeadheadPct:       r.DeadheadPct,
		SegmentCount:      r.SegmentCount,
		GeneratedAt:       r.GeneratedAt,
	}
}

func toRouteEntity(m *RouteModel) *entity.OptimalRoute {
	point, _ := m.StartPoint.Geometry.(orb.Point)

	return &entity.OptimalRoute{
		AreaDisplayName:   m.AreaDisplayName,
		Coordinates:       asLineString(m.Coordinates.Geometry),
		TotalDistanceM:    m.TotalDistanceM,
		RequiredDistanceM: m.RequiredDistanceM,
		DeadheadDistanceM: m.DeadheadDistanceM,
		DeadheadPct:       m.DeadheadPct,
		SegmentCount:      m.SegmentCount,
		StartPoint:        point,
		GeneratedAt:       m.GeneratedAt,
	}
}
