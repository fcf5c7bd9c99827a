package networkstore

import (
	"context"
	"time"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AreaStore implements repository.AreaRepository against Postgres.
type AreaStore struct {
	db *gorm.DB
}

// NewAreaStore builds an AreaStore.
func NewAreaStore(db *gorm.DB) repository.AreaRepository {
	return &AreaStore{db: db}
}

// Upsert creates or updates an area's metadata (spec §4.2 upsert_area):
// sets state to processing and clears aggregates to zero.
func (s *AreaStore) Upsert(ctx context.Context, area *entity.CoverageArea) (string, error) {
	if area.ID == "" {
		area.ID = uuid.NewString()
	}

	area.State = entity.AreaStateProcessing
	area.ResetAggregates()

	m, err := toAreaModel(area)
	if err != nil {
		return "", err
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "display_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"boundary", "segment_length_m", "match_buffer_m", "min_match_length_m", "state", "updated_at", "total_length_m", "driveable_length_m", "driven_length_m", "coverage_percentage", "total_segments", "driveable_segments", "street_types", "needs_stats_update"}),
		}).
		Create(m).Error
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return "", repository.ErrDuplicateArea
		}

		return "", errors.Wrap(err, "networkstore: upsert area failed")
	}

	var stored AreaModel
	if err := s.db.WithContext(ctx).Select("id", "created_at").Where("display_name = ?", area.DisplayName).First(&stored).Error; err != nil {
		return "", errors.Wrap(err, "networkstore: reload upserted area failed")
	}
	m.ID = stored.ID
	m.CreatedAt = stored.CreatedAt

	area.ID = m.ID
	area.CreatedAt = m.CreatedAt
	area.UpdatedAt = m.UpdatedAt

	return m.ID, nil
}

// FindByID retrieves an area by its opaque id.
func (s *AreaStore) FindByID(ctx context.Context, id string) (*entity.CoverageArea, error) {
	var m AreaModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAreaNotFound
		}

		return nil, errors.Wrap(err, "networkstore: find area by id failed")
	}

	return toAreaEntity(&m)
}

// FindByDisplayName retrieves an area by its unique display name.
func (s *AreaStore) FindByDisplayName(ctx context.Context, displayName string) (*entity.CoverageArea, error) {
	var m AreaModel
	if err := s.db.WithContext(ctx).Where("display_name = ?", displayName).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAreaNotFound
		}

		return nil, errors.Wrap(err, "networkstore: find area by display name failed")
	}

	return toAreaEntity(&m)
}

// Save persists mutations to an existing area.
func (s *AreaStore) Save(ctx context.Context, area *entity.CoverageArea) error {
	m, err := toAreaModel(area)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return errors.Wrap(err, "networkstore: save area failed")
	}

	area.UpdatedAt = m.UpdatedAt

	return nil
}

// Delete removes an area and cascades to its segments, contributions, and
// progress records (spec §6 delete(area)).
func (s *AreaStore) Delete(ctx context.Context, displayName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("segment_id IN (?)", tx.Model(&SegmentModel{}).Select("segment_id").Where("area_name = ?", displayName)).Delete(&ContributionModel{}).Error; err != nil {
			return errors.Wrap(err, "networkstore: delete contributions failed")
		}
		if err := tx.Where("area_name = ?", displayName).Delete(&SegmentModel{}).Error; err != nil {
			return errors.Wrap(err, "networkstore: delete segments failed")
		}
		if err := tx.Where("area_display_name = ?", displayName).Delete(&TaskModel{}).Error; err != nil {
			return errors.Wrap(err, "networkstore: delete tasks failed")
		}
		if err := tx.Where("area_display_name = ?", displayName).Delete(&RouteModel{}).Error; err != nil {
			return errors.Wrap(err, "networkstore: delete route failed")
		}
		if err := tx.Where("display_name = ?", displayName).Delete(&AreaModel{}).Error; err != nil {
			return errors.Wrap(err, "networkstore: delete area failed")
		}

		return nil
	})
}

func toAreaModel(area *entity.CoverageArea) (*AreaModel, error) {
	streetTypesJSON, err := json.Marshal(area.Aggregates.StreetTypes)
	if err != nil {
		return nil, errors.Wrap(err, "networkstore: marshal street types failed")
	}

	return &AreaModel{
		ID:          area.ID,
		DisplayName: area.DisplayName,
		Boundary:    GormGeometry{Geometry: area.Boundary},

		SegmentLengthM:  area.Params.SegmentLengthM,
		MatchBufferM:    area.Params.MatchBufferM,
		MinMatchLengthM: area.Params.MinMatchLengthM,

		State: string(area.State),

		TotalLengthM:       area.Aggregates.TotalLengthM,
		DriveableLengthM:   area.Aggregates.DriveableLengthM,
		DrivenLengthM:      area.Aggregates.DrivenLengthM,
		CoveragePercentage: area.Aggregates.CoveragePercentage,
		TotalSegments:      area.Aggregates.TotalSegments,
		DriveableSegments:  area.Aggregates.DriveableSegments,
		StreetTypesJSON:    streetTypesJSON,

		StreetsGeoJSONArtifactID: area.StreetsGeoJSONArtifactID,
		OptimalRouteGeneratedAt:  routeGeneratedAt(area.OptimalRoute),
		LastCoveredAt:            area.LastCoveredAt,
		NeedsStatsUpdate:         area.NeedsStatsUpdate,
		LastError:                area.LastError,

		CreatedAt: area.CreatedAt,
	}, nil
}

func routeGeneratedAt(r *entity.RouteRef) *time.Time {
	if r == nil {
		return nil
	}

	return &r.GeneratedAt
}

func toAreaEntity(m *AreaModel) (*entity.CoverageArea, error) {
	var streetTypes []entity.StreetTypeStat
	if len(m.StreetTypesJSON) > 0 {
		if err := json.Unmarshal(m.StreetTypesJSON, &streetTypes); err != nil {
			return nil, errors.Wrap(err, "networkstore: unmarshal street types failed")
		}
	}

	var route *entity.RouteRef
	if m.OptimalRouteGeneratedAt != nil {
		route = &entity.RouteRef{GeneratedAt: *m.OptimalRouteGeneratedAt}
	}

	return &entity.CoverageArea{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Boundary:    m.Boundary.Geometry,

		Params: entity.NewAreaParams(m.SegmentLengthM, m.MatchBufferM, m.MinMatchLengthM),
		State:  entity.AreaState(m.State),

		Aggregates: entity.AreaAggregates{
			TotalLengthM:       m.TotalLengthM,
			DriveableLengthM:   m.DriveableLengthM,
			DrivenLengthM:      m.DrivenLengthM,
			CoveragePercentage: m.CoveragePercentage,
			TotalSegments:      m.TotalSegments,
			DriveableSegments:  m.DriveableSegments,
			StreetTypes:        streetTypes,
		},

		StreetsGeoJSONArtifactID: m.StreetsGeoJSONArtifactID,
		OptimalRoute:             route,
		LastCoveredAt:            m.LastCoveredAt,
		NeedsStatsUpdate:         m.NeedsStatsUpdate,
		LastError:                m.LastError,

		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
