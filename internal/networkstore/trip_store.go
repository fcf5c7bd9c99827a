package networkstore

import (
	"context"
	"time"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// TripStore implements repository.TripRepository against Postgres. Trips
// themselves are ingested by the telematics pipeline (out of scope); this
// store only reads them and writes back the map-match result fields.
type TripStore struct {
	db *gorm.DB
}

// NewTripStore builds a TripStore.
func NewTripStore(db *gorm.DB) repository.TripRepository {
	return &TripStore{db: db}
}

// FindSince returns trips matched after the given watermark, in
// non-decreasing MatchedAt order.
func (s *TripStore) FindSince(ctx context.Context, since time.Time) ([]*entity.Trip, error) {
	q := s.db.WithContext(ctx).Model(&TripModel{}).Order("matched_at ASC")
	if !since.IsZero() {
		q = q.Where("matched_at > ?", since)
	} else {
		q = q.Where("matched_at IS NOT NULL")
	}

	var models []TripModel
	if err := q.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "networkstore: find trips since failed")
	}

	return toTripEntities(models)
}

// FindIntersecting returns every successfully matched trip whose geometry
// may intersect bound, for full_calc. The bound filter is applied in
// Go after fetch since the matched_gps column round-trips through
// GeoJSON text rather than a PostGIS geography column.
func (s *TripStore) FindIntersecting(ctx context.Context, bound orb.Bound) ([]*entity.Trip, error) {
	var models []TripModel
	err := s.db.WithContext(ctx).
		Where("matched_at IS NOT NULL AND match_status = ?", string(entity.MatchStatusOK)).
		Order("matched_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "networkstore: find intersecting trips failed")
	}

	trips, err := toTripEntities(models)
	if err != nil {
		return nil, err
	}

	out := trips[:0]
	for _, t := range trips {
		if t.MatchedGPS != nil && bound.Intersects(t.MatchedGPS.Bound()) {
			out = append(out, t)
		}
	}

	return out, nil
}

// SaveMatch persists the MatchedGPS/MatchStatus/MatchedAt fields written
// back by the map-matcher.
func (s *TripStore) SaveMatch(ctx context.Context, trip *entity.Trip) error {
	timestampsJSON, err := json.Marshal(trip.Timestamps)
	if err != nil {
		return errors.Wrap(err, "networkstore: marshal timestamps failed")
	}

	updates := map[string]any{
		"matched_gps":  GormGeometry{Geometry: trip.MatchedGPS},
		"match_status": string(trip.MatchStatus),
		"matched_at":   trip.MatchedAt,
		"timestamps":   timestampsJSON,
	}

	err = s.db.WithContext(ctx).Model(&TripModel{}).
		Where("trip_id = ?", trip.TripID).
		Updates(updates).Error
	if err != nil {
		return errors.Wrap(err, "networkstore: save trip match failed")
	}

	return nil
}

func toTripEntities(models []TripModel) ([]*entity.Trip, error) {
	out := make([]*entity.Trip, 0, len(models))
	for i := range models {
		t, err := toTripEntity(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, nil
}

func toTripEntity(m *TripModel) (*entity.Trip, error) {
	var timestamps []time.Time
	if len(m.TimestampsJSON) > 0 {
		if err := json.Unmarshal(m.TimestampsJSON, &timestamps); err != nil {
			return nil, errors.Wrap(err, "networkstore: unmarshal timestamps failed")
		}
	}

	return &entity.Trip{
		TripID:      m.TripID,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		GPS:         m.GPS.Geometry,
		Timestamps:  timestamps,
		MatchedGPS:  m.MatchedGPS.Geometry,
		MatchStatus: entity.MatchStatus(m.MatchStatus),
		MatchedAt:   m.MatchedAt,
	}, nil
}
