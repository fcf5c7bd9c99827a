package repository

import (
	"context"
	"time"

	"streetcoverage/internal/domain/entity"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository defines the interface for TaskProgress persistence.
type TaskRepository interface {
	// Create persists a new TaskProgress record.
	Create(ctx context.Context, task *entity.TaskProgress) error

	// FindByID retrieves a task by its opaque id.
	FindByID(ctx context.Context, taskID string) (*entity.TaskProgress, error)

	// FindActiveByArea finds a non-terminal task for the given area, if
	// any; used to enforce the single-active-task-per-area invariant.
	FindActiveByArea(ctx context.Context, areaDisplayName string) (*entity.TaskProgress, error)

	// Save persists a progress update (idempotent — callers write the
	// full record).
	Save(ctx context.Context, task *entity.TaskProgress) error

	// RequestCancel flags a task for cooperative cancellation.
	RequestCancel(ctx context.Context, taskID string) error
}

// TripRepository defines the interface for reading externally-ingested
// trips (read-only except for the map-match result fields).
type TripRepository interface {
	// FindSince returns trips matched after the given watermark, in
	// non-decreasing MatchedAt order, for incremental_calc. A zero
	// watermark returns every matched trip.
	FindSince(ctx context.Context, since time.Time) ([]*entity.Trip, error)

	// FindIntersecting returns every successfully matched trip whose
	// geometry may intersect bound, for full_calc.
	FindIntersecting(ctx context.Context, bound orb.Bound) ([]*entity.Trip, error)

	// SaveMatch persists the MatchedGPS/MatchStatus/MatchedAt fields
	// written back by the map-matcher.
	SaveMatch(ctx context.Context, trip *entity.Trip) error
}
