package networkstore

import (
	"context"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// TaskStore implements repository.TaskRepository against Postgres.
type TaskStore struct {
	db *gorm.DB
}

// NewTaskStore builds a TaskStore.
func NewTaskStore(db *gorm.DB) repository.TaskRepository {
	return &TaskStore{db: db}
}

// Create persists a new TaskProgress record.
func (s *TaskStore) Create(ctx context.Context, task *entity.TaskProgress) error {
	m := toTaskModel(task)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return errors.Wrap(err, "networkstore: create task failed")
	}

	return nil
}

// FindByID retrieves a task by its opaque id.
func (s *TaskStore) FindByID(ctx context.Context, taskID string) (*entity.TaskProgress, error) {
	var m TaskModel
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTaskNotFound
		}

		return nil, errors.Wrap(err, "networkstore: find task failed")
	}

	return toTaskEntity(&m), nil
}

// FindActiveByArea finds a non-terminal task for the given area, if any.
func (s *TaskStore) FindActiveByArea(ctx context.Context, areaDisplayName string) (*entity.TaskProgress, error) {
	var m TaskModel
	err := s.db.WithContext(ctx).
		Where("area_display_name = ? AND stage NOT IN ?", areaDisplayName, terminalStageValues()).
		Order("started_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "networkstore: find active task failed")
	}

	return toTaskEntity(&m), nil
}

// Save persists a progress update (idempotent full-record write).
func (s *TaskStore) Save(ctx context.Context, task *entity.TaskProgress) error {
	if err := s.db.WithContext(ctx).Save(toTaskModel(task)).Error; err != nil {
		return errors.Wrap(err, "networkstore: save task failed")
	}

	return nil
}

// RequestCancel flags a task for cooperative cancellation.
func (s *TaskStore) RequestCancel(ctx context.Context, taskID string) error {
	err := s.db.WithContext(ctx).Model(&TaskModel{}).
		Where("task_id = ?", taskID).
		Update("cancel_requested", true).Error
	if err != nil {
		return errors.Wrap(err, "networkstore: request cancel failed")
	}

	return nil
}

func terminalStageValues() []string {
	return []string{
		string(entity.StageComplete),
		string(entity.StageError),
		string(entity.StageCanceled),
	}
}

func toTaskModel(t *entity.TaskProgress) *TaskModel {
	return &TaskModel{
		TaskID:          t.TaskID,
		AreaDisplayName: t.AreaDisplayName,
		Stage:           string(t.Stage),
		ProgressPct:     t.ProgressPct,
		Message:         t.Message,
		Error:           t.Error,
		CancelRequested: t.CancelRequested,
		UpdatedAt:       t.UpdatedAt,
		StartedAt:       t.StartedAt,
		CompletedAt:     t.CompletedAt,
	}
}

func toTaskEntity(m *TaskModel) *entity.TaskProgress {
	return &entity.TaskProgress{
		TaskID:          m.TaskID,
		AreaDisplayName: m.AreaDisplayName,
		Stage:           entity.TaskStage(m.Stage),
		ProgressPct:     m.ProgressPct,
		Message:         m.Message,
		Error:           m.Error,
		CancelRequested: m.CancelRequested,
		UpdatedAt:       m.UpdatedAt,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
	}
}
