// Package taskrunner executes the engine's long-running jobs —
// preprocess-area, full/incremental calc, and route generation — as
// TaskProgress-tracked state machines with cooperative cancellation
// (spec §4.9).
package taskrunner

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"streetcoverage/internal/coverageattributor"
	"streetcoverage/internal/domain/entity"
	domainerrors "streetcoverage/internal/domain/errors"
	"streetcoverage/internal/domain/repository"
	"streetcoverage/internal/mapmatcher"
	"streetcoverage/internal/statsaggregator"
	"streetcoverage/internal/streetfetcher"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// ErrCanceled is returned by a running job when it observes its
// TaskProgress.CancelRequested flag, after the task record has been moved
// to entity.StageCanceled; the CLI maps it to its own exit code.
var ErrCanceled = errors.New("taskrunner: canceled")

// streetFetchTimeout bounds the street fetch a preprocess task makes
// (spec §4.9 "each external call inherits its subsystem's timeout").
const streetFetchTimeout = 300 * time.Second

// Runner orchestrates the pipelines of spec §2's control flow over the
// other nine components.
type Runner struct {
	areas    repository.AreaRepository
	segments repository.SegmentRepository
	tasks    repository.TaskRepository
	trips    repository.TripRepository
	routes   repository.RouteRepository
	artifacts repository.ArtifactRepository

	fetcher    streetfetcher.Fetcher
	matcher    *mapmatcher.Matcher
	attributor *coverageattributor.Attributor
	aggregator *statsaggregator.Aggregator

	segmentLengthM float64
	logger         *slog.Logger
}

// New builds a Runner.
func New(
	areas repository.AreaRepository,
	segments repository.SegmentRepository,
	tasks repository.TaskRepository,
	trips repository.TripRepository,
	routes repository.RouteRepository,
	artifacts repository.ArtifactRepository,
	fetcher streetfetcher.Fetcher,
	matcher *mapmatcher.Matcher,
	attributor *coverageattributor.Attributor,
	aggregator *statsaggregator.Aggregator,
	segmentLengthM float64,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		areas: areas, segments: segments, tasks: tasks, trips: trips, routes: routes, artifacts: artifacts,
		fetcher: fetcher, matcher: matcher, attributor: attributor, aggregator: aggregator,
		segmentLengthM: segmentLengthM, logger: logger,
	}
}

// startTask enforces the single-active-task-per-area invariant by refusing
// to start while the area has a task record in a non-terminal stage, and
// persists a fresh TaskProgress record in the initializing stage.
func (r *Runner) startTask(ctx context.Context, area *entity.CoverageArea) (*entity.TaskProgress, error) {
	active, err := r.tasks.FindActiveByArea(ctx, area.DisplayName)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domainerrors.ErrResourceBusy
	}

	now := time.Now()
	task := &entity.TaskProgress{
		TaskID:          uuid.NewString(),
		AreaDisplayName: area.DisplayName,
		Stage:           entity.StageInitializing,
		StartedAt:       now,
		UpdatedAt:       now,
	}

	if err := r.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// progress throttles TaskProgress writes to at most every 500 processed
// items or 1s (spec §4.9), always flushing on a stage transition.
type progress struct {
	tasks      repository.TaskRepository
	task       *entity.TaskProgress
	lastSaveAt time.Time
	lastItems  int
}

func newProgress(tasks repository.TaskRepository, task *entity.TaskProgress) *progress {
	return &progress{tasks: tasks, task: task, lastSaveAt: time.Now()}
}

func (p *progress) advance(ctx context.Context, stage entity.TaskStage, pct float64, message string) error {
	p.task.Advance(stage, pct, message, time.Now())
	p.lastSaveAt = time.Now()
	p.lastItems = 0

	return p.tasks.Save(ctx, p.task)
}

func (p *progress) tick(ctx context.Context, basePct, spanPct float64, processed, total int) error {
	if total > 0 {
		p.task.ProgressPct = basePct + spanPct*float64(processed)/float64(total)
	}
	p.task.UpdatedAt = time.Now()

	if processed-p.lastItems < 500 && time.Since(p.lastSaveAt) < time.Second {
		return nil
	}

	p.lastItems = processed
	p.lastSaveAt = time.Now()

	return p.tasks.Save(ctx, p.task)
}

// checkCancel reloads the task record and reports ErrCanceled if
// cancellation has been requested (spec §4.9: "polls a cancel flag on its
// progress record between stages and between chunks").
func (r *Runner) checkCancel(ctx context.Context, taskID string) error {
	t, err := r.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if t.CancelRequested {
		return ErrCanceled
	}

	return nil
}

// finishError records a task/area failure and returns err unchanged so
// callers can propagate it.
func (r *Runner) finishError(ctx context.Context, task *entity.TaskProgress, area *entity.CoverageArea, err error) error {
	task.Fail(err, time.Now())
	if saveErr := r.tasks.Save(ctx, task); saveErr != nil {
		r.logger.Warn("taskrunner: failed to persist task failure", "taskId", task.TaskID, "error", saveErr)
	}

	if area != nil {
		area.State = entity.AreaStateError
		area.LastError = err.Error()
		if saveErr := r.areas.Save(ctx, area); saveErr != nil {
			r.logger.Warn("taskrunner: failed to persist area failure", "area", area.DisplayName, "error", saveErr)
		}
	}

	return err
}

// finishCanceled records a clean cancellation (spec §4.9: "observing
// canceled unwinds cleanly and records the final state").
func (r *Runner) finishCanceled(ctx context.Context, task *entity.TaskProgress, area *entity.CoverageArea) error {
	task.Advance(entity.StageCanceled, task.ProgressPct, "canceled", time.Now())
	if err := r.tasks.Save(ctx, task); err != nil {
		r.logger.Warn("taskrunner: failed to persist task cancellation", "taskId", task.TaskID, "error", err)
	}

	if area != nil {
		area.State = entity.AreaStateCanceled
		if err := r.areas.Save(ctx, area); err != nil {
			r.logger.Warn("taskrunner: failed to persist area cancellation", "area", area.DisplayName, "error", err)
		}
	}

	return ErrCanceled
}

// regenerateArtifact marshals the area's current segment set as a GeoJSON
// FeatureCollection and writes it through ArtifactStore as a byte stream,
// replacing any prior artifact handle (spec §4.10, §6 "schedules ...
// GeoJSON regeneration").
func (r *Runner) regenerateArtifact(ctx context.Context, area *entity.CoverageArea) error {
	segs, err := r.segments.FindByArea(ctx, area.DisplayName)
	if err != nil {
		return err
	}

	fc := geojson.NewFeatureCollection()
	for _, seg := range segs {
		f := geojson.NewFeature(seg.Geometry)
		f.Properties = map[string]any{
			"segmentId":  seg.SegmentID,
			"highwayTag": seg.HighwayTag,
			"driven":     seg.Driven,
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "taskrunner: marshal street geojson failed")
	}

	handle, err := r.artifacts.PutStream(ctx, "streets", repository.ArtifactTag{AreaDisplayName: area.DisplayName}, bytes.NewReader(data))
	if err != nil {
		return err
	}

	if area.StreetsGeoJSONArtifactID != "" && area.StreetsGeoJSONArtifactID != handle {
		if err := r.artifacts.Delete(ctx, area.StreetsGeoJSONArtifactID); err != nil {
			r.logger.Warn("taskrunner: stale artifact cleanup failed", "handle", area.StreetsGeoJSONArtifactID, "error", err)
		}
	}

	area.StreetsGeoJSONArtifactID = handle

	return nil
}
