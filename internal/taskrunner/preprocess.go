package taskrunner

import (
	"context"

	"streetcoverage/internal/domain/entity"
	domainerrors "streetcoverage/internal/domain/errors"
	"streetcoverage/internal/domain/repository"
	"streetcoverage/internal/segmenter"
)

// PreprocessArea runs the full preprocess pipeline (spec §2): StreetFetcher
// -> Segmenter -> NetworkStore(write) -> CoverageAttributor(full) ->
// StatsAggregator -> ArtifactStore(write GeoJSON). It upserts the area
// before starting, then runs the pipeline to completion (or cancellation)
// before returning, since this CLI has no background scheduler to poll.
func (r *Runner) PreprocessArea(ctx context.Context, area *entity.CoverageArea) (string, error) {
	if _, err := r.areas.Upsert(ctx, area); err != nil {
		return "", err
	}

	task, err := r.startTask(ctx, area)
	if err != nil {
		return taskIDOrEmpty(task), err
	}

	p := newProgress(r.tasks, task)

	if err := r.runPreprocess(ctx, area, task, p); err != nil {
		return task.TaskID, err
	}

	return task.TaskID, nil
}

func (r *Runner) runPreprocess(ctx context.Context, area *entity.CoverageArea, task *entity.TaskProgress, p *progress) error {
	if err := p.advance(ctx, entity.StageFetchingNetwork, 0, "fetching street network"); err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, streetFetchTimeout)
	ways, err := r.fetcher.Fetch(fetchCtx, area.DisplayName, area.Boundary)
	cancel()
	if err != nil {
		return r.finishError(ctx, task, area, err)
	}

	if err := r.checkCancel(ctx, task.TaskID); err != nil {
		return r.finishCanceled(ctx, task, area)
	}

	if err := p.advance(ctx, entity.StageSegmenting, 15, "segmenting ways"); err != nil {
		return err
	}

	var allSegments []*entity.Segment
	for i, way := range ways {
		segs, err := segmenter.Segment(way, area.ID, area.DisplayName, area.Params.SegmentLengthM)
		if err != nil {
			r.logger.Warn("taskrunner: way segmentation skipped", "wayId", way.WayID, "error", err)

			continue
		}
		allSegments = append(allSegments, segs...)

		if err := p.tick(ctx, 15, 15, i+1, len(ways)); err != nil {
			return err
		}
	}

	if err := r.checkCancel(ctx, task.TaskID); err != nil {
		return r.finishCanceled(ctx, task, area)
	}

	if err := p.advance(ctx, entity.StageMappingSegments, 35, "writing segments"); err != nil {
		return err
	}

	if err := r.segments.SaveSegments(ctx, area.DisplayName, allSegments); err != nil {
		return r.finishError(ctx, task, area, err)
	}

	if err := r.checkCancel(ctx, task.TaskID); err != nil {
		return r.finishCanceled(ctx, task, area)
	}

	area.State = entity.AreaStateCalculating
	if err := r.areas.Save(ctx, area); err != nil {
		return r.finishError(ctx, task, area, err)
	}

	if err := p.advance(ctx, entity.StageAttributing, 45, "attributing matched trips"); err != nil {
		return err
	}

	onProgress := func(processed, total int) {
		_ = p.tick(ctx, 45, 35, processed, total)
	}
	if err := r.attributor.FullCalc(ctx, area, onProgress); err != nil {
		return r.finishError(ctx, task, area, err)
	}

	if err := r.checkCancel(ctx, task.TaskID); err != nil {
		return r.finishCanceled(ctx, task, area)
	}

	if err := p.advance(ctx, entity.StageGeneratingGeoJSON, 85, "recomputing stats"); err != nil {
		return err
	}

	if err := r.aggregator.Recompute(ctx, area); err != nil {
		return r.finishError(ctx, task, area, err)
	}

	if err := r.regenerateArtifact(ctx, area); err != nil {
		return r.finishError(ctx, task, area, err)
	}

	area.State = entity.AreaStateCompleted
	if err := r.areas.Save(ctx, area); err != nil {
		return r.finishError(ctx, task, area, err)
	}

	return p.advance(ctx, entity.StageComplete, 100, "preprocess complete")
}

// FullCalc re-runs CoverageAttributor over every matched trip intersecting
// an existing area's boundary (spec §6 full_calc); segments already driven
// stay driven.
func (r *Runner) FullCalc(ctx context.Context, areaDisplayName string) (string, error) {
	return r.runCalc(ctx, areaDisplayName, true)
}

// IncrementalCalc attributes only trips matched since the area's
// last_covered_at watermark (spec §6 incremental_calc).
func (r *Runner) IncrementalCalc(ctx context.Context, areaDisplayName string) (string, error) {
	return r.runCalc(ctx, areaDisplayName, false)
}

func (r *Runner) runCalc(ctx context.Context, areaDisplayName string, full bool) (string, error) {
	area, err := r.areas.FindByDisplayName(ctx, areaDisplayName)
	if err != nil {
		return "", err
	}

	task, err := r.startTask(ctx, area)
	if err != nil {
		return taskIDOrEmpty(task), err
	}

	p := newProgress(r.tasks, task)

	area.State = entity.AreaStateCalculating
	if err := r.areas.Save(ctx, area); err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	if err := p.advance(ctx, entity.StageAttributing, 10, "attributing matched trips"); err != nil {
		return task.TaskID, err
	}

	onProgress := func(processed, total int) {
		_ = p.tick(ctx, 10, 60, processed, total)
	}

	var calcErr error
	if full {
		calcErr = r.attributor.FullCalc(ctx, area, onProgress)
	} else {
		calcErr = r.attributor.IncrementalCalc(ctx, area, onProgress)
	}
	if calcErr != nil {
		return task.TaskID, r.finishError(ctx, task, area, calcErr)
	}

	if err := r.checkCancel(ctx, task.TaskID); err != nil {
		return task.TaskID, r.finishCanceled(ctx, task, area)
	}

	if err := p.advance(ctx, entity.StageGeneratingGeoJSON, 80, "recomputing stats"); err != nil {
		return task.TaskID, err
	}

	if err := r.aggregator.Recompute(ctx, area); err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	if err := r.regenerateArtifact(ctx, area); err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	area.State = entity.AreaStateCompleted
	if err := r.areas.Save(ctx, area); err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	return task.TaskID, p.advance(ctx, entity.StageComplete, 100, "calc complete")
}

// Cancel flags a running task for cooperative cancellation (spec §6
// cancel(area)).
func (r *Runner) Cancel(ctx context.Context, areaDisplayName string) error {
	task, err := r.tasks.FindActiveByArea(ctx, areaDisplayName)
	if err != nil {
		return err
	}
	if task == nil {
		return domainerrors.ErrInconsistentState.WrapMessage("no active task for area " + areaDisplayName)
	}

	return r.tasks.RequestCancel(ctx, task.TaskID)
}

// Delete cascades an area's segments, artifacts, routes, and progress
// records (spec §6 delete(area)).
func (r *Runner) Delete(ctx context.Context, areaDisplayName string) error {
	metas, err := r.artifacts.FindByTag(ctx, repository.ArtifactTag{AreaDisplayName: areaDisplayName})
	if err != nil {
		return err
	}
	for _, m := range metas {
		if err := r.artifacts.Delete(ctx, m.Handle); err != nil {
			r.logger.Warn("taskrunner: artifact delete failed", "handle", m.Handle, "error", err)
		}
	}

	return r.areas.Delete(ctx, areaDisplayName)
}

// taskIDOrEmpty returns t.TaskID, or "" for a nil task — startTask's
// error paths may return a nil task alongside a non-nil error.
func taskIDOrEmpty(t *entity.TaskProgress) string {
	if t == nil {
		return ""
	}

	return t.TaskID
}
