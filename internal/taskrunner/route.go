package taskrunner

import (
	"context"
	"time"

	"streetcoverage/internal/domain/entity"
	domainerrors "streetcoverage/internal/domain/errors"
	"streetcoverage/internal/routesolver"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// GenerateRoute runs RouteSolver over an area's current segment set (spec
// §2: "NetworkStore (undriven set) -> StreetFetcher (fresh road graph for
// solving) -> RouteSolver -> persist tour on area"). The "fresh road
// graph" requirement is satisfied by requiring the area to be in the
// completed state: that state is only reached immediately after a
// preprocess/full/incremental calc has refreshed NetworkStore's segment
// set from StreetFetcher, so its current segments are the freshest
// account of the network available without a redundant re-fetch.
func (r *Runner) GenerateRoute(ctx context.Context, areaDisplayName string, start *orb.Point) (string, error) {
	area, err := r.areas.FindByDisplayName(ctx, areaDisplayName)
	if err != nil {
		return "", err
	}

	if area.State != entity.AreaStateCompleted {
		return "", domainerrors.ErrCoverageIncomplete
	}

	task, err := r.startTask(ctx, area)
	if err != nil {
		return taskIDOrEmpty(task), err
	}

	p := newProgress(r.tasks, task)

	if err := p.advance(ctx, entity.StageBuildingCircuit, 10, "loading segment set"); err != nil {
		return task.TaskID, err
	}

	segs, err := r.segments.FindByArea(ctx, areaDisplayName)
	if err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	if err := r.checkCancel(ctx, task.TaskID); err != nil {
		return task.TaskID, r.finishCanceled(ctx, task, area)
	}

	if err := p.advance(ctx, entity.StageBuildingCircuit, 30, "solving rural postman tour"); err != nil {
		return task.TaskID, err
	}

	route, err := routesolver.Solve(segs, start, r.logger)
	if errors.Is(err, routesolver.ErrNoUndrivenSegments) {
		return task.TaskID, p.advance(ctx, entity.StageComplete, 100, "area already fully covered, no route to generate")
	}
	if err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}
	route.AreaDisplayName = areaDisplayName
	route.GeneratedAt = time.Now()

	if err := r.routes.Save(ctx, route); err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	area.OptimalRoute = &entity.RouteRef{GeneratedAt: route.GeneratedAt}
	if err := r.areas.Save(ctx, area); err != nil {
		return task.TaskID, r.finishError(ctx, task, area, err)
	}

	return task.TaskID, p.advance(ctx, entity.StageComplete, 100, "route generated")
}

// GetRoute returns an area's most recently generated route (spec §6
// get_route(area)).
func (r *Runner) GetRoute(ctx context.Context, areaDisplayName string) (*entity.OptimalRoute, error) {
	return r.routes.FindByArea(ctx, areaDisplayName)
}

// ExportRouteGPX returns an area's most recently generated route encoded
// as a GPX 1.1 document (spec §6 export_route_gpx(area) -> bytes).
func (r *Runner) ExportRouteGPX(ctx context.Context, areaDisplayName string) ([]byte, error) {
	route, err := r.routes.FindByArea(ctx, areaDisplayName)
	if err != nil {
		return nil, err
	}

	return routesolver.ExportGPX(route, areaDisplayName)
}
