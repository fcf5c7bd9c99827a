package repository

import (
	"context"

	"streetcoverage/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrRouteNotFound is returned when an area has no generated route.
var ErrRouteNotFound = errors.New("route not found")

// RouteRepository persists the full OptimalRoute (coordinates + metrics)
// RouteSolver produces; CoverageArea itself only keeps a weak
// RouteRef{GeneratedAt} handle (spec §3: "ArtifactStore owns its
// artifacts; the area holds a weak handle" applies equally to the route).
type RouteRepository interface {
	// Save replaces the area's stored route (one route per area).
	Save(ctx context.Context, route *entity.OptimalRoute) error

	// FindByArea retrieves an area's most recently generated route.
	FindByArea(ctx context.Context, areaDisplayName string) (*entity.OptimalRoute, error)
}
