package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// OptimalRoute is the ordered tour RouteSolver computes for an area's
// undriven segments (Rural Postman completion).
type OptimalRoute struct {
	AreaDisplayName string `json:"areaDisplayName"`

	Coordinates orb.LineString `json:"-"`

	TotalDistanceM    float64 `json:"totalDistanceM"`
	RequiredDistanceM float64 `json:"requiredDistanceM"`
	DeadheadDistanceM float64 `json:"deadheadDistanceM"`
	DeadheadPct       float64 `json:"deadheadPct"`
	SegmentCount      int     `json:"segmentCount"`

	StartPoint  orb.Point `json:"-"`
	GeneratedAt time.Time `json:"generatedAt"`
}
