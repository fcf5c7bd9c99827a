// Package entity holds the persistence-agnostic domain types of the
// coverage engine: areas, segments, trips, task progress, and routes.
package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// AreaState is the lifecycle state of a CoverageArea.
type AreaState string

const (
	AreaStateProcessing    AreaState = "processing"
	AreaStatePreprocessing AreaState = "preprocessing"
	AreaStateCalculating   AreaState = "calculating"
	AreaStateCompleted     AreaState = "completed"
	AreaStateError         AreaState = "error"
	AreaStateCanceled      AreaState = "canceled"
)

// activeStates are the states under which NetworkStore must refuse to start
// a second concurrent full/incremental calc for the same area.
var activeStates = map[AreaState]struct{}{
	AreaStateProcessing:    {},
	AreaStatePreprocessing: {},
	AreaStateCalculating:   {},
}

// IsActive reports whether a task is already occupying the area.
func (s AreaState) IsActive() bool {
	_, ok := activeStates[s]

	return ok
}

// AreaParams are the per-area tunables; Meters fields are authoritative,
// Feet fields are carried for display only.
type AreaParams struct {
	SegmentLengthM  float64 `json:"segmentLengthM"`
	SegmentLengthFt float64 `json:"segmentLengthFt"`
	MatchBufferM    float64 `json:"matchBufferM"`
	MatchBufferFt   float64 `json:"matchBufferFt"`
	MinMatchLengthM float64 `json:"minMatchLengthM"`
	MinMatchLengthFt float64 `json:"minMatchLengthFt"`
}

const metersPerFoot = 0.3048

// NewAreaParams builds AreaParams from the authoritative meter values,
// deriving the display feet values.
func NewAreaParams(segmentLengthM, matchBufferM, minMatchLengthM float64) AreaParams {
	return AreaParams{
		SegmentLengthM:    segmentLengthM,
		SegmentLengthFt:   segmentLengthM / metersPerFoot,
		MatchBufferM:      matchBufferM,
		MatchBufferFt:     matchBufferM / metersPerFoot,
		MinMatchLengthM:   minMatchLengthM,
		MinMatchLengthFt:  minMatchLengthM / metersPerFoot,
	}
}

// StreetTypeStat is one row of the per-highway_tag coverage breakdown.
type StreetTypeStat struct {
	HighwayTag         string  `json:"highwayTag"`
	LengthM            float64 `json:"lengthM"`
	CoveredLengthM      float64 `json:"coveredLengthM"`
	CoveragePct        float64 `json:"coveragePct"`
	Count              int     `json:"count"`
	CoveredCount       int     `json:"coveredCount"`
	UndriveableLengthM float64 `json:"undriveableLengthM"`
}

// AreaAggregates are the derived, recomputable totals for an area.
type AreaAggregates struct {
	TotalLengthM       float64          `json:"totalLengthM"`
	DriveableLengthM   float64          `json:"driveableLengthM"`
	DrivenLengthM      float64          `json:"drivenLengthM"`
	CoveragePercentage float64          `json:"coveragePercentage"`
	TotalSegments      int              `json:"totalSegments"`
	DriveableSegments  int              `json:"driveableSegments"`
	StreetTypes        []StreetTypeStat `json:"streetTypes"`
}

// CoverageArea is a user-defined coverage region.
type CoverageArea struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Boundary    orb.Geometry `json:"-"` // orb.Polygon or orb.MultiPolygon

	Params AreaParams `json:"params"`
	State  AreaState  `json:"state"`

	Aggregates AreaAggregates `json:"aggregates"`

	StreetsGeoJSONArtifactID string     `json:"streetsGeojsonArtifactId,omitempty"`
	OptimalRoute             *RouteRef  `json:"optimalRoute,omitempty"`
	LastCoveredAt            *time.Time `json:"lastCoveredAt,omitempty"`
	NeedsStatsUpdate         bool       `json:"needsStatsUpdate"`
	LastError                string     `json:"lastError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RouteRef is the handle an area keeps to its most recently generated
// OptimalRoute (the route itself is stored separately, see OptimalRoute).
type RouteRef struct {
	GeneratedAt time.Time `json:"generatedAt"`
}

// ResetAggregates clears all derived totals, used by upsert_area.
func (a *CoverageArea) ResetAggregates() {
	a.Aggregates = AreaAggregates{}
	a.NeedsStatsUpdate = true
}
