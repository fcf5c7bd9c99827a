package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// Segment is a length-bounded, stably identified piece of a drivable
// street, with mutable driven/undriveable state tracked per-area.
type Segment struct {
	SegmentID   string `json:"segmentId"`
	AreaName    string `json:"areaDisplayName"`

	Geometry orb.LineString `json:"-"`

	HighwayTag      string  `json:"highwayTag"`
	StreetName      string  `json:"streetName,omitempty"`
	SegmentLengthM  float64 `json:"segmentLengthM"`
	Oneway          bool    `json:"oneway"`

	Driven      bool `json:"driven"`
	Undriveable bool `json:"undriveable"`

	ManualDriven      bool `json:"manualDriven"`
	ManualUndriven    bool `json:"manualUndriven"`
	ManualUndriveable bool `json:"manualUndriveable"`
	ManualDriveable   bool `json:"manualDriveable"`

	LastManualUpdate *time.Time `json:"lastManualUpdate,omitempty"`
	FirstDrivenAt    *time.Time `json:"firstDrivenAt,omitempty"`
	LastDrivenAt     *time.Time `json:"lastDrivenAt,omitempty"`
}

// ManualOverride reports whether any manual flag is set.
func (s *Segment) ManualOverride() bool {
	return s.ManualDriven || s.ManualUndriven || s.ManualUndriveable || s.ManualDriveable
}

// ManualMutation is one of the four manual override kinds accepted by
// mark_segment.
type ManualMutation string

const (
	MutationDriven      ManualMutation = "driven"
	MutationUndriven    ManualMutation = "undriven"
	MutationDriveable   ManualMutation = "driveable"
	MutationUndriveable ManualMutation = "undriveable"
)

// ApplyManual applies a manual override, enforcing the mutual-exclusion
// invariant (setting a positive flag clears its opposite) and the
// undriveable-implies-not-driven invariant. now stamps LastManualUpdate.
func (s *Segment) ApplyManual(mutation ManualMutation, now time.Time) {
	switch mutation {
	case MutationDriven:
		s.ManualDriven = true
		s.ManualUndriven = false
		s.Driven = true
	case MutationUndriven:
		s.ManualUndriven = true
		s.ManualDriven = false
		s.Driven = false
	case MutationDriveable:
		s.ManualDriveable = true
		s.ManualUndriveable = false
		s.Undriveable = false
	case MutationUndriveable:
		s.ManualUndriveable = true
		s.ManualDriveable = false
		s.Undriveable = true
		s.Driven = false
	}
	s.LastManualUpdate = &now
}

// AttributeDriven marks the segment driven by automatic attribution,
// subject to the manual_undriven veto and the undriveable exclusion.
// Reports whether the segment's driven state actually changed.
func (s *Segment) AttributeDriven(tripStart time.Time) bool {
	if s.Undriveable || s.ManualUndriven {
		return false
	}

	changed := !s.Driven
	s.Driven = true

	if s.FirstDrivenAt == nil || tripStart.Before(*s.FirstDrivenAt) {
		s.FirstDrivenAt = &tripStart
	}
	if s.LastDrivenAt == nil || tripStart.After(*s.LastDrivenAt) {
		s.LastDrivenAt = &tripStart
	}

	return changed
}

// TripContribution records which trip last flipped a segment to driven,
// making first/last_driven_at auditable per segment. Additive bookkeeping
// not present in the distilled data model.
type TripContribution struct {
	SegmentID string    `json:"segmentId"`
	TripID    string    `json:"tripId"`
	MatchedAt time.Time `json:"matchedAt"`
}
