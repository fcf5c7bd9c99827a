package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// MatchStatus is the outcome of a map-match attempt recorded on a Trip.
type MatchStatus string

const (
	MatchStatusOK               MatchStatus = "ok"
	MatchStatusNoValidGeometry  MatchStatus = "no-valid-geometry"
)

// SkippedReason builds a "skipped:<reason>" MatchStatus.
func SkippedReason(reason string) MatchStatus {
	return MatchStatus("skipped:" + reason)
}

// ErrorReason builds an "error:<reason>" MatchStatus.
func ErrorReason(reason string) MatchStatus {
	return MatchStatus("error:" + reason)
}

// Trip is external input: raw GPS ingested elsewhere, read-only to the
// coverage engine except for the MatchedGps/MatchStatus/MatchedAt fields
// the map-matcher writes back.
type Trip struct {
	TripID string `json:"tripId"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// GPS is a Point or LineString with >= 2 points; never a bare string.
	GPS orb.Geometry `json:"-"`
	// Timestamps aligned 1:1 with GPS's coordinate sequence, if supplied.
	Timestamps []time.Time `json:"timestamps,omitempty"`

	MatchedGPS  orb.Geometry `json:"-"`
	MatchStatus MatchStatus  `json:"matchStatus,omitempty"`
	MatchedAt   *time.Time   `json:"matchedAt,omitempty"`
}
