// Package coverageattributor rebuilds and incrementally updates segment
// driven state from matched trips (spec §4.6).
package coverageattributor

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"
	"streetcoverage/internal/geomkit"
)

// ProgressFunc reports (processed, total) trip counts during a calc run,
// the hook TaskRunner wires to the attributing stage's TaskProgress update.
type ProgressFunc func(processed, total int)

// Attributor implements full_calc and incremental_calc.
type Attributor struct {
	segments repository.SegmentRepository
	trips    repository.TripRepository
	logger   *slog.Logger
}

// New builds an Attributor.
func New(segments repository.SegmentRepository, trips repository.TripRepository, logger *slog.Logger) *Attributor {
	return &Attributor{segments: segments, trips: trips, logger: logger}
}

// FullCalc attributes every valid matched trip intersecting area's
// boundary. Driven state is not reset first: segments already driven stay
// driven, and attribution only adds to them.
func (a *Attributor) FullCalc(ctx context.Context, area *entity.CoverageArea, onProgress ProgressFunc) error {
	bound := boundOf(area.Boundary)

	tripList, err := a.trips.FindIntersecting(ctx, bound)
	if err != nil {
		return err
	}

	return a.attribute(ctx, area, tripList, onProgress)
}

// IncrementalCalc attributes only trips matched after area.LastCoveredAt;
// as in FullCalc, driven state is only ever added, never cleared.
func (a *Attributor) IncrementalCalc(ctx context.Context, area *entity.CoverageArea, onProgress ProgressFunc) error {
	since := time.Time{}
	if area.LastCoveredAt != nil {
		since = *area.LastCoveredAt
	}

	tripList, err := a.trips.FindSince(ctx, since)
	if err != nil {
		return err
	}

	bound := boundOf(area.Boundary)

	filtered := tripList[:0]
	for _, t := range tripList {
		if t.MatchedGPS != nil && bound.Intersects(boundOf(t.MatchedGPS)) {
			filtered = append(filtered, t)
		}
	}

	return a.attribute(ctx, area, filtered, onProgress)
}

// attribute runs the per-trip algorithm (spec §4.6) in non-decreasing
// matched_at order and advances area.LastCoveredAt to the newest trip
// successfully processed.
func (a *Attributor) attribute(ctx context.Context, area *entity.CoverageArea, tripList []*entity.Trip, onProgress ProgressFunc) error {
	sort.Slice(tripList, func(i, j int) bool {
		return matchedAtOf(tripList[i]).Before(matchedAtOf(tripList[j]))
	})

	var changedSegments []*entity.Segment
	var newestProcessed time.Time

	total := len(tripList)
	for i, trip := range tripList {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if trip.MatchStatus != entity.MatchStatusOK || trip.MatchedGPS == nil {
			a.logger.Warn("coverageattributor: skipping non-ok trip", "tripId", trip.TripID, "status", trip.MatchStatus)

			continue
		}

		changed, err := a.attributeTrip(ctx, area, trip)
		if err != nil {
			a.logger.Warn("coverageattributor: malformed trip skipped", "tripId", trip.TripID, "error", err)

			continue
		}

		changedSegments = append(changedSegments, changed...)

		if ma := matchedAtOf(trip); ma.After(newestProcessed) {
			newestProcessed = ma
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	if len(changedSegments) > 0 {
		if err := a.segments.SaveState(ctx, dedupeSegments(changedSegments)); err != nil {
			return err
		}
	}

	if area.LastCoveredAt == nil || newestProcessed.After(*area.LastCoveredAt) {
		if !newestProcessed.IsZero() {
			area.LastCoveredAt = &newestProcessed
		}
	}

	return nil
}

// attributeTrip applies steps 1-3 of the §4.6 algorithm to a single trip,
// returning the segments whose driven state actually flipped.
func (a *Attributor) attributeTrip(ctx context.Context, area *entity.CoverageArea, trip *entity.Trip) ([]*entity.Segment, error) {
	candidates, err := a.segments.QueryCandidates(ctx, area.DisplayName, trip.MatchedGPS)
	if err != nil {
		return nil, err
	}

	bufferM := area.Params.MatchBufferM
	minLenM := area.Params.MinMatchLengthM

	point, isPoint := trip.MatchedGPS.(orb.Point)

	var changed []*entity.Segment
	for _, seg := range candidates {
		if seg.Undriveable || seg.ManualUndriven {
			continue
		}

		var matched bool
		if isPoint {
			matched = geomkit.NearestDistanceM(seg.Geometry, point) <= bufferM
		} else {
			matched = geomkit.OverlapLengthM(seg.Geometry, trip.MatchedGPS, bufferM) >= minLenM
		}

		if !matched {
			continue
		}

		if seg.AttributeDriven(trip.StartTime) {
			changed = append(changed, seg)

			if err := a.segments.SaveContribution(ctx, &entity.TripContribution{
				SegmentID: seg.SegmentID,
				TripID:    trip.TripID,
				MatchedAt: matchedAtOf(trip),
			}); err != nil {
				a.logger.Warn("coverageattributor: contribution save failed", "segmentId", seg.SegmentID, "tripId", trip.TripID, "error", err)
			}
		}
	}

	return changed, nil
}

func matchedAtOf(t *entity.Trip) time.Time {
	if t.MatchedAt != nil {
		return *t.MatchedAt
	}

	return t.StartTime
}

func boundOf(g orb.Geometry) orb.Bound {
	if g == nil {
		return orb.Bound{}
	}

	return g.Bound()
}

func dedupeSegments(segs []*entity.Segment) []*entity.Segment {
	seen := make(map[string]struct{}, len(segs))
	out := make([]*entity.Segment, 0, len(segs))
	for _, s := range segs {
		if _, ok := seen[s.SegmentID]; ok {
			continue
		}
		seen[s.SegmentID] = struct{}{}
		out = append(out, s)
	}

	return out
}
