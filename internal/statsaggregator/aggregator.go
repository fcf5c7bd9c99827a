// Package statsaggregator recomputes an area's per-highway_tag coverage
// breakdown and totals from its current segment set (spec §4.7).
package statsaggregator

import (
	"context"
	"sort"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"
)

// Aggregator recomputes CoverageArea.Aggregates.
type Aggregator struct {
	segments repository.SegmentRepository
}

// New builds an Aggregator.
func New(segments repository.SegmentRepository) *Aggregator {
	return &Aggregator{segments: segments}
}

// Recompute loads every segment in the area, groups by highway_tag, and
// writes the resulting AreaAggregates onto area, clearing
// NeedsStatsUpdate. Idempotent: calling it twice on an unchanged segment
// set yields byte-identical aggregates.
func (a *Aggregator) Recompute(ctx context.Context, area *entity.CoverageArea) error {
	segs, err := a.segments.FindByArea(ctx, area.DisplayName)
	if err != nil {
		return err
	}

	// FindByArea returns segments in no fixed order; sorting by id keeps the
	// float sums and the order of equal-length groups the same on every call.
	sort.Slice(segs, func(i, j int) bool { return segs[i].SegmentID < segs[j].SegmentID })

	area.Aggregates = Compute(segs)
	area.NeedsStatsUpdate = false

	return nil
}

// Compute implements the §4.7 grouping pipeline directly over an
// in-memory segment set; split out from Recompute so tests can call it
// without a repository round-trip.
func Compute(segs []*entity.Segment) entity.AreaAggregates {
	groups := map[string]*entity.StreetTypeStat{}
	order := make([]string, 0)

	get := func(tag string) *entity.StreetTypeStat {
		if s, ok := groups[tag]; ok {
			return s
		}
		s := &entity.StreetTypeStat{HighwayTag: tag}
		groups[tag] = s
		order = append(order, tag)

		return s
	}

	var totalLen, driveableLen, drivenLen float64
	var driveableSegments int

	for _, seg := range segs {
		g := get(seg.HighwayTag)
		g.LengthM += seg.SegmentLengthM
		g.Count++

		totalLen += seg.SegmentLengthM

		if seg.Undriveable {
			g.UndriveableLengthM += seg.SegmentLengthM

			continue
		}

		driveableLen += seg.SegmentLengthM
		driveableSegments++

		if seg.Driven {
			g.CoveredLengthM += seg.SegmentLengthM
			g.CoveredCount++
			drivenLen += seg.SegmentLengthM
		}
	}

	stats := make([]entity.StreetTypeStat, 0, len(order))
	for _, tag := range order {
		g := groups[tag]
		driveable := g.LengthM - g.UndriveableLengthM
		g.CoveragePct = coveragePct(g.CoveredLengthM, driveable)
		stats = append(stats, *g)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].LengthM > stats[j].LengthM
	})

	return entity.AreaAggregates{
		TotalLengthM:       totalLen,
		DriveableLengthM:   driveableLen,
		DrivenLengthM:       drivenLen,
		CoveragePercentage: coveragePct(drivenLen, driveableLen),
		TotalSegments:      len(segs),
		DriveableSegments:  driveableSegments,
		StreetTypes:        stats,
	}
}

func coveragePct(coveredLen, driveableLen float64) float64 {
	if driveableLen == 0 {
		return 0
	}

	return 100 * coveredLen / driveableLen
}
