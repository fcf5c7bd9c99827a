package taskrunner

import (
	"context"

	"streetcoverage/internal/domain/entity"
)

// MatchTrip runs MapMatcher over a single trip and persists the result
// (spec §2: "A per-trip match: MapMatcher (chunked calls with rate
// limiter) -> matched linestring stored on trip"). Unlike
// preprocess/calc/route generation, a single trip match is fast enough
// that it is not tracked as its own TaskProgress record; the trip
// ingestion pipeline (out of scope) is expected to call this per trip as
// traces arrive.
func (r *Runner) MatchTrip(ctx context.Context, trip *entity.Trip) error {
	if err := r.matcher.Match(ctx, trip); err != nil {
		return err
	}

	return r.trips.SaveMatch(ctx, trip)
}
