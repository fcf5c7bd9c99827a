package mapmatcher

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"streetcoverage/config"
	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/geomkit"
)

// Matcher runs the chunked map-matching algorithm (spec §4.5), bounded by
// a process-wide token-bucket rate limiter and concurrency semaphore.
type Matcher struct {
	client  Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	cfg     config.MapMatchConfig
	logger  *slog.Logger

	sleep func(context.Context, time.Duration) error
}

// NewMatcher builds a Matcher with process-wide rate/concurrency limits
// shared by every Match call (spec §5: "process-wide singletons").
func NewMatcher(client Client, cfg config.MapMatchConfig, logger *slog.Logger) *Matcher {
	return &Matcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute),
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		cfg:     cfg,
		logger:  logger,
		sleep:   ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Match converts a trip's raw GPS linestring into a matched geometry,
// writing the outcome into trip.MatchedGPS/MatchStatus/MatchedAt.
func (m *Matcher) Match(ctx context.Context, trip *entity.Trip) error {
	coords, ok := asLineString(trip.GPS)
	if !ok {
		trip.MatchStatus = entity.SkippedReason("point")

		return nil
	}
	if len(coords) < 2 {
		trip.MatchStatus = entity.SkippedReason("insufficient-points")

		return nil
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.sem.Release(1)

	input := buildCoords(coords, trip.Timestamps, m.cfg)

	result, status := m.matchCoords(ctx, input, 0)

	now := time.Now()
	trip.MatchedAt = &now

	if status != "" {
		trip.MatchStatus = entity.MatchStatus(status)

		return nil
	}

	result = repairJumps(m, ctx, result, m.cfg.JumpThresholdM, 2)

	ls := coordsToLineString(result)
	repaired, validOK := geomkit.Repair(ls)
	if !validOK {
		if p, isPoint := geomkit.IsDistinctPoint(ls); isPoint {
			trip.MatchedGPS = orbPointGeom(p)
			trip.MatchStatus = entity.MatchStatusOK

			return nil
		}
		trip.MatchStatus = entity.MatchStatusNoValidGeometry

		return nil
	}

	trip.MatchedGPS = repaired
	trip.MatchStatus = entity.MatchStatusOK

	return nil
}

// matchCoords runs chunking + per-chunk matching + stitching, returning
// either a stitched coordinate list or a non-empty status string recording
// a terminal failure.
func (m *Matcher) matchCoords(ctx context.Context, coords []Coord, depth int) ([]Coord, string) {
	chunks := chunkCoords(coords, m.cfg.ChunkSize, m.cfg.ChunkOverlap)

	var stitched []Coord
	for i, chunk := range chunks {
		result, status := m.matchChunkWithRetry(ctx, chunk, depth)
		if status != "" {
			return nil, status
		}

		if i > 0 && len(stitched) > 0 && len(result) > 0 && stitched[len(stitched)-1].Lon == result[0].Lon && stitched[len(stitched)-1].Lat == result[0].Lat {
			result = result[1:]
		}

		stitched = append(stitched, result...)
	}

	return stitched, ""
}

// matchChunkWithRetry applies the §4.5 retry policy to one chunk, and on
// permanent failure attempts recursive subdivision before giving up.
func (m *Matcher) matchChunkWithRetry(ctx context.Context, chunk []Coord, depth int) ([]Coord, string) {
	attempt := 0
	backoff := 2 * time.Second
	refilteredOnce := false

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, string(entity.ErrorReason("rate-limiter-canceled"))
		}

		outcome, err := m.client.Match(ctx, chunk)
		if err != nil {
			return nil, string(entity.ErrorReason(err.Error()))
		}

		switch outcome.Kind {
		case OutcomeOK:
			return geometryToCoords(outcome.Geometry), ""

		case OutcomeRateLimited:
			attempt++
			if attempt > 5 {
				return m.subdivideOrFail(ctx, chunk, depth, "rate-limit-exceeded")
			}

			wait := outcome.RetryAfter
			if wait <= 0 {
				wait = backoff
				backoff *= 2
			}
			if err := m.sleep(ctx, wait); err != nil {
				return nil, string(entity.ErrorReason("canceled"))
			}

		case OutcomeServerError:
			attempt++
			if attempt > 5 {
				return m.subdivideOrFail(ctx, chunk, depth, "server-error")
			}
			if err := m.sleep(ctx, backoff); err != nil {
				return nil, string(entity.ErrorReason("canceled"))
			}
			backoff *= 2

		case OutcomeClientError:
			if !refilteredOnce && outcome.Message == "invalid coordinates" {
				refilteredOnce = true
				chunk = refilterValid(chunk)

				continue
			}

			return m.subdivideOrFail(ctx, chunk, depth, "client-error:"+outcome.Message)
		}
	}
}

// subdivideOrFail attempts recursive chunk subdivision on a permanently
// failed chunk; reason is the terminal status if subdivision is not
// possible or also fails.
func (m *Matcher) subdivideOrFail(ctx context.Context, chunk []Coord, depth int, reason string) ([]Coord, string) {
	if len(chunk) <= m.cfg.MinSubChunk || depth >= m.cfg.MaxRetries {
		return nil, string(entity.ErrorReason(reason))
	}

	mid := len(chunk) / 2
	left := chunk[:mid+1]
	right := chunk[mid:]

	leftResult, status := m.matchChunkWithRetry(ctx, left, depth+1)
	if status != "" {
		return nil, status
	}
	rightResult, status := m.matchChunkWithRetry(ctx, right, depth+1)
	if status != "" {
		return nil, status
	}

	if len(leftResult) > 0 && len(rightResult) > 0 {
		if leftResult[len(leftResult)-1].Lon == rightResult[0].Lon && leftResult[len(leftResult)-1].Lat == rightResult[0].Lat {
			rightResult = rightResult[1:]
		}
	}

	return append(leftResult, rightResult...), ""
}

func refilterValid(chunk []Coord) []Coord {
	out := make([]Coord, 0, len(chunk))
	for _, c := range chunk {
		if c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90 && !math.IsNaN(c.Lon) && !math.IsNaN(c.Lat) {
			out = append(out, c)
		}
	}

	return out
}
