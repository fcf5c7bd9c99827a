package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"streetcoverage/config"
	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/domain/repository"
	"streetcoverage/internal/networkstore"
	"streetcoverage/internal/taskrunner"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// deps bundles the injected singletons every subcommand runs against.
type deps struct {
	runner *taskrunner.Runner
	svc    *networkstore.Service
	cfg    *config.Config
}

// loadBoundary reads a GeoJSON Polygon or MultiPolygon from path, the wire
// format spec §6 requires for an area boundary.
func loadBoundary(path string) (orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "coveragectl: read boundary file failed")
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, errors.Wrap(err, "coveragectl: parse boundary geojson failed")
	}

	switch g.Geometry().(type) {
	case orb.Polygon, orb.MultiPolygon:
		return g.Geometry(), nil
	default:
		return nil, errors.Errorf("coveragectl: boundary must be a Polygon or MultiPolygon, got %T", g.Geometry())
	}
}

func runPreprocessArea(ctx context.Context, d deps, fs *flagSet) error {
	name := fs.displayName
	boundary, err := loadBoundary(fs.boundaryPath)
	if err != nil {
		return err
	}

	params := entity.NewAreaParams(
		firstNonZero(fs.segmentLengthM, d.cfg.AreaDefaults.SegmentLengthM),
		firstNonZero(fs.matchBufferM, d.cfg.AreaDefaults.MatchBufferM),
		firstNonZero(fs.minMatchLengthM, d.cfg.AreaDefaults.MinMatchLengthM),
	)

	area := &entity.CoverageArea{
		DisplayName: name,
		Boundary:    boundary,
		Params:      params,
	}

	taskID, err := d.runner.PreprocessArea(ctx, area)
	if err != nil {
		return err
	}

	fmt.Printf("task %s started for area %q\n", taskID, name)

	return nil
}

func runFullCalc(ctx context.Context, d deps, fs *flagSet) error {
	taskID, err := d.runner.FullCalc(ctx, fs.displayName)
	if err != nil {
		return err
	}

	fmt.Printf("task %s (full_calc) started for area %q\n", taskID, fs.displayName)

	return nil
}

func runIncrementalCalc(ctx context.Context, d deps, fs *flagSet) error {
	taskID, err := d.runner.IncrementalCalc(ctx, fs.displayName)
	if err != nil {
		return err
	}

	fmt.Printf("task %s (incremental_calc) started for area %q\n", taskID, fs.displayName)

	return nil
}

func runCancel(ctx context.Context, d deps, fs *flagSet) error {
	if err := d.runner.Cancel(ctx, fs.displayName); err != nil {
		return err
	}

	fmt.Printf("cancel requested for area %q\n", fs.displayName)

	return nil
}

func runDelete(ctx context.Context, d deps, fs *flagSet) error {
	if err := d.runner.Delete(ctx, fs.displayName); err != nil {
		return err
	}

	fmt.Printf("area %q deleted\n", fs.displayName)

	return nil
}

func runMarkSegment(ctx context.Context, d deps, fs *flagSet) error {
	mutation := entity.ManualMutation(fs.mutation)
	switch mutation {
	case entity.MutationDriven, entity.MutationUndriven, entity.MutationDriveable, entity.MutationUndriveable:
	default:
		return errors.Errorf("coveragectl: unknown mutation %q", fs.mutation)
	}

	if err := d.svc.MarkSegment(ctx, fs.segmentID, mutation, time.Now()); err != nil {
		return err
	}

	fmt.Printf("segment %q marked %s\n", fs.segmentID, fs.mutation)

	return nil
}

func runGenerateRoute(ctx context.Context, d deps, fs *flagSet) error {
	var start *orb.Point
	if fs.startLon != 0 || fs.startLat != 0 {
		p := orb.Point{fs.startLon, fs.startLat}
		start = &p
	}

	taskID, err := d.runner.GenerateRoute(ctx, fs.displayName, start)
	if err != nil {
		return err
	}

	fmt.Printf("task %s (generate_route) started for area %q\n", taskID, fs.displayName)

	return nil
}

func runGetRoute(ctx context.Context, d deps, fs *flagSet) error {
	route, err := d.runner.GetRoute(ctx, fs.displayName)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(struct {
		*entity.OptimalRoute
		Geometry *geojson.Geometry `json:"geometry"`
	}{
		OptimalRoute: route,
		Geometry:     geojson.NewGeometry(route.Coordinates),
	})
}

func runExportRouteGPX(ctx context.Context, d deps, fs *flagSet) error {
	data, err := d.runner.ExportRouteGPX(ctx, fs.displayName)
	if err != nil {
		return err
	}

	if fs.outPath == "" {
		_, err := os.Stdout.Write(data)

		return err
	}

	return os.WriteFile(fs.outPath, data, 0o644)
}

func runQueryStreets(ctx context.Context, d deps, fs *flagSet) error {
	bbox, err := parseBBox(fs.bbox)
	if err != nil {
		return err
	}

	segs, err := d.svc.QuerySegmentsByViewport(ctx, fs.displayName, bbox, repository.SegmentFilter(fs.filter))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, s := range segs {
		view := struct {
			*entity.Segment
			Geometry *geojson.Geometry `json:"geometry"`
		}{Segment: s, Geometry: geojson.NewGeometry(s.Geometry)}

		if err := enc.Encode(view); err != nil {
			return err
		}
	}

	return nil
}

// parseBBox parses "minLon,minLat,maxLon,maxLat"; an empty string yields
// the bound of the whole WGS84 range, so query-streets without --bbox
// returns every segment of the area that passes the filter.
func parseBBox(s string) (orb.Bound, error) {
	if s == "" {
		return orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, errors.Errorf("coveragectl: --bbox must have 4 comma-separated values, got %q", s)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, errors.Wrapf(err, "coveragectl: invalid bbox value %q", p)
		}
		vals[i] = v
	}

	return orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}

func firstNonZero(v, fallback float64) float64 {
	if v != 0 {
		return v
	}

	return fallback
}
