// Command coveragectl exposes spec §6's command surface — preprocess,
// full/incremental calc, cancel/delete, manual overrides, route
// generation/export, and viewport queries — as CLI subcommands. It is the
// admin-facing collaborator the core's HTTP surface (out of scope here)
// would otherwise call into.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"streetcoverage/config"
	domainerrors "streetcoverage/internal/domain/errors"
	coveragerrors "streetcoverage/internal/errors"
	"streetcoverage/internal/networkstore"
	"streetcoverage/internal/taskrunner"

	"go.uber.org/fx"
)

// Exit codes per spec §6: 0 success, 1 generic error, 2 cancelled, 3
// provider unavailable.
const (
	exitOK               = 0
	exitGenericError     = 1
	exitCanceled         = 2
	exitProviderUnavail  = 3
)

// flagSet holds every subcommand's possible flag values; each subcommand
// only reads the ones it defines, following the teacher's cmd/routing
// one-flagset-per-subcommand style.
type flagSet struct {
	displayName     string
	boundaryPath    string
	segmentLengthM  float64
	matchBufferM    float64
	minMatchLengthM float64
	segmentID       string
	mutation        string
	startLon        float64
	startLat        float64
	outPath         string
	bbox            string
	filter          string
}

type subcommand struct {
	name string
	run  func(context.Context, deps, *flagSet) error
	bind func(*flag.FlagSet, *flagSet)
}

var subcommands = []subcommand{
	{
		name: "preprocess-area",
		run:  runPreprocessArea,
		bind: func(fset *flag.FlagSet, fs *flagSet) {
			fset.StringVar(&fs.displayName, "area", "", "area display name")
			fset.StringVar(&fs.boundaryPath, "boundary", "", "path to a GeoJSON Polygon/MultiPolygon boundary file")
			fset.Float64Var(&fs.segmentLengthM, "segment-length-m", 0, "override segment_length_m (default: config areaDefaults)")
			fset.Float64Var(&fs.matchBufferM, "match-buffer-m", 0, "override match_buffer_m")
			fset.Float64Var(&fs.minMatchLengthM, "min-match-length-m", 0, "override min_match_length_m")
		},
	},
	{
		name: "full-calc",
		run:  runFullCalc,
		bind: bindAreaFlag,
	},
	{
		name: "incremental-calc",
		run:  runIncrementalCalc,
		bind: bindAreaFlag,
	},
	{
		name: "cancel",
		run:  runCancel,
		bind: bindAreaFlag,
	},
	{
		name: "delete",
		run:  runDelete,
		bind: bindAreaFlag,
	},
	{
		name: "mark-segment",
		run:  runMarkSegment,
		bind: func(fset *flag.FlagSet, fs *flagSet) {
			fset.StringVar(&fs.segmentID, "segment", "", "segment id")
			fset.StringVar(&fs.mutation, "mutation", "", "one of driven|undriven|driveable|undriveable")
		},
	},
	{
		name: "generate-route",
		run:  runGenerateRoute,
		bind: func(fset *flag.FlagSet, fs *flagSet) {
			fset.StringVar(&fs.displayName, "area", "", "area display name")
			fset.Float64Var(&fs.startLon, "start-lon", 0, "optional start longitude")
			fset.Float64Var(&fs.startLat, "start-lat", 0, "optional start latitude")
		},
	},
	{
		name: "get-route",
		run:  runGetRoute,
		bind: bindAreaFlag,
	},
	{
		name: "export-route-gpx",
		run:  runExportRouteGPX,
		bind: func(fset *flag.FlagSet, fs *flagSet) {
			fset.StringVar(&fs.displayName, "area", "", "area display name")
			fset.StringVar(&fs.outPath, "out", "", "output .gpx path (default: stdout)")
		},
	},
	{
		name: "query-streets",
		run:  runQueryStreets,
		bind: func(fset *flag.FlagSet, fs *flagSet) {
			fset.StringVar(&fs.displayName, "area", "", "area display name")
			fset.StringVar(&fs.bbox, "bbox", "", "minLon,minLat,maxLon,maxLat")
			fset.StringVar(&fs.filter, "filter", "", "driven|undriven|driveable|\"\"")
		},
	},
}

func bindAreaFlag(fset *flag.FlagSet, fs *flagSet) {
	fset.StringVar(&fs.displayName, "area", "", "area display name")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitGenericError)
	}

	cmd := findSubcommand(os.Args[1])
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		printUsage()
		os.Exit(exitGenericError)
	}

	fs := &flagSet{}
	fset := flag.NewFlagSet(cmd.name, flag.ExitOnError)
	cmd.bind(fset, fs)
	if err := fset.Parse(os.Args[2:]); err != nil {
		os.Exit(exitGenericError)
	}

	os.Exit(runApp(cmd, fs))
}

func findSubcommand(name string) *subcommand {
	for i := range subcommands {
		if subcommands[i].name == name {
			return &subcommands[i]
		}
	}

	return nil
}

// runApp builds the fx.App, launches the requested operation from a
// Lifecycle.OnStart hook, calls app.Start, blocks on app.Done() until the
// operation calls Shutdowner.Shutdown(), calls app.Stop, and maps the
// recorded error to an exit code (spec §9 "CLI's main.go builds an
// fx.App, invokes the requested operation, waits for it, and exits — it
// does not run app.Run() as a long-lived server").
func runApp(cmd *subcommand, fs *flagSet) int {
	var runErr error

	app := fx.New(
		injectInfra(),
		injectRepo(),
		injectDomainServices(),
		injectRunner(),
		fx.NopLogger,
		fx.Invoke(func(
			lc fx.Lifecycle,
			sh fx.Shutdowner,
			runner *taskrunner.Runner,
			svc *networkstore.Service,
			cfg *config.Config,
		) {
			lc.Append(fx.Hook{
				OnStart: func(startCtx context.Context) error {
					go func() {
						d := deps{runner: runner, svc: svc, cfg: cfg}
						runErr = cmd.run(context.Background(), d, fs)
						_ = sh.Shutdown()
					}()

					return nil
				},
			})
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, "coveragectl: startup failed:", err)

		return exitGenericError
	}

	<-app.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "coveragectl: shutdown failed:", err)
	}

	if runErr == nil {
		return exitOK
	}

	fmt.Fprintln(os.Stderr, "coveragectl:", runErr)

	return exitCodeFor(runErr)
}

// exitCodeFor maps a command error to spec §6's CLI exit codes.
func exitCodeFor(err error) int {
	if coveragerrors.Is(err, taskrunner.ErrCanceled) {
		return exitCanceled
	}

	var appErr domainerrors.AppError
	if coveragerrors.As(err, &appErr) {
		switch appErr.ErrorCode() {
		case "PROVIDER_UNAVAILABLE", "NETWORK_UNAVAILABLE":
			return exitProviderUnavail
		}
	}

	return exitGenericError
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: coveragectl <subcommand> [flags]")
	fmt.Fprintln(os.Stderr, "subcommands:")
	for _, c := range subcommands {
		fmt.Fprintln(os.Stderr, "  "+c.name)
	}
}
