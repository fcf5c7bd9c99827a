package main

import (
	"context"
	"log/slog"

	"streetcoverage/config"
	"streetcoverage/internal/artifactstore"
	"streetcoverage/internal/coverageattributor"
	"streetcoverage/internal/domain/repository"
	logs "streetcoverage/internal/infra/log"
	"streetcoverage/internal/mapmatcher"
	"streetcoverage/internal/networkstore"
	"streetcoverage/internal/statsaggregator"
	"streetcoverage/internal/streetfetcher"
	"streetcoverage/internal/taskrunner"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// injectInfra provides the process-scope singletons: config, logger,
// Postgres connection, and the artifact bucket (spec §9 "Global
// singletons ... model as a process-scope context injected into
// components; lifecycle is init -> use -> teardown bound to process
// startup/shutdown").
func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			context.Background,
			logs.New,
			networkstore.NewDB,
			artifactstore.NewStore,
		),
		fx.Invoke(runMigrations),
	)
}

// runMigrations applies NetworkStore's schema before any subcommand runs,
// registered as its own OnStart hook ahead of the command-dispatch hook in
// main.go so every table exists before a Runner/Service touches the DB.
func runMigrations(lc fx.Lifecycle, db *gorm.DB) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return networkstore.AutoMigrate(db)
		},
	})
}

// injectRepo provides the NetworkStore repository implementations behind
// their domain interfaces (spec §4.2); the ArtifactStore comes from
// injectInfra.
func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			networkstore.NewAreaStore,
			networkstore.NewSegmentStore,
			asSegmentRepository,
			networkstore.NewTripStore,
			networkstore.NewRouteStore,
			networkstore.NewTaskStore,
			networkstore.NewService,
		),
	)
}

// asSegmentRepository exposes the concrete *SegmentStore (which also
// carries cache-management methods the Service needs directly) behind
// repository.SegmentRepository for the components that only need the
// narrow interface.
func asSegmentRepository(s *networkstore.SegmentStore) repository.SegmentRepository {
	return s
}

// injectDomainServices provides StreetFetcher, MapMatcher, CoverageAttributor
// and StatsAggregator (spec §4.3, §4.5, §4.6, §4.7), each bound to the
// config-driven provider endpoints and the process-wide rate limiter and
// concurrency semaphore MapMatcher owns internally.
func injectDomainServices() fx.Option {
	return fx.Options(
		fx.Provide(
			newStreetFetcher,
			newMapMatchClient,
			mapMatchConfig,
			mapmatcher.NewMatcher,
			coverageattributor.New,
			statsaggregator.New,
		),
	)
}

func newStreetFetcher(cfg *config.Config, logger *slog.Logger) (streetfetcher.Fetcher, error) {
	return streetfetcher.NewHTTPFetcher(
		cfg.StreetProvider.BaseURL,
		cfg.StreetProvider.RequestTimeout,
		cfg.StreetProvider.CacheSize,
		logger,
	)
}

func newMapMatchClient(cfg *config.Config) mapmatcher.Client {
	return mapmatcher.NewHTTPClient(cfg.MapMatch)
}

func mapMatchConfig(cfg *config.Config) config.MapMatchConfig {
	return cfg.MapMatch
}

// injectRunner provides TaskRunner, the top-level orchestrator every CLI
// subcommand drives (spec §4.9).
func injectRunner() fx.Option {
	return fx.Provide(newRunner)
}

func newRunner(
	areas repository.AreaRepository,
	segments repository.SegmentRepository,
	tasks repository.TaskRepository,
	trips repository.TripRepository,
	routes repository.RouteRepository,
	artifacts repository.ArtifactRepository,
	fetcher streetfetcher.Fetcher,
	matcher *mapmatcher.Matcher,
	attributor *coverageattributor.Attributor,
	aggregator *statsaggregator.Aggregator,
	cfg *config.Config,
	logger *slog.Logger,
) *taskrunner.Runner {
	return taskrunner.New(
		areas, segments, tasks, trips, routes, artifacts,
		fetcher, matcher, attributor, aggregator,
		cfg.AreaDefaults.SegmentLengthM,
		logger,
	)
}
