package networkstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"streetcoverage/config"
	"streetcoverage/internal/errors"

	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const pingTimeout = 5 * time.Second

// Params is the fx constructor input for the primary Postgres connection.
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewDB opens the primary Postgres connection, wires lifecycle hooks to
// ping on start and close on stop, and disables GORM's implicit
// per-statement transaction (the engine's write paths batch mutations
// explicitly, see CoverageAttributor/NetworkStore.SaveSegments).
func NewDB(params Params) (*gorm.DB, error) {
	if params.Config.Postgres == nil {
		return nil, errors.New("networkstore: postgres config is required")
	}

	db, err := gorm.Open(postgres.Open(params.Config.Postgres.DSN), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB handle")
	}

	if params.Config.Postgres.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(params.Config.Postgres.MaxOpenConns)
	}
	if params.Config.Postgres.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(params.Config.Postgres.MaxIdleConns)
	}
	if params.Config.Postgres.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(params.Config.Postgres.ConnMaxLifetime)
	}

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, pingTimeout)
			defer cancel()

			return pingWithContext(ctx, sqlDB)
		},
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})

	return db, nil
}

func pingWithContext(ctx context.Context, sqlDB *sql.DB) error {
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping postgres")
	}

	return nil
}

// AutoMigrate creates/updates the engine's tables. Called once at
// startup by the CLI's bootstrap path.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AreaModel{},
		&SegmentModel{},
		&ContributionModel{},
		&TaskModel{},
		&TripModel{},
		&RouteModel{},
	)
}
