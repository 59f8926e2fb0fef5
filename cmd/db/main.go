package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aureuma/styleengine/internal/database"
	"github.com/aureuma/styleengine/internal/database/migrations"
	"github.com/aureuma/styleengine/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrNameRequired = errors.New("NAME argument required")

// cliDependencies holds the common dependencies needed by CLI commands.
type cliDependencies struct {
	db       database.Client
	migrator *migrate.Migrator
	logger   *zap.Logger
}

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// Setup dependencies
	deps, err := setupDependencies()
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.db.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Database migration tool",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize migration tables",
				Action: handleInit(deps),
			},
			{
				Name:   "migrate",
				Usage:  "Run pending migrations",
				Action: handleMigrate(deps),
			},
			{
				Name:   "rollback",
				Usage:  "Rollback the last migration group",
				Action: handleRollback(deps),
			},
			{
				Name:   "status",
				Usage:  "Show migration status",
				Action: handleStatus(deps),
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action:    handleCreate(deps),
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// setupDependencies initializes all dependencies needed by the CLI.
func setupDependencies() (*cliDependencies, error) {
	// Load full configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Create development logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Connect to database
	db, err := database.NewConnection(context.Background(), &cfg.Common.PostgreSQL, logger, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create migrator using database connection and migrations
	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	return &cliDependencies{
		db:       db,
		migrator: migrator,
		logger:   logger,
	}, nil
}

// handleInit handles the 'init' command.
func handleInit(deps *cliDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		return deps.migrator.Init(ctx)
	}
}

// handleMigrate handles the 'migrate' command.
func handleMigrate(deps *cliDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.migrator.Lock(ctx); err != nil {
			return err
		}
		defer deps.migrator.Unlock(ctx) //nolint:errcheck // -

		group, err := deps.migrator.Migrate(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			deps.logger.Info("No new migrations to run (database is up to date)")
			return nil
		}

		deps.logger.Info("Successfully migrated",
			zap.String("group", group.String()),
		)
		return nil
	}
}

// handleRollback handles the 'rollback' command.
func handleRollback(deps *cliDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.migrator.Lock(ctx); err != nil {
			return err
		}
		defer deps.migrator.Unlock(ctx) //nolint:errcheck // -

		group, err := deps.migrator.Rollback(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			deps.logger.Info("No groups to roll back")
			return nil
		}

		deps.logger.Info("Successfully rolled back",
			zap.String("group", group.String()),
		)
		return nil
	}
}

// handleStatus handles the 'status' command.
func handleStatus(deps *cliDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		ms, err := deps.migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		deps.logger.Info("Migration status",
			zap.String("migrations", ms.String()),
			zap.String("unapplied", ms.Unapplied().String()),
			zap.String("last_group", ms.LastGroup().String()),
		)
		return nil
	}
}

// handleCreate handles the 'create' command.
func handleCreate(deps *cliDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.logger.Info("Created Go migration",
			zap.String("name", mf.Name),
			zap.String("path", mf.Path),
		)
		return nil
	}
}
