package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aureuma/styleengine/internal/orchestrator"
	"github.com/aureuma/styleengine/internal/setup"
	"github.com/aureuma/styleengine/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// WorkerLogDir specifies where worker log files are stored.
const WorkerLogDir = "logs/worker_logs"

var (
	ErrUserRequired    = errors.New("USER_ID argument required")
	ErrArchiveRequired = errors.New("--archive is required")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

// run drives C3 (ingest) and C8 (orchestrator) directly against an
// internal/setup.App instance, out of band from the httpapi request path -
// useful for backfills, re-ingesting an archive, or triggering a generation
// batch from a script rather than an HTTP client.
func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Drive the ingestion (C3) and generation (C8) pipelines out of band from httpapi",
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest an outfit photo archive for a user and aggregate their style profile",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "archive",
						Aliases:  []string{"a"},
						Usage:    "Path to a zip archive of outfit photographs",
						Required: true,
					},
				},
				Action: handleIngest,
			},
			{
				Name:      "generate",
				Usage:     "Run a generation request for a user against their current PromptProvider state",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Value:   1,
						Usage:   "Number of outputs requested",
					},
					&cli.StringFlag{
						Name:  "command",
						Usage: "Free-text styling command (e.g. \"evening look\")",
					},
				},
				Action: handleGenerate,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func handleIngest(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return ErrUserRequired
	}

	archivePath := c.String("archive")
	if archivePath == "" {
		return ErrArchiveRequired
	}

	userID := c.Args().First()

	workerApp, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, "ingest", userID)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer workerApp.Cleanup(ctx)

	archive, err := os.ReadFile(archivePath)
	if err != nil {
		return fmt.Errorf("read archive %s: %w", archivePath, err)
	}

	portfolio, err := workerApp.Ingest.Ingest(ctx, userID, archive)
	if err != nil {
		return fmt.Errorf("ingest archive: %w", err)
	}

	workerApp.Logger.Info("ingest complete",
		zap.String("userID", userID),
		zap.String("portfolioID", portfolio.ID.String()),
		zap.Int("imageCount", portfolio.ImageCount),
		zap.String("status", portfolio.Status.String()),
	)

	if _, err := workerApp.Profile.Aggregate(ctx, userID, portfolio.ID); err != nil {
		return fmt.Errorf("aggregate style profile: %w", err)
	}

	workerApp.Logger.Info("style profile aggregated", zap.String("portfolioID", portfolio.ID.String()))

	return nil
}

func handleGenerate(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return ErrUserRequired
	}

	userID := c.Args().First()
	count := c.Int("count")

	workerApp, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, "generate", userID)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer workerApp.Cleanup(ctx)

	generations, err := workerApp.Orchestrator.Generate(ctx, userID, int(count), orchestrator.Options{
		Command: c.String("command"),
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	workerApp.Logger.Info("generation request complete",
		zap.String("userID", userID),
		zap.Int("requested", int(count)),
		zap.Int("produced", len(generations)),
	)

	for _, g := range generations {
		fmt.Println(g.URL)
	}

	return nil
}
