package setup

import (
	"context"
	"fmt"
	"log"

	aiClient "github.com/aureuma/styleengine/internal/ai/client"
	"github.com/aureuma/styleengine/internal/adapter/imagegen"
	"github.com/aureuma/styleengine/internal/adapter/objectstore"
	"github.com/aureuma/styleengine/internal/bandit"
	"github.com/aureuma/styleengine/internal/database"
	"github.com/aureuma/styleengine/internal/database/migrations"
	"github.com/aureuma/styleengine/internal/extract"
	"github.com/aureuma/styleengine/internal/feedback"
	"github.com/aureuma/styleengine/internal/ingest"
	"github.com/aureuma/styleengine/internal/orchestrator"
	"github.com/aureuma/styleengine/internal/profile"
	"github.com/aureuma/styleengine/internal/profilecache"
	"github.com/aureuma/styleengine/internal/promptservice"
	"github.com/aureuma/styleengine/internal/redis"
	"github.com/aureuma/styleengine/internal/rlhf"
	"github.com/aureuma/styleengine/internal/setup/config"
	"github.com/aureuma/styleengine/internal/setup/telemetry"
	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and
// cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	VisionClient *aiClient.AIClient // C2's vision-LLM endpoint
	CritiqueClient *aiClient.AIClient // C10's critique-parsing LLM endpoint
	RedisManager *redis.Manager     // Redis connection manager
	LogManager   *telemetry.Manager // Log management system
	pprofServer  *pprofServer       // Debug HTTP server for pprof

	ObjectStore  objectstore.Store  // C3/C8's outbound blob store
	ImageGen     imagegen.Adapter   // C8's outbound image-generation adapter
	Extractor    *extract.Extractor // C2
	Ingest       *ingest.Pipeline   // C3
	Profile      *profile.Aggregator // C4
	Bandit       *bandit.Store      // C5
	RLHF         *rlhf.Store        // C6
	Prompts      *promptservice.Service // glue wiring C4/C5/C6/C9 for /generate
	Orchestrator *orchestrator.Orchestrator // C8
	Feedback     *feedback.Processor // C10
}

// InitializeApp bootstraps all application dependencies in the correct
// order, ensuring each component has its required dependencies available.
// Workers can provide type and ID information for service identification.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string, workerInfo ...string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Extract worker information if provided
	var workerType, workerID string
	if len(workerInfo) >= 2 {
		workerType = workerInfo[0]
		workerID = workerInfo[1]
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(
		ctx, serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Loki, &cfg.Common.Uptrace, workerType, workerID,
	)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		return nil, err
	}

	repo := db.Model()

	// Vision and critique are distinct logical OpenAI-compatible endpoints;
	// each gets its own circuit breaker and concurrency budget.
	visionClient, err := aiClient.NewClient(&cfg.Common.Vision, aiClient.NoopUsageTracker{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}

	critiqueClient, err := aiClient.NewClient(&cfg.Common.Critique, aiClient.NoopUsageTracker{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create critique client: %w", err)
	}

	// The object store and image-generation adapter are the deployment's
	// outbound seams (spec.md §6.2/§4.8). In-memory implementations are
	// wired by default; a deployment with a real CDN-backed blob store or
	// provider account swaps these two lines for its own Store/Adapter.
	store := objectstore.NewMemory(cfg.Common.ObjectStore.BaseURL)
	adapter := imagegen.NewStub(0, "")

	if err := adapter.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize image generation adapter: %w", err)
	}

	cache := profilecache.New(redisManager, logger)
	tax := taxonomy.NewTaxonomy(nil)

	extractor := extract.NewExtractor(
		objectstore.NewImageFetcher(store), visionClient.Chat(), tax,
		cfg.Engine.Analysis, cfg.Common.Vision.Model, logger,
	)

	ingestProgress := ingest.NewRedisProgress(redisManager, logger)

	ingestPipeline := ingest.New(
		repo.Portfolio(), repo.Image(), repo.Descriptor(), objectstore.NewUploader(store),
		extractor, profilecache.PortfolioInvalidator{Cache: cache}, ingestProgress,
		cfg.Engine.Analysis.Concurrency, logger,
	)

	profileAggregator := profile.New(repo.Descriptor(), repo.StyleProfile(), logger)

	banditStore := bandit.New(repo.Bandit(), logger)
	rlhfStore := rlhf.New(repo.RLHF(), logger)

	promptService := promptservice.New(
		repo.Portfolio(), repo.StyleProfile(), banditStore, rlhfStore, repo.Coverage(), repo.Prompt(), logger,
	)

	generationProgress := orchestrator.NewRedisProgress(redisManager, logger)

	orch := orchestrator.New(
		promptService, repo.Generation(), store, adapter, generationProgress, "stub",
		cfg.Engine.Generation.OvergenBufferPct/100, cfg.Engine.Generation.ImagesPerPrompt,
		cfg.Engine.Generation.MaxConcurrentPrompts, logger,
	)

	critiqueParser := feedback.NewLLMCritiqueParser(critiqueClient.Chat(), cfg.Common.Critique.Model)

	feedbackProcessor := feedback.New(
		repo.Feedback(), repo.Generation(), repo.Prompt(), banditStore, rlhfStore, critiqueParser,
		profilecache.UserInvalidator{Cache: cache}, cfg.Common.Feedback.WorkerCount, cfg.Common.Feedback.QueueDepth, logger,
	)

	// Start pprof server if enabled
	var pprofSrv *pprofServer

	if cfg.Common.Debug.EnablePprof {
		srv, err := startPprofServer(cfg.Common.Debug.PprofPort, logger)
		if err != nil {
			logger.Error("Failed to start pprof server", zap.Error(err))
		} else {
			pprofSrv = srv

			logger.Warn("pprof debugging endpoint enabled - this should not be used in production!")
		}
	}

	// Bundle all initialized components
	return &App{
		Config:         cfg,
		Logger:         logger,
		DBLogger:       dbLogger.Named("database"),
		DB:             db,
		VisionClient:   visionClient,
		CritiqueClient: critiqueClient,
		RedisManager:   redisManager,
		LogManager:     logManager,
		pprofServer:    pprofSrv,

		ObjectStore:  store,
		ImageGen:     adapter,
		Extractor:    extractor,
		Ingest:       ingestPipeline,
		Profile:      profileAggregator,
		Bandit:       banditStore,
		RLHF:         rlhfStore,
		Prompts:      promptService,
		Orchestrator: orch,
		Feedback:     feedbackProcessor,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse
// initialization order. Logs but does not fail on cleanup errors to ensure
// all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Shutdown pprof server if running
	if s.pprofServer != nil {
		if err := s.pprofServer.srv.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown pprof server", zap.Error(err))
		}

		s.pprofServer.listener.Close()
	}

	// Stop accepting feedback and wait for in-flight events to drain
	s.Feedback.Close()

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Stop telemetry manager to flush Loki logs
	s.LogManager.Stop()

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	var db database.Client

	unapplied := ms.Unapplied()
	if len(unapplied) > 0 {
		log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

		var response string

		_, _ = fmt.Scanln(&response)

		if response == "y" || response == "Y" {
			tempDB.Close()

			db, err = database.NewConnection(ctx, cfg, dbLogger, true)
		} else {
			log.Fatalf("Closing program due to incomplete migrations")
		}
	} else {
		db = tempDB
	}

	return db, err
}
