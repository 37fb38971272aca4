package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/hamrosewa/hamrosewa/internal/api/handlers"
	"github.com/hamrosewa/hamrosewa/internal/cache"
	"github.com/hamrosewa/hamrosewa/internal/config"
	"github.com/hamrosewa/hamrosewa/internal/database"
	"github.com/hamrosewa/hamrosewa/internal/jobs"
	"github.com/hamrosewa/hamrosewa/internal/openai"
	"github.com/hamrosewa/hamrosewa/internal/repository"
	"github.com/hamrosewa/hamrosewa/internal/server"
	"github.com/hamrosewa/hamrosewa/internal/service"
	"github.com/hamrosewa/hamrosewa/internal/storage"
	"github.com/hamrosewa/hamrosewa/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search API server",
		Long:  "Start the hamrosewa search API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	weights := repository.Weights{
		Text:     cfg.TextWeight,
		Vector:   cfg.VectorWeight,
		Business: cfg.BusinessWeight,
	}
	catalogRepo := repository.NewCatalogRepository(pool, weights)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	logRepo := repository.NewSearchLogRepository(pool)

	var resultCache cache.ResultCache
	if cfg.HasRedis() {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisCache.Close()
		resultCache = redisCache
		log.Println("using redis result cache")
	} else {
		resultCache = cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
		log.Println("using in-memory result cache")
	}

	var openaiClient *openai.Client
	var intentModel service.IntentModel
	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		openaiClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openai.EmbeddingModelFromName(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			IntentModel:         cfg.IntentModel,
		})
		intentModel = openaiClient
		embeddingClient = openaiClient
	} else {
		log.Println("OPENAI_API_KEY not set: intent extraction runs rule-based, vector scoring disabled")
	}

	embeddingSvc := service.NewEmbeddingService(embeddingClient, catalogRepo, cfg.EmbeddingDimensions, cfg.EmbeddingTimeout)

	var embeddingWorker *jobs.Worker
	if embeddingClient != nil {
		processor := jobs.NewEmbeddingWorker(jobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(processor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	intentExtractor := service.NewIntentExtractorWithConfig(intentModel, service.IntentExtractorConfig{
		Timeout:          cfg.IntentTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
	})

	searchSvc := service.NewSearchService(intentExtractor, embeddingSvc, catalogRepo, resultCache, logRepo)

	var imageStore service.ImageStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		imageStore = s3Client
	}

	catalogSvc := service.NewCatalogService(catalogRepo, jobRepo, imageStore)

	router := server.NewRouter(server.RouterConfig{
		APIKey:         cfg.APIKey,
		SearchHandler:  handlers.NewSearchHandler(searchSvc),
		CatalogHandler: handlers.NewCatalogHandler(catalogSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql handle
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		log.Println("migrations: no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
