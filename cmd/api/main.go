package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/realsuite/docintel-back/internal/blob"
	"github.com/realsuite/docintel-back/internal/config"
	"github.com/realsuite/docintel-back/internal/diff"
	httpserver "github.com/realsuite/docintel-back/internal/http"
	"github.com/realsuite/docintel-back/internal/http/handlers"
	"github.com/realsuite/docintel-back/internal/ocr"
	"github.com/realsuite/docintel-back/internal/queue"
	"github.com/realsuite/docintel-back/internal/registry"
	"github.com/realsuite/docintel-back/internal/repository"
	"github.com/realsuite/docintel-back/internal/service"
	"github.com/realsuite/docintel-back/internal/summarize"
	"github.com/realsuite/docintel-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[docintel] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Load(cfg.CategoryRegistryPath)
	if err != nil {
		logger.Fatalf("failed loading category registry: %v", err)
	}

	repos, repoCloser := setupRepositories(ctx, cfg, logger)
	defer repoCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	blobs, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		logger.Fatalf("failed initializing blob store: %v", err)
	}

	rulesService := service.NewRulesService(
		repos.rules,
		reg,
		time.Duration(cfg.RuleCacheTTLSeconds)*time.Second,
		cfg.ReviewThreshold,
		logger,
	)
	if err := rulesService.SeedDefaults(ctx); err != nil {
		logger.Fatalf("failed seeding default rules: %v", err)
	}

	jobsService := service.NewJobsService(repos.jobs, repos.versions, repos.results, producer)
	versionsService := service.NewVersionsService(repos.versions, jobsService, cfg.AutoAnalyze, logger)
	api := handlers.NewAPI(jobsService, versionsService, rulesService)

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		diffEngine := diff.NewEngine(cfg.DiffModifySimilarity)
		classifier := diff.NewClassifier(reg)
		summarizer := summarize.NewSummarizer()
		extractor := setupExtractor(cfg, logger)

		for i := 0; i < cfg.WorkerCount; i++ {
			processor := worker.NewProcessor(
				consumer,
				repos.jobs,
				repos.versions,
				repos.results,
				rulesService,
				diffEngine,
				classifier,
				summarizer,
				extractor,
				blobs,
				worker.ProcessorConfig{
					WorkerID:    fmt.Sprintf("%s-%d", cfg.RedisConsumer, i),
					MaxAttempts: cfg.JobMaxAttempts,
					JobTimeout:  time.Duration(cfg.JobTimeoutMS) * time.Millisecond,
				},
				logger,
			)
			go processor.Start(ctx)
		}

		sweeper := worker.NewSweeper(repos.jobs, producer, worker.SweeperConfig{
			VisibilityTimeout: time.Duration(cfg.VisibilityTimeoutMS) * time.Millisecond,
			SweepInterval:     time.Duration(cfg.SweepIntervalMS) * time.Millisecond,
		}, logger)
		go sweeper.Start(ctx)

		logger.Printf("workers enabled count=%d", cfg.WorkerCount)
	} else {
		logger.Printf("workers disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

type repositories struct {
	jobs     repository.JobsRepository
	versions repository.VersionsRepository
	rules    repository.RulesRepository
	results  repository.ResultsRepository
}

func setupRepositories(ctx context.Context, cfg config.Config, logger *log.Logger) (repositories, func()) {
	memory := repositories{
		jobs:     repository.NewMemoryJobsRepository(),
		versions: repository.NewMemoryVersionsRepository(),
		rules:    repository.NewMemoryRulesRepository(),
		results:  repository.NewMemoryResultsRepository(),
	}

	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repositories")
		return memory, func() {}
	}

	pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres pool, fallback to memory: %v", err)
		return memory, func() {}
	}
	logger.Printf("postgres repositories initialized")
	return repositories{
		jobs:     repository.NewPostgresJobsRepository(pool),
		versions: repository.NewPostgresVersionsRepository(pool),
		rules:    repository.NewPostgresRulesRepository(pool),
		results:  repository.NewPostgresResultsRepository(pool),
	}, pool.Close
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(512, cfg.JobMaxAttempts, logger)
		return local, local, func() {}
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		Stream:      cfg.RedisStream,
		DLQStream:   cfg.RedisDLQ,
		Group:       cfg.RedisGroup,
		Consumer:    cfg.RedisConsumer,
		MaxAttempts: cfg.JobMaxAttempts,
	})
	if err != nil {
		logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
		local := queue.NewLocalQueue(512, cfg.JobMaxAttempts, logger)
		return local, local, func() {}
	}

	logger.Printf("redis streams queue initialized")
	return streams, streams, func() {
		_ = streams.Close()
	}
}

func setupExtractor(cfg config.Config, logger *log.Logger) *ocr.Router {
	local := ocr.NewHTTPEngine(ocr.HTTPEngineConfig{
		Name:    "local",
		BaseURL: cfg.OCRLocalURL,
		Timeout: time.Duration(cfg.OCRLocalTimeoutMS) * time.Millisecond,
	})
	cloud := ocr.NewHTTPEngine(ocr.HTTPEngineConfig{
		Name:    "cloud",
		BaseURL: cfg.OCRCloudURL,
		APIKey:  cfg.OCRCloudAPIKey,
		Timeout: time.Duration(cfg.OCRCloudTimeoutMS) * time.Millisecond,
	})
	return ocr.NewRouter(local, cloud, ocr.RouterConfig{
		ConfidenceThreshold: cfg.OCRConfidenceThreshold,
		LocalTimeout:        time.Duration(cfg.OCRLocalTimeoutMS) * time.Millisecond,
		CloudTimeout:        time.Duration(cfg.OCRCloudTimeoutMS) * time.Millisecond,
	}, logger)
}
