package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/ai"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/postgres"
	redisqueue "github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/queue/redis"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/adapters/driven/vectorstore"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/config"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/services"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/runtime"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/worker"
)

var version = "dev"

func main() {
	// Run mode from command line arg or RUN_MODE env
	mode := getEnv("RUN_MODE", "worker")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("medpalm-core starting",
		"version", version,
		"mode", mode,
		"environment", cfg.Environment)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// ===== PostgreSQL =====
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	documentStore := postgres.NewDocumentStore(db)
	logger.Info("postgres connected")

	// ===== Redis job queue =====
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	queue, err := redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
	if err != nil {
		log.Fatalf("Failed to create job queue: %v", err)
	}
	logger.Info("redis queue connected")

	// ===== Vector store =====
	vectorStore, err := vectorstore.New(vectorstore.Config{
		Backend:     cfg.VectorStore.Backend,
		Host:        cfg.VectorStore.Host,
		Port:        cfg.VectorStore.Port,
		APIKey:      cfg.VectorStore.APIKey,
		DatabaseURL: cfg.VectorStore.DatabaseURL,
		Timeout:     cfg.VectorStoreTimeout(),
	})
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	if err := vectorStore.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()
	logger.Info("vector store ready", "backend", cfg.VectorStore.Backend)

	// ===== AI services =====
	runtimeConfig := domain.NewRuntimeConfig(cfg.Environment, cfg.VectorStore.Backend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	aiFactory := ai.NewFactory()

	embeddingService, err := aiFactory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProvider(cfg.Embedding.Provider),
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		Timeout:  cfg.EmbeddingTimeout(),
	})
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if embeddingService == nil {
		log.Fatalf("Embedding service not configured (provider=%q model=%q)",
			cfg.Embedding.Provider, cfg.Embedding.Model)
	}
	if err := runtimeServices.ValidateAndSetEmbedding(ctx, embeddingService); err != nil {
		log.Fatalf("Embedding service health check failed: %v", err)
	}
	logger.Info("embedding service ready",
		"provider", cfg.Embedding.Provider,
		"model", cfg.Embedding.Model,
		"dimensions", embeddingService.Dimensions())

	// LLM is optional; retrieval degrades to raw queries without it
	llmService, err := aiFactory.CreateLLMService(&domain.LLMSettings{
		Provider: domain.AIProvider(cfg.LLM.Provider),
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLMTimeout(),
	})
	if err != nil {
		logger.Warn("LLM service unavailable, query rewriting disabled", "error", err)
	} else if llmService != nil {
		if err := runtimeServices.ValidateAndSetLLM(ctx, llmService); err != nil {
			logger.Warn("LLM health check failed, query rewriting disabled", "error", err)
		} else {
			logger.Info("llm service ready", "model", cfg.LLM.Model)
		}
	}

	// ===== Core services =====
	pipeline := services.NewEmbeddingPipeline(services.EmbeddingPipelineConfig{
		DocumentStore:  documentStore,
		VectorStore:    vectorStore,
		Queue:          queue,
		Services:       runtimeServices,
		Environment:    cfg.Environment,
		CollectionBase: cfg.CollectionBase,
		MaxChunkChars:  cfg.Chunker.MaxChunkChars,
		Logger:         logger,
	})
	indexingService := services.NewIndexingService(documentStore, queue, logger)

	switch mode {
	case "worker":
		runWorker(ctx, cfg, queue, pipeline, logger)

	case "reindex":
		result, err := indexingService.ReindexAll(ctx)
		if err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))

	default:
		log.Fatalf("Unknown mode: %s (use: worker or reindex)", mode)
	}
}

// runWorker starts the worker pool and blocks until shutdown.
func runWorker(
	ctx context.Context,
	cfg *config.Config,
	queue *redisqueue.Queue,
	pipeline *services.EmbeddingPipeline,
	logger *slog.Logger,
) {
	w := worker.New(worker.Config{
		Queue:          queue,
		Pipeline:       pipeline,
		Logger:         logger,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
		RatePerSecond:  cfg.Worker.RatePerSecond,
		RateBurst:      cfg.Worker.RateBurst,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	<-ctx.Done()
	w.Stop()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
