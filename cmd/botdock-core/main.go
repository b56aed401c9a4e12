package main

// @title           Botdock Core API
// @version         1.0
// @description     Chat bot backend with retrieval-augmented generation. Botdock Core manages bots, ingests their documents, and answers questions grounded in them.

// @contact.name   Botdock OSS
// @contact.url    https://github.com/botdock-labs/botdock-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/botdock-labs/botdock-core/internal/adapters/driven/ai"
	"github.com/botdock-labs/botdock-core/internal/adapters/driven/postgres"
	memoryqueue "github.com/botdock-labs/botdock-core/internal/adapters/driven/queue/memory"
	redisqueue "github.com/botdock-labs/botdock-core/internal/adapters/driven/queue/redis"
	"github.com/botdock-labs/botdock-core/internal/adapters/driven/vectorstore"
	"github.com/botdock-labs/botdock-core/internal/adapters/driving/http"
	"github.com/botdock-labs/botdock-core/internal/chunker"
	"github.com/botdock-labs/botdock-core/internal/config"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
	"github.com/botdock-labs/botdock-core/internal/core/services"
	"github.com/botdock-labs/botdock-core/internal/extractors"
	"github.com/botdock-labs/botdock-core/internal/worker"
)

var version = "dev"

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("botdock-core starting", "version", version, "mode", mode)

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
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	logger.Info("postgres connected, schema initialized")

	// ===== Task queue (Redis if configured, otherwise in-process) =====
	var taskQueue driven.TaskQueue
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		logger.Info("using redis task queue")
	} else {
		taskQueue = memoryqueue.NewQueue()
		logger.Info("using in-memory task queue")
	}
	defer taskQueue.Close()

	// ===== Vector store =====
	store, err := vectorstore.New(cfg.VectorStore, logger)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	defer store.Close()
	logger.Info("vector store ready", "backend", cfg.VectorStore.Backend)

	// ===== AI providers =====
	embedder, err := ai.NewEmbeddingProvider(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to create embedding provider: %v", err)
	}
	llm, err := ai.NewLLMService(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to create LLM service: %v", err)
	}
	logger.Info("ai provider ready",
		"provider", cfg.AI.Provider,
		"embedding_model", embedder.Model(),
		"chat_model", llm.Model(),
	)

	// ===== Stores and registries =====
	botStore := postgres.NewBotStore(db)
	documentStore := postgres.NewDocumentStore(db)
	registry := extractors.DefaultRegistry()
	splitter := chunker.NewSplitter(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

	// ===== Services =====
	retrievalService := services.NewRetrievalService(
		registry,
		splitter,
		embedder,
		store,
		services.RetrievalConfig{
			MaxResults:          cfg.Retrieval.MaxResults,
			SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		},
		logger,
	)
	botService := services.NewBotService(botStore, documentStore, retrievalService, logger)
	documentService := services.NewDocumentService(documentStore, botStore, taskQueue, registry, logger)
	chatService := services.NewChatService(botStore, retrievalService, llm, logger)

	w := worker.New(worker.Config{
		TaskQueue:      taskQueue,
		Retrieval:      retrievalService,
		Documents:      documentStore,
		Logger:         logger,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeoutSecs,
	})

	server := http.NewServer(
		http.Config{
			Host:      cfg.Server.Host,
			Port:      cfg.Server.Port,
			Version:   version,
			UploadDir: cfg.UploadDir,
		},
		botService,
		documentService,
		chatService,
		taskQueue,
		db,
		logger,
	)

	switch mode {
	case "api":
		runServer(server, logger)

	case "worker":
		runWorker(ctx, w, logger)

	case "all":
		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
		defer w.Stop()
		runServer(server, logger)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runServer(server *http.Server, logger *slog.Logger) {
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runWorker(ctx context.Context, w *worker.Worker, logger *slog.Logger) {
	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	logger.Info("worker started, processing ingestion tasks")

	<-ctx.Done()
	w.Stop()
}
