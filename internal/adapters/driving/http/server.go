package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	botService      driving.BotService
	documentService driving.DocumentService
	chatService     driving.ChatService

	// Infrastructure
	taskQueue driven.TaskQueue
	db        Pinger // PostgreSQL health check

	// Upload handling
	uploadDir      string
	maxUploadBytes int64
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	UploadDir      string
	MaxUploadBytes int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		UploadDir:      "uploads",
		MaxUploadBytes: 32 << 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	botService driving.BotService,
	documentService driving.DocumentService,
	chatService driving.ChatService,
	taskQueue driven.TaskQueue,
	db Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultConfig().UploadDir
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger.With("component", "http"),
		botService:      botService,
		documentService: documentService,
		chatService:     chatService,
		taskQueue:       taskQueue,
		db:              db,
		uploadDir:       cfg.UploadDir,
		maxUploadBytes:  cfg.MaxUploadBytes,
	}

	logging := NewLoggingMiddleware(logger)
	recovery := NewRecoveryMiddleware(logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the route handler without the server wrapper,
// for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Bot endpoints
	s.router.HandleFunc("POST /api/v1/bots", s.handleCreateBot)
	s.router.HandleFunc("GET /api/v1/bots", s.handleListBots)
	s.router.HandleFunc("GET /api/v1/bots/{id}", s.handleGetBot)
	s.router.HandleFunc("DELETE /api/v1/bots/{id}", s.handleDeleteBot)

	// Document endpoints
	s.router.HandleFunc("POST /api/v1/bots/{id}/documents", s.handleUploadDocument)
	s.router.HandleFunc("GET /api/v1/bots/{id}/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)

	// Chat endpoint
	s.router.HandleFunc("POST /api/v1/bots/{id}/chat", s.handleChat)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
