// Package server provides the HTTP server of the mgeo application.
//
// The server is the long-lived side of the mgeo CLI. It exposes:
//   - Address standardization endpoints backed by the inference service
//   - Training run management with SSE log streaming
//   - Model checkpoint downloads from ModelScope with SSE progress
//
// Example usage:
//
//	cfg, _ := config.Load("")
//	srv := server.NewServer(cfg, trainMgr, "1.0.0")
//	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
//	    log.Fatalf("Server failed: %v", err)
//	}
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/models"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/server/handlers"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

// Server handles API requests from the mgeo CLI and other clients.
//
// It is safe for concurrent use; all mutable state lives in the model
// registry and the training run manager.
type Server struct {
	config *config.Config

	httpServer *http.Server

	modelRegistry *models.Registry

	trainManager *trainer.Manager

	version   string
	buildTime string
}

// NewServer creates and initializes a new server instance.
//
// The server is ready to start after creation but is not yet listening for
// connections. Call Start() to begin accepting requests.
//
// Parameters:
//   - cfg: The server configuration
//   - trainManager: The training run manager
//   - version: Server version string
//
// Returns:
//   - A fully initialized Server ready to start
func NewServer(cfg *config.Config, trainManager *trainer.Manager, version string) *Server {
	return &Server{
		config:        cfg,
		modelRegistry: models.NewRegistry(),
		trainManager:  trainManager,
		version:       version,
		buildTime:     time.Now().Format(time.RFC3339),
	}
}

// Start starts the HTTP server and begins accepting connections.
//
// The method blocks until the server is shut down via Stop() or encounters
// a fatal error.
//
// Registered endpoints:
//   - GET  /api/health              - Health check with backend status
//   - GET  /api/version             - Version information
//   - POST /api/address/standardize - Standardize one address
//   - POST /api/address/batch       - Standardize several addresses
//   - POST /api/train               - Start a fine-tune run
//   - GET  /api/train/runs          - List training runs
//   - POST /api/train/logs          - Stream run logs (SSE)
//   - POST /api/models/pull         - Download a model (SSE)
//   - GET  /api/models/downloaded   - List local checkpoints
//
// Returns:
//   - http.ErrServerClosed after graceful shutdown
//   - error if the server fails to start
func (s *Server) Start() error {
	h := handlers.NewHandler(
		s.config,
		s.modelRegistry,
		s.trainManager,
		s.version,
		s.buildTime,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/api/version", h.Version)

	mux.HandleFunc("/api/address/standardize", h.Standardize)
	mux.HandleFunc("/api/address/batch", h.BatchStandardize)

	mux.HandleFunc("/api/train", h.StartTraining)
	mux.HandleFunc("/api/train/runs", h.ListRuns)
	mux.HandleFunc("/api/train/logs", h.StreamRunLogs)

	mux.HandleFunc("/api/models/pull", h.PullModel)
	mux.HandleFunc("/api/models/downloaded", h.ListDownloadedModels)

	addr := s.config.GetServerAddress()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.loggingMiddleware(mux),
		// No read/write timeouts: pulls and log streams are long-lived SSE.
		IdleTimeout: 120 * time.Second,
	}

	logger.Info("Starting mgeo server on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server without interrupting active
// connections. If the context expires before all connections close, the
// server is forcefully terminated.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs each request with client address, method, path,
// and processing duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Info("%s %s %s", r.RemoteAddr, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debug("Completed in %v", time.Since(start))
	})
}
