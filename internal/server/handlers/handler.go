// Package handlers implements the HTTP endpoints of the mgeo server.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/models"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

// Handler holds the shared dependencies of all HTTP endpoints.
type Handler struct {
	config       *config.Config
	registry     *models.Registry
	trainManager *trainer.Manager
	backend      *backendClient
	version      string
	buildTime    string
}

// NewHandler creates a handler with all endpoint dependencies.
//
// Parameters:
//   - cfg: Server configuration
//   - registry: Model catalog
//   - trainManager: Training run manager
//   - version: Server version string
//   - buildTime: Build timestamp for diagnostics
//
// Returns:
//   - A handler ready to be wired into the router
func NewHandler(cfg *config.Config, registry *models.Registry, trainManager *trainer.Manager, version, buildTime string) *Handler {
	return &Handler{
		config:       cfg,
		registry:     registry,
		trainManager: trainManager,
		backend:      newBackendClient(cfg.Backend.URL),
		version:      version,
		buildTime:    buildTime,
	}
}

// WriteJSON writes a JSON response with the given status code.
func (h *Handler) WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

// WriteError writes a JSON error response with the given status code.
func (h *Handler) WriteError(w http.ResponseWriter, message string, status int) {
	h.WriteJSON(w, api.ErrorResponse{Error: message}, status)
}
