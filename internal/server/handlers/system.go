// Package handlers - system.go implements the health and version endpoints.
package handlers

import (
	"net/http"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// Health reports server liveness and whether the inference backend is
// reachable. The server itself is always "ok" when this handler runs;
// backend_ready tells clients whether standardization requests will work.
//
// HTTP Method: GET
// Endpoint: /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.WriteJSON(w, api.HealthResponse{
		Status:       "ok",
		BackendURL:   h.config.Backend.URL,
		BackendReady: h.backend.Ready(r.Context()),
	}, http.StatusOK)
}

// Version reports the server version and build time.
//
// HTTP Method: GET
// Endpoint: /api/version
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.WriteJSON(w, api.VersionResponse{
		Version:   h.version,
		BuildTime: h.buildTime,
	}, http.StatusOK)
}
