// Package handlers - pull.go implements the model download endpoint with
// SSE streaming.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// PullModel handles checkpoint download requests with real-time progress
// streaming.
//
// The model is downloaded from ModelScope and progress is streamed to the
// client as Server-Sent Events. Users reference models by their short
// catalog ID (e.g. "mgeo-base") which resolves to the full ModelScope path;
// unknown IDs are passed through as ModelScope paths directly so any public
// repo can be pulled.
//
// SSE message types:
//   - status: High-level status updates
//   - progress: Per-file download progress
//   - heartbeat: Keep-alive during quiet periods
//   - complete: Final success message with the local path
//   - end: Stream termination signal
//   - error: Download failure
//
// HTTP Method: POST
// Endpoint: /api/models/pull
//
// Request body: PullRequest JSON
//
//	{
//	  "model": "mgeo-base",
//	  "version": "latest"
//	}
func (h *Handler) PullModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		h.WriteError(w, "Model name is required", http.StatusBadRequest)
		return
	}

	// Resolve catalog ID to the ModelScope source path. Unregistered names
	// are treated as raw ModelScope paths.
	sourceID := req.Model
	modelID := req.Model
	displayName := req.Model
	if spec := h.registry.Get(req.Model); spec != nil {
		sourceID = spec.SourceID
		modelID = spec.ID
		displayName = spec.DisplayName
	}

	tag := req.Version
	if tag == "" {
		tag = "latest"
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.WriteError(w, "Streaming not supported by this server", http.StatusInternalServerError)
		return
	}

	logger.Info("Pulling model %s (source: %s, tag: %s)", modelID, sourceID, tag)
	sendSSE(w, flusher, "status", fmt.Sprintf("Starting download of %s...", displayName))

	modelPath, err := h.downloadModelStreaming(r.Context(), sourceID, modelID, tag, w, flusher)
	if err != nil {
		sendSSE(w, flusher, "error", fmt.Sprintf("Failed to download: %v", err))
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"type":    "complete",
		"status":  "success",
		"message": fmt.Sprintf("Model downloaded to %s", modelPath),
		"path":    modelPath,
	})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()

	sendSSE(w, flusher, "end", "")
}
