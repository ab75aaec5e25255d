// Package handlers - models.go implements the local model listing endpoint.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/models"
)

// ListDownloadedModels handles requests to list locally stored checkpoints.
//
// The models directory is scanned for the {model_id}/{tag} layout; entries
// still carrying a download lock are skipped. Source paths are filled in
// from the catalog when the ID is registered.
//
// HTTP Method: GET
// Endpoint: /api/models/downloaded
func (h *Handler) ListDownloadedModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	local, err := models.ListLocal(h.config.Storage.GetModelsDir())
	if err != nil {
		h.WriteError(w, fmt.Sprintf("Failed to scan models directory: %v", err), http.StatusInternalServerError)
		return
	}

	resp := api.ListDownloadedResponse{Models: make([]api.DownloadedModel, 0, len(local))}
	for _, m := range local {
		entry := api.DownloadedModel{
			ID:   m.ID,
			Tag:  m.Tag,
			Size: m.Size,
		}
		if spec := h.registry.Get(m.ID); spec != nil {
			entry.Source = spec.SourceID
		}
		resp.Models = append(resp.Models, entry)
	}
	h.WriteJSON(w, resp, http.StatusOK)
}
