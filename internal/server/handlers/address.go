// Package handlers - address.go implements the address standardization
// endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/address"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// batchConcurrency bounds simultaneous backend inference calls during
// batch standardization.
const batchConcurrency = 4

// Standardize handles single-address standardization requests.
//
// The pipeline has three stages:
//  1. Token-level inference against the model backend
//  2. BIOES tag decoding into typed entities
//  3. Hierarchical classification into eleven address levels
//
// HTTP Method: POST
// Endpoint: /api/address/standardize
//
// Request body: StandardizeRequest JSON
//
//	{
//	  "address": "广东省广州市天河区珠村北社大街八巷7号1楼"
//	}
//
// Response: 200 OK with StandardizeResponse JSON containing the raw token
// result, decoded entities, and the eleven-level breakdown. Pipeline
// failures return success=false with a message rather than an HTTP error,
// so batch callers can distinguish per-address failures from transport
// problems.
func (h *Handler) Standardize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.StandardizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	addr := strings.TrimSpace(req.Address)
	if addr == "" {
		h.WriteError(w, "Address is required", http.StatusBadRequest)
		return
	}

	logger.Info("Standardizing address: %s", addr)
	resp := h.standardizeOne(r.Context(), addr)
	h.WriteJSON(w, resp, http.StatusOK)
}

// BatchStandardize handles multi-address standardization requests.
//
// Addresses are processed concurrently with a bounded worker group; results
// keep the input order. Individual failures are reported per address and do
// not abort the batch.
//
// HTTP Method: POST
// Endpoint: /api/address/batch
func (h *Handler) BatchStandardize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.BatchStandardizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Addresses) == 0 {
		h.WriteError(w, "Address list is required", http.StatusBadRequest)
		return
	}

	logger.Info("Standardizing batch of %d addresses", len(req.Addresses))

	results := make([]api.StandardizeResponse, len(req.Addresses))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)
	for i, addr := range req.Addresses {
		i, addr := i, addr
		g.Go(func() error {
			results[i] = h.standardizeOne(ctx, strings.TrimSpace(addr))
			return nil
		})
	}
	g.Wait()

	succeeded := 0
	for i := range results {
		if results[i].Success {
			succeeded++
		}
	}
	h.WriteJSON(w, api.BatchStandardizeResponse{
		Total:   len(req.Addresses),
		Success: succeeded,
		Results: results,
	}, http.StatusOK)
}

// standardizeOne runs the full pipeline for a single address.
func (h *Handler) standardizeOne(ctx context.Context, addr string) api.StandardizeResponse {
	start := time.Now()
	fail := func(format string, args ...interface{}) api.StandardizeResponse {
		return api.StandardizeResponse{
			Success:        false,
			Message:        fmt.Sprintf(format, args...),
			ProcessingTime: time.Since(start).Seconds(),
		}
	}

	if addr == "" {
		return fail("address cannot be empty")
	}

	tokenResult, err := h.backend.Predict(ctx, addr)
	if err != nil {
		logger.Warn("Inference failed for %q: %v", addr, err)
		return fail("inference failed: %v", err)
	}

	grouped, err := address.ExtractEntities(tokenResult.Tokens, tokenResult.NerTags)
	if err != nil {
		return fail("failed to decode entities: %v", err)
	}
	entities := address.JoinEntities(grouped)

	levels := address.Standardize(entities, addr)

	return api.StandardizeResponse{
		Success:     true,
		Message:     "address standardized",
		TokenResult: tokenResult,
		EntityResult: &api.EntityResult{
			OriginalText: addr,
			Entities:     entities,
		},
		LevelResult:    levels,
		ProcessingTime: time.Since(start).Seconds(),
	}
}
