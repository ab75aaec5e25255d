// Package handlers - downloader.go bridges ModelScope downloads to SSE
// progress streams.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/models"
)

// downloadModelStreaming downloads a checkpoint and forwards progress as
// SSE messages.
//
// Progress updates are rate-limited per file so large checkpoints do not
// flood the stream; a heartbeat goes out every five seconds to keep the
// connection alive during verification phases that produce no callbacks.
// The request context cancels the download when the client disconnects.
//
// Parameters:
//   - ctx: Request context, cancels the download on disconnect
//   - sourceID: ModelScope repo path (e.g. "iic/mgeo_backbone_chinese_base")
//   - modelID: Local catalog ID used for the storage directory
//   - tag: Version tag subdirectory
//   - w, flusher: SSE output
//
// Returns:
//   - Local path of the downloaded model
//   - Error if the download fails or is cancelled
func (h *Handler) downloadModelStreaming(ctx context.Context, sourceID, modelID, tag string, w http.ResponseWriter, flusher http.Flusher) (string, error) {
	modelsDir := h.config.Storage.GetModelsDir()
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	logger.Info("Downloading %s (ID: %s, tag: %s) to %s", sourceID, modelID, tag, modelsDir)

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sendSSE(w, flusher, "heartbeat", "Download in progress...")
			case <-ctx.Done():
				return
			case <-heartbeatDone:
				return
			}
		}
	}()

	// Track last reported progress per file so updates go out at most once
	// per percent-step or second.
	var mu sync.Mutex
	type fileProgress struct {
		lastPercent float64
		lastUpdate  time.Time
	}
	perFile := make(map[string]*fileProgress)

	progressFunc := func(filename string, downloaded, total int64) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		mu.Lock()
		defer mu.Unlock()

		if total <= 0 {
			// Status lines such as verification results carry no byte counts.
			sendSSE(w, flusher, "progress", filename)
			return
		}

		fp, ok := perFile[filename]
		if !ok {
			fp = &fileProgress{lastPercent: -1}
			perFile[filename] = fp
		}

		now := time.Now()
		percent := float64(downloaded) / float64(total) * 100
		if percent-fp.lastPercent >= 5.0 || now.Sub(fp.lastUpdate) >= time.Second {
			sendSSE(w, flusher, "progress",
				fmt.Sprintf("Downloading %s: %.1f%%", filename, percent))
			fp.lastPercent = percent
			fp.lastUpdate = now
		}
	}

	client := models.NewClient()
	modelPath, err := client.DownloadModel(ctx, sourceID, modelID, tag, modelsDir, progressFunc)
	if err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("Download of %s cancelled by client disconnect", sourceID)
			return "", fmt.Errorf("download cancelled")
		}
		return "", fmt.Errorf("download failed: %w", err)
	}

	logger.Info("Model %s downloaded to %s", sourceID, modelPath)
	return modelPath, nil
}
