// Package handlers - train.go implements the training run endpoints.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

// StartTraining handles requests to start a fine-tune run.
//
// The training configuration file is loaded from the server host, validated,
// and handed to the run manager. Dataset loading happens synchronously so a
// missing data file fails the request immediately; the training itself runs
// asynchronously and is tracked via /api/train/runs.
//
// HTTP Method: POST
// Endpoint: /api/train
//
// Request body: TrainRequest JSON
//
//	{
//	  "config_path": "configs/train_config.ini",
//	  "backend": "process"
//	}
//
// Response: 202 Accepted with TrainResponse JSON containing the run ID.
func (h *Handler) StartTraining(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	configPath := req.ConfigPath
	if configPath == "" {
		configPath = config.DefaultTrainConfigPath
	}

	cfg, err := config.LoadTrainConfig(configPath)
	if err != nil {
		h.WriteError(w, fmt.Sprintf("Failed to load training config: %v", err), http.StatusBadRequest)
		return
	}

	run, err := h.trainManager.StartRun(cfg, configPath, req.Backend)
	if err != nil {
		h.WriteError(w, fmt.Sprintf("Failed to start training: %v", err), http.StatusBadRequest)
		return
	}

	h.WriteJSON(w, api.TrainResponse{
		RunID:   run.ID,
		Status:  string(run.State),
		Message: "training run started",
		WorkDir: run.WorkDir,
	}, http.StatusAccepted)
}

// ListRuns handles requests to list training runs, newest first.
//
// HTTP Method: GET
// Endpoint: /api/train/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runs := h.trainManager.List()
	resp := api.ListRunsResponse{Runs: make([]api.Run, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toAPIRun(run))
	}
	h.WriteJSON(w, resp, http.StatusOK)
}

// StreamRunLogs streams the log file of a training run over SSE.
//
// With follow=true the stream tails the file while the run is still
// executing, polling for new output and sending heartbeats during quiet
// periods. Without follow the current file content is sent and the stream
// ends.
//
// HTTP Method: POST
// Endpoint: /api/train/logs
//
// SSE message types: log, heartbeat, end, error.
func (h *Handler) StreamRunLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.RunLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	run, err := h.trainManager.Get(req.RunID)
	if err != nil {
		h.WriteError(w, err.Error(), http.StatusNotFound)
		return
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

	file, err := os.Open(h.trainManager.LogPath(run.ID))
	if err != nil {
		sendSSE(w, flusher, "error", fmt.Sprintf("log file unavailable: %v", err))
		return
	}
	defer file.Close()

	// Drain whatever is in the file now.
	streamLogChunk(w, flusher, file)

	if req.Follow {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		quiet := 0
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}

			if streamLogChunk(w, flusher, file) > 0 {
				quiet = 0
				continue
			}

			current, err := h.trainManager.Get(run.ID)
			if err != nil || current.State.Terminal() {
				break
			}
			quiet++
			if quiet >= 5 {
				sendSSE(w, flusher, "heartbeat", "training in progress")
				quiet = 0
			}
		}
		// Catch output written between the last poll and the state change.
		streamLogChunk(w, flusher, file)
	}

	sendSSE(w, flusher, "end", "")
}

// streamLogChunk forwards unread file content as SSE log messages and
// returns the number of bytes consumed.
func streamLogChunk(w http.ResponseWriter, flusher http.Flusher, file *os.File) int64 {
	var total int64
	buf := make([]byte, 32*1024)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			total += int64(n)
			sendSSE(w, flusher, "log", string(buf[:n]))
		}
		if err != nil {
			if err != io.EOF {
				logger.Warn("Failed to read run log: %v", err)
			}
			return total
		}
	}
}

// sendSSE writes one SSE data frame with a type and message.
func sendSSE(w http.ResponseWriter, flusher http.Flusher, msgType, message string) {
	payload, _ := json.Marshal(map[string]string{
		"type":    msgType,
		"message": message,
	})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

// toAPIRun converts the manager's run record to its wire form.
func toAPIRun(run *trainer.Run) api.Run {
	return api.Run{
		ID:         run.ID,
		State:      string(run.State),
		ModelID:    run.ModelID,
		ConfigPath: run.ConfigPath,
		WorkDir:    run.WorkDir,
		OutputDir:  run.OutputDir,
		Backend:    run.Backend,
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Error:      run.Error,
	}
}
