// Package api defines the request and response types shared by the mgeo CLI
// client and the HTTP server.
//
// All types are JSON-serializable. Long-running operations (model pull,
// training) stream progress over Server-Sent Events; their terminal payloads
// reuse the response types below.
package api

import (
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/address"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service and inference backend status.
type HealthResponse struct {
	Status       string `json:"status"`
	BackendURL   string `json:"backend_url"`
	BackendReady bool   `json:"backend_ready"`
}

// VersionResponse reports server build information.
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
}

// StandardizeRequest asks the server to parse one address.
type StandardizeRequest struct {
	Address string `json:"address"`
	// City optionally hints at the querying region; recorded but not used by
	// the decoder.
	City string `json:"city,omitempty"`
}

// TokenResult is the raw model output for an address.
type TokenResult struct {
	Tokens  []string `json:"tokens"`
	NerTags []string `json:"ner_tags"`
	Text    string   `json:"text"`
}

// EntityResult groups decoded entities by type, multiple spans of one type
// joined by commas.
type EntityResult struct {
	OriginalText string            `json:"original_text"`
	Entities     map[string]string `json:"entities"`
}

// StandardizeResponse is the full standardization result for one address.
type StandardizeResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	TokenResult    *TokenResult    `json:"token_result,omitempty"`
	EntityResult   *EntityResult   `json:"entity_result,omitempty"`
	LevelResult    *address.Levels `json:"level11_result,omitempty"`
	ProcessingTime float64         `json:"processing_time,omitempty"`
}

// BatchStandardizeRequest asks the server to parse several addresses.
type BatchStandardizeRequest struct {
	Addresses []string `json:"addresses"`
}

// BatchStandardizeResponse carries per-address results in input order.
type BatchStandardizeResponse struct {
	Total   int                   `json:"total"`
	Success int                   `json:"success"`
	Results []StandardizeResponse `json:"results"`
}

// TrainRequest starts a fine-tune run from a training config file on the
// server host.
type TrainRequest struct {
	// ConfigPath is the INI training configuration path.
	ConfigPath string `json:"config_path"`

	// Backend selects the execution backend ("process" or "docker").
	// Empty selects the server default.
	Backend string `json:"backend,omitempty"`
}

// TrainResponse acknowledges a started run.
type TrainResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	WorkDir string `json:"work_dir,omitempty"`
}

// Run describes a training run.
type Run struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	ModelID    string    `json:"model_id"`
	ConfigPath string    `json:"config_path"`
	WorkDir    string    `json:"work_dir"`
	OutputDir  string    `json:"output_dir,omitempty"`
	Backend    string    `json:"backend"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// ListRunsResponse lists training runs, newest first.
type ListRunsResponse struct {
	Runs []Run `json:"runs"`
}

// RunLogsRequest requests the log stream of a run.
type RunLogsRequest struct {
	RunID  string `json:"run_id"`
	Follow bool   `json:"follow,omitempty"`
}

// PullRequest asks the server to download a model from ModelScope.
type PullRequest struct {
	Model   string `json:"model"`
	Version string `json:"version,omitempty"`
}

// PullResponse is the terminal status of a pull operation.
type PullResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// DownloadedModel describes a model present in local storage.
type DownloadedModel struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Tag    string `json:"tag"`
	Size   int64  `json:"size"`
}

// ListDownloadedResponse lists locally stored models.
type ListDownloadedResponse struct {
	Models []DownloadedModel `json:"models"`
}
