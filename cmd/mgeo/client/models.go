// Package client - models.go implements model download and listing
// operations.
package client

import (
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// Pull downloads a model checkpoint on the server with streaming progress.
//
// The server streams download progress as SSE messages; each status or
// progress line is forwarded to progressCallback.
//
// Parameters:
//   - model: Catalog ID or ModelScope path
//   - version: Version tag, empty for "latest"
//   - progressCallback: Optional callback for progress lines
//
// Returns:
//   - PullResponse with final status and local path
//   - Error if the download fails
func (c *Client) Pull(model, version string, progressCallback func(string)) (*api.PullResponse, error) {
	complete, err := c.streamSSE("/api/models/pull",
		api.PullRequest{Model: model, Version: version},
		func(msg SSEMessage) {
			if progressCallback != nil {
				progressCallback(msg.Message)
			}
		})
	if err != nil {
		return nil, err
	}
	if complete == nil {
		return &api.PullResponse{Status: "unknown", Message: "stream ended without completion"}, nil
	}
	return &api.PullResponse{
		Status:  complete.Status,
		Message: complete.Message,
		Path:    complete.Path,
	}, nil
}

// ListDownloaded retrieves the locally stored checkpoints on the server.
func (c *Client) ListDownloaded() ([]api.DownloadedModel, error) {
	var resp api.ListDownloadedResponse
	if err := c.doRequest("GET", "/api/models/downloaded", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}
