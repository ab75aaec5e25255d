// Package client - train.go implements training run operations.
package client

import (
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// StartTraining asks the server to start a fine-tune run from a config
// file on the server host.
//
// Parameters:
//   - configPath: Training config path, empty for the server default
//   - backend: Execution backend name, empty for the server default
//
// Returns:
//   - The acknowledgement with the run ID
//   - Error if validation fails or the run cannot start
func (c *Client) StartTraining(configPath, backend string) (*api.TrainResponse, error) {
	var resp api.TrainResponse
	err := c.doRequest("POST", "/api/train",
		api.TrainRequest{ConfigPath: configPath, Backend: backend}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRuns retrieves all training runs, newest first.
func (c *Client) ListRuns() ([]api.Run, error) {
	var resp api.ListRunsResponse
	if err := c.doRequest("GET", "/api/train/runs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// StreamRunLogs streams a run's log output, invoking callback for every
// chunk. With follow=true the stream tails the run until it finishes.
func (c *Client) StreamRunLogs(runID string, follow bool, callback func(string)) error {
	_, err := c.streamSSE("/api/train/logs",
		api.RunLogsRequest{RunID: runID, Follow: follow},
		func(msg SSEMessage) {
			if msg.Type == "log" && callback != nil {
				callback(msg.Message)
			}
		})
	return err
}
