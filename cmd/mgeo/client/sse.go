// Package client - sse.go implements Server-Sent Events support for
// streaming operations.
package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// SSEMessage represents a parsed Server-Sent Events message.
//
// Message types:
//   - "status": General status update
//   - "progress": Download progress update
//   - "log": Training log output
//   - "heartbeat": Keep-alive signal
//   - "error": Operation failure
//   - "complete": Operation completed successfully
//   - "end": Stream termination signal
type SSEMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	// Status and Path accompany "complete" messages.
	Status string `json:"status,omitempty"`
	Path   string `json:"path,omitempty"`
}

// streamSSE posts reqBody to path and dispatches each SSE message to
// handle. The stream ends on an "end" message, an "error" message, or EOF.
//
// Parameters:
//   - path: API endpoint path
//   - reqBody: JSON request body
//   - handle: Callback invoked for every non-control message
//
// Returns:
//   - The "complete" message if one was received, nil otherwise
//   - Error if the connection fails or the server reports an error
func (c *Client) streamSSE(path string, reqBody interface{}, handle func(SSEMessage)) (*SSEMessage, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mgeo server at %s\n\nIs the server running? Start it with: mgeo serve", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respData, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respData, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("server error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	return processSSEStream(resp.Body, handle)
}

// processSSEStream reads SSE messages line by line until an end signal,
// an error message, or EOF.
func processSSEStream(body io.Reader, handle func(SSEMessage)) (*SSEMessage, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var complete *SSEMessage
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var msg SSEMessage
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			logger.Warn("Failed to parse SSE message: %v", err)
			continue
		}

		switch msg.Type {
		case "heartbeat":
			logger.Debug("Received heartbeat signal")
		case "error":
			return nil, fmt.Errorf("%s", msg.Message)
		case "complete":
			copied := msg
			complete = &copied
		case "end":
			return complete, nil
		default:
			if handle != nil {
				handle(msg)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading stream: %w", err)
	}
	return complete, nil
}
