// Package client - request.go implements low-level HTTP request handling.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// doRequest performs an HTTP request to the server.
//
// Handles request serialization, response parsing, and status code
// validation. Used by all public API methods.
//
// Parameters:
//   - method: HTTP method (GET, POST, etc.)
//   - path: API endpoint path (e.g., "/api/address/standardize")
//   - reqBody: Request body to serialize (nil for no body)
//   - respBody: Pointer to struct for response deserialization (nil to ignore)
//
// Returns:
//   - nil if the request succeeds
//   - error if the request fails or the server returns an error
func (c *Client) doRequest(method, path string, reqBody, respBody interface{}) error {
	url := c.baseURL + path

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot connect to mgeo server at %s\n\nIs the server running? Start it with: mgeo serve", c.baseURL)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respData, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respData))
	}

	if respBody != nil {
		if err := json.Unmarshal(respData, respBody); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
