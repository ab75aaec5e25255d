// Package handlers - inference.go is the client for the token-classification
// backend service.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// backendClient talks to the model runtime that serves the fine-tuned
// checkpoint. The runtime exposes POST /inference returning per-character
// tokens and BIOES tags; entity decoding and level classification happen
// here in the server.
type backendClient struct {
	baseURL    string
	httpClient *http.Client
}

func newBackendClient(baseURL string) *backendClient {
	return &backendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type inferenceRequest struct {
	Address string `json:"address"`
}

type inferenceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Tokens  []string `json:"tokens"`
		NerTags []string `json:"ner_tags"`
		Text    string   `json:"text"`
	} `json:"data"`
}

// Predict runs token-level inference for one address.
//
// Returns:
//   - Tokens, tags, and normalized text from the model
//   - Error if the backend is unreachable or rejects the address
func (c *backendClient) Predict(ctx context.Context, addr string) (*api.TokenResult, error) {
	body, err := json.Marshal(inferenceRequest{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/inference", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference backend returned status %d", resp.StatusCode)
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse inference response: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Message
		if msg == "" {
			msg = "inference failed"
		}
		return nil, fmt.Errorf("%s", msg)
	}
	if len(parsed.Data.Tokens) != len(parsed.Data.NerTags) {
		return nil, fmt.Errorf("backend returned %d tokens but %d tags",
			len(parsed.Data.Tokens), len(parsed.Data.NerTags))
	}

	return &api.TokenResult{
		Tokens:  parsed.Data.Tokens,
		NerTags: parsed.Data.NerTags,
		Text:    parsed.Data.Text,
	}, nil
}

// Ready reports whether the backend answers its health endpoint.
func (c *backendClient) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
