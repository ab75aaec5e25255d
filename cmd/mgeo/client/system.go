// Package client - system.go implements system information operations.
package client

import (
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// Version retrieves version and build information from the server.
func (c *Client) Version() (*api.VersionResponse, error) {
	var resp api.VersionResponse
	if err := c.doRequest("GET", "/api/version", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the server's health and whether the inference backend is
// ready to serve standardization requests.
func (c *Client) Health() (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest("GET", "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
