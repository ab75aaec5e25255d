// Package client - address.go implements address standardization
// operations.
package client

import (
	"fmt"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// Standardize parses one address into entities and the eleven-level
// breakdown.
//
// Parameters:
//   - address: The raw Chinese address text
//
// Returns:
//   - The standardization result (check Success for per-address failures)
//   - Error if the request itself fails
func (c *Client) Standardize(address string) (*api.StandardizeResponse, error) {
	if address == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	var resp api.StandardizeResponse
	err := c.doRequest("POST", "/api/address/standardize",
		api.StandardizeRequest{Address: address}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchStandardize parses several addresses in one request. Results keep
// the input order; individual failures are reported per entry.
func (c *Client) BatchStandardize(addresses []string) (*api.BatchStandardizeResponse, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("address list cannot be empty")
	}

	var resp api.BatchStandardizeResponse
	err := c.doRequest("POST", "/api/address/batch",
		api.BatchStandardizeRequest{Addresses: addresses}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
