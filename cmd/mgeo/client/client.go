// Package client provides an HTTP client for communicating with the mgeo
// server.
//
// This package implements the client side of the mgeo API, enabling CLI
// commands and other applications to interact with the server over HTTP.
// It provides:
//   - High-level methods for all API operations
//   - Automatic request/response serialization
//   - SSE stream handling for pulls and training logs
//
// Example usage:
//
//	cli := client.NewClient("http://localhost:7869")
//	result, err := cli.Standardize("广东省广州市天河区珠村北社大街八巷7号")
//	if err != nil {
//	    log.Fatalf("Failed to standardize: %v", err)
//	}
package client

import (
	"net/http"
)

// Client is the HTTP client for communicating with the mgeo server.
//
// All methods are safe for concurrent use. The underlying HTTP client
// carries no timeout because pull and log operations are long-lived SSE
// streams.
type Client struct {
	// baseURL is the base URL of the mgeo server, e.g. "http://localhost:7869".
	baseURL string

	httpClient *http.Client
}

// NewClient creates a client configured for a specific mgeo server.
//
// Parameters:
//   - baseURL: The base URL of the server (e.g., "http://localhost:7869")
//
// Returns:
//   - A configured Client ready for use
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 0, // streaming operations have no fixed duration
		},
	}
}
