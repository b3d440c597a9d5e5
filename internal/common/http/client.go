// internal/common/http/client.go

// Package http wraps the standard client with the gateway's shared request
// timeout. Every upstream call, health probe and export upload goes through
// one Client so the deadline is configured in a single place.
package http

import (
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

// NewClient builds a client whose requests time out after the given duration.
// Per-request deadlines tighter than this come from the request context.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
