// Copyright 2025 Basis Protocol
//
// Package hostchain provides a minimal external.HostChainClient over
// plain net/http, the same transport idiom the donor's own adapters use
// (e.g. pkg/accumulate/liteclient_adapter.go dials its node over
// net/http rather than a generated RPC stub). Submitting an unsigned
// transaction here means POSTing its opaque payload bytes to the
// configured host-chain endpoint and treating the response body as the
// transaction id; the actual host-chain wire protocol is out of scope
// for this module (see pkg/external's doc comment).
package hostchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/basistracker/core/pkg/external"
)

// DefaultTimeout bounds every Submit call, satisfying spec §5's
// requirement that all external I/O enforce a deadline.
const DefaultTimeout = 30 * time.Second

// Client is a thin HTTP-transport implementation of external.HostChainClient.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ external.HostChainClient = (*Client)(nil)

// New constructs a Client against endpoint, using DefaultTimeout unless
// the caller's context sets a tighter deadline.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
}

// Submit POSTs tx.Payload to the host-chain endpoint's transaction
// submission path and returns the response body as the transaction id.
func (c *Client) Submit(ctx context.Context, tx *external.UnsignedTx) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/tx/submit", bytes.NewReader(tx.Payload))
	if err != nil {
		return nil, fmt.Errorf("hostchain: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hostchain: submit: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hostchain: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hostchain: submit rejected, status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
