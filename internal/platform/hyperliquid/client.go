// Package hyperliquid is the raw client for the Hyperliquid info API, used to
// read a wallet's perpetual-futures clearinghouse state.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

// DefaultBaseURL is the Hyperliquid info endpoint.
const DefaultBaseURL = "https://api.hyperliquid.xyz/info"

// Client is the REST client for the Hyperliquid info API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Hyperliquid info client.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBaseURL overrides the endpoint, mainly for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// ClearinghouseState returns the user's current perp account state. A
// response without a margin summary is a malformed payload, not an empty
// account: Hyperliquid returns a zeroed summary for unknown users.
func (c *Client) ClearinghouseState(ctx context.Context, user string) (*ClearinghouseState, error) {
	payload, err := json.Marshal(map[string]string{
		"type": "clearinghouseState",
		"user": user,
	})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Transientf("hyperliquid: request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transientf("hyperliquid: read response: %v", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, domain.Transientf("hyperliquid: HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hyperliquid: HTTP %d", resp.StatusCode)
	}

	var state ClearinghouseState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("%w: hyperliquid: %v", domain.ErrBadPayload, err)
	}
	if state.MarginSummary == nil {
		return nil, fmt.Errorf("%w: hyperliquid: missing marginSummary", domain.ErrBadPayload)
	}
	return &state, nil
}
