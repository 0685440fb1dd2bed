// Package etherscan is the raw REST client for the Etherscan account API. It
// speaks the V2 endpoint with a one-shot fallback to the legacy V1 endpoint
// when V2 reports a deprecation-class error, and classifies failures so the
// resilience layer can tell transient network trouble from provider logic
// errors.
package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

const (
	// DefaultBaseURL is the Etherscan V2 API root.
	DefaultBaseURL = "https://api.etherscan.io/v2/api"
	// DefaultLegacyURL is the pre-V2 endpoint kept as a balance fallback.
	DefaultLegacyURL = "https://api.etherscan.io/api"
	// MainnetChainID selects Ethereum mainnet on the V2 multichain API.
	MainnetChainID = 1
)

// Client is the REST client for the Etherscan account module.
type Client struct {
	baseURL    string
	legacyURL  string
	chainID    int
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an Etherscan client for Ethereum mainnet.
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   DefaultBaseURL,
		legacyURL: DefaultLegacyURL,
		chainID:   MainnetChainID,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBaseURLs overrides the primary and legacy endpoints, mainly for tests.
func (c *Client) SetBaseURLs(base, legacy string) {
	c.baseURL = base
	c.legacyURL = legacy
}

// Balance returns the address's current ETH balance. The V2 endpoint is
// tried first; when it reports a deprecation-class error the legacy endpoint
// is tried exactly once before giving up.
func (c *Client) Balance(ctx context.Context, address string) (float64, error) {
	resp, err := c.get(ctx, c.baseURL, c.balanceParams(address, true))
	if err == nil && resp.Status == "1" {
		return balanceFromResult(resp.Result)
	}

	if err != nil {
		if !domain.IsTransient(err) {
			return 0, err
		}
		// Transient V2 failure: let the legacy endpoint have one shot
		// before surfacing the error.
	} else if !isDeprecated(resp.Message) {
		return 0, fmt.Errorf("%w: etherscan balance: %s", domain.ErrProviderError, resp.Message)
	}

	resp, ferr := c.get(ctx, c.legacyURL, c.balanceParams(address, false))
	if ferr != nil {
		if err != nil {
			return 0, err
		}
		return 0, ferr
	}
	if resp.Status != "1" {
		return 0, fmt.Errorf("%w: etherscan legacy balance: %s", domain.ErrProviderError, resp.Message)
	}
	return balanceFromResult(resp.Result)
}

// NormalTransactions returns the address's most recent normal transactions,
// newest first, truncated to limit. A provider "No transactions found" reply
// is an empty success, not an error.
func (c *Client) NormalTransactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	params := c.listParams(address, "txlist")
	resp, err := c.get(ctx, c.baseURL, params)
	if err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		if isEmptyResult(resp.Message) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: etherscan txlist: %s", domain.ErrProviderError, resp.Message)
	}

	var txs []Transaction
	if err := json.Unmarshal(resp.Result, &txs); err != nil {
		return nil, fmt.Errorf("%w: etherscan txlist: %v", domain.ErrBadPayload, err)
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// TokenTransfers returns the address's most recent ERC-20 transfers, newest
// first, truncated to limit.
func (c *Client) TokenTransfers(ctx context.Context, address string, limit int) ([]TokenTransfer, error) {
	params := c.listParams(address, "tokentx")
	resp, err := c.get(ctx, c.baseURL, params)
	if err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		if isEmptyResult(resp.Message) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: etherscan tokentx: %s", domain.ErrProviderError, resp.Message)
	}

	var transfers []TokenTransfer
	if err := json.Unmarshal(resp.Result, &transfers); err != nil {
		return nil, fmt.Errorf("%w: etherscan tokentx: %v", domain.ErrBadPayload, err)
	}
	if limit > 0 && len(transfers) > limit {
		transfers = transfers[:limit]
	}
	return transfers, nil
}

func (c *Client) balanceParams(address string, v2 bool) url.Values {
	params := url.Values{}
	if v2 {
		params.Set("chainid", fmt.Sprint(c.chainID))
	}
	params.Set("module", "account")
	params.Set("action", "balance")
	params.Set("address", address)
	params.Set("tag", "latest")
	params.Set("apikey", c.apiKey)
	return params
}

func (c *Client) listParams(address, action string) url.Values {
	params := url.Values{}
	params.Set("chainid", fmt.Sprint(c.chainID))
	params.Set("module", "account")
	params.Set("action", action)
	params.Set("address", address)
	params.Set("sort", "desc")
	params.Set("apikey", c.apiKey)
	return params
}

// get performs one GET and decodes the response envelope. Transport errors
// and retriable HTTP statuses come back marked transient.
func (c *Client) get(ctx context.Context, base string, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("etherscan: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Transientf("etherscan: request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transientf("etherscan: read response: %v", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, domain.Transientf("etherscan: HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: etherscan: %v", domain.ErrBadPayload, err)
	}
	return &out, nil
}

func balanceFromResult(result json.RawMessage) (float64, error) {
	var wei string
	if err := json.Unmarshal(result, &wei); err != nil {
		return 0, fmt.Errorf("%w: etherscan balance: %v", domain.ErrBadPayload, err)
	}
	eth, err := weiToEther(wei)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	return eth, nil
}

func isDeprecated(message string) bool {
	return strings.Contains(strings.ToLower(message), "deprecated")
}

func isEmptyResult(message string) bool {
	return strings.Contains(message, "No transactions found")
}
