// Package pipeline provides an HTTP client for the internal pipeline
// endpoints of a running API server.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"moneta/internal/services"
)

const processPath = "/api/v1/internal/recurring/process"

// Client triggers recurring processing on a remote API server. It satisfies
// services.RecurringProcessor so callers can swap it for the in-process one.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ services.RecurringProcessor = (*Client)(nil)

// NewClient creates a new pipeline API client.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// ProcessDue asks the server to process everything due as of asOf.
func (c *Client) ProcessDue(ctx context.Context, asOf time.Time) (*services.ProcessReport, error) {
	body := struct {
		AsOf string `json:"as_of"`
	}{AsOf: asOf.UTC().Format(time.RFC3339)}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling process request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processing recurring transactions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error.Code != "" {
			return nil, fmt.Errorf("processing recurring transactions: unexpected status %d (%s)", resp.StatusCode, errBody.Error.Code)
		}
		return nil, fmt.Errorf("processing recurring transactions: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Report services.ProcessReport `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding process response: %w", err)
	}
	return &result.Report, nil
}
