package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ruteri/nildb-agentkit/interfaces"
)

// DefaultRegistrationURL is the public registration service for nildb testnet clusters.
const DefaultRegistrationURL = "https://sv-sda-registration.replit.app/api/config"

// maxResponseSize bounds the registration response body (1MB).
const maxResponseSize = 1024 * 1024

// Client implements interfaces.RegistrationService over HTTP.
type Client struct {
	// URL is the registration endpoint. Empty means DefaultRegistrationURL.
	URL string

	// HTTPClient is used for the request. Nil means a client with a 30s timeout.
	HTTPClient *http.Client

	Log *slog.Logger
}

type registrationRequest struct {
	OrgDID string `json:"org_did"`
}

type registrationResponse struct {
	Nodes []interfaces.NodeConfig `json:"nodes"`
}

// FetchNodes posts the organization DID to the registration service and
// returns the ordered node list.
func (c *Client) FetchNodes(ctx context.Context, orgDID string) ([]interfaces.NodeConfig, error) {
	url := c.URL
	if url == "" {
		url = DefaultRegistrationURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := c.Log
	if log == nil {
		log = slog.Default()
	}

	body, err := json.Marshal(registrationRequest{OrgDID: orgDID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request registration endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read registration response: %w", err)
	}
	log.Debug("registration service responded",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registration endpoint returned error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed registrationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse registration response: %w", err)
	}
	return parsed.Nodes, nil
}
