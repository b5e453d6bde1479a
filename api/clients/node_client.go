package clients

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
	"github.com/ruteri/nildb-agentkit/metrics"
)

// Storage protocol endpoints, relative to <node url>/api/v1/.
const (
	EndpointSchemas    = "schemas"
	EndpointDataCreate = "data/create"
	EndpointDataRead   = "data/read"
	EndpointDataDelete = "data/delete"
)

// maxResponseSize bounds a node response body (16MB).
const maxResponseSize = 16 * 1024 * 1024

// Envelope is the response body of every storage endpoint.
type Envelope struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []any           `json:"errors"`
}

// CreateDataRequest is the body of POST /api/v1/data/create.
type CreateDataRequest struct {
	Schema string              `json:"schema"`
	Data   []interfaces.Record `json:"data"`
}

// FilterRequest is the body of POST /api/v1/data/read and /api/v1/data/delete.
type FilterRequest struct {
	Schema string         `json:"schema"`
	Filter map[string]any `json:"filter"`
}

// NodeClient implements interfaces.NodeAPI for a single node.
type NodeClient struct {
	index      int
	node       interfaces.Node
	httpClient *http.Client
	log        *slog.Logger
}

// NewNodeClient creates a client for the node at position index of its cluster.
// A nil httpClient falls back to a client with a 30 second timeout.
func NewNodeClient(index int, node interfaces.Node, httpClient *http.Client, log *slog.Logger) *NodeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &NodeClient{
		index:      index,
		node:       node,
		httpClient: httpClient,
		log:        log.With(slog.Int("node", index), slog.String("url", node.URL)),
	}
}

// Factory returns an interfaces.NodeAPIFactory producing NodeClients that share httpClient.
func Factory(httpClient *http.Client, log *slog.Logger) interfaces.NodeAPIFactory {
	return func(index int, node interfaces.Node) interfaces.NodeAPI {
		return NewNodeClient(index, node, httpClient, log)
	}
}

func (c *NodeClient) ListSchemas(ctx context.Context) ([]interfaces.SchemaEntry, error) {
	env, err := c.do(ctx, http.MethodGet, EndpointSchemas, nil)
	if err != nil {
		return nil, err
	}
	var schemas []interfaces.SchemaEntry
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &schemas); err != nil {
			return nil, c.nodeError(EndpointSchemas, http.StatusOK, nil, fmt.Errorf("failed to parse schema list: %w", err))
		}
	}
	return schemas, nil
}

func (c *NodeClient) CreateSchema(ctx context.Context, document map[string]any) error {
	_, err := c.do(ctx, http.MethodPost, EndpointSchemas, document)
	return err
}

func (c *NodeClient) CreateData(ctx context.Context, schemaID string, data []interfaces.Record) error {
	_, err := c.do(ctx, http.MethodPost, EndpointDataCreate, CreateDataRequest{Schema: schemaID, Data: data})
	return err
}

func (c *NodeClient) ReadData(ctx context.Context, schemaID string, filter map[string]any) ([]interfaces.Record, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	env, err := c.do(ctx, http.MethodPost, EndpointDataRead, FilterRequest{Schema: schemaID, Filter: filter})
	if err != nil {
		return nil, err
	}
	var records []interfaces.Record
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &records); err != nil {
			return nil, c.nodeError(EndpointDataRead, http.StatusOK, nil, fmt.Errorf("failed to parse records: %w", err))
		}
	}
	return records, nil
}

func (c *NodeClient) DeleteData(ctx context.Context, schemaID string, filter map[string]any) error {
	_, err := c.do(ctx, http.MethodPost, EndpointDataDelete, FilterRequest{Schema: schemaID, Filter: filter})
	return err
}

// do performs one authenticated request. It succeeds only on HTTP 200 with an
// empty errors array.
func (c *NodeClient) do(ctx context.Context, method, endpoint string, payload any) (*Envelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.node.URL+"/api/v1/"+endpoint, body)
	if err != nil {
		return nil, c.nodeError(endpoint, 0, nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.node.Bearer)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveNodeRequest(c.index, endpoint, 0, time.Since(start))
		c.log.Warn("node request failed", slog.String("endpoint", endpoint), slog.Any("err", err))
		return nil, c.nodeError(endpoint, 0, nil, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	elapsed := time.Since(start)
	metrics.ObserveNodeRequest(c.index, endpoint, resp.StatusCode, elapsed)
	if err != nil {
		return nil, c.nodeError(endpoint, resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}

	c.log.Debug("node responded",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed))

	var env Envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode != http.StatusOK {
		ne := c.nodeError(endpoint, resp.StatusCode, env.Errors, nil)
		ne.Body = string(respBody)
		return nil, ne
	}
	if decodeErr != nil {
		return nil, c.nodeError(endpoint, resp.StatusCode, nil, fmt.Errorf("failed to parse response envelope: %w", decodeErr))
	}
	if len(env.Errors) > 0 {
		return nil, c.nodeError(endpoint, resp.StatusCode, env.Errors, nil)
	}
	return &env, nil
}

func (c *NodeClient) nodeError(endpoint string, status int, errs []any, err error) *interfaces.NodeError {
	return &interfaces.NodeError{
		Node:       c.index,
		URL:        c.node.URL,
		Endpoint:   endpoint,
		StatusCode: status,
		Errors:     errs,
		Err:        err,
	}
}
