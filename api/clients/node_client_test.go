package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, handler http.HandlerFunc) (*NodeClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	node := interfaces.Node{
		NodeConfig: interfaces.NodeConfig{URL: srv.URL, DID: "did:nil:node"},
		Bearer:     "test-bearer",
	}
	return NewNodeClient(1, node, srv.Client(), nil), srv
}

func writeEnvelope(w http.ResponseWriter, status int, data any, errs []any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if errs == nil {
		errs = []any{}
	}
	json.NewEncoder(w).Encode(map[string]any{"data": data, "errors": errs})
}

func TestNodeClient_ListSchemas(t *testing.T) {
	client, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/schemas", r.URL.Path)
		assert.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, []map[string]any{
			{"_id": "a1f3", "name": "users", "schema": map[string]any{"type": "array"}},
		}, nil)
	})

	schemas, err := client.ListSchemas(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "a1f3", schemas[0].ID)
	assert.Equal(t, "users", schemas[0].Name)
	assert.Equal(t, "array", schemas[0].Schema["type"])
}

func TestNodeClient_CreateData(t *testing.T) {
	client, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/data/create", r.URL.Path)
		var req CreateDataRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "schema-1", req.Schema)
		assert.Len(t, req.Data, 2)
		writeEnvelope(w, http.StatusOK, map[string]any{"created": []string{"x", "y"}}, nil)
	})

	err := client.CreateData(context.Background(), "schema-1", []interfaces.Record{{"_id": "x"}, {"_id": "y"}})
	assert.NoError(t, err)
}

func TestNodeClient_ReadDataSendsEmptyFilter(t *testing.T) {
	client, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.JSONEq(t, `{}`, string(raw["filter"]))
		writeEnvelope(w, http.StatusOK, []map[string]any{{"_id": "x", "name": "alice"}}, nil)
	})

	records, err := client.ReadData(context.Background(), "schema-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Record{{"_id": "x", "name": "alice"}}, records)
}

func TestNodeClient_ErrorsArrayFails(t *testing.T) {
	client, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, nil, []any{"duplicate key"})
	})

	err := client.CreateSchema(context.Background(), map[string]any{"_id": "s"})
	var ne *interfaces.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 1, ne.Node)
	assert.Equal(t, EndpointSchemas, ne.Endpoint)
	assert.Equal(t, []any{"duplicate key"}, ne.Errors)
	assert.False(t, ne.Unauthorized())
}

func TestNodeClient_Non200Fails(t *testing.T) {
	client, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, []any{"token expired"})
	})

	err := client.DeleteData(context.Background(), "schema-1", map[string]any{"_id": "x"})
	var ne *interfaces.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, http.StatusUnauthorized, ne.StatusCode)
	assert.True(t, ne.Unauthorized())
	assert.Contains(t, ne.Error(), "token expired")
}

func TestNodeClient_TransportError(t *testing.T) {
	client, srv := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.ReadData(context.Background(), "schema-1", nil)
	var ne *interfaces.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 0, ne.StatusCode)
	assert.Error(t, ne.Err)
}

func TestNodeClient_MalformedEnvelope(t *testing.T) {
	client, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.ListSchemas(context.Background())
	var ne *interfaces.NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, http.StatusOK, ne.StatusCode)
}
