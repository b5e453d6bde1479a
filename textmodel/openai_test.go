package textmodel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.SchemaSynthesizer = (*OpenAIClient)(nil)
var _ interfaces.SchemaSynthesizer = (*MockSynthesizer)(nil)

func TestOpenAIClient_Infer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Equal(t, float64(0), req["temperature"])
		messages := req["messages"].([]any)
		require.Len(t, messages, 1)
		assert.Equal(t, "pick a schema", messages[0].(map[string]any)["content"])

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "a1f3-uuid"}}},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "", WithBaseURL(srv.URL+"/v1/"), WithHTTPClient(srv.Client()))
	out, err := client.Infer(context.Background(), "pick a schema")
	require.NoError(t, err)
	assert.Equal(t, "a1f3-uuid", out)
}

func TestOpenAIClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "gpt-4o", WithBaseURL(srv.URL))
	_, err := client.Infer(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewOpenAIClient("", "").Infer(context.Background(), "x")
	assert.Error(t, err)
}
