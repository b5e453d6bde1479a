package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ruteri/nildb-agentkit/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HealthAndDrain(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(&HTTPServerConfig{Log: logger})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "alive")

	status, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, status)

	_, body = get("/drain")
	assert.Contains(t, body, `"draining"`)
	_, body = get("/drain")
	assert.Contains(t, body, "already draining")

	status, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	_, body = get("/undrain")
	assert.Contains(t, body, `"ready"`)
	status, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_ObservesRoutes(t *testing.T) {
	n := newTestNode(t)
	n.call(t, http.MethodGet, "/api/v1/schemas", nil)
	n.callWithToken(t, "", http.MethodGet, "/api/v1/schemas", nil)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()

	assert.True(t, strings.Contains(out, `nildb_nodesim_requests_total{route="/api/v1/schemas",status="200"}`), out)
	// rejected before routing completes, so only the mount pattern is known
	assert.True(t, strings.Contains(out, `status="401"`), out)
}
