package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/nildb-agentkit/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveNodeRequest(t *testing.T) {
	before := testutil.ToFloat64(NodeRequests.WithLabelValues("2", "data/read", "200"))
	ObserveNodeRequest(2, "data/read", http.StatusOK, 10*time.Millisecond)
	after := testutil.ToFloat64(NodeRequests.WithLabelValues("2", "data/read", "200"))
	assert.Equal(t, before+1, after)

	beforeErr := testutil.ToFloat64(NodeRequests.WithLabelValues("0", "schemas", "error"))
	ObserveNodeRequest(0, "schemas", 0, time.Millisecond)
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(NodeRequests.WithLabelValues("0", "schemas", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveServerRequest("/api/v1/schemas", http.StatusOK)

	_, err := New("nildb_test", "127.0.0.1:0")
	require.NoError(t, err)
	// registering twice reuses the existing gauge
	_, err = New("nildb_test", "127.0.0.1:0")
	require.NoError(t, err)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "nildb_nodesim_requests_total")
	assert.Contains(t, string(body), "nildb_test_build_info")
}

func TestBuildInfoNamespace(t *testing.T) {
	_, err := New(common.PackageName, "127.0.0.1:0")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()

	assert.Contains(t, out, common.PackageName+`_build_info{version="`+common.Version+`"} 1`)
	assert.Contains(t, out, "nildb_client_node_requests_total")
}
