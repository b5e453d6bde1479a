// Package metrics holds the Prometheus collectors of the vault client and the
// node simulator, and a small server exposing them on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry collects every metric of this module. It is separate from the
// default registerer so that embedding programs keep control over theirs.
var Registry = prometheus.NewRegistry()

var (
	// NodeRequests counts storage protocol requests issued to nodes.
	NodeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nildb",
		Subsystem: "client",
		Name:      "node_requests_total",
		Help:      "Storage protocol requests issued to nodes.",
	}, []string{"node", "endpoint", "status"})

	// NodeRequestDuration observes the latency of storage protocol requests.
	NodeRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nildb",
		Subsystem: "client",
		Name:      "node_request_duration_seconds",
		Help:      "Latency of storage protocol requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// ServerRequests counts requests served by the node simulator.
	ServerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nildb",
		Subsystem: "nodesim",
		Name:      "requests_total",
		Help:      "Requests served by simulated nodes.",
	}, []string{"route", "status"})
)

func init() {
	Registry.MustRegister(
		NodeRequests,
		NodeRequestDuration,
		ServerRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveNodeRequest records one request to node at endpoint. A zero status
// means the request never produced a response.
func ObserveNodeRequest(node int, endpoint string, status int, elapsed time.Duration) {
	statusLabel := "error"
	if status != 0 {
		statusLabel = strconv.Itoa(status)
	}
	NodeRequests.WithLabelValues(strconv.Itoa(node), endpoint, statusLabel).Inc()
	NodeRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveServerRequest records one request handled by a simulated node.
func ObserveServerRequest(route string, status int) {
	ServerRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
