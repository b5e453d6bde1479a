package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/nildb-agentkit/common"
)

// MetricsServer serves Registry on /metrics.
type MetricsServer struct {
	srv *http.Server
}

// New prepares a metrics server listening on addr. namespace prefixes the
// build info gauge registered alongside the collectors.
func New(namespace, addr string) (*MetricsServer, error) {
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information of the running binary.",
		ConstLabels: prometheus.Labels{"version": common.Version},
	})
	if err := Registry.Register(buildInfo); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			buildInfo = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	buildInfo.Set(1)

	mux := chi.NewRouter()
	mux.Handle("/metrics", Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
