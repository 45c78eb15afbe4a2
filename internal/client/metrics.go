package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logging"
	"github.com/dsh2dsh/logchain/internal/version"
)

const endpointMetrics = "/metrics"

func newMetricsRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler.RegisterMetrics(r)
	version.PrometheusRegister(r)
	return r
}

func metricsMux(r *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(endpointMetrics, promhttp.HandlerFor(r, promhttp.HandlerOpts{}))
	return mux
}

// serveMetrics serves prometheus metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	log := logging.GetLogger(ctx, logging.SubsysCLI).With("addr", addr)
	s := &http.Server{
		Addr:    addr,
		Handler: metricsMux(newMetricsRegistry()),

		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.With("err", err.Error()).Warn("shutdown metrics server")
		}
	})
	defer stop()

	log.Info("listen on")
	if err := s.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics on %q: %w", addr, err)
	}
	return nil
}
