package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
)

// Metrics tracks pipeline throughput for Prometheus scraping.
type Metrics struct {
	registry *prometheus.Registry

	Ingested   prometheus.Counter
	Translated prometheus.Counter
	Raw        prometheus.Counter
	Dropped    prometheus.Counter
}

// NewMetrics creates the pipeline metric set on a private registry.
func NewMetrics(queueDepth func() float64) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		Ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "normalize_events_ingested_total",
			Help: "Raw events accepted from the ingest subject.",
		}),
		Translated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "normalize_events_translated_total",
			Help: "Events translated and published to the normalized subject.",
		}),
		Raw: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "normalize_events_raw_total",
			Help: "Events forwarded to the raw side-channel.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "normalize_events_dropped_total",
			Help: "Events dropped by parse or publish failures.",
		}),
	}
	registry.MustRegister(m.Ingested, m.Translated, m.Raw, m.Dropped)

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "normalize_inlet_queue_depth",
		Help: "Events waiting in the demuxer inlet queue.",
	}, queueDepth))

	return m
}

// Serve exposes /metrics until the context is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", logging.Subject(addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", logging.Err(err))
	}
}
