// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus instrumentation for downloads, model
// loads and inference calls.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every konsulton collector. A private registry keeps tests
// and embedders from colliding with the global default one.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// =============================================================================
// COLLECTORS
// =============================================================================

var (
	downloadTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "konsulton_download_total",
		Help: "Model downloads by terminal result",
	}, []string{"result"})

	downloadBytes = factory.NewCounter(prometheus.CounterOpts{
		Name: "konsulton_download_bytes_total",
		Help: "Bytes written to model files, including aborted downloads",
	})

	downloadDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "konsulton_download_duration_seconds",
		Help:    "Wall time of one download from Starting to its terminal event",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
	})

	modelLoads = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "konsulton_model_load_total",
		Help: "Model load attempts by result",
	}, []string{"result"})

	inferenceDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "konsulton_inference_duration_seconds",
		Help:    "Duration of one generate call",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4m
	}, []string{"backend", "result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveDownload records one finished download.
func ObserveDownload(result string, d time.Duration) {
	downloadTotal.WithLabelValues(result).Inc()
	downloadDuration.Observe(d.Seconds())
}

// AddDownloadedBytes counts bytes as they hit the disk.
func AddDownloadedBytes(n int) {
	downloadBytes.Add(float64(n))
}

// ObserveModelLoad records one load attempt.
func ObserveModelLoad(result string) {
	modelLoads.WithLabelValues(result).Inc()
}

// ObserveInference records one generate call.
func ObserveInference(backend, result string, d time.Duration) {
	inferenceDuration.WithLabelValues(backend, result).Observe(d.Seconds())
}

// =============================================================================
// HTTP LISTENER
// =============================================================================

// Handler returns the /metrics handler for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is done. It returns nil on a
// clean shutdown.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	return serve(ctx, ln)
}

func serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Printf("METRICS | addr=%s", ln.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
