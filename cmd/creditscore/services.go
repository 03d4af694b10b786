package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/middleware"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/ml"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/registry"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/storage"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/application"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/config"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/dataset"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// services are the long-lived collaborators shared by the subcommands.
type services struct {
	store    ports.BlobStore
	registry *registry.Registry
	metrics  *middleware.PrometheusMetrics
	gatherer *prometheus.Registry
	observer *middleware.OTelStageObserver

	closeRegistry func() error
}

// openServices wires storage, the registry and observability from the
// process settings.
func openServices(ctx context.Context, settings *config.Settings) (*services, error) {
	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewPrometheusMetrics(gatherer)
	tracer := otel.Tracer(middleware.TracerName)

	store, err := storage.Open(ctx, settings.Storage, storage.Options{Collector: metrics, Tracer: tracer})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	codec, err := ml.NewCodec()
	if err != nil {
		return nil, err
	}
	reg, closeRegistry, err := registry.Open(ctx, settings.Registry, store, codec)
	if err != nil {
		return nil, fmt.Errorf("failed to open model registry: %w", err)
	}

	return &services{
		store:         store,
		registry:      reg,
		metrics:       metrics,
		gatherer:      gatherer,
		observer:      middleware.NewOTelStageObserver(tracer, metrics),
		closeRegistry: closeRegistry,
	}, nil
}

func (s *services) dependencies() application.Dependencies {
	return application.Dependencies{
		Store:     s.store,
		Registry:  s.registry,
		Trainer:   ml.NewTrainer(),
		Collector: s.metrics,
	}
}

func (s *services) Close() {
	if err := s.closeRegistry(); err != nil {
		slog.Warn("failed to close model registry", "error", err)
	}
}

// serveMetrics exposes /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
}

// readParams loads a YAML mapping of unit parameters. An empty path
// yields an empty map.
func readParams(path string) (map[string]any, error) {
	params := map[string]any{}
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse parameters %s: %w", path, err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// loadDataset reads a local CSV or XLSX file chosen by extension.
func loadDataset(path, target string) (*domain.Dataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return dataset.Decode(path, data, target)
}

// writeDataset writes ds to a local file, creating parent directories.
// The format follows the extension.
func writeDataset(path string, ds *domain.Dataset) error {
	data, err := dataset.Encode(path, ds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
