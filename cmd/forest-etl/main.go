// Command forest-etl runs one consolidation pass over a forest inventory
// GeoPackage: validate the field mapping, extract and classify every grid
// cell in chunks, and publish the consolidated records to Kafka. Health,
// readiness, progress, and metrics endpoints are served over HTTP for the
// duration of the run.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skogdata/forest-etl/internal/adapter/gpkg"
	httpadapter "github.com/skogdata/forest-etl/internal/adapter/http"
	kafkaadapter "github.com/skogdata/forest-etl/internal/adapter/kafka"
	"github.com/skogdata/forest-etl/internal/config"
	"github.com/skogdata/forest-etl/internal/extract"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/skogdata/forest-etl/internal/observability"
	"github.com/skogdata/forest-etl/internal/pipeline"
	"github.com/skogdata/forest-etl/internal/rules"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	table, err := mapping.LoadFile(cfg.MappingPath)
	if err != nil {
		logger.Error("failed to load field mapping", "path", cfg.MappingPath, "error", err)
		os.Exit(1)
	}

	ruleCfg, err := rules.LoadFile(cfg.RulesPath)
	if err != nil {
		logger.Error("failed to load classification rules", "path", cfg.RulesPath, "error", err)
		os.Exit(1)
	}

	engine, err := rules.NewEngine(ruleCfg, table, logger)
	if err != nil {
		logger.Error("failed to build rule engine", "error", err)
		os.Exit(1)
	}

	catalog, err := gpkg.Open(cfg.GeoPackagePath, logger)
	if err != nil {
		logger.Error("failed to open geopackage", "path", cfg.GeoPackagePath, "error", err)
		os.Exit(1)
	}
	defer catalog.Close() //nolint:errcheck

	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
	tracker := pipeline.NewTracker(nil, metrics, logger)
	extractor := extract.New(table, catalog, logger, metrics)

	coordinator := pipeline.New(
		table,
		mapping.NewValidator(catalog, logger),
		extractor,
		engine,
		writer,
		catalog,
		pipeline.Options{
			BaseLayer:   cfg.BaseLayer,
			ChunkSize:   cfg.ChunkSize,
			Workers:     cfg.Workers,
			MaxFailures: cfg.MaxFailures,
		},
		tracker,
		logger,
		metrics,
	)

	phases := []string{pipeline.PhaseValidation, pipeline.PhaseExtraction, pipeline.PhaseClassification}
	srv := httpadapter.NewServer(cfg.HTTPAddr, coordinator, tracker, phases, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	summary, runErr := coordinator.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	switch {
	case runErr != nil:
		logger.Error("consolidation run failed", "error", runErr)
		os.Exit(1)
	case summary != nil && !summary.Clean():
		logger.Warn("consolidation run completed with failures",
			"chunks_failed", summary.ChunksFailed,
			"failures_by_kind", summary.FailuresByKind,
		)
		os.Exit(1)
	default:
		logger.Info("consolidation run completed cleanly")
	}
}
