// Package config loads service settings from environment variables with
// eager validation, so a misconfigured run fails at startup instead of
// mid-run.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	MappingPath    string
	RulesPath      string
	GeoPackagePath string
	BaseLayer      string

	Workers        int
	ChunkSize      int
	MaxFailures    int
	MemoryBudgetMB int
	WorkerMemoryMB int

	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	chunkSize, err := parseBoundedInt("CHUNK_SIZE", 1000, 1, 100_000)
	if err != nil {
		return nil, err
	}

	maxFailures, err := parseBoundedInt("MAX_FAILURES", 10, -1, 1_000_000)
	if err != nil {
		return nil, err
	}

	memoryBudget, err := parseBoundedInt("MEMORY_BUDGET_MB", 4096, 256, 1_048_576)
	if err != nil {
		return nil, err
	}

	workerMemory, err := parseBoundedInt("WORKER_MEMORY_MB", 512, 64, 65_536)
	if err != nil {
		return nil, err
	}

	workers, err := parseWorkers(memoryBudget, workerMemory)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MappingPath:    envOrDefault("MAPPING_PATH", "config/field_mappings.yaml"),
		RulesPath:      envOrDefault("RULES_PATH", "config/classification_rules.yaml"),
		GeoPackagePath: envOrDefault("GEOPACKAGE_PATH", "data/forest_inventory.gpkg"),
		BaseLayer:      os.Getenv("BASE_LAYER"),

		Workers:        workers,
		ChunkSize:      chunkSize,
		MaxFailures:    maxFailures,
		MemoryBudgetMB: memoryBudget,
		WorkerMemoryMB: workerMemory,

		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "consolidated-forest-records"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.BaseLayer == "" {
		return nil, errors.New("BASE_LAYER is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// parseWorkers resolves WORKER_COUNT. Zero (the default) derives the count
// from the machine: 90% of logical CPUs, further capped so the configured
// per-worker memory ceiling fits inside the overall budget.
func parseWorkers(memoryBudgetMB, workerMemoryMB int) (int, error) {
	explicit, err := parseBoundedInt("WORKER_COUNT", 0, 0, 1024)
	if err != nil {
		return 0, err
	}
	if explicit > 0 {
		return explicit, nil
	}

	workers := runtime.NumCPU() * 90 / 100
	if byMemory := memoryBudgetMB / workerMemoryMB; byMemory < workers {
		workers = byMemory
	}
	if workers < 1 {
		workers = 1
	}
	return workers, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseBoundedInt(key string, fallback, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, minVal, maxVal)
	}
	return n, nil
}
