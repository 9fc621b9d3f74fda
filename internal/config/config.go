// Package config loads process configuration from environment variables,
// following the flat os.Getenv-with-defaults shape used across the example
// pack's config loaders.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// StoreKind selects which ledger.Store implementation cmd/api wires up.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreBigQuery StoreKind = "bigquery"
)

// Config holds every environment-derived setting cmd/api needs to boot.
type Config struct {
	Port string

	Store StoreKind

	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string

	DocumentsBucket string

	JobQueueBuffer int

	ConfidenceThreshold float64
}

// Load reads Config from the environment, applying the same
// development-friendly defaults pattern the pack's config loaders use.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnvDefault("PORT", "8080"),
		Store:               StoreKind(getEnvDefault("NUMA_STORE", string(StoreMemory))),
		BigQueryProject:     os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset:     getEnvDefault("BIGQUERY_DATASET", "numa"),
		BigQueryTable:       getEnvDefault("BIGQUERY_TABLE", "transactions"),
		DocumentsBucket:     os.Getenv("NUMA_DOCUMENTS_BUCKET"),
		JobQueueBuffer:      100,
		ConfidenceThreshold: 0.7,
	}

	if v := os.Getenv("NUMA_JOB_QUEUE_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid NUMA_JOB_QUEUE_BUFFER: %w", err)
		}
		cfg.JobQueueBuffer = n
	}

	if v := os.Getenv("NUMA_CONFIDENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid NUMA_CONFIDENCE_THRESHOLD: %w", err)
		}
		cfg.ConfidenceThreshold = f
	}

	if cfg.Store == StoreBigQuery && cfg.BigQueryProject == "" {
		return nil, fmt.Errorf("config: BIGQUERY_PROJECT is required when NUMA_STORE=bigquery")
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
