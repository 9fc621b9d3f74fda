package config_test

import (
	"os"
	"testing"

	"github.com/numa-app/numa-core/internal/config"
)

func clearNumaEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "NUMA_STORE", "BIGQUERY_PROJECT", "BIGQUERY_DATASET", "BIGQUERY_TABLE",
		"NUMA_DOCUMENTS_BUCKET", "NUMA_JOB_QUEUE_BUFFER", "NUMA_CONFIDENCE_THRESHOLD",
	}
	for _, k := range keys {
		original, existed := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if existed {
				os.Setenv(k, original)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearNumaEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Store != config.StoreMemory {
		t.Errorf("expected default store memory, got %s", cfg.Store)
	}
	if cfg.JobQueueBuffer != 100 {
		t.Errorf("expected default job queue buffer 100, got %d", cfg.JobQueueBuffer)
	}
	if cfg.ConfidenceThreshold != 0.7 {
		t.Errorf("expected default confidence threshold 0.7, got %v", cfg.ConfidenceThreshold)
	}
}

func TestLoad_BigQueryStoreRequiresProject(t *testing.T) {
	clearNumaEnv(t)
	os.Setenv("NUMA_STORE", "bigquery")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error when NUMA_STORE=bigquery without BIGQUERY_PROJECT")
	}

	os.Setenv("BIGQUERY_PROJECT", "my-project")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BigQueryProject != "my-project" {
		t.Errorf("expected BigQueryProject to be read from env, got %s", cfg.BigQueryProject)
	}
}

func TestLoad_InvalidJobQueueBufferErrors(t *testing.T) {
	clearNumaEnv(t)
	os.Setenv("NUMA_JOB_QUEUE_BUFFER", "not-a-number")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error for a non-numeric job queue buffer")
	}
}

func TestLoad_InvalidConfidenceThresholdErrors(t *testing.T) {
	clearNumaEnv(t)
	os.Setenv("NUMA_CONFIDENCE_THRESHOLD", "not-a-float")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error for a non-numeric confidence threshold")
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearNumaEnv(t)
	os.Setenv("PORT", "9090")
	os.Setenv("NUMA_JOB_QUEUE_BUFFER", "50")
	os.Setenv("NUMA_CONFIDENCE_THRESHOLD", "0.85")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.JobQueueBuffer != 50 {
		t.Errorf("expected overridden job queue buffer, got %d", cfg.JobQueueBuffer)
	}
	if cfg.ConfidenceThreshold != 0.85 {
		t.Errorf("expected overridden confidence threshold, got %v", cfg.ConfidenceThreshold)
	}
}
