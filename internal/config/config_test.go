package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test catalog defaults
	if cfg.Catalog.Port != 1433 {
		t.Errorf("expected catalog port 1433, got %d", cfg.Catalog.Port)
	}
	if len(cfg.Catalog.DefaultSchemas) != 1 || cfg.Catalog.DefaultSchemas[0] != "dbo" {
		t.Errorf("expected default schemas [dbo], got %v", cfg.Catalog.DefaultSchemas)
	}
	if cfg.Catalog.MaxConnections != 4 {
		t.Errorf("expected catalog max_connections 4, got %d", cfg.Catalog.MaxConnections)
	}

	// Test crawl defaults
	if cfg.Crawl.MaxLevel != 3 {
		t.Errorf("expected max_level 3, got %d", cfg.Crawl.MaxLevel)
	}
	if cfg.Crawl.MaxWorkers != 4 {
		t.Errorf("expected max_workers 4, got %d", cfg.Crawl.MaxWorkers)
	}
	if cfg.Crawl.BatchSize != 100 {
		t.Errorf("expected batch_size 100, got %d", cfg.Crawl.BatchSize)
	}
	if cfg.Crawl.CheckpointSize != 50 {
		t.Errorf("expected checkpoint_size 50, got %d", cfg.Crawl.CheckpointSize)
	}
	if cfg.Crawl.PartitionTimeout != 60*time.Second {
		t.Errorf("expected partition_timeout 60s, got %s", cfg.Crawl.PartitionTimeout)
	}

	// Test output defaults
	if cfg.Output.Directory != "." {
		t.Errorf("expected output directory '.', got %s", cfg.Output.Directory)
	}
	if cfg.Output.Prefix != "crawl" {
		t.Errorf("expected output prefix 'crawl', got %s", cfg.Output.Prefix)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format 'json', got %s", cfg.Logging.Format)
	}
}
