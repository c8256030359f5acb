package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile          string
	logLevel         string
	logFormat        string
	maxLevel         int
	maxWorkers       int
	batchSize        int
	checkpointSize   int
	partitionTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "depcrawl",
	Short: "SQL Server dependency crawler and migration scorer",
	Long: `A CLI tool for mapping which procedures, functions, triggers, and views
transitively depend on a set of SQL Server tables, and for scoring each one's
migration complexity.

Features:
  - Multi-level reference traversal with global deduplication
  - Batched catalog lookups with per-database parallelism
  - Textual fallback for references the dependency views miss
  - Complexity scoring with hard overrides for cursors and dynamic SQL
  - Crash-safe incremental output with idempotent resume`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "depcrawl.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Crawl overrides
	rootCmd.PersistentFlags().IntVar(&maxLevel, "max-level", 0,
		"Override maximum traversal depth")
	rootCmd.PersistentFlags().IntVar(&maxWorkers, "workers", 0,
		"Override worker pool size")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override names per catalog lookup batch")
	rootCmd.PersistentFlags().IntVar(&checkpointSize, "checkpoint-size", 0,
		"Override records per output chunk")
	rootCmd.PersistentFlags().DurationVar(&partitionTimeout, "partition-timeout", 0,
		"Override per-partition timeout (e.g. 90s)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel         string
	LogFormat        string
	MaxLevel         int
	MaxWorkers       int
	BatchSize        int
	CheckpointSize   int
	PartitionTimeout time.Duration
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:         logLevel,
		LogFormat:        logFormat,
		MaxLevel:         maxLevel,
		MaxWorkers:       maxWorkers,
		BatchSize:        batchSize,
		CheckpointSize:   checkpointSize,
		PartitionTimeout: partitionTimeout,
	}
}
