package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/catalog"
)

var validateConnectivity bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and optionally test connectivity",
	Long: `Validate checks the configuration file for syntax and semantic errors.
With --connect it also opens a connection to every configured database.

Checks performed:
  - Configuration syntax and required fields
  - Crawl limits (depth, workers, batch and checkpoint sizes)
  - Identifier validity of configured databases and schemas
  - Database connectivity (with --connect)

Example:
  depcrawl validate --config depcrawl.yaml --connect`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateConnectivity, "connect", false,
		"Also test connectivity to every configured database")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration OK: %s\n", GetConfigFile())
	fmt.Printf("  Server: %s:%d\n", cfg.Catalog.Server, cfg.Catalog.Port)
	fmt.Printf("  Databases: %s\n", strings.Join(cfg.Catalog.Databases, ", "))
	fmt.Printf("  Max level: %d, workers: %d, batch size: %d\n",
		cfg.Crawl.MaxLevel, cfg.Crawl.MaxWorkers, cfg.Crawl.BatchSize)
	fmt.Printf("  Output: %s (prefix %q)\n", cfg.Output.Directory, cfg.Output.Prefix)

	if !validateConnectivity {
		return nil
	}

	ctx := catalog.SetupSignalHandler()

	manager := catalog.NewManager(&cfg.Catalog)
	defer manager.Close()

	failures := 0
	for _, db := range cfg.Catalog.Databases {
		if _, err := manager.Pool(ctx, db); err != nil {
			log.Errorw("Connection failed", "database", db, "error", err)
			fmt.Printf("  %-20s FAILED: %v\n", db, err)
			failures++
			continue
		}
		fmt.Printf("  %-20s OK\n", db)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d databases unreachable", failures, len(cfg.Catalog.Databases))
	}
	return nil
}
