package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/catalog"
	"github.com/dbsmedya/depcrawl/internal/config"
	"github.com/dbsmedya/depcrawl/internal/crawler"
	"github.com/dbsmedya/depcrawl/internal/lock"
	"github.com/dbsmedya/depcrawl/internal/logger"
	"github.com/dbsmedya/depcrawl/internal/report"
	"github.com/dbsmedya/depcrawl/internal/writer"
)

var (
	crawlRoots string
	crawlForce bool
	crawlFresh bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the reference graph outward from a set of root tables",
	Long: `Crawl discovers every procedure, function, trigger, and view whose
definition transitively references the given root tables, scores each one's
migration complexity, and writes the results incrementally to JSONL chunks.

The crawl proceeds level by level:
  1. Level 1 finds objects referencing the root tables directly
  2. Level N finds objects referencing anything discovered at level N-1
  3. Each object is recorded once, at the shallowest level it appears

Interrupted runs resume from the transcript: already written objects are
traversed again but not re-emitted.

Example:
  depcrawl crawl --config depcrawl.yaml --roots tables.csv`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlRoots, "roots", "r", "",
		"CSV file listing root tables (required)")
	crawlCmd.MarkFlagRequired("roots")

	crawlCmd.Flags().BoolVar(&crawlForce, "force", false,
		"Run even if the crawl lock cannot be acquired (use with caution)")
	crawlCmd.Flags().BoolVar(&crawlFresh, "fresh", false,
		"Discard previous chunks and transcript before crawling")

	rootCmd.AddCommand(crawlCmd)
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.MaxLevel, overrides.MaxWorkers,
		overrides.BatchSize, overrides.CheckpointSize,
		overrides.PartitionTimeout)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	roots, err := crawler.LoadRoots(crawlRoots)
	if err != nil {
		return err
	}

	log.Infow("Starting crawl",
		"config", GetConfigFile(),
		"roots", len(roots),
	)

	// Cancel the crawl at the current level barrier on SIGINT/SIGTERM.
	ctx := catalog.SetupSignalHandler()

	manager := catalog.NewManager(&cfg.Catalog)
	defer manager.Close()

	lockDB, err := manager.Pool(ctx, roots[0].Database)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", roots[0].Database, err)
	}

	if !crawlForce {
		crawlLock := lock.NewCrawlLock(lockDB, cfg.Output.Prefix)
		if err := crawlLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("a crawl with prefix %q is already running (use --force to override)", cfg.Output.Prefix)
			}
			return fmt.Errorf("failed to acquire crawl lock: %w", err)
		}
		defer crawlLock.ReleaseLock(context.Background())
		log.Infow("Acquired crawl lock", "prefix", cfg.Output.Prefix)
	} else {
		log.Warnw("Skipping crawl lock acquisition (--force flag used)", "prefix", cfg.Output.Prefix)
	}

	if crawlFresh {
		removed, err := writer.RemoveChunks(cfg.Output.Directory, cfg.Output.Prefix)
		if err != nil {
			return fmt.Errorf("failed to remove previous chunks: %w", err)
		}
		if err := writer.RemoveTranscript(transcriptPath(cfg)); err != nil {
			return fmt.Errorf("failed to remove previous transcript: %w", err)
		}
		if err := writer.RemoveEdges(cfg.Output.Directory, cfg.Output.Prefix); err != nil {
			return fmt.Errorf("failed to remove previous edge file: %w", err)
		}
		log.Infow("Removed previous output", "chunks", removed)
	}

	sink, err := writer.NewChunkWriter(cfg.Output.Directory, cfg.Output.Prefix, cfg.Crawl.CheckpointSize, log)
	if err != nil {
		return err
	}

	transcript, err := writer.OpenTranscript(transcriptPath(cfg))
	if err != nil {
		return err
	}
	defer transcript.Close()
	if transcript.Len() > 0 {
		log.Infow("Resuming from transcript", "entries", transcript.Len())
	}

	provider := &crawler.ManagerProvider{Manager: manager}
	c := crawler.New(cfg.Crawl, cfg.Catalog.DefaultSchemas, provider, sink, transcript, log)

	result, err := c.Run(ctx, roots)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Crawl cancelled by user")
			return nil
		}
		return fmt.Errorf("crawl failed: %w", err)
	}

	if err := writer.WriteEdges(cfg.Output.Directory, cfg.Output.Prefix, result.Edges); err != nil {
		return fmt.Errorf("failed to write edge file: %w", err)
	}

	fmt.Printf("\n=== Crawl Complete ===\n")
	fmt.Printf("Objects discovered: %d\n", result.Discovered)
	fmt.Printf("Records written: %d\n", result.Written)
	fmt.Printf("Records skipped (resume): %d\n", result.Skipped)
	fmt.Printf("Failed partitions: %d\n\n", len(result.Failed))
	fmt.Print(report.RenderLevelStats(result.Stats))

	if records, err := writer.ReadChunks(cfg.Output.Directory, cfg.Output.Prefix); err == nil && len(records) > 0 {
		fmt.Printf("\nComplexity tiers:\n")
		fmt.Print(report.RenderTierSummary(records, true))
	}

	if len(result.Failed) > 0 {
		fmt.Printf("\nFailed partitions:\n")
		for _, pe := range result.Failed {
			fmt.Printf("  - %s level %d (%s): %v\n",
				pe.Database, pe.Level, strings.Join(pe.Names, ", "), pe.Err)
		}
		return fmt.Errorf("crawl completed with %d failed partitions", len(result.Failed))
	}

	return nil
}

func transcriptPath(cfg *config.Config) string {
	return filepath.Join(cfg.Output.Directory, cfg.Output.Prefix+".transcript")
}
