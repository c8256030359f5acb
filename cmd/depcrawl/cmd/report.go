package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/report"
	"github.com/dbsmedya/depcrawl/internal/writer"
)

var reportNoColor bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the discovered objects from a finished crawl",
	Long: `Report reads the JSONL chunks of a finished (or interrupted) crawl
and renders the discovered objects sorted by migration complexity,
highest risk first.

Example:
  depcrawl report --config depcrawl.yaml`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportNoColor, "no-color", false,
		"Disable colored tier output")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	records, err := writer.ReadChunks(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("failed to read crawl output: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no crawl output found under %s (prefix %q)", cfg.Output.Directory, cfg.Output.Prefix)
	}

	fmt.Print(report.RenderObjects(records, !reportNoColor))
	fmt.Printf("\nTotals:\n")
	fmt.Print(report.RenderTierSummary(records, !reportNoColor))
	return nil
}
