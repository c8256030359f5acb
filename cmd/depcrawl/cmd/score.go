package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/report"
	"github.com/dbsmedya/depcrawl/internal/scoring"
	"github.com/dbsmedya/depcrawl/internal/writer"
)

var scoreFromOutput bool

var scoreCmd = &cobra.Command{
	Use:   "score [file...]",
	Short: "Score SQL definitions without crawling",
	Long: `Score runs the complexity analysis on standalone SQL files, or on
standard input when no file is given. Useful for assessing definitions
exported from a server the crawler cannot reach.

With --from-output it instead re-scores the stored definitions of a
finished crawl, without touching the catalog. The scorer is pure, so
this is how scoring changes are applied to old output.

Example:
  depcrawl score procs/usp_UpdateOrders.sql
  cat definition.sql | depcrawl score
  depcrawl score --from-output --config depcrawl.yaml`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreFromOutput, "from-output", false,
		"Re-score the definitions stored in the crawl output chunks")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	if scoreFromOutput {
		return rescoreOutput(cmd)
	}

	if len(args) == 0 {
		definition, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		printScore(cmd, "stdin", string(definition))
		return nil
	}

	for _, path := range args {
		definition, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		printScore(cmd, path, string(definition))
	}
	return nil
}

func rescoreOutput(cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	records, err := writer.ReadChunks(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("failed to read crawl output: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no crawl output found in %s (prefix %q)", cfg.Output.Directory, cfg.Output.Prefix)
	}

	for i := range records {
		def := records[i].Object.DefinitionText
		tables := scoring.ExtractTables(def)
		called := scoring.ExtractCalledObjects(def)
		records[i].Score = scoring.Analyze(def, len(tables)+len(called))
		records[i].Description = scoring.Describe(def, records[i].Score, len(tables), len(called))
	}

	cmd.Print(report.RenderObjects(records, true))
	return nil
}

func printScore(cmd *cobra.Command, name, definition string) {
	tables := scoring.ExtractTables(definition)
	called := scoring.ExtractCalledObjects(definition)
	score := scoring.Analyze(definition, len(tables)+len(called))

	cmd.Printf("%s\n", name)
	cmd.Printf("  Score: %d (%s)\n", score.Value, score.Tier)
	cmd.Printf("  Lines: %d, DML: %d, joins: %d, dependencies: %d\n",
		score.LineCount, score.DMLCount, score.JoinCount, score.DependencyCount)
	if len(score.MatchedPatterns) > 0 {
		cmd.Printf("  Patterns: %v\n", score.MatchedPatterns)
	}
	cmd.Printf("  %s\n", scoring.Describe(definition, score, len(tables), len(called)))
}
