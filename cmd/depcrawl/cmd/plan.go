package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/crawler"
	"github.com/dbsmedya/depcrawl/internal/graph"
	"github.com/dbsmedya/depcrawl/internal/report"
	"github.com/dbsmedya/depcrawl/internal/writer"
)

var (
	planRoots   string
	planFormat  string
	planNoColor bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a migration plan from a finished crawl",
	Long: `Plan rebuilds the dependency graph from the crawl output and orders
the discovered objects so that everything is migrated after what it
references.

Formats:
  tree    one ASCII tree per root table (default)
  stages  waves of objects that can be migrated together
  order   a flat migration order, one object per line

Reference cycles (mutually recursive procedures) cannot be strictly
ordered; plan reports the cycle members so they can be migrated as one
group.

Example:
  depcrawl plan --config depcrawl.yaml --roots tables.csv --format stages`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planRoots, "roots", "r", "",
		"CSV file listing root tables (required)")
	planCmd.MarkFlagRequired("roots")

	planCmd.Flags().StringVar(&planFormat, "format", "tree",
		"Output format (tree, stages, order)")
	planCmd.Flags().BoolVar(&planNoColor, "no-color", false,
		"Disable colored tier output")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	roots, err := crawler.LoadRoots(planRoots)
	if err != nil {
		return err
	}

	records, err := writer.ReadChunks(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("failed to read crawl output: %w", err)
	}
	edges, err := writer.ReadEdges(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("failed to read crawl edges (re-run the crawl?): %w", err)
	}

	g, err := graph.BuildFromCrawl(roots, records, edges)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	colored := !planNoColor
	switch planFormat {
	case "tree":
		fmt.Print(report.RenderTree(g, colored))
		return nil

	case "stages":
		stages, err := g.Stages()
		if err != nil {
			return planCycleError(err)
		}
		fmt.Print(report.RenderStages(g, stages, colored))
		return nil

	case "order":
		order, err := g.MigrationOrder()
		if err != nil {
			return planCycleError(err)
		}
		for _, key := range order {
			if node := g.GetNode(key); node != nil {
				fmt.Println(node.Display)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q (expected tree, stages, or order)", planFormat)
	}
}

func planCycleError(err error) error {
	var cycleErr *graph.CycleError
	if errors.As(err, &cycleErr) {
		return fmt.Errorf("migration order is not strict:\n%s", cycleErr.Error())
	}
	return err
}
