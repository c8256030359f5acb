package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/crawler"
	"github.com/dbsmedya/depcrawl/internal/verifier"
	"github.com/dbsmedya/depcrawl/internal/writer"
)

var verifyRoots string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check crawl output for inconsistencies",
	Long: `Verify cross-checks the chunk files, the resume transcript and the
edge file against each other. It reports duplicated records, transcript
entries with no durable record, level disagreements, and edges that
reference unknown objects.

An interrupted crawl that was resumed cleanly passes verification; a
damaged or manually edited output directory does not.

Example:
  depcrawl verify --config depcrawl.yaml --roots tables.csv`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyRoots, "roots", "r", "",
		"CSV file listing root tables (required)")
	verifyCmd.MarkFlagRequired("roots")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	roots, err := crawler.LoadRoots(verifyRoots)
	if err != nil {
		return fmt.Errorf("failed to load root tables: %w", err)
	}

	records, err := writer.ReadChunks(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("failed to read chunks: %w", err)
	}

	transcript := map[string]int{}
	if _, err := os.Stat(transcriptPath(cfg)); err == nil {
		t, err := writer.OpenTranscript(transcriptPath(cfg))
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		transcript = t.Entries()
		t.Close()
	}

	edges, err := writer.ReadEdges(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read edge file: %w", err)
		}
		edges = nil
	}

	rootKeys := make([]string, len(roots))
	for i, root := range roots {
		rootKeys[i] = root.Key()
	}

	report := verifier.NewVerifier(log).Verify(records, transcript, edges, rootKeys)

	for _, issue := range report.Issues {
		fmt.Printf("  %s\n", issue)
	}
	fmt.Println(report.Summary())

	if !report.OK() {
		return fmt.Errorf("output verification failed with %d issue(s)", len(report.Issues))
	}
	return nil
}
