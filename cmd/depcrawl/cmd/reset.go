package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/writer"
)

var resetConfirm bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove crawl output and resume state",
	Long: `Reset deletes the chunk files, the edge file and the resume transcript
for the configured output prefix. The next crawl starts from scratch.

Requires --yes to actually delete anything.

Example:
  depcrawl reset --config depcrawl.yaml --yes`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirm, "yes", false,
		"Confirm deletion of crawl output and resume state")

	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	chunks, err := writer.ListChunks(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("listing chunks: %w", err)
	}

	if !resetConfirm {
		fmt.Printf("Would remove %d chunk file(s), the edge file and the transcript for prefix %q in %s\n",
			len(chunks), cfg.Output.Prefix, cfg.Output.Directory)
		fmt.Println("Re-run with --yes to delete them.")
		return nil
	}

	removed, err := writer.RemoveChunks(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("removing chunks: %w", err)
	}
	if err := writer.RemoveEdges(cfg.Output.Directory, cfg.Output.Prefix); err != nil {
		return fmt.Errorf("removing edge file: %w", err)
	}
	if err := writer.RemoveTranscript(transcriptPath(cfg)); err != nil {
		return fmt.Errorf("removing transcript: %w", err)
	}

	log.Infow("Crawl state removed",
		"directory", cfg.Output.Directory,
		"prefix", cfg.Output.Prefix,
		"chunks", removed)
	fmt.Printf("Removed %d chunk file(s) and resume state for prefix %q\n",
		removed, cfg.Output.Prefix)
	return nil
}
