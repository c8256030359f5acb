package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/depcrawl/internal/catalog"
)

var listDatabasesCmd = &cobra.Command{
	Use:   "list-databases",
	Short: "List the online user databases on the configured server",
	Long: `List-databases connects to the configured server and lists every
online user database, the candidate scope for a crawl.

Example:
  depcrawl list-databases --config depcrawl.yaml`,
	RunE: runListDatabases,
}

func init() {
	rootCmd.AddCommand(listDatabasesCmd)
}

func runListDatabases(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := catalog.SetupSignalHandler()

	manager := catalog.NewManager(&cfg.Catalog)
	defer manager.Close()

	databases, err := manager.ListDatabases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}

	configured := make(map[string]bool, len(cfg.Catalog.Databases))
	for _, db := range cfg.Catalog.Databases {
		configured[strings.ToLower(db)] = true
	}

	for _, db := range databases {
		marker := " "
		if configured[strings.ToLower(db)] {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, db)
	}
	if len(configured) > 0 {
		fmt.Printf("\n* configured for crawling\n")
	}
	return nil
}
