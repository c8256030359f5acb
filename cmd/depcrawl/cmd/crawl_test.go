package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/depcrawl/internal/config"
)

func TestCrawlCommandStructure(t *testing.T) {
	assert.NotNil(t, crawlCmd)
	assert.Equal(t, "crawl", crawlCmd.Use)
	assert.NotEmpty(t, crawlCmd.Short)
	assert.NotEmpty(t, crawlCmd.Long)
	assert.NotNil(t, crawlCmd.RunE)
}

func TestCrawlCommandFlags(t *testing.T) {
	flags := crawlCmd.Flags()

	// Check roots flag exists and is required
	rootsFlag := flags.Lookup("roots")
	assert.NotNil(t, rootsFlag)
	assert.Equal(t, "r", rootsFlag.Shorthand)
	assert.Equal(t, "", rootsFlag.DefValue)

	requiredAnnotation := rootsFlag.Annotations["cobra_annotation_bash_completion_one_required_flag"]
	assert.NotNil(t, requiredAnnotation)

	// Check force flag
	forceFlag := flags.Lookup("force")
	assert.NotNil(t, forceFlag)
	assert.Equal(t, "false", forceFlag.DefValue)

	// Check fresh flag
	freshFlag := flags.Lookup("fresh")
	assert.NotNil(t, freshFlag)
	assert.Equal(t, "false", freshFlag.DefValue)
}

func TestCrawlIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "crawl" {
			found = true
			break
		}
	}
	assert.True(t, found, "crawl command should be added to root command")
}

func TestCrawlCommandExample(t *testing.T) {
	// Verify the command has example usage documentation
	assert.Contains(t, crawlCmd.Long, "Example:")
	assert.Contains(t, crawlCmd.Long, "depcrawl crawl")
}

func TestCrawlCommandLevelsDocumentation(t *testing.T) {
	// Verify the command documents the level semantics
	doc := crawlCmd.Long
	assert.Contains(t, doc, "Level 1")
	assert.Contains(t, doc, "shallowest level")
	assert.Contains(t, doc, "resume")
}

func TestTranscriptPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Directory = "/var/lib/depcrawl"
	cfg.Output.Prefix = "sales"

	got := transcriptPath(cfg)
	assert.Equal(t, filepath.Join("/var/lib/depcrawl", "sales.transcript"), got)
}

// TestCrawlCmd_Execute_MissingRootsFlag tests execution without the required --roots flag
func TestCrawlCmd_Execute_MissingRootsFlag(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"crawl"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

// TestCrawlCmd_Execute_MissingConfig tests execution with a non-existent config file
func TestCrawlCmd_Execute_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	origCrawlRoots := crawlRoots
	defer func() {
		cfgFile = origCfgFile
		crawlRoots = origCrawlRoots
		rootCmd.SetArgs(nil)
	}()

	rootsFile := filepath.Join(t.TempDir(), "roots.csv")
	rootCmd.SetArgs([]string{"crawl",
		"--config", "/nonexistent/depcrawl.yaml",
		"--roots", rootsFile})
	err := rootCmd.Execute()
	assert.Error(t, err)
}
