package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.NotEmpty(t, validateCmd.Long)
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateCommandFlags(t *testing.T) {
	connectFlag := validateCmd.Flags().Lookup("connect")
	assert.NotNil(t, connectFlag)
	assert.Equal(t, "false", connectFlag.DefValue)
}

func TestValidateIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "validate" {
			found = true
			break
		}
	}
	assert.True(t, found, "validate command should be added to root command")
}

func TestRunValidate_ValidConfig(t *testing.T) {
	origCfgFile := cfgFile
	origConnect := validateConnectivity
	defer func() {
		cfgFile = origCfgFile
		validateConnectivity = origConnect
	}()

	dir := t.TempDir()
	path := filepath.Join(dir, "depcrawl.yaml")
	content := `catalog:
  server: localhost
  port: 1433
  user: sa
  password: secret
  databases:
    - SalesDB
crawl:
  max_level: 3
  max_workers: 4
  batch_size: 100
  checkpoint_size: 50
output:
  directory: ` + dir + `
  prefix: test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfgFile = path
	validateConnectivity = false

	err := runValidate(validateCmd, nil)
	assert.NoError(t, err)
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
	}()

	dir := t.TempDir()
	path := filepath.Join(dir, "depcrawl.yaml")
	// Missing server and credentials
	content := `catalog:
  databases:
    - SalesDB
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfgFile = path

	err := runValidate(validateCmd, nil)
	assert.Error(t, err)
}

func TestRunValidate_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
	}()

	cfgFile = "/nonexistent/depcrawl.yaml"

	err := runValidate(validateCmd, nil)
	assert.Error(t, err)
}
