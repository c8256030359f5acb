package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportCommandStructure(t *testing.T) {
	assert.NotNil(t, reportCmd)
	assert.Equal(t, "report", reportCmd.Use)
	assert.NotEmpty(t, reportCmd.Short)
	assert.NotEmpty(t, reportCmd.Long)
	assert.NotNil(t, reportCmd.RunE)
}

func TestReportCommandFlags(t *testing.T) {
	noColorFlag := reportCmd.Flags().Lookup("no-color")
	assert.NotNil(t, noColorFlag)
	assert.Equal(t, "false", noColorFlag.DefValue)
}

func TestReportIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "report" {
			found = true
			break
		}
	}
	assert.True(t, found, "report command should be added to root command")
}
