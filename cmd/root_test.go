package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"run", "rules", "inspect", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "disagg", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"cells", "buildings", "rules", "out", "report", "surplus-order", "seed", "only"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run should have --%s flag", name)
	}

	flag := runCmd.Flags().Lookup("workers")
	require.NotNil(t, flag, "run command should have --workers flag")
	assert.Equal(t, "4", flag.DefValue)

	flag = runCmd.Flags().Lookup("surplus-order")
	require.NotNil(t, flag)
	assert.Equal(t, "id", flag.DefValue)
}

func TestRulesCommand_HasValidate(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rulesCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["validate"])
	assert.NotNil(t, rulesValidateCmd.Flags().Lookup("rules"))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}

	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestInspectCommand_Flags(t *testing.T) {
	for _, name := range []string{"cells", "buildings", "rules"} {
		assert.NotNil(t, inspectCmd.Flags().Lookup(name), "inspect should have --%s flag", name)
	}
}
