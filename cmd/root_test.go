package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "migrate", "reconcile", "report", "clients", "evidence", "import"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ais-clarity", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestReconcileCommand_Args(t *testing.T) {
	flag := reconcileCmd.Flags().Lookup("retries")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	assert.Error(t, reconcileCmd.Args(reconcileCmd, nil))
	assert.NoError(t, reconcileCmd.Args(reconcileCmd, []string{"CL-001"}))
	assert.NoError(t, reconcileCmd.Args(reconcileCmd, []string{"CL-001", "AIS-001"}))
	assert.Error(t, reconcileCmd.Args(reconcileCmd, []string{"a", "b", "c"}))
}

func TestReportCommand_Flags(t *testing.T) {
	for _, name := range []string{"xlsx", "json"} {
		assert.NotNil(t, reportCmd.Flags().Lookup(name), "report should have --%s flag", name)
	}
	assert.Error(t, reportCmd.Args(reportCmd, nil))
}

func TestMigrateCommand_Flags(t *testing.T) {
	flag := migrateCmd.Flags().Lookup("seed")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestEvidenceCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range evidenceCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["add"])
	assert.True(t, names["list"])
	assert.Error(t, evidenceAddCmd.Args(evidenceAddCmd, nil))
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "pan", "fy", "sheet"} {
		assert.NotNil(t, importCmd.Flags().Lookup(name), "import should have --%s flag", name)
	}
	assert.Error(t, importCmd.Args(importCmd, []string{"CL-001"}))
	assert.NoError(t, importCmd.Args(importCmd, []string{"CL-001", "ais.csv"}))
}
