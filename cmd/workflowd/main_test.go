package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	t.Setenv("WORKFLOW_CONFIG", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, name := range []string{"serve", "migrate", "bootstrap"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("WORKFLOW_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
}

func TestBootstrapRequiresEmail(t *testing.T) {
	t.Setenv("WORKFLOW_CONFIG", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"bootstrap"})
	assert.Error(t, cmd.Execute())
}

func TestInvalidConfigurationFailsEarly(t *testing.T) {
	t.Setenv("WORKFLOW_CONFIG", "")
	t.Setenv("SERVER_PORT", "0")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}
