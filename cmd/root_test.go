package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/licensebanner/internal/ops"
	"github.com/fulmenhq/licensebanner/pkg/exitcode"
)

// execRoot runs a fresh command tree with args and captures its output.
func execRoot(t *testing.T, args []string) (string, error) {
	t.Helper()
	root := newRootCommand()
	registerSubcommands(root)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpGroupsCommands(t *testing.T) {
	out, err := execRoot(t, []string{"--help"})
	require.NoError(t, err)

	bundle := strings.Index(out, "Bundle Commands:")
	support := strings.Index(out, "Support Commands:")
	require.NotEqual(t, -1, bundle, out)
	require.Greater(t, support, bundle)
	assert.Contains(t, out[bundle:support], "build")
	assert.Contains(t, out[bundle:support], "scan")
	assert.Contains(t, out[support:], "version")
}

func TestCommandsRegisteredWithTaxonomy(t *testing.T) {
	findings := ops.DefaultTaxonomy().Validate(ops.GetRegistry())
	assert.Empty(t, ops.Errors(findings), ops.Summary(findings))
}

func TestUnknownCommandFails(t *testing.T) {
	_, err := execRoot(t, []string{"frobnicate"})
	assert.Error(t, err)
}

func TestExitCodesForCommandErrors(t *testing.T) {
	_, err := execRoot(t, []string{"build", "index.js"})
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.FromError(err))

	_, err = execRoot(t, []string{"scan"})
	require.Error(t, err)
	var coded *exitcode.Coded
	assert.True(t, errors.As(err, &coded))
	assert.Equal(t, exitcode.ConfigError, coded.Code)
}
