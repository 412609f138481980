package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "lvdirect", cmd.Use)

	solve, _, err := cmd.Find([]string{"solve"})
	require.NoError(t, err)
	assert.Equal(t, "solve", solve.Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestSolveFlags(t *testing.T) {
	cmd := NewRootCommand()
	solve, _, err := cmd.Find([]string{"solve"})
	require.NoError(t, err)

	for name, def := range map[string]string{
		"ranks":     "2",
		"problem":   ProblemTridiag,
		"n":         "16",
		"file":      "",
		"config":    "",
		"transpose": "false",
		"metrics":   "false",
	} {
		f := solve.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, def, f.DefValue, name)
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))

	wrapped := WrapExitError(ExitFailure, "solve failed", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Contains(t, wrapped.Error(), "solve failed: ")
}
