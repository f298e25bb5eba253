package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand is a helper function to execute cobra command and capture output
func executeCommand(root *cobra.Command, args ...string) (stdout string, stderr string, err error) {
	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)
	root.SetOut(stdoutBuf)
	root.SetErr(stderrBuf)
	root.SetArgs(args)

	err = root.Execute()

	return stdoutBuf.String(), stderrBuf.String(), err
}

func TestRootCmdHelp(t *testing.T) {
	stdout, stderr, err := executeCommand(newRootCmd(), "--help")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "crlf <measure|set-crlf|set-lf> [pattern]")
	assert.Contains(t, stdout, "--git-file")
	assert.Contains(t, stdout, "--version")
}

func TestRootCmdHelp_AllFlagsPresent(t *testing.T) {
	cmd := newRootCmd()
	stdout, _, err := executeCommand(cmd, "--help")
	require.NoError(t, err)

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		assert.Contains(t, stdout, "--"+f.Name, "Help output should contain flag --%s", f.Name)
		if f.Shorthand != "" {
			assert.Contains(t, stdout, "-"+f.Shorthand+",", "Help output should contain shorthand -%s", f.Shorthand)
		}
	})
}

func TestRootCmdVersion(t *testing.T) {
	originalVersion, originalCommit, originalDate := version, commit, date
	version, commit, date = "test-1.2.3", "testcommit123", "2024-01-01T10:00:00Z"
	defer func() {
		version, commit, date = originalVersion, originalCommit, originalDate
	}()

	stdout, stderr, err := executeCommand(newRootCmd(), "--version")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	expected := fmt.Sprintf("crlf version %s (commit: %s, built: %s)\n", version, commit, date)
	assert.Equal(t, expected, stdout)
}

func TestRootCmdArgErrors(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		errContains string
	}{
		{name: "no action", args: []string{}, errContains: "accepts between 1 and 2 arg(s)"},
		{name: "unknown action", args: []string{"convert"}, errContains: "unknown action"},
		{name: "too many args", args: []string{"measure", "*.go", "extra"}, errContains: "accepts between 1 and 2 arg(s)"},
		{name: "unknown flag", args: []string{"measure", "--input", "x"}, errContains: "unknown flag: --input"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, err := executeCommand(newRootCmd(), tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
			assert.Contains(t, stderr, "Error:")
			assert.Contains(t, stdout+stderr, "Usage:", "argument errors should print usage")
		})
	}
}

func TestRootCmd_MeasureInDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "win.txt"), []byte("a\r\nb\r\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unix.md"), []byte("a\n"), 0o644))

	stdout, _, err := executeCommand(newRootCmd(), "measure", "-C", dir, "--no-tui", "*.txt")

	require.NoError(t, err)
	assert.Equal(t, "C, crlf:    2, lf:    0, win.txt\n", stdout)
}

func TestRootCmd_SetLFDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "win.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\n"), 0o644))

	stdout, _, err := executeCommand(newRootCmd(), "set-lf", "--dir", dir, "--dry-run", "--no-tui")

	require.NoError(t, err)
	assert.Equal(t, "set win.txt to lf (dry run)\n", stdout)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb\r\n", string(content))
}

func TestRootCmd_InvalidDirectoryDoesNotPrintUsage(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	stdout, stderr, err := executeCommand(newRootCmd(), "measure", "-C", missing, "--no-tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "input path")
	assert.Empty(t, stdout)
	assert.NotContains(t, stdout+stderr, "Usage:")
}
