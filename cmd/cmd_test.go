package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgPath = ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuiltinsCmd(t *testing.T) {
	out, err := runCommand(t, "builtins")
	require.NoError(t, err)
	assert.Equal(t, "cd\nexit\nhelp\nhistory\nview\n", out)
}

func TestInitHistoryAndReport(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, "--config", dir, "init")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "config.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "history"), []byte("ls\necho hi | cat\n"), 0600))
	out, err := runCommand(t, "--config", dir, "history")
	require.NoError(t, err)
	assert.Equal(t, "    1  ls\n    2  echo hi | cat\n", out)

	events := `{"timestamp_micros":1,"session_id":"a","pipeline_run":{"line":"ls","commands":["ls"],"succeeded":true,"exit_code":0,"duration_micros":5}}
{"timestamp_micros":2,"session_id":"a","parse_failure":{"line":"|","error":"stage 1: missing command"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.log"), []byte(events), 0600))
	out, err = runCommand(t, "--config", dir, "events", "report")
	require.NoError(t, err)
	assert.Contains(t, out, "log_entries: 2")
	assert.Contains(t, out, "ls: 1")
	assert.Contains(t, out, "stage 1: missing command")
}

func TestReportWithoutConfig(t *testing.T) {
	_, err := runCommand(t, "--config", t.TempDir(), "events", "report")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
