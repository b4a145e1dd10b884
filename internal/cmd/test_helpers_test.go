package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

// resetRootCmd resets the root command state for test isolation.
// This must be called at the beginning of each test to ensure
// cobra command state doesn't leak between tests.
func resetRootCmd(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	// Reset args to empty slice (not nil, which would use os.Args)
	rootCmd.SetArgs([]string{})
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	for _, cmd := range rootCmd.Commands() {
		cmd.SetContext(context.TODO())
	}
	return buf
}

// executeCmd executes the root command with the given args and returns the output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// captureStdout collects everything a command prints through the ui
// package and plain fmt while fn runs.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldNoColor := color.NoColor
	oldOutput := color.Output
	oldStdout := os.Stdout
	color.NoColor = true

	r, w, err := os.Pipe()
	require.NoError(t, err)
	color.Output = w
	os.Stdout = w

	fn()

	w.Close()
	color.Output = oldOutput
	color.NoColor = oldNoColor
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()
	return buf.String()
}

// writeWorkspace lays out a workspace under a temp root and points
// STRATA_ROOT at it.
func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	t.Setenv("STRATA_ROOT", root)
	return root
}
