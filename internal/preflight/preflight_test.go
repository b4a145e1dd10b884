package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-tools/strata/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "services"), 0755))
	return &config.Config{
		Root:         root,
		ServicesDir:  filepath.Join(root, "services"),
		OutputDir:    filepath.Join(root, "materialized"),
		SnapshotsDir: filepath.Join(root, ".strata", "snapshots"),
		Concurrency:  4,
	}
}

func TestCheckAll_CleanWorkspace(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ServicesDir, "web.yaml"), []byte("replicas: 1\n"), 0644))

	warnings, errors := CheckAll(cfg)

	assert.Empty(t, errors)
	// No git repo in a temp dir, so exactly the version control warning.
	require.Len(t, warnings, 1)
	assert.Equal(t, "git", warnings[0].Check)
}

func TestCheckAll_MissingServicesDir(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.RemoveAll(cfg.ServicesDir))

	_, errors := CheckAll(cfg)

	require.Len(t, errors, 1)
	assert.Equal(t, "services", errors[0].Check)
}

func TestCheckAll_BrokenMetadata(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.ServicesDir, "web")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".strata.yaml"), []byte("overrides: [\n"), 0644))

	_, errors := CheckAll(cfg)

	found := false
	for _, f := range errors {
		if f.Check == "metadata" {
			found = true
		}
	}
	assert.True(t, found, "broken metadata should be reported")
}

func TestCheckAll_OverrideCycle(t *testing.T) {
	cfg := testConfig(t)
	for _, pair := range [][2]string{{"a", "../b"}, {"b", "../a"}} {
		dir := filepath.Join(cfg.ServicesDir, pair[0])
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".strata.yaml"), []byte("overrides: [\""+pair[1]+"\"]\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "web.yaml"), []byte("replicas: 1\n"), 0644))
	}

	_, errors := CheckAll(cfg)

	found := false
	for _, f := range errors {
		if f.Check == "resolve" {
			found = true
			assert.Contains(t, f.Detail, "cycle")
		}
	}
	assert.True(t, found, "override cycle should be reported")
}

func TestFinding_String(t *testing.T) {
	f := Finding{Check: "output", Detail: "not writable: /x"}
	assert.Equal(t, "output: not writable: /x", f.String())
}
