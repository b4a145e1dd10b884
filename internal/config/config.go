// Package config handles workspace discovery and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Environment variables recognized by strata. They are inputs handed to
// the core components, not consumed by them.
const (
	// EnvRoot overrides workspace root discovery.
	EnvRoot = "STRATA_ROOT"

	// EnvOutput overrides the materialized output directory.
	EnvOutput = "STRATA_OUTPUT"

	// EnvConcurrency overrides the materializer worker pool size.
	EnvConcurrency = "STRATA_CONCURRENCY"
)

// Config holds the strata workspace configuration.
type Config struct {
	// Root is the workspace root directory (contains services/).
	Root string

	// ServicesDir is the layered configuration source tree.
	ServicesDir string

	// OutputDir is the materialized manifest tree.
	OutputDir string

	// SnapshotsDir holds output tree snapshots.
	SnapshotsDir string

	// Concurrency bounds the materializer worker pool.
	Concurrency int
}

// FindRoot searches upward from the current directory for the workspace
// root, identified by the presence of a services/ directory. STRATA_ROOT
// short-circuits the search.
func FindRoot() (string, error) {
	if root := os.Getenv(EnvRoot); root != "" {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory: %s", EnvRoot, root)
		}
		return root, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		servicesDir := filepath.Join(dir, "services")
		if info, err := os.Stat(servicesDir); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("workspace root not found (no services/ directory)")
}

// Load finds the workspace root and returns a Config with environment
// overrides applied.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Root:         root,
		ServicesDir:  filepath.Join(root, "services"),
		OutputDir:    filepath.Join(root, "materialized"),
		SnapshotsDir: filepath.Join(root, ".strata", "snapshots"),
		Concurrency:  defaultConcurrency(),
	}

	if out := os.Getenv(EnvOutput); out != "" {
		cfg.OutputDir = out
	}

	return cfg, nil
}

func defaultConcurrency() int {
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 4
}

// PatchesDir returns the quickpatch definitions directory for a service.
func (c *Config) PatchesDir(service string) string {
	return filepath.Join(c.ServicesDir, service, "quickpatches")
}
