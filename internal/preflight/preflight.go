// Package preflight validates the workspace before a materialize pass.
package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/gitutil"
	"github.com/strata-tools/strata/internal/resolver"
)

// Finding is one problem discovered by a check.
type Finding struct {
	Check  string
	Detail string
}

func (f Finding) String() string {
	return f.Check + ": " + f.Detail
}

// CheckAll runs every workspace check. Errors block a materialize pass;
// warnings do not.
func CheckAll(cfg *config.Config) (warnings []Finding, errors []Finding) {
	if info, err := os.Stat(cfg.ServicesDir); err != nil || !info.IsDir() {
		errors = append(errors, Finding{"services", "services/ directory not found under " + cfg.Root})
		return warnings, errors
	}

	errors = append(errors, checkMetadata(cfg.ServicesDir)...)
	errors = append(errors, checkResolution(cfg.ServicesDir)...)
	warnings = append(warnings, checkOutput(cfg.OutputDir)...)
	warnings = append(warnings, checkGit(cfg.Root)...)

	return warnings, errors
}

// checkMetadata parses every override metadata file, reporting each broken
// one individually rather than stopping at the first.
func checkMetadata(servicesDir string) []Finding {
	var findings []Finding

	filepath.WalkDir(servicesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != resolver.MetadataFile {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			findings = append(findings, Finding{"metadata", fmt.Sprintf("%s: %v", path, err)})
			return nil
		}
		var meta map[string]any
		if err := yaml.Unmarshal(data, &meta); err != nil {
			findings = append(findings, Finding{"metadata", fmt.Sprintf("%s: %v", path, err)})
		}
		return nil
	})

	return findings
}

// checkResolution resolves the full override graph so cycles and ambiguous
// bases surface before any rendering starts.
func checkResolution(servicesDir string) []Finding {
	if _, err := resolver.Resolve(servicesDir); err != nil {
		return []Finding{{"resolve", err.Error()}}
	}
	return nil
}

func checkOutput(outputDir string) []Finding {
	dir := outputDir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = filepath.Dir(dir)
	}
	probe := filepath.Join(dir, ".strata-preflight")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return []Finding{{"output", "not writable: " + outputDir}}
	}
	os.Remove(probe)
	return nil
}

func checkGit(root string) []Finding {
	status, err := gitutil.Inspect(root)
	if err != nil {
		return []Finding{{"git", err.Error()}}
	}
	if status == nil {
		return []Finding{{"git", "workspace is not under version control"}}
	}
	if status.Dirty {
		return []Finding{{"git", "workspace has uncommitted changes"}}
	}
	return nil
}
