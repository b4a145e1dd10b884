package resolver

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/strata-tools/strata/internal/document"
)

// valuesPrefix marks sibling parameter fragments that are consolidated into
// one parameter set per node before any layering happens.
const valuesPrefix = "_values"

// loadValues consolidates a node's _values*.yaml fragments. Fragments in
// the same directory must not declare conflicting top-level keys; the split
// exists to organize large parameter sets, not to layer them.
func loadValues(dir string, entries []fs.DirEntry) (map[string]any, error) {
	var fragments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isValuesFile(name) {
			fragments = append(fragments, name)
		}
	}
	if len(fragments) == 0 {
		return map[string]any{}, nil
	}
	sort.Strings(fragments)

	params := make(map[string]any)
	owner := make(map[string]string)
	for _, name := range fragments {
		doc, err := document.Load(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("values fragment %s: %w", name, err)
		}
		for key, value := range doc {
			if prev, dup := owner[key]; dup {
				return nil, fmt.Errorf("values fragment %s: key %q already defined in %s", name, key, prev)
			}
			owner[key] = name
			params[key] = value
		}
	}
	return params, nil
}

func isValuesFile(name string) bool {
	if !strings.HasPrefix(name, valuesPrefix) {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
