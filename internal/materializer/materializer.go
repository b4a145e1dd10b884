// Package materializer renders override chains into a mirrored output tree.
//
// Units are independent and render concurrently under a bounded worker
// pool; within one unit the chain merges strictly in order. Writes are
// skipped when the merged content is unchanged, and stale outputs are
// reconciled away only after a fully successful pass.
package materializer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/strata-tools/strata/internal/document"
	"github.com/strata-tools/strata/internal/fileutil"
	"github.com/strata-tools/strata/internal/resolver"
)

// header is prepended to every materialized file.
const header = "# Generated by strata. Do not edit directly.\n"

// Encode marshals a document in output-tree form, header included. Anything
// that writes into the output tree goes through this so that byte
// comparisons against existing files stay meaningful.
func Encode(doc document.Document) ([]byte, error) {
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(header), data...), nil
}

// Renderer turns one template file plus a parameter set into a document.
// Implementations are expected to be safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, templatePath string, params map[string]any) (document.Document, error)
}

// RenderError is a unit-local failure. It is fatal to that unit's output
// but not to the overall run.
type RenderError struct {
	UnitKey string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.UnitKey, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Result summarizes a materialization pass.
type Result struct {
	// Written lists unit keys whose output files changed.
	Written []string

	// Skipped lists unit keys whose output was already up to date.
	Skipped []string

	// Deleted lists output paths removed by the reconciliation pass,
	// relative to the output root.
	Deleted []string

	// Failures holds one entry per failed unit.
	Failures []*RenderError
}

// Changed reports whether the pass modified the output tree.
func (r *Result) Changed() bool {
	return len(r.Written) > 0 || len(r.Deleted) > 0
}

// Materializer renders chains through a Renderer and maintains the output
// tree as an exact mirror of the current resolution.
type Materializer struct {
	renderer Renderer
}

// New creates a Materializer backed by the given renderer.
func New(renderer Renderer) *Materializer {
	return &Materializer{renderer: renderer}
}

// Materialize renders every chain into outputRoot with up to concurrency
// in-flight units. All units are attempted; per-unit failures are collected
// and returned together after the pass. The stale-file reconciliation step
// runs only when every unit succeeded, so a transient failure can never
// cause an unrelated output to be deleted.
//
// Cancelling ctx stops new units from being dispatched; units already in
// flight finish and write their output, so no file is ever left torn.
func (m *Materializer) Materialize(ctx context.Context, chains map[string]*resolver.OverrideChain, outputRoot string, concurrency int) (*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	keys := make([]string, 0, len(chains))
	for key := range chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result Result
	)
	sem := make(chan struct{}, concurrency)

	cancelled := false
	for _, key := range keys {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(chain *resolver.OverrideChain) {
			defer wg.Done()
			defer func() { <-sem }()

			written, err := m.materializeUnit(ctx, chain, outputRoot)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failures = append(result.Failures, &RenderError{UnitKey: chain.UnitKey, Err: err})
			case written:
				result.Written = append(result.Written, chain.UnitKey)
			default:
				result.Skipped = append(result.Skipped, chain.UnitKey)
			}
		}(chains[key])
	}
	wg.Wait()

	sort.Strings(result.Written)
	sort.Strings(result.Skipped)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].UnitKey < result.Failures[j].UnitKey
	})

	if cancelled {
		return &result, ctx.Err()
	}
	if len(result.Failures) > 0 {
		errs := make([]error, len(result.Failures))
		for i, f := range result.Failures {
			errs[i] = f
		}
		return &result, errors.Join(errs...)
	}

	deleted, err := reconcile(outputRoot, keys)
	if err != nil {
		return &result, err
	}
	result.Deleted = deleted
	return &result, nil
}

// materializeUnit renders one chain and writes the merged document,
// skipping the write when the existing content already matches.
func (m *Materializer) materializeUnit(ctx context.Context, chain *resolver.OverrideChain, outputRoot string) (bool, error) {
	merged := make(document.Document)
	for _, node := range chain.Nodes {
		doc, err := m.renderer.Render(ctx, node.TemplatePath(chain.Unit), node.Params)
		if err != nil {
			return false, fmt.Errorf("render %s: %w", node.Rel, err)
		}
		merged = document.Merge(merged, doc)
	}

	content, err := Encode(merged)
	if err != nil {
		return false, err
	}

	outPath := filepath.Join(outputRoot, filepath.FromSlash(chain.UnitKey))
	existing, err := os.ReadFile(outPath)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	if err := fileutil.WriteFileAtomic(outPath, content, 0644); err != nil {
		return false, fmt.Errorf("write output: %w", err)
	}
	return true, nil
}

// reconcile deletes output files whose unit no longer resolves, along with
// any directories left empty. It runs only after a full-pass barrier.
func reconcile(outputRoot string, unitKeys []string) ([]string, error) {
	expected := make(map[string]bool, len(unitKeys))
	for _, key := range unitKeys {
		expected[key] = true
	}

	var stale []string
	err := filepath.WalkDir(outputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == outputRoot {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(outputRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !expected[rel] {
			stale = append(stale, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile output tree: %w", err)
	}

	sort.Strings(stale)
	for _, rel := range stale {
		full := filepath.Join(outputRoot, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil {
			return nil, fmt.Errorf("delete stale output %s: %w", rel, err)
		}
		pruneEmptyDirs(outputRoot, filepath.Dir(full))
	}
	return stale, nil
}

// pruneEmptyDirs removes now-empty directories between dir and root.
func pruneEmptyDirs(root, dir string) {
	for dir != root && strings.HasPrefix(dir, root) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
