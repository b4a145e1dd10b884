// Package diffcheck compares two manifest trees and reports only the
// differences that matter. Documents are compared structurally, never
// textually; changes confined to a configured ignore list of paths are
// classified as noise, everything else as significant. The result is the
// safety gate consulted before any apply.
package diffcheck

import (
	"fmt"
	"sort"
)

// Class is the classification of one unit comparison.
type Class int

const (
	// Unchanged means the documents are structurally equal.
	Unchanged Class = iota

	// Noise means every difference is confined to ignored paths.
	Noise

	// Significant means at least one difference is meaningful, or the
	// unit exists in only one tree.
	Significant
)

func (c Class) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case Noise:
		return "noise"
	case Significant:
		return "significant"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// phase tracks the analyzer's progress through a comparison.
type phase int

const (
	collecting phase = iota
	classifying
	reported
)

// UnitDiff is the comparison outcome for one unit key.
type UnitDiff struct {
	UnitKey string

	Class Class

	// Paths are the dotted structural paths that differ. For a unit
	// present in only one tree this is empty.
	Paths []string

	// IgnoredPaths are differing paths that were excluded as noise.
	IgnoredPaths []string

	// OnlyIn names the tree ("a" or "b") when the unit exists in just
	// one of them.
	OnlyIn string
}

// DiffResult is the terminal report of a tree comparison.
type DiffResult struct {
	Entries []UnitDiff
}

// HasSignificant reports whether any unit classified as significant.
// Callers use it to decide exit status.
func (r *DiffResult) HasSignificant() bool {
	for _, e := range r.Entries {
		if e.Class == Significant {
			return true
		}
	}
	return false
}

// Entry returns the comparison for a unit key.
func (r *DiffResult) Entry(unitKey string) (UnitDiff, bool) {
	for _, e := range r.Entries {
		if e.UnitKey == unitKey {
			return e, true
		}
	}
	return UnitDiff{}, false
}

// TreeComparisonError indicates an input tree is structurally malformed.
type TreeComparisonError struct {
	Path string
	Err  error
}

func (e *TreeComparisonError) Error() string {
	return fmt.Sprintf("malformed manifest tree at %s: %v", e.Path, e.Err)
}

func (e *TreeComparisonError) Unwrap() error { return e.Err }

// Analyzer classifies differences between two manifest trees. The ignore
// list is a set of dotted structural paths; a "*" segment matches any one
// segment, and list indices appear as numeric segments.
type Analyzer struct {
	ignore []ignorePath
	phase  phase
}

// New creates an Analyzer with the given ignore paths.
func New(ignorePaths []string) *Analyzer {
	ignore := make([]ignorePath, 0, len(ignorePaths))
	for _, p := range ignorePaths {
		ignore = append(ignore, parseIgnorePath(p))
	}
	return &Analyzer{ignore: ignore}
}

// Diff compares two trees unit-by-unit and returns the classified result.
// A unit present in only one tree is always significant.
func (a *Analyzer) Diff(treeA, treeB Tree) (*DiffResult, error) {
	a.phase = collecting
	keys := make(map[string]bool, len(treeA)+len(treeB))
	for key := range treeA {
		keys[key] = true
	}
	for key := range treeB {
		keys[key] = true
	}
	ordered := make([]string, 0, len(keys))
	for key := range keys {
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	a.phase = classifying
	result := &DiffResult{}
	for _, key := range ordered {
		docA, inA := treeA[key]
		docB, inB := treeB[key]

		entry := UnitDiff{UnitKey: key}
		switch {
		case !inA:
			entry.Class = Significant
			entry.OnlyIn = "b"
		case !inB:
			entry.Class = Significant
			entry.OnlyIn = "a"
		default:
			diffs := compare(docA, docB, nil)
			for _, d := range diffs {
				if a.ignored(d) {
					entry.IgnoredPaths = append(entry.IgnoredPaths, d.String())
				} else {
					entry.Paths = append(entry.Paths, d.String())
				}
			}
			sort.Strings(entry.Paths)
			sort.Strings(entry.IgnoredPaths)
			switch {
			case len(entry.Paths) > 0:
				entry.Class = Significant
			case len(entry.IgnoredPaths) > 0:
				entry.Class = Noise
			default:
				entry.Class = Unchanged
			}
		}
		result.Entries = append(result.Entries, entry)
	}

	a.phase = reported
	return result, nil
}

// Regressions compares two runs' results and returns the unit keys that
// were clean (unchanged or noise) in prev but are significant in cur. It
// surfaces regressions introduced between two points in time, not just
// between local and live state.
func (a *Analyzer) Regressions(prev, cur *DiffResult) []string {
	clean := make(map[string]bool)
	for _, e := range prev.Entries {
		if e.Class != Significant {
			clean[e.UnitKey] = true
		}
	}

	var regressed []string
	for _, e := range cur.Entries {
		if e.Class == Significant && clean[e.UnitKey] {
			regressed = append(regressed, e.UnitKey)
		}
	}
	sort.Strings(regressed)
	return regressed
}

func (a *Analyzer) ignored(d diffPath) bool {
	for _, ig := range a.ignore {
		if ig.matches(d) {
			return true
		}
	}
	return false
}
