package diffcheck

import (
	"reflect"
	"strconv"
	"strings"
)

// diffPath is a structural location where two documents differ, as a
// sequence of map keys and list indices.
type diffPath []string

func (p diffPath) String() string {
	return strings.Join(p, ".")
}

// ignorePath is a parsed ignore-list entry. A "*" segment matches any one
// segment. An entry matches a diff path when its segments are a prefix of
// the diff path's segments, so ignoring "metadata" ignores everything
// under it.
type ignorePath []string

func parseIgnorePath(s string) ignorePath {
	return strings.Split(s, ".")
}

func (ig ignorePath) matches(d diffPath) bool {
	if len(ig) > len(d) {
		return false
	}
	for i, segment := range ig {
		if segment != "*" && segment != d[i] {
			return false
		}
	}
	return true
}

// compare walks two values and collects the paths at which they differ.
// Mappings are compared key-by-key regardless of order; lists are compared
// element-wise, with a length mismatch reported at the list itself.
func compare(a, b any, prefix diffPath) []diffPath {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return []diffPath{clonePath(prefix)}
		}
		return compareMaps(av, bv, prefix)
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return []diffPath{clonePath(prefix)}
		}
		if len(av) != len(bv) {
			return []diffPath{clonePath(prefix)}
		}
		var diffs []diffPath
		for i := range av {
			diffs = append(diffs, compare(av[i], bv[i], append(prefix, strconv.Itoa(i)))...)
		}
		return diffs
	default:
		if !reflect.DeepEqual(a, b) {
			return []diffPath{clonePath(prefix)}
		}
		return nil
	}
}

func compareMaps(a, b map[string]any, prefix diffPath) []diffPath {
	var diffs []diffPath
	for key, av := range a {
		bv, ok := b[key]
		if !ok {
			diffs = append(diffs, clonePath(append(prefix, key)))
			continue
		}
		diffs = append(diffs, compare(av, bv, append(prefix, key))...)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			diffs = append(diffs, clonePath(append(prefix, key)))
		}
	}
	return diffs
}

// clonePath copies a path so later appends to the shared prefix backing
// array cannot corrupt recorded diffs.
func clonePath(p diffPath) diffPath {
	out := make(diffPath, len(p))
	copy(out, p)
	return out
}
