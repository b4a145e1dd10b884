package resolver

import (
	"fmt"
	"strings"
)

// CycleError indicates the override graph contains a cycle. Resolution
// produces no partial result when this is returned.
type CycleError struct {
	// Path is the cycle, as root-relative directory paths. The first and
	// last entries are the same node.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("override cycle: %s", strings.Join(e.Path, " -> "))
}

// AmbiguousBaseError indicates a unit's chain does not contain exactly one
// base node.
type AmbiguousBaseError struct {
	// UnitKey identifies the affected unit.
	UnitKey string

	// Bases are the base candidates found. Empty when no base is reachable.
	Bases []string
}

func (e *AmbiguousBaseError) Error() string {
	if len(e.Bases) == 0 {
		return fmt.Sprintf("unit %s: no base node reachable in override chain", e.UnitKey)
	}
	return fmt.Sprintf("unit %s: multiple base nodes in override chain: %s",
		e.UnitKey, strings.Join(e.Bases, ", "))
}
