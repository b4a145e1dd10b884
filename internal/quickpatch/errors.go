package quickpatch

import (
	"fmt"
	"strings"
)

// Violation is a single schema constraint failure.
type Violation struct {
	// Field is the parameter name, or "" for document-level violations.
	Field string

	// Constraint describes the violated constraint.
	Constraint string
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Constraint
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Constraint)
}

// SchemaValidationError reports every constraint violated by a parameter
// set. Validation is exhaustive, so callers see all problems at once.
type SchemaValidationError struct {
	Violations []Violation
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid parameters: " + strings.Join(parts, "; ")
}

// UnknownResourceError indicates a patch references a logical resource that
// is not present in the definition's mappings.
type UnknownResourceError struct {
	Resource string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("resource %s is not allowed to be patched", e.Resource)
}

// UnmappedTargetError indicates a mapping entry points at a target that is
// not present in the supplied document set.
type UnmappedTargetError struct {
	Resource string
	Target   string
}

func (e *UnmappedTargetError) Error() string {
	return fmt.Sprintf("resource %s maps to %s, which is not in the target set", e.Resource, e.Target)
}

// OperationApplyError indicates a patch operation could not be applied. The
// whole invocation is aborted and no document is mutated.
type OperationApplyError struct {
	Index int
	Op    string
	Path  string
	Err   error
}

func (e *OperationApplyError) Error() string {
	return fmt.Sprintf("operation %d (%s %s): %v", e.Index, e.Op, e.Path, e.Err)
}

func (e *OperationApplyError) Unwrap() error { return e.Err }
