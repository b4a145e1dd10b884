package quickpatch

import (
	"fmt"
	"strings"

	"github.com/strata-tools/strata/internal/document"
)

// Apply validates params against the definition's schema, resolves every
// targeted resource, and applies the operation list in declared order to
// each target. Targets maps concrete target identifiers to documents.
//
// The invocation is all-or-nothing: operations run against deep copies,
// and the input documents are returned patched only if every operation on
// every resource succeeded. On any error the input set is untouched.
func Apply(def *Definition, params map[string]any, targets map[string]document.Document) (map[string]document.Document, error) {
	// Step 1: exhaustive schema validation.
	if err := def.Schema.Validate(params); err != nil {
		return nil, err
	}

	// Step 2: resolve every referenced resource to exactly one target.
	resources, err := referencedResources(def)
	if err != nil {
		return nil, err
	}
	concrete := make(map[string]string, len(resources))
	for _, resource := range resources {
		target := def.Mappings[resource]
		if _, ok := targets[target]; !ok {
			return nil, &UnmappedTargetError{Resource: resource, Target: target}
		}
		concrete[resource] = target
	}

	// Steps 3 and 4: substitute placeholders and apply, on copies.
	patched := make(map[string]document.Document, len(targets))
	for target, doc := range targets {
		patched[target] = document.Copy(doc)
	}

	for _, resource := range resources {
		target := concrete[resource]
		resolver := &paramResolver{params: params, resource: target}

		for i, op := range def.Patches {
			if op.Resource != "" && op.Resource != resource {
				continue
			}
			resolved, err := resolveOperation(op, resolver)
			if err != nil {
				return nil, &OperationApplyError{Index: i, Op: op.Op, Path: op.Path, Err: err}
			}
			if err := applyOperation(patched[target], resolved); err != nil {
				return nil, &OperationApplyError{Index: i, Op: resolved.Op, Path: resolved.Path, Err: err}
			}
		}
	}

	return patched, nil
}

// referencedResources returns the logical resources this invocation will
// patch: the union of per-operation restrictions, or every mapped resource
// when no operation restricts itself.
func referencedResources(def *Definition) ([]string, error) {
	restricted := false
	seen := make(map[string]bool)
	var resources []string

	for _, op := range def.Patches {
		if op.Resource == "" {
			continue
		}
		restricted = true
		if _, ok := def.Mappings[op.Resource]; !ok {
			return nil, &UnknownResourceError{Resource: op.Resource}
		}
		if !seen[op.Resource] {
			seen[op.Resource] = true
			resources = append(resources, op.Resource)
		}
	}

	if !restricted {
		return def.Resources(), nil
	}
	return resources, nil
}

// applyOperation mutates doc in place according to one resolved operation.
// Paths are slash-separated; every intermediate segment must be a mapping.
func applyOperation(doc document.Document, op Operation) error {
	segments, err := splitPath(op.Path)
	if err != nil {
		return err
	}
	parents, leaf := segments[:len(segments)-1], segments[len(segments)-1]

	cur := map[string]any(doc)
	for _, segment := range parents {
		next, exists := cur[segment]
		if !exists {
			if op.Op != OpAdd {
				return fmt.Errorf("path segment %q does not exist", segment)
			}
			created := make(map[string]any)
			cur[segment] = created
			cur = created
			continue
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("path segment %q is not a mapping", segment)
		}
		cur = nextMap
	}

	switch op.Op {
	case OpAdd:
		cur[leaf] = op.Value
	case OpReplace:
		if _, ok := cur[leaf]; !ok {
			return fmt.Errorf("key %q does not exist", leaf)
		}
		cur[leaf] = op.Value
	case OpRemove:
		if _, ok := cur[leaf]; !ok {
			return fmt.Errorf("key %q does not exist", leaf)
		}
		delete(cur, leaf)
	default:
		return fmt.Errorf("unknown operation verb %q", op.Op)
	}
	return nil
}

func splitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("path is empty")
	}
	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("path %q contains an empty segment", path)
		}
	}
	return segments, nil
}
