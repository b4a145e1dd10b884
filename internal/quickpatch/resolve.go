package quickpatch

import (
	"fmt"
	"regexp"
	"strings"
)

// resourcePlaceholder is the reserved placeholder bound to the mapped
// concrete target identifier rather than to a parameter.
const resourcePlaceholder = "resource"

// placeholderPattern matches <name> placeholders. A backslash before the
// opening bracket escapes the placeholder.
var placeholderPattern = regexp.MustCompile(`<\s*([\w-]+)\s*>`)

// Resolver maps placeholder names to values. The same Resolver is applied
// once per operation, to both the path and the value template.
type Resolver interface {
	// Lookup returns the value bound to a placeholder name.
	Lookup(name string) (any, bool)
}

// paramResolver resolves from an invocation's parameter set plus the
// mapped resource identifier.
type paramResolver struct {
	params   map[string]any
	resource string
}

func (r *paramResolver) Lookup(name string) (any, bool) {
	if name == resourcePlaceholder {
		return r.resource, true
	}
	value, ok := r.params[name]
	return value, ok
}

// placeholders returns every unescaped placeholder name in raw, in order
// of appearance, duplicates included.
func placeholders(raw string) []string {
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatchIndex(raw, -1) {
		if escaped(raw, match[0]) {
			continue
		}
		names = append(names, raw[match[2]:match[3]])
	}
	return names
}

// escaped reports whether the character at pos is preceded by a backslash.
func escaped(s string, pos int) bool {
	return pos > 0 && s[pos-1] == '\\'
}

// substituteString resolves every placeholder in a template string. When
// the whole string is a single placeholder, the bound value is returned
// with its original type, so numeric parameters stay numeric; otherwise
// values are stringified into the surrounding text.
func substituteString(tmpl string, r Resolver) (any, error) {
	if m := placeholderPattern.FindStringSubmatchIndex(tmpl); m != nil &&
		m[0] == 0 && m[1] == len(tmpl) && !escaped(tmpl, m[0]) {
		name := tmpl[m[2]:m[3]]
		value, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unresolved placeholder <%s>", name)
		}
		return value, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(tmpl, -1) {
		if escaped(tmpl, m[0]) {
			continue
		}
		name := tmpl[m[2]:m[3]]
		value, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unresolved placeholder <%s>", name)
		}
		b.WriteString(tmpl[last:m[0]])
		fmt.Fprintf(&b, "%v", value)
		last = m[1]
	}
	b.WriteString(tmpl[last:])
	return strings.ReplaceAll(b.String(), `\<`, "<"), nil
}

// substituteValue resolves placeholders recursively through a value
// template.
func substituteValue(value any, r Resolver) (any, error) {
	switch v := value.(type) {
	case string:
		return substituteString(v, r)
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := substituteValue(item, r)
			if err != nil {
				return nil, err
			}
			result[k] = resolved
		}
		return result, nil
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			resolved, err := substituteValue(item, r)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	default:
		return value, nil
	}
}

// resolveOperation returns a copy of op with its path and value templates
// fully resolved.
func resolveOperation(op Operation, r Resolver) (Operation, error) {
	pathValue, err := substituteString(op.Path, r)
	if err != nil {
		return Operation{}, err
	}
	path, ok := pathValue.(string)
	if !ok {
		path = fmt.Sprintf("%v", pathValue)
	}

	resolved := Operation{Op: op.Op, Resource: op.Resource, Path: path}
	if op.Op != OpRemove {
		value, err := substituteValue(op.Value, r)
		if err != nil {
			return Operation{}, err
		}
		resolved.Value = value
	}
	return resolved, nil
}
