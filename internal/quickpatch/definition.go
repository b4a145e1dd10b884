// Package quickpatch implements the schema-validated, resource-mapped ad
// hoc patch mechanism. A patch definition declares the parameters it
// accepts, the only resources it may target, and an ordered list of
// operations with <name> placeholders. Invocations are validated and
// resolved before any document is touched, and application is all-or-
// nothing across the full operation list and all targeted resources.
package quickpatch

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Operation verbs accepted in a patch definition.
const (
	OpAdd     = "add"
	OpReplace = "replace"
	OpRemove  = "remove"
)

var knownOps = []string{OpAdd, OpReplace, OpRemove}

// Operation is one step of a patch. Path and Value may contain <resource>
// and <param> placeholders, resolved at apply time.
type Operation struct {
	// Op is the operation verb.
	Op string `yaml:"op"`

	// Resource optionally restricts the operation to one logical resource
	// from the definition's mappings. Empty applies it to every mapped
	// resource of the invocation.
	Resource string `yaml:"resource"`

	// Path is a slash-separated path template into the target document.
	Path string `yaml:"path"`

	// Value is the value template. Ignored for remove.
	Value any `yaml:"value"`
}

// Definition is a loaded patch definition. Loaded once, immutable.
type Definition struct {
	Name     string            `yaml:"name"`
	Schema   *Schema           `yaml:"schema"`
	Mappings map[string]string `yaml:"mappings"`
	Patches  []Operation       `yaml:"patches"`
}

// Load reads and validates a patch definition file. Structural problems
// such as missing top-level keys, unknown operation verbs, or placeholders
// that resolve to neither a mapped resource nor a required schema parameter
// are definition errors caught here, never at apply time.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse patch definition: %w", err)
	}

	if err := def.validate(string(data)); err != nil {
		return nil, fmt.Errorf("patch definition %s: %w", path, err)
	}
	return &def, nil
}

func (d *Definition) validate(raw string) error {
	if d.Name == "" {
		return fmt.Errorf("missing name")
	}
	if d.Schema == nil {
		return fmt.Errorf("missing schema")
	}
	if len(d.Mappings) == 0 {
		return fmt.Errorf("missing resource mappings")
	}
	if len(d.Patches) == 0 {
		return fmt.Errorf("missing patches")
	}

	// additionalProperties must be declared and false; a definition that
	// silently accepts arbitrary parameters is a footgun.
	if d.Schema.AdditionalProperties == nil || *d.Schema.AdditionalProperties {
		return fmt.Errorf("schema additionalProperties must be false")
	}

	for _, required := range d.Schema.Required {
		if _, ok := d.Schema.Properties[required]; !ok {
			return fmt.Errorf("required field %s not found in schema properties", required)
		}
	}

	for i, op := range d.Patches {
		if !slices.Contains(knownOps, op.Op) {
			return fmt.Errorf("patch %d: unknown operation verb %q", i, op.Op)
		}
		if op.Path == "" {
			return fmt.Errorf("patch %d: missing path", i)
		}
		if op.Resource != "" {
			if _, ok := d.Mappings[op.Resource]; !ok {
				return fmt.Errorf("patch %d: resource %s not present in mappings", i, op.Resource)
			}
		}
	}

	// Every placeholder in the file must be either the special <resource>
	// or a required schema parameter. An optional parameter cannot back a
	// placeholder: an invocation omitting it would pass validation and
	// only fail once operations are being applied.
	unresolved := make(map[string]bool)
	for _, name := range placeholders(raw) {
		if name == resourcePlaceholder {
			continue
		}
		if !slices.Contains(d.Schema.Required, name) {
			unresolved[name] = true
		}
	}
	if len(unresolved) > 0 {
		names := make([]string, 0, len(unresolved))
		for name := range unresolved {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("placeholders not bound to required parameters: %v", names)
	}

	return nil
}

// Resources returns the logical resource names the definition may target,
// in sorted order.
func (d *Definition) Resources() []string {
	names := make([]string, 0, len(d.Mappings))
	for name := range d.Mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arguments returns the parameter names an invocation must supply.
func (d *Definition) Arguments() []string {
	return slices.Clone(d.Schema.Required)
}
