package quickpatch

import "fmt"

// Schema is the JSON-Schema-like object describing a patch definition's
// accepted parameters. Only the subset needed for quickpatch parameters is
// supported: object type, property types, required fields, numeric bounds,
// and the additionalProperties flag.
type Schema struct {
	Type                 string               `yaml:"type"`
	Properties           map[string]*Property `yaml:"properties"`
	Required             []string             `yaml:"required"`
	AdditionalProperties *bool                `yaml:"additionalProperties"`
}

// Property constrains a single parameter.
type Property struct {
	Type    string   `yaml:"type"`
	Minimum *float64 `yaml:"minimum"`
	Maximum *float64 `yaml:"maximum"`
}

// Validate checks params against the schema and collects every violation
// rather than stopping at the first.
func (s *Schema) Validate(params map[string]any) error {
	var violations []Violation

	for _, field := range s.Required {
		if _, ok := params[field]; !ok {
			violations = append(violations, Violation{Field: field, Constraint: "required field is missing"})
		}
	}

	for field, value := range params {
		prop, declared := s.Properties[field]
		if !declared {
			if s.AdditionalProperties == nil || !*s.AdditionalProperties {
				violations = append(violations, Violation{Field: field, Constraint: "field is not declared and additional properties are not allowed"})
			}
			continue
		}
		violations = append(violations, prop.check(field, value)...)
	}

	if len(violations) > 0 {
		return &SchemaValidationError{Violations: violations}
	}
	return nil
}

func (p *Property) check(field string, value any) []Violation {
	var violations []Violation

	num, isNum := asNumber(value)

	switch p.Type {
	case "string":
		if _, ok := value.(string); !ok {
			violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("expected string, got %T", value)})
		}
	case "integer":
		if !isInteger(value) {
			violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("expected integer, got %T", value)})
		}
	case "number":
		if !isNum {
			violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("expected number, got %T", value)})
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("expected boolean, got %T", value)})
		}
	case "":
		// Untyped property, any value accepted.
	default:
		violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("unsupported schema type %q", p.Type)})
	}

	if isNum {
		if p.Minimum != nil && num < *p.Minimum {
			violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("%v is less than minimum %v", value, *p.Minimum)})
		}
		if p.Maximum != nil && num > *p.Maximum {
			violations = append(violations, Violation{Field: field, Constraint: fmt.Sprintf("%v is greater than maximum %v", value, *p.Maximum)})
		}
	}

	return violations
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
