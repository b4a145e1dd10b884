package quickpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func testSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Property{
			"replicas":   {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(10)},
			"replicas_2": {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(10)},
			"name":       {Type: "string"},
			"enabled":    {Type: "boolean"},
			"ratio":      {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1)},
		},
		Required:             []string{"replicas"},
		AdditionalProperties: boolPtr(false),
	}
}

func TestSchemaValidate_OK(t *testing.T) {
	err := testSchema().Validate(map[string]any{
		"replicas": 3,
		"name":     "web",
		"enabled":  true,
		"ratio":    0.5,
	})
	assert.NoError(t, err)
}

func TestSchemaValidate_CitesTheOffendingField(t *testing.T) {
	// replicas is fine; replicas_2 is out of bounds. The violation must
	// name replicas_2, not its well-behaved sibling.
	err := testSchema().Validate(map[string]any{
		"replicas":   1,
		"replicas_2": 42,
	})
	require.Error(t, err)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, "replicas_2", schemaErr.Violations[0].Field)
	assert.Contains(t, schemaErr.Violations[0].Constraint, "greater than maximum")
}

func TestSchemaValidate_CollectsEveryViolation(t *testing.T) {
	err := testSchema().Validate(map[string]any{
		"name":    42,      // wrong type
		"enabled": "yes",   // wrong type
		"ratio":   2.5,     // above maximum
		"extra":   "field", // undeclared
		// replicas missing (required)
	})
	require.Error(t, err)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)

	fields := make(map[string]int)
	for _, v := range schemaErr.Violations {
		fields[v.Field]++
	}
	assert.Equal(t, 1, fields["replicas"])
	assert.Equal(t, 1, fields["name"])
	assert.Equal(t, 1, fields["enabled"])
	assert.Equal(t, 1, fields["ratio"])
	assert.Equal(t, 1, fields["extra"])
}

func TestSchemaValidate_AdditionalProperties(t *testing.T) {
	t.Run("rejected when false", func(t *testing.T) {
		err := testSchema().Validate(map[string]any{"replicas": 3, "surprise": 1})
		require.Error(t, err)

		var schemaErr *SchemaValidationError
		require.ErrorAs(t, err, &schemaErr)
		require.Len(t, schemaErr.Violations, 1)
		assert.Equal(t, "surprise", schemaErr.Violations[0].Field)
	})

	t.Run("accepted when true", func(t *testing.T) {
		schema := testSchema()
		schema.AdditionalProperties = boolPtr(true)
		err := schema.Validate(map[string]any{"replicas": 3, "surprise": 1})
		assert.NoError(t, err)
	})
}

func TestSchemaValidate_TypeChecks(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		field  string
	}{
		{"float for integer", map[string]any{"replicas": 2.5}, "replicas"},
		{"string for integer", map[string]any{"replicas": "3"}, "replicas"},
		{"int for string", map[string]any{"replicas": 3, "name": 7}, "name"},
		{"string for boolean", map[string]any{"replicas": 3, "enabled": "true"}, "enabled"},
		{"string for number", map[string]any{"replicas": 3, "ratio": "0.5"}, "ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testSchema().Validate(tt.params)
			require.Error(t, err)

			var schemaErr *SchemaValidationError
			require.ErrorAs(t, err, &schemaErr)
			require.Len(t, schemaErr.Violations, 1)
			assert.Equal(t, tt.field, schemaErr.Violations[0].Field)
		})
	}
}

func TestSchemaValidate_IntegerSatisfiesNumber(t *testing.T) {
	err := testSchema().Validate(map[string]any{"replicas": 3, "ratio": 1})
	assert.NoError(t, err)
}

func TestSchemaValidate_BoundsInclusive(t *testing.T) {
	assert.NoError(t, testSchema().Validate(map[string]any{"replicas": 1}))
	assert.NoError(t, testSchema().Validate(map[string]any{"replicas": 10}))

	err := testSchema().Validate(map[string]any{"replicas": 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "less than minimum")
}
