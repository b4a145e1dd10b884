package quickpatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDefinition = `name: bump-replicas
schema:
  type: object
  properties:
    replicas:
      type: integer
      minimum: 1
      maximum: 100
  required: [replicas]
  additionalProperties: false
mappings:
  web: billing/us/web.yaml
  worker: billing/us/worker.yaml
patches:
  - op: replace
    path: /consumers/<resource>/replicas
    value: <replicas>
`

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	def, err := Load(writeDefinition(t, validDefinition))
	require.NoError(t, err)

	assert.Equal(t, "bump-replicas", def.Name)
	assert.Equal(t, []string{"web", "worker"}, def.Resources())
	assert.Equal(t, []string{"replicas"}, def.Arguments())
	require.Len(t, def.Patches, 1)
	assert.Equal(t, OpReplace, def.Patches[0].Op)
}

func TestLoad_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `schema:
  additionalProperties: false
mappings: {web: web.yaml}
patches: [{op: remove, path: /x}]
`,
			wantErr: "missing name",
		},
		{
			name: "missing schema",
			content: `name: p
mappings: {web: web.yaml}
patches: [{op: remove, path: /x}]
`,
			wantErr: "missing schema",
		},
		{
			name: "missing mappings",
			content: `name: p
schema: {additionalProperties: false}
patches: [{op: remove, path: /x}]
`,
			wantErr: "missing resource mappings",
		},
		{
			name: "missing patches",
			content: `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
`,
			wantErr: "missing patches",
		},
		{
			name: "additionalProperties not declared",
			content: `name: p
schema: {type: object}
mappings: {web: web.yaml}
patches: [{op: remove, path: /x}]
`,
			wantErr: "additionalProperties must be false",
		},
		{
			name: "additionalProperties true",
			content: `name: p
schema: {additionalProperties: true}
mappings: {web: web.yaml}
patches: [{op: remove, path: /x}]
`,
			wantErr: "additionalProperties must be false",
		},
		{
			name: "required without property",
			content: `name: p
schema:
  required: [ghost]
  additionalProperties: false
mappings: {web: web.yaml}
patches: [{op: remove, path: /x}]
`,
			wantErr: "required field ghost not found",
		},
		{
			name: "unknown verb",
			content: `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
patches: [{op: move, path: /x}]
`,
			wantErr: "unknown operation verb",
		},
		{
			name: "missing path",
			content: `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
patches: [{op: remove}]
`,
			wantErr: "missing path",
		},
		{
			name: "op resource not in mappings",
			content: `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
patches: [{op: remove, resource: ghost, path: /x}]
`,
			wantErr: "resource ghost not present in mappings",
		},
		{
			name: "unresolved placeholder",
			content: `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
patches: [{op: replace, path: /x, value: <ghost>}]
`,
			wantErr: "placeholders not bound to required parameters: [ghost]",
		},
		{
			name: "placeholder bound to optional parameter",
			content: `name: p
schema:
  properties:
    replicas: {type: integer}
  required: []
  additionalProperties: false
mappings: {web: web.yaml}
patches: [{op: replace, path: /x, value: <replicas>}]
`,
			wantErr: "placeholders not bound to required parameters: [replicas]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeDefinition(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ResourcePlaceholderAlwaysResolves(t *testing.T) {
	content := `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
patches: [{op: add, path: /consumers/<resource>/pin, value: true}]
`
	_, err := Load(writeDefinition(t, content))
	assert.NoError(t, err)
}

func TestLoad_EscapedPlaceholderIgnored(t *testing.T) {
	content := `name: p
schema: {additionalProperties: false}
mappings: {web: web.yaml}
patches: [{op: add, path: /x, value: "literal \\<ghost>"}]
`
	_, err := Load(writeDefinition(t, content))
	assert.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
