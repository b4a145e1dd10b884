package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree materializes a map of relative paths to file contents under a
// fresh temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func chainRels(chain *OverrideChain) []string {
	rels := make([]string, len(chain.Nodes))
	for i, node := range chain.Nodes {
		rels[i] = node.Rel
	}
	return rels
}

func TestResolve_SingleBase(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml": "replicas: 1\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)
	require.Len(t, chains, 1)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	assert.Equal(t, "web.yaml", chain.Unit)
	assert.Equal(t, []string{"common"}, chainRels(chain))
	assert.Equal(t, "common", chain.Base().Rel)
}

func TestResolve_RootAsBase(t *testing.T) {
	root := writeTree(t, map[string]string{
		"web.yaml": "replicas: 1\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)
	require.Contains(t, chains, "web.yaml")
	assert.Equal(t, []string{"."}, chainRels(chains["web.yaml"]))
}

func TestResolve_ImplicitNesting(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":      "replicas: 1\n",
		"common/prod/web.yaml": "replicas: 3\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)
	require.Len(t, chains, 1)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	assert.Equal(t, []string{"common", "common/prod"}, chainRels(chain))
}

func TestResolve_ImplicitSkipsNonNodeDirs(t *testing.T) {
	// The intermediate directory owns nothing, so the implicit edge jumps
	// over it to the nearest real node.
	root := writeTree(t, map[string]string{
		"common/web.yaml":              "replicas: 1\n",
		"common/regions/eu/web.yaml":   "replicas: 3\n",
		"common/regions/placeholder.x": "",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	assert.Equal(t, []string{"common", "common/regions/eu"}, chainRels(chain))
}

func TestResolve_ExplicitOverride(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml": "replicas: 1\n",
		"eu/.strata.yaml": "overrides: [\"../common\"]\n",
		"eu/web.yaml":     "replicas: 3\n",
		"eu/_values.yaml": "region: eu\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	assert.Equal(t, []string{"common", "eu"}, chainRels(chain))
	assert.Equal(t, map[string]any{"region": "eu"}, chain.Nodes[1].Params)
}

func TestResolve_OverlayWithoutUnitDoesNotContribute(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml": "replicas: 1\n",
		"eu/.strata.yaml": "overrides: [\"../common\"]\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	assert.Equal(t, []string{"common"}, chainRels(chain))
}

func TestResolve_ExplicitOutranksImplicit(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":        "replicas: 1\n",
		"common/us/web.yaml":     "replicas: 2\n",
		"common/eu/.strata.yaml": "overrides: [\"..\"]\n",
		"common/eu/web.yaml":     "replicas: 3\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	// The implicit contributor is ordered before the explicit one, so the
	// explicit declaration wins the merge.
	assert.Equal(t, []string{"common", "common/us", "common/eu"}, chainRels(chain))
}

func TestResolve_SiblingTieBreakIsLexicographic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":       "replicas: 1\n",
		"common/alpha/web.yaml": "replicas: 2\n",
		"common/beta/web.yaml":  "replicas: 3\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)

	chain := chains["common/web.yaml"]
	require.NotNil(t, chain)
	assert.Equal(t, []string{"common", "common/alpha", "common/beta"}, chainRels(chain))
}

func TestResolve_SeparateUnitsSeparateChains(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":         "a: 1\n",
		"common/worker.yaml":      "a: 1\n",
		"common/prod/worker.yaml": "a: 2\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)
	require.Len(t, chains, 2)

	assert.Equal(t, []string{"common"}, chainRels(chains["common/web.yaml"]))
	assert.Equal(t, []string{"common", "common/prod"}, chainRels(chains["common/worker.yaml"]))
}

func TestResolve_Cycle(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/.strata.yaml": "overrides: [\"../b\"]\n",
		"a/web.yaml":     "x: 1\n",
		"b/.strata.yaml": "overrides: [\"../a\"]\n",
		"b/web.yaml":     "x: 2\n",
	})

	_, err := Resolve(root)
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.GreaterOrEqual(t, len(cycleErr.Path), 3)
	assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
}

func TestResolve_AmbiguousBase(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/web.yaml":     "x: 1\n",
		"b/web.yaml":     "x: 2\n",
		"c/.strata.yaml": "overrides: [\"../a\", \"../b\"]\n",
		"c/web.yaml":     "x: 3\n",
	})

	_, err := Resolve(root)
	require.Error(t, err)

	var baseErr *AmbiguousBaseError
	require.ErrorAs(t, err, &baseErr)
	assert.Equal(t, []string{"a", "b"}, baseErr.Bases)
}

func TestResolve_TargetNotANode(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/.strata.yaml": "overrides: [\"../junk\"]\n",
		"a/web.yaml":     "x: 1\n",
		"junk/notes.txt": "not a config dir\n",
	})

	_, err := Resolve(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a configuration directory")
}

func TestResolve_TargetEscapesRoot(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/.strata.yaml": "overrides: [\"../../outside\"]\n",
		"a/web.yaml":     "x: 1\n",
	})

	_, err := Resolve(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes the configuration root")
}

func TestResolve_UnitFileFiltering(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":     "x: 1\n",
		"common/_values.yaml": "region: us\n",
		"common/_helper.yaml": "x: 2\n",
		"common/.hidden.yaml": "x: 3\n",
		"common/notes.txt":    "irrelevant\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.Contains(t, chains, "common/web.yaml")
	assert.Equal(t, map[string]any{"region": "us"}, chains["common/web.yaml"].Base().Params)
}

func TestResolve_ValuesFragmentsConsolidated(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":         "x: 1\n",
		"common/_values.yaml":     "region: us\n",
		"common/_values-net.yaml": "cidr: 10.0.0.0/8\n",
	})

	chains, err := Resolve(root)
	require.NoError(t, err)

	params := chains["common/web.yaml"].Base().Params
	assert.Equal(t, map[string]any{"region": "us", "cidr": "10.0.0.0/8"}, params)
}

func TestResolve_ValuesFragmentConflict(t *testing.T) {
	root := writeTree(t, map[string]string{
		"common/web.yaml":         "x: 1\n",
		"common/_values.yaml":     "region: us\n",
		"common/_values-dup.yaml": "region: eu\n",
	})

	_, err := Resolve(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestResolve_EmptyRoot(t *testing.T) {
	chains, err := Resolve(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, chains)
}
