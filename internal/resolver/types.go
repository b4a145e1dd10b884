// Package resolver discovers configuration directories and decides, for each
// logical unit, which directories contribute to it and in what precedence
// order.
//
// A directory becomes a ConfigNode when it owns unit template files or
// carries a .strata.yaml metadata file. Metadata declares which other
// directories the node overrides. A node nested under another node with no
// declaration of its own implicitly overrides its nearest ancestor node
// (directory-proximity default); an explicit declaration always replaces the
// implicit edge.
package resolver

import "path/filepath"

// MetadataFile is the per-directory override metadata file name.
const MetadataFile = ".strata.yaml"

// ConfigNode is a directory in the source tree. Nodes are discovered once
// per run and are immutable for the run's duration.
type ConfigNode struct {
	// Dir is the absolute path of the directory.
	Dir string

	// Rel is the directory path relative to the resolve root, slash-separated.
	Rel string

	// Overrides lists the root-relative paths of the directories this node
	// overrides. Empty for base nodes.
	Overrides []string

	// Explicit is true when the override relationship was declared in the
	// node's metadata rather than inferred from directory nesting.
	Explicit bool

	// Units are the unit file names this node owns.
	Units []string

	// Params holds the node's own parameter set, consolidated from its
	// _values*.yaml fragments.
	Params map[string]any
}

// TemplatePath returns the path of this node's template file for a unit.
func (n *ConfigNode) TemplatePath(unit string) string {
	return filepath.Join(n.Dir, unit)
}

// OverrideChain is the totally ordered sequence of nodes contributing to one
// unit, lowest to highest precedence. The first node is always the base.
type OverrideChain struct {
	// UnitKey identifies the unit: the base node's relative path joined
	// with the unit file name, slash-separated.
	UnitKey string

	// Unit is the unit file name within each contributing directory.
	Unit string

	// Nodes are the contributing nodes in merge order.
	Nodes []*ConfigNode
}

// Base returns the chain's base node.
func (c *OverrideChain) Base() *ConfigNode {
	return c.Nodes[0]
}
