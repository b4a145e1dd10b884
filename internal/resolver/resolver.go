package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// metadata is the parsed form of a .strata.yaml file.
type metadata struct {
	// Overrides lists directories this node overrides, relative to the
	// node's own directory.
	Overrides []string `yaml:"overrides"`
}

// Resolve walks rootDir, builds the override graph, and returns one chain
// per unit, keyed by unit key. It fails with a CycleError if the override
// graph has a cycle and with an AmbiguousBaseError if a unit does not have
// exactly one base node reachable in its chain.
func Resolve(rootDir string) (map[string]*OverrideChain, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootDir, err)
	}

	nodes, err := discoverNodes(root)
	if err != nil {
		return nil, err
	}
	if err := attachImplicitEdges(nodes); err != nil {
		return nil, err
	}
	if err := checkAcyclic(nodes); err != nil {
		return nil, err
	}

	return buildChains(nodes)
}

// discoverNodes finds every directory that owns unit files or carries
// override metadata, and loads each node's metadata and parameter set.
func discoverNodes(root string) (map[string]*ConfigNode, error) {
	nodes := make(map[string]*ConfigNode)

	err := filepath.WalkDir(root, func(dir string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read directory %s: %w", dir, err)
		}

		var units []string
		hasMeta := false
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if name == MetadataFile {
				hasMeta = true
				continue
			}
			if isUnitFile(name) {
				units = append(units, name)
			}
		}
		if len(units) == 0 && !hasMeta {
			return nil
		}

		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", dir, err)
		}
		rel = filepath.ToSlash(rel)

		sort.Strings(units)
		node := &ConfigNode{Dir: dir, Rel: rel, Units: units}

		if hasMeta {
			meta, err := loadMetadata(filepath.Join(dir, MetadataFile))
			if err != nil {
				return err
			}
			for _, target := range meta.Overrides {
				targetRel, err := resolveTarget(root, dir, target)
				if err != nil {
					return err
				}
				node.Overrides = append(node.Overrides, targetRel)
			}
			node.Explicit = len(node.Overrides) > 0
		}

		params, err := loadValues(dir, entries)
		if err != nil {
			return err
		}
		node.Params = params

		nodes[rel] = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Metadata may point at directories that are not nodes themselves.
	for _, node := range nodes {
		for _, target := range node.Overrides {
			if _, ok := nodes[target]; !ok {
				return nil, fmt.Errorf("node %s: override target %s is not a configuration directory", node.Rel, target)
			}
		}
	}

	return nodes, nil
}

// isUnitFile reports whether a file name is a unit template. Underscore
// prefixed files are values fragments or helpers, never units.
func isUnitFile(name string) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func loadMetadata(path string) (*metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	var meta metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return &meta, nil
}

// resolveTarget turns a metadata override path, relative to the node's
// directory, into a root-relative slash path. Targets must stay inside the
// resolve root.
func resolveTarget(root, nodeDir, target string) (string, error) {
	abs := filepath.Join(nodeDir, target)
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("override target %s escapes the configuration root", target)
	}
	return filepath.ToSlash(rel), nil
}

// attachImplicitEdges gives every node without an explicit declaration an
// implicit edge to its nearest ancestor node. Nodes with no ancestor become
// bases.
func attachImplicitEdges(nodes map[string]*ConfigNode) error {
	for _, node := range nodes {
		if node.Explicit || node.Rel == "." {
			continue
		}
		for rel := path.Dir(node.Rel); ; rel = path.Dir(rel) {
			if ancestor, ok := nodes[rel]; ok {
				node.Overrides = []string{ancestor.Rel}
				break
			}
			if rel == "." || rel == "/" {
				break
			}
		}
	}
	return nil
}

// checkAcyclic runs a depth-first search over the override edges and
// returns a CycleError naming the cycle if one exists.
func checkAcyclic(nodes map[string]*ConfigNode) error {
	const (
		white = iota // unvisited
		gray         // on the current stack
		black        // done
	)
	color := make(map[string]int, len(nodes))
	var stack []string

	var visit func(rel string) *CycleError
	visit = func(rel string) *CycleError {
		color[rel] = gray
		stack = append(stack, rel)

		for _, target := range nodes[rel].Overrides {
			switch color[target] {
			case gray:
				// Slice the stack down to where the cycle starts.
				start := 0
				for i, s := range stack {
					if s == target {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), target)
				return &CycleError{Path: cycle}
			case white:
				if err := visit(target); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[rel] = black
		return nil
	}

	for _, rel := range sortedKeys(nodes) {
		if color[rel] == white {
			if err := visit(rel); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildChains enumerates units from their owning nodes and assembles one
// totally ordered chain per unit key.
func buildChains(nodes map[string]*ConfigNode) (map[string]*OverrideChain, error) {
	// Unit key -> owning nodes whose chain resolves to that key.
	owners := make(map[string][]*ConfigNode)
	units := make(map[string]string)

	for _, rel := range sortedKeys(nodes) {
		node := nodes[rel]
		for _, unit := range node.Units {
			reach := reachable(node, nodes)

			var bases []string
			for _, r := range reach {
				if len(r.Overrides) == 0 {
					bases = append(bases, r.Rel)
				}
			}
			sort.Strings(bases)
			if len(bases) != 1 {
				return nil, &AmbiguousBaseError{UnitKey: unitKey(node.Rel, unit), Bases: bases}
			}

			key := unitKey(bases[0], unit)
			owners[key] = append(owners[key], node)
			units[key] = unit
		}
	}

	chains := make(map[string]*OverrideChain, len(owners))
	for key, contributors := range owners {
		ordered := orderContributors(contributors, nodes)
		chains[key] = &OverrideChain{
			UnitKey: key,
			Unit:    units[key],
			Nodes:   ordered,
		}
	}
	return chains, nil
}

func unitKey(baseRel, unit string) string {
	if baseRel == "." {
		return unit
	}
	return baseRel + "/" + unit
}

// reachable returns the node plus every node reachable over override edges.
func reachable(node *ConfigNode, nodes map[string]*ConfigNode) []*ConfigNode {
	seen := map[string]bool{node.Rel: true}
	queue := []*ConfigNode{node}
	var result []*ConfigNode

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		result = append(result, cur)
		for _, target := range cur.Overrides {
			if !seen[target] {
				seen[target] = true
				queue = append(queue, nodes[target])
			}
		}
	}
	return result
}

// orderContributors topologically sorts contributing nodes so a node only
// appears after every node it overrides. Independent contributors are
// ordered implicit-before-explicit, then by directory listing order, so
// that an explicit declaration outranks the proximity default and the last
// sibling in listing order outranks its peers.
func orderContributors(contributors []*ConfigNode, nodes map[string]*ConfigNode) []*ConfigNode {
	inSet := make(map[string]*ConfigNode, len(contributors))
	for _, c := range contributors {
		inSet[c.Rel] = c
	}

	// after[x] = contributors that must be emitted before x.
	after := make(map[string]map[string]bool, len(contributors))
	for _, c := range contributors {
		deps := make(map[string]bool)
		for _, r := range reachable(c, nodes) {
			if r.Rel != c.Rel && inSet[r.Rel] != nil {
				deps[r.Rel] = true
			}
		}
		after[c.Rel] = deps
	}

	emitted := make(map[string]bool, len(contributors))
	ordered := make([]*ConfigNode, 0, len(contributors))

	for len(ordered) < len(contributors) {
		var ready []*ConfigNode
		for _, c := range contributors {
			if emitted[c.Rel] {
				continue
			}
			ok := true
			for dep := range after[c.Rel] {
				if !emitted[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, c)
			}
		}

		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Explicit != ready[j].Explicit {
				return !ready[i].Explicit
			}
			return ready[i].Rel < ready[j].Rel
		})

		next := ready[0]
		emitted[next.Rel] = true
		ordered = append(ordered, next)
	}

	return ordered
}

func sortedKeys(nodes map[string]*ConfigNode) []string {
	keys := make([]string, 0, len(nodes))
	for k := range nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
