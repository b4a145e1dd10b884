package diffcheck

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/strata-tools/strata/internal/document"
)

// Tree is a manifest tree: unit keys mapped to their documents.
type Tree = map[string]document.Document

// LoadTree reads every manifest file under dir into a Tree keyed by the
// file's relative slash path. A missing directory yields an empty tree; a
// file that does not parse as a structured document is a
// TreeComparisonError.
func LoadTree(dir string) (Tree, error) {
	tree := make(Tree)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		doc, err := document.Load(path)
		if err != nil {
			return &TreeComparisonError{Path: path, Err: err}
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}
