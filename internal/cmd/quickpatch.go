package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/document"
	"github.com/strata-tools/strata/internal/fileutil"
	"github.com/strata-tools/strata/internal/lock"
	"github.com/strata-tools/strata/internal/materializer"
	"github.com/strata-tools/strata/internal/quickpatch"
	"github.com/strata-tools/strata/internal/ui"
)

var (
	quickpatchSet  []string
	quickpatchList bool
)

// quickpatchCmd applies a predefined patch to materialized output.
var quickpatchCmd = &cobra.Command{
	Use:     "quickpatch <service> [patch]",
	Aliases: []string{"qp"},
	Short:   "Apply a predefined patch to materialized output",
	Long: `Apply one of a service's predefined patches to its materialized
output. Patch definitions live under services/<service>/quickpatches and
declare the arguments they accept and the only resources they may touch.

Arguments are validated against the patch schema and the whole operation
list is applied atomically: either every target file is rewritten or
none is.

Examples:
  strata quickpatch billing --list
  strata quickpatch billing bump-replicas -s replicas=5`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuickpatch,
}

func init() {
	quickpatchCmd.Flags().StringArrayVarP(&quickpatchSet, "set", "s", nil, "Patch argument as key=value (repeatable)")
	quickpatchCmd.Flags().BoolVarP(&quickpatchList, "list", "l", false, "List available patches for the service")

	rootCmd.AddCommand(quickpatchCmd)
}

func runQuickpatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	service := args[0]
	patchesDir := cfg.PatchesDir(service)

	if quickpatchList {
		return listPatches(patchesDir)
	}
	if len(args) < 2 {
		return fmt.Errorf("patch name required (use --list to see available patches)")
	}

	def, err := loadPatch(patchesDir, args[1])
	if err != nil {
		return err
	}

	params, err := parseSetFlags(quickpatchSet)
	if err != nil {
		return err
	}

	// The whole read-patch-write cycle holds the workspace lock so a
	// concurrent materialize pass cannot interleave with a multi-file
	// patch write.
	return lock.WithLock(cfg.Root, "quickpatch", func() error {
		// Mappings name targets by their unit key in the output tree.
		// Load every mapped target up front so a missing file is
		// reported before any document is touched.
		targets := make(map[string]document.Document, len(def.Mappings))
		for _, unitKey := range def.Mappings {
			doc, err := document.Load(filepath.Join(cfg.OutputDir, filepath.FromSlash(unitKey)))
			if err != nil {
				return fmt.Errorf("load target %s: %w", unitKey, err)
			}
			targets[unitKey] = doc
		}

		patched, err := quickpatch.Apply(def, params, targets)
		if err != nil {
			return err
		}

		unitKeys := make([]string, 0, len(patched))
		for unitKey := range patched {
			unitKeys = append(unitKeys, unitKey)
		}
		sort.Strings(unitKeys)

		for _, unitKey := range unitKeys {
			if document.Equal(targets[unitKey], patched[unitKey]) {
				continue
			}
			data, err := materializer.Encode(patched[unitKey])
			if err != nil {
				return fmt.Errorf("encode %s: %w", unitKey, err)
			}
			path := filepath.Join(cfg.OutputDir, filepath.FromSlash(unitKey))
			if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", unitKey, err)
			}
			ui.Green.Printf("Patched %s\n", unitKey)
		}

		return nil
	})
}

func listPatches(patchesDir string) error {
	entries, err := os.ReadDir(patchesDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No patches defined")
			return nil
		}
		return fmt.Errorf("read patches directory: %w", err)
	}

	found := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		def, err := quickpatch.Load(filepath.Join(patchesDir, e.Name()))
		if err != nil {
			ui.Yellow.Printf("  %s (invalid: %v)\n", e.Name(), err)
			found = true
			continue
		}
		ui.Bold.Printf("  %s\n", def.Name)
		if args := def.Arguments(); len(args) > 0 {
			fmt.Printf("    arguments: %s\n", strings.Join(args, ", "))
		}
		fmt.Printf("    resources: %s\n", strings.Join(def.Resources(), ", "))
		found = true
	}
	if !found {
		fmt.Println("No patches defined")
	}
	return nil
}

func loadPatch(patchesDir, name string) (*quickpatch.Definition, error) {
	path := filepath.Join(patchesDir, name+".yaml")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("patch not found: %s", name)
	}
	return quickpatch.Load(path)
}

// parseSetFlags turns repeated key=value flags into typed parameters.
// Values go through the YAML scalar parser so numbers and booleans keep
// their types.
func parseSetFlags(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q (expected key=value)", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}
