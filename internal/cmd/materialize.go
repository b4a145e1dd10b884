package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/diffcheck"
	"github.com/strata-tools/strata/internal/gitutil"
	"github.com/strata-tools/strata/internal/lock"
	"github.com/strata-tools/strata/internal/materializer"
	"github.com/strata-tools/strata/internal/render"
	"github.com/strata-tools/strata/internal/resolver"
	"github.com/strata-tools/strata/internal/snapshot"
	"github.com/strata-tools/strata/internal/ui"
)

var (
	materializeConcurrency int
	materializeDryRun      bool
	materializeNoSnapshot  bool
)

// materializeCmd renders every unit's override chain into the output tree.
var materializeCmd = &cobra.Command{
	Use:     "materialize [service]",
	Aliases: []string{"mat", "render"},
	Short:   "Render all units into the output tree",
	Long: `Render every unit's merged override chain into the output tree.

Unchanged outputs are left untouched, and files whose unit no longer
resolves are removed once the whole pass succeeds. With a service
argument, only that service's subtree is rendered and reconciled.

Examples:
  strata materialize              # Render the full workspace
  strata materialize billing      # Render only services/billing
  strata materialize -n           # Show what would change, write nothing
  strata materialize -j 16        # Widen the render worker pool`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMaterialize,
}

func init() {
	materializeCmd.Flags().IntVarP(&materializeConcurrency, "concurrency", "j", 0, "Bound the render worker pool (default from STRATA_CONCURRENCY or 4)")
	materializeCmd.Flags().BoolVarP(&materializeDryRun, "dry-run", "n", false, "Report what would change without writing")
	materializeCmd.Flags().BoolVar(&materializeNoSnapshot, "no-snapshot", false, "Skip the pre-write output snapshot")

	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sourceRoot := cfg.ServicesDir
	outputRoot := cfg.OutputDir
	if len(args) == 1 {
		sourceRoot = filepath.Join(cfg.ServicesDir, args[0])
		outputRoot = filepath.Join(cfg.OutputDir, args[0])
		if _, err := os.Stat(sourceRoot); err != nil {
			return fmt.Errorf("service not found: %s", args[0])
		}
	}

	if status, err := gitutil.Inspect(cfg.Root); err == nil && status != nil {
		if status.Dirty {
			ui.Warning("Workspace has uncommitted changes (%s@%s)", status.Branch, status.Commit[:8])
		} else {
			ui.Info("Workspace at %s@%s", status.Branch, status.Commit[:8])
		}
	}

	concurrency := cfg.Concurrency
	if materializeConcurrency > 0 {
		concurrency = materializeConcurrency
	}

	chains, err := resolver.Resolve(sourceRoot)
	if err != nil {
		return fmt.Errorf("resolve overrides: %w", err)
	}
	if len(chains) == 0 {
		fmt.Println("No units to materialize")
		return nil
	}

	mat := materializer.New(render.New())

	if materializeDryRun {
		return dryRunMaterialize(cmd, mat, chains, outputRoot, concurrency)
	}

	return lock.WithLock(cfg.Root, "materialize", func() error {
		if !materializeNoSnapshot {
			if name, err := snapshot.Create(outputRoot, cfg.SnapshotsDir); err != nil {
				ui.Warning("Snapshot failed: %v", err)
			} else if name != "" {
				ui.Info("Snapshot: %s", name)
			}
		}

		result, err := mat.Materialize(cmd.Context(), chains, outputRoot, concurrency)
		if result != nil {
			printResult(result)
		}
		return err
	})
}

// dryRunMaterialize renders the full pass into a scratch directory and
// reports the structural differences against the current output tree.
func dryRunMaterialize(cmd *cobra.Command, mat *materializer.Materializer, chains map[string]*resolver.OverrideChain, outputRoot string, concurrency int) error {
	scratch, err := os.MkdirTemp("", "strata-dryrun-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	ui.Step(1, "Rendering %d unit(s) into a scratch tree", len(chains))
	if _, err := mat.Materialize(cmd.Context(), chains, scratch, concurrency); err != nil {
		return err
	}

	ui.Step(2, "Comparing against the current output tree")
	current, err := diffcheck.LoadTree(outputRoot)
	if err != nil {
		return fmt.Errorf("load output tree: %w", err)
	}
	proposed, err := diffcheck.LoadTree(scratch)
	if err != nil {
		return fmt.Errorf("load rendered tree: %w", err)
	}

	result, err := diffcheck.New(nil).Diff(current, proposed)
	if err != nil {
		return err
	}

	changed := false
	for _, entry := range result.Entries {
		switch {
		case entry.OnlyIn == "a":
			ui.Red.Printf("  - %s (would be removed)\n", entry.UnitKey)
			changed = true
		case entry.OnlyIn == "b":
			ui.Green.Printf("  + %s (would be created)\n", entry.UnitKey)
			changed = true
		case entry.Class == diffcheck.Significant:
			ui.Yellow.Printf("  ~ %s\n", entry.UnitKey)
			for _, p := range entry.Paths {
				fmt.Printf("      %s\n", p)
			}
			changed = true
		}
	}
	if !changed {
		ui.Success("Output tree is up to date")
	}
	return nil
}

func printResult(result *materializer.Result) {
	if len(result.Written) > 0 {
		ui.Green.Printf("Written: %d\n", len(result.Written))
		for _, key := range result.Written {
			fmt.Printf("  %s\n", key)
		}
	}
	if len(result.Deleted) > 0 {
		ui.Yellow.Printf("Removed: %d\n", len(result.Deleted))
		for _, path := range result.Deleted {
			fmt.Printf("  %s\n", path)
		}
	}
	fmt.Printf("Up to date: %d\n", len(result.Skipped))

	if len(result.Failures) > 0 {
		ui.Red.Printf("Failed: %d\n", len(result.Failures))
		for _, failure := range result.Failures {
			fmt.Printf("  %s: %v\n", failure.UnitKey, failure.Err)
		}
	} else if !result.Changed() {
		ui.Success("Output tree is up to date")
	}
}
