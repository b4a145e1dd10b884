package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/diffcheck"
	"github.com/strata-tools/strata/internal/ui"
)

var (
	diffIgnorePaths []string
	diffBaseline    string
)

// diffCmd compares two materialized trees and classifies the differences.
var diffCmd = &cobra.Command{
	Use:   "diff <dir-a> <dir-b>",
	Short: "Compare two materialized trees",
	Long: `Compare two materialized output trees unit by unit. Differences on
ignored paths are reported as noise and do not affect the exit status;
anything else is significant and makes the command fail.

Ignore paths are dotted, with * matching exactly one segment, and match
as prefixes ("metadata.labels" covers everything beneath it).

Examples:
  strata diff materialized/ /tmp/proposed/
  strata diff -i metadata.annotations -i 'spec.*.checksum' a/ b/
  strata diff --baseline release-42/ a/ b/`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringArrayVarP(&diffIgnorePaths, "ignore", "i", nil, "Dotted path to treat as noise (repeatable)")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "", "Baseline tree for regression warnings")
	diffCmd.SilenceUsage = true

	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	treeA, err := diffcheck.LoadTree(args[0])
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}
	treeB, err := diffcheck.LoadTree(args[1])
	if err != nil {
		return fmt.Errorf("load %s: %w", args[1], err)
	}

	analyzer := diffcheck.New(diffIgnorePaths)
	result, err := analyzer.Diff(treeA, treeB)
	if err != nil {
		return err
	}

	for _, entry := range result.Entries {
		switch {
		case entry.OnlyIn != "":
			side := args[0]
			if entry.OnlyIn == "b" {
				side = args[1]
			}
			ui.Red.Printf("%s: only in %s\n", entry.UnitKey, side)
		case entry.Class == diffcheck.Significant:
			ui.Red.Printf("%s:\n", entry.UnitKey)
			for _, p := range entry.Paths {
				fmt.Printf("  %s\n", p)
			}
			for _, p := range entry.IgnoredPaths {
				ui.Yellow.Printf("  %s (noise)\n", p)
			}
		case entry.Class == diffcheck.Noise:
			ui.Yellow.Printf("%s: noise only\n", entry.UnitKey)
			for _, p := range entry.IgnoredPaths {
				fmt.Printf("  %s\n", p)
			}
		}
	}

	if diffBaseline != "" {
		if err := warnRegressions(analyzer, diffBaseline, treeA, result); err != nil {
			return err
		}
	}

	if result.HasSignificant() {
		return fmt.Errorf("significant differences found")
	}
	ui.Success("No significant differences")
	return nil
}

// warnRegressions flags units that were clean against the baseline but now
// differ significantly.
func warnRegressions(analyzer *diffcheck.Analyzer, baselineDir string, treeA diffcheck.Tree, cur *diffcheck.DiffResult) error {
	baseline, err := diffcheck.LoadTree(baselineDir)
	if err != nil {
		return fmt.Errorf("load baseline %s: %w", baselineDir, err)
	}

	prev, err := analyzer.Diff(baseline, treeA)
	if err != nil {
		return err
	}

	for _, key := range analyzer.Regressions(prev, cur) {
		ui.Warning("Regression: %s was clean against the baseline", key)
	}
	return nil
}
