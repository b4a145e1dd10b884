// Package cmd provides the CLI commands for strata.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/ui"
)

const version = "0.4.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Layered configuration materializer",
	Long: `strata - layered configuration materializer

Renders a tree of layered YAML configuration into concrete manifests,
merging each unit's override chain from base to most specific.

WORKSPACE COMMANDS
  materialize [service]  Render all units into the output tree
    --concurrency, -j    Bound the render worker pool
    --dry-run, -n        Report what would change without writing
    --no-snapshot        Skip the pre-write output snapshot
  resolve [service]      Show each unit's override chain
  diff <dir-a> <dir-b>   Compare two materialized trees
    --ignore, -i <path>  Treat a dotted path as noise (repeatable)
    --baseline <dir>     Warn on regressions against a baseline tree

PATCH COMMANDS
  quickpatch <service> <patch>  Apply a predefined patch to materialized output
    --set, -s key=value         Supply a patch argument (repeatable)
    --list, -l                  List available patches for the service

DIAGNOSTICS
  doctor                 Check the workspace for problems

SNAPSHOT COMMANDS
  snapshots              List output tree snapshots
  rollback <name>        Restore the output tree from a snapshot

MAINTENANCE
  update                 Update strata to the latest release
    --check              Check without installing`,
	Version: version,
	// Errors are reported once, through ui.Fatal in Execute.
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Fatal("%v", err)
	}
}

func init() {
	rootCmd.SetVersionTemplate("strata version {{.Version}}\n")
}
