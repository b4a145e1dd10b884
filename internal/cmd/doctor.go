package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/preflight"
	"github.com/strata-tools/strata/internal/ui"
)

// doctorCmd runs workspace checks without touching the output tree.
var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"check"},
	Short:   "Check the workspace for problems",
	Long: `Run every workspace check: metadata files parse, the override graph
resolves, and the output tree is writable. Problems that would fail a
materialize pass are errors; everything else is a warning.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.SilenceUsage = true
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	warnings, errors := preflight.CheckAll(cfg)

	for _, w := range warnings {
		ui.Warning("%s", w)
	}
	for _, e := range errors {
		ui.Error("%s", e)
	}

	if len(errors) > 0 {
		return fmt.Errorf("%d problem(s) found", len(errors))
	}
	ui.Success("Workspace looks good")
	return nil
}
