package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/lock"
	"github.com/strata-tools/strata/internal/snapshot"
	"github.com/strata-tools/strata/internal/ui"
)

var rollbackYes bool

// snapshotsCmd lists output tree snapshots.
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List output tree snapshots",
	Long:  `List the snapshots taken of the output tree before each materialize pass.`,
	RunE:  runSnapshots,
}

// rollbackCmd restores the output tree from a snapshot.
var rollbackCmd = &cobra.Command{
	Use:   "rollback <name>",
	Short: "Restore the output tree from a snapshot",
	Long: `Replace the output tree with the contents of a snapshot. The swap is
atomic: the current tree is moved aside before the snapshot takes its
place, and moved back if the swap fails.

Examples:
  strata snapshots
  strata rollback snapshot-20260830-141503.000000000`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVarP(&rollbackYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(rollbackCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	snapshots, err := snapshot.List(cfg.SnapshotsDir)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	ui.Blue.Println("Available snapshots:")
	for _, snap := range snapshots {
		fmt.Printf("  %s  %s  (%d files)\n", snap.Name, snap.Created.Format("2006-01-02 15:04:05"), snap.FileCount)
	}
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !rollbackYes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to rollback without confirmation (use --yes)")
		}
		fmt.Printf("Replace %s with %s? [y/N] ", cfg.OutputDir, args[0])
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			return fmt.Errorf("rollback cancelled")
		}
	}

	return lock.WithLock(cfg.Root, "rollback", func() error {
		if err := snapshot.Restore(cfg.OutputDir, cfg.SnapshotsDir, args[0]); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		ui.Success("Restored output tree from %s", args[0])
		return nil
	})
}
