package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/snapshot"
)

// completeServiceNames completes top-level service directory names.
func completeServiceNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	entries, err := os.ReadDir(cfg.ServicesDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), toComplete) {
			names = append(names, e.Name())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completePatchNames completes patch names for the service already on the
// command line.
func completePatchNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return completeServiceNames(cmd, args, toComplete)
	}
	if len(args) > 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	entries, err := os.ReadDir(cfg.PatchesDir(args[0]))
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".yaml")
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeSnapshotNames completes snapshot names for rollback.
func completeSnapshotNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	snapshots, err := snapshot.List(cfg.SnapshotsDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Name, toComplete) {
			names = append(names, snap.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// registerCompletions wires dynamic completions once every command exists.
func registerCompletions() {
	materializeCmd.ValidArgsFunction = completeServiceNames
	resolveCmd.ValidArgsFunction = completeServiceNames
	quickpatchCmd.ValidArgsFunction = completePatchNames
	rollbackCmd.ValidArgsFunction = completeSnapshotNames
}

func init() {
	// Deferred so registration runs after every command's own init.
	cobra.OnInitialize(registerCompletions)
}
