package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/config"
	"github.com/strata-tools/strata/internal/resolver"
	"github.com/strata-tools/strata/internal/ui"
)

// resolveCmd prints each unit's override chain without rendering anything.
var resolveCmd = &cobra.Command{
	Use:     "resolve [service]",
	Aliases: []string{"chains"},
	Short:   "Show each unit's override chain",
	Long: `Resolve the override graph and print, for every unit, the ordered
list of directories that contribute to it, base first.

Examples:
  strata resolve              # All units in the workspace
  strata resolve billing      # Only units under services/billing`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	chains, err := resolver.Resolve(cfg.ServicesDir)
	if err != nil {
		return fmt.Errorf("resolve overrides: %w", err)
	}

	var prefix string
	if len(args) == 1 {
		prefix = args[0] + "/"
	}

	keys := make([]string, 0, len(chains))
	for key := range chains {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		fmt.Println("No units found")
		return nil
	}

	ui.Header("Override chains (%d unit(s))", len(keys))
	for _, key := range keys {
		chain := chains[key]
		ui.Bold.Println(key)
		for i, node := range chain.Nodes {
			marker := "base"
			if i > 0 {
				marker = "override"
			}
			fmt.Printf("  %d. %-8s %s\n", i+1, marker, node.Rel)
		}
	}

	return nil
}
