package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-tools/strata/internal/ui"
	"github.com/strata-tools/strata/internal/update"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update strata to the latest version",
	Long: `Update strata to the latest version from GitHub releases.

Examples:
  strata update           # Update to latest version
  strata update --check   # Check for updates without installing`,
	Run: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only check for updates, don't install")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	ui.Blue.Printf("Current version: %s (%s)\n", version, update.Platform())
	ui.Blue.Println("Checking for updates...")

	if updateCheckOnly {
		release, available, err := update.Check(cmd.Context(), version)
		if err != nil {
			ui.Error("Failed to check for updates: %v", err)
			return
		}
		if !available {
			ui.Success("You're running the latest version!")
			return
		}
		ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
		printChangelog(release.Changelog)
		fmt.Println()
		ui.Blue.Println("To update, run: strata update")
		return
	}

	release, err := update.Apply(cmd.Context(), version)
	if err != nil {
		ui.Error("Update failed: %v", err)
		return
	}
	if release == nil {
		ui.Success("You're already running the latest version!")
		return
	}

	ui.Success("Successfully updated to version %s!", release.Version)
	printChangelog(release.Changelog)
	fmt.Println()
	ui.Blue.Println("Restart strata to use the new version.")
}

func printChangelog(changelog string) {
	if changelog == "" {
		return
	}

	fmt.Println()
	ui.Yellow.Println("What's new:")
	lines := strings.Split(changelog, "\n")
	maxLines := 10
	if len(lines) < maxLines {
		maxLines = len(lines)
	}
	for i := 0; i < maxLines; i++ {
		fmt.Printf("  %s\n", lines[i])
	}
	if len(lines) > maxLines {
		fmt.Printf("  ... (%d more lines)\n", len(lines)-maxLines)
	}
}
