// Package snapshot preserves copies of the materialized output tree so a
// bad pass can be rolled back.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strata-tools/strata/internal/fileutil"
)

const (
	// Prefix is the prefix for snapshot directory names.
	Prefix = "snapshot-"

	// DateFormat includes nanoseconds to prevent same-second collisions.
	DateFormat = "20060102-150405.000000000"

	// MaxSnapshots is the number of snapshots retained by Cleanup.
	MaxSnapshots = 20
)

// Info holds metadata about one snapshot.
type Info struct {
	Name      string
	Path      string
	Created   time.Time
	FileCount int
}

// Create copies the output tree into a new snapshot and prunes old ones.
// Returns the snapshot name, or "" when there was nothing to snapshot.
func Create(outputDir, snapshotsDir string) (string, error) {
	if !dirHasContent(outputDir) {
		return "", nil
	}

	name := Prefix + time.Now().Format(DateFormat)
	path := filepath.Join(snapshotsDir, name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := fileutil.CopyDir(outputDir, path); err != nil {
		if cleanupErr := os.RemoveAll(path); cleanupErr != nil {
			return "", fmt.Errorf("copy output to snapshot: %w (cleanup also failed: %v)", err, cleanupErr)
		}
		return "", fmt.Errorf("copy output to snapshot: %w", err)
	}

	if err := Cleanup(snapshotsDir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup old snapshots: %v\n", err)
	}

	return name, nil
}

// List returns available snapshots sorted newest first.
func List(snapshotsDir string) ([]Info, error) {
	entries, err := os.ReadDir(snapshotsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		path := filepath.Join(snapshotsDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot read snapshot %s: %v\n", entry.Name(), err)
			continue
		}

		created, err := time.Parse(DateFormat, strings.TrimPrefix(entry.Name(), Prefix))
		if err != nil {
			created = info.ModTime()
		}

		snapshots = append(snapshots, Info{
			Name:      entry.Name(),
			Path:      path,
			Created:   created,
			FileCount: countFiles(path),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})

	return snapshots, nil
}

// Restore replaces the output tree with a snapshot's content. The swap is
// atomic: the snapshot is copied to a temp sibling first, then renamed
// into place, so a failed restore never leaves a half-written tree.
func Restore(outputDir, snapshotsDir, name string) error {
	snapshotPath := filepath.Join(snapshotsDir, name)
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return fmt.Errorf("snapshot not found: %s", name)
	}

	// Sibling names carry a random suffix so concurrent restores cannot
	// collide.
	restoreID := uuid.New().String()[:8]
	tempDir := outputDir + ".restore-temp-" + restoreID
	oldDir := outputDir + ".restore-old-" + restoreID

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp restore directory: %w", err)
	}
	if err := fileutil.CopyDir(snapshotPath, tempDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("copy snapshot to temp: %w", err)
	}

	_, statErr := os.Stat(outputDir)
	outputExists := statErr == nil

	if outputExists {
		if err := os.Rename(outputDir, oldDir); err != nil {
			os.RemoveAll(tempDir)
			return fmt.Errorf("rename current output: %w", err)
		}
	}

	if err := os.Rename(tempDir, outputDir); err != nil {
		if outputExists {
			if recoverErr := os.Rename(oldDir, outputDir); recoverErr != nil {
				os.RemoveAll(tempDir)
				return fmt.Errorf("rename temp to output: %w (recovery also failed: %v)", err, recoverErr)
			}
		}
		os.RemoveAll(tempDir)
		return fmt.Errorf("rename temp to output: %w", err)
	}

	if outputExists {
		os.RemoveAll(oldDir)
	}

	return nil
}

// Cleanup removes snapshots beyond the retention limit, continuing past
// individual failures.
func Cleanup(snapshotsDir string) error {
	snapshots, err := List(snapshotsDir)
	if err != nil {
		return err
	}
	if len(snapshots) <= MaxSnapshots {
		return nil
	}

	var errs []error
	for _, snap := range snapshots[MaxSnapshots:] {
		if err := os.RemoveAll(snap.Path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", snap.Name, err))
		}
	}
	return errors.Join(errs...)
}

func dirHasContent(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

func countFiles(dir string) int {
	count := 0
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	return count
}
