// Package update performs in-place binary upgrades from strata's GitHub
// releases.
package update

import (
	"context"
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	repoOwner = "strata-tools"
	repoName  = "strata"
)

// Release describes a published release newer than the running binary.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

// Check reports whether a release newer than currentVersion exists.
func Check(ctx context.Context, currentVersion string) (*Release, bool, error) {
	_, latest, err := detectNewer(ctx, currentVersion)
	if err != nil || latest == nil {
		return nil, false, err
	}
	return describe(latest), true, nil
}

// Apply downloads the latest release and replaces the running executable.
// A nil release with a nil error means the binary is already current.
func Apply(ctx context.Context, currentVersion string) (*Release, error) {
	updater, latest, err := detectNewer(ctx, currentVersion)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("updating binary: %w", err)
	}
	return describe(latest), nil
}

// Platform returns the os/arch pair of the running binary.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

// detectNewer returns the latest release strictly newer than currentVersion,
// or a nil release when the binary is already current.
func detectNewer(ctx context.Context, currentVersion string) (*selfupdate.Updater, *selfupdate.Release, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, nil, fmt.Errorf("creating update source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, nil, fmt.Errorf("creating updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, nil, fmt.Errorf("detecting latest version: %w", err)
	}
	if !found || latest.LessOrEqual(currentVersion) {
		return updater, nil, nil
	}
	return updater, latest, nil
}

func describe(latest *selfupdate.Release) *Release {
	return &Release{
		Version:     latest.Version(),
		ReleaseURL:  latest.URL,
		PublishedAt: latest.PublishedAt.Format("2006-01-02"),
		Changelog:   latest.ReleaseNotes,
	}
}
