// Package gitutil inspects the workspace's git state. Commands that hand
// manifests to the apply path use it to refuse to run from a dirty tree.
package gitutil

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// Status describes the workspace repository state.
type Status struct {
	// Branch is the current branch name, or "" when detached.
	Branch string

	// Commit is the HEAD commit hash.
	Commit string

	// Dirty is true when the worktree has uncommitted changes.
	Dirty bool
}

// Inspect opens the repository containing dir and reports its status.
// A directory outside any repository returns (nil, nil): strata works in
// non-versioned workspaces, it just cannot vouch for them.
func Inspect(dir string) (*Status, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("read HEAD: %w", err)
	}

	status := &Status{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		status.Branch = head.Name().Short()
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	wtStatus, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("read worktree status: %w", err)
	}
	status.Dirty = !wtStatus.IsClean()

	return status, nil
}
