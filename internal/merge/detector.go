// Package merge finds branches that were merged on GitHub even though git
// does not see them as merged. Squash and rebase merges rewrite commits,
// so only the pull request state tells.
package merge

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agrahamlincoln/sentei/internal/github"
)

// PRChecker defines the GitHub API operations needed for merge detection.
type PRChecker interface {
	BranchPRState(owner, repo, branch string) (github.PRState, error)
}

// maxLookups bounds concurrent PR lookups per repository.
const maxLookups = 4

// Detector looks up pull request state for branches of GitHub-hosted
// repositories.
type Detector struct {
	pr PRChecker
}

// NewDetector creates a Detector. In production, pass the GitHub client
// even without authentication -- API errors degrade gracefully to
// "not merged".
func NewDetector(pr PRChecker) *Detector {
	return &Detector{pr: pr}
}

// MergedViaPR returns the branches, in input order, whose most recent pull
// request on the repository behind remoteURL was merged. Non-GitHub
// remotes and failed lookups yield nothing.
func (d *Detector) MergedViaPR(remoteURL string, branches []string) []string {
	if d.pr == nil || len(branches) == 0 {
		return nil
	}
	owner, repo, ok := github.ParseGitHubRemote(remoteURL)
	if !ok {
		slog.Debug("non-GitHub remote, skipping PR check", "url", remoteURL)
		return nil
	}

	merged := make([]bool, len(branches))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxLookups)
	for i, branch := range branches {
		g.Go(func() error {
			if d.isPRMerged(owner, repo, branch) {
				mu.Lock()
				merged[i] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var result []string
	for i, branch := range branches {
		if merged[i] {
			result = append(result, branch)
		}
	}
	return result
}

// isPRMerged queries the GitHub API for the PR state of a single branch.
// Any error is logged and treated as "not merged".
func (d *Detector) isPRMerged(owner, repo, branch string) bool {
	state, err := d.pr.BranchPRState(owner, repo, branch)
	if err != nil {
		slog.Warn("PR check failed, assuming not merged",
			"repo", owner+"/"+repo, "branch", branch, "error", err)
		return false
	}
	return state == github.PRStateMerged
}
