// Package helpers provides test utilities for creating git repositories and scenarios.
package helpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRepo represents a test git repository
type TestRepo struct {
	Path string
	t    *testing.T
}

// NewTestRepo creates a new test repository in a temporary directory with
// "main" checked out and one initial commit.
func NewTestRepo(t *testing.T, name string) *TestRepo {
	t.Helper()

	repoPath := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(repoPath, 0750); err != nil {
		t.Fatalf("Failed to create test repo directory: %v", err)
	}

	repo := &TestRepo{
		Path: repoPath,
		t:    t,
	}

	repo.Git("init", "--initial-branch=main")
	repo.Git("config", "user.name", "Test User")
	repo.Git("config", "user.email", "test@example.com")
	repo.Git("config", "commit.gpgsign", "false")

	repo.WriteFile("README.md", "# Test Repository\n")
	repo.AddFile("README.md")
	repo.CommitWithDate("Initial commit", time.Now())

	return repo
}

// NewTestRepoWithRemote creates a test repository with a bare "origin"
// remote. main is pushed with upstream tracking and origin/HEAD points at it.
func NewTestRepoWithRemote(t *testing.T, name string) *TestRepo {
	t.Helper()

	bare := filepath.Join(t.TempDir(), name+".git")
	// #nosec G204 - git command with controlled inputs in test code
	cmd := exec.Command("git", "init", "--bare", "--initial-branch=main", bare)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to create bare remote: %v\n%s", err, out)
	}

	repo := NewTestRepo(t, name)
	repo.AddRemote("origin", bare)
	repo.PushUpstream("origin", "main")
	repo.Git("remote", "set-head", "origin", "main")
	return repo
}

// WriteFile writes a file to the repository
func (r *TestRepo) WriteFile(filename, content string) {
	r.t.Helper()
	path := filepath.Join(r.Path, filename)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		r.t.Fatalf("Failed to write file %s: %v", filename, err)
	}
}

// AddFile stages a file for commit
func (r *TestRepo) AddFile(filename string) {
	r.t.Helper()
	r.Git("add", filename)
}

// Commit creates a commit with the current timestamp
func (r *TestRepo) Commit(message string) {
	r.t.Helper()
	r.CommitWithDate(message, time.Now())
}

// CommitWithDate creates a commit with a specific timestamp
// This is crucial for testing stale branch detection without waiting 30 days!
func (r *TestRepo) CommitWithDate(message string, date time.Time) {
	r.t.Helper()
	dateStr := date.Format(time.RFC3339)
	// #nosec G204 - git command with controlled inputs in test code
	cmd := exec.Command("git", "commit", "-m", message, "--date", dateStr)
	cmd.Dir = r.Path
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("GIT_AUTHOR_DATE=%s", dateStr),
		fmt.Sprintf("GIT_COMMITTER_DATE=%s", dateStr),
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		r.t.Fatalf("Failed to commit: %v\n%s", err, output)
	}
}

// CommitFile writes, stages, and commits a single file.
func (r *TestRepo) CommitFile(filename, message string, date time.Time) {
	r.t.Helper()
	r.WriteFile(filename, message+"\n")
	r.AddFile(filename)
	r.CommitWithDate(message, date)
}

// CreateBranch creates a new branch and checks it out
func (r *TestRepo) CreateBranch(name string) {
	r.t.Helper()
	r.Git("checkout", "-b", name)
}

// Checkout switches to a branch
func (r *TestRepo) Checkout(branch string) {
	r.t.Helper()
	r.Git("checkout", branch)
}

// Merge merges a branch into the current branch
func (r *TestRepo) Merge(branch string) {
	r.t.Helper()
	r.Git("merge", "--no-ff", branch, "-m", fmt.Sprintf("Merge branch '%s'", branch))
}

// AddRemote adds a remote to the repository
func (r *TestRepo) AddRemote(name, url string) {
	r.t.Helper()
	r.Git("remote", "add", name, url)
}

// Push pushes to a remote without configuring upstream tracking
func (r *TestRepo) Push(remote, branch string) {
	r.t.Helper()
	r.Git("push", remote, branch)
}

// PushUpstream pushes to a remote and records it as the branch's upstream
func (r *TestRepo) PushUpstream(remote, branch string) {
	r.t.Helper()
	r.Git("push", "-u", remote, branch)
}

// DeleteOnRemote deletes a branch on the remote and prunes the local
// remote-tracking ref, leaving any local upstream configuration "gone".
func (r *TestRepo) DeleteOnRemote(remote, branch string) {
	r.t.Helper()
	r.Git("push", remote, "--delete", branch)
	r.Git("fetch", "--prune", remote)
}

// CurrentBranch returns the current branch name
func (r *TestRepo) CurrentBranch() string {
	r.t.Helper()
	return r.Output("branch", "--show-current")
}

// Branches returns a list of all local branch names
func (r *TestRepo) Branches() []string {
	r.t.Helper()
	return splitLines(r.Output("branch", "--format=%(refname:short)"))
}

// RemoteBranches returns a list of all remote-tracking branch names
func (r *TestRepo) RemoteBranches() []string {
	r.t.Helper()
	return splitLines(r.Output("branch", "-r", "--format=%(refname:short)"))
}

// HasBranch reports whether a local branch exists
func (r *TestRepo) HasBranch(name string) bool {
	r.t.Helper()
	for _, b := range r.Branches() {
		if b == name {
			return true
		}
	}
	return false
}

// Git executes a git command in the repository and fails the test on error
func (r *TestRepo) Git(args ...string) {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	if output, err := cmd.CombinedOutput(); err != nil {
		r.t.Fatalf("Git command failed: git %v\n%s", args, output)
	}
}

// Output executes a git command and returns its trimmed stdout
func (r *TestRepo) Output(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	output, err := cmd.Output()
	if err != nil {
		r.t.Fatalf("Git command failed: git %v: %v", args, err)
	}
	return strings.TrimSpace(string(output))
}

// splitLines splits a string by newlines, dropping empty lines
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
