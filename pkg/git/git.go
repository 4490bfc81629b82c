// Package git provides functions for interacting with git repositories
// by shelling out to the git CLI.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes git with the given arguments in dir and returns the
// captured standard output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// CommandError is returned when git exits non-zero.
type CommandError struct {
	Args   []string
	Dir    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s (in %s): %v", strings.Join(e.Args, " "), e.Dir, e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsCommandError reports whether err came from a failed git invocation.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

// ExecRunner runs the git binary found on PATH. Standard error is kept only
// for diagnostics; it never decides success.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	// #nosec G204 - arguments are built by this package, not a shell
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   args,
			Dir:    dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Repo is a git working copy operated through a Runner.
type Repo struct {
	Path   string
	runner Runner
}

// Open returns a Repo at path backed by the git binary.
func Open(path string) *Repo {
	return NewRepo(path, ExecRunner{})
}

// NewRepo returns a Repo at path that issues commands through runner.
func NewRepo(path string, runner Runner) *Repo {
	return &Repo{Path: path, runner: runner}
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return r.runner.Run(ctx, r.Path, args...)
}

// output runs git and trims surrounding whitespace from the result.
func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	out, err := r.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsRepo returns true if the given path is inside a git repository.
func IsRepo(path string) bool {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// CurrentBranch returns the name of the checked-out branch, or "" when
// HEAD is detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.output(ctx, "branch", "--show-current")
}

// LocalRef is one row of the local branch listing.
type LocalRef struct {
	FullRef  string
	Name     string
	Upstream string
	Track    string // e.g. "ahead 1, behind 2", "gone", or ""
	Head     bool
}

const localRefFormat = "--format=%(refname)%09%(refname:short)%09%(upstream:short)%09%(upstream:track,nobracket)%09%(HEAD)"

// LocalBranches lists local branches in ref order.
func (r *Repo) LocalBranches(ctx context.Context) ([]LocalRef, error) {
	out, err := r.run(ctx, "for-each-ref", localRefFormat, "refs/heads")
	if err != nil {
		return nil, err
	}
	var refs []LocalRef
	for _, line := range splitNonEmpty(out) {
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			continue
		}
		refs = append(refs, LocalRef{
			FullRef:  fields[0],
			Name:     fields[1],
			Upstream: fields[2],
			Track:    fields[3],
			Head:     strings.TrimSpace(fields[4]) == "*",
		})
	}
	return refs, nil
}

// RemoteRef is one row of the remote-tracking branch listing.
type RemoteRef struct {
	FullRef string
	Name    string
}

// RemoteBranches lists remote-tracking branches. Symbolic HEAD refs such as
// refs/remotes/origin/HEAD are not branches and are left out.
func (r *Repo) RemoteBranches(ctx context.Context) ([]RemoteRef, error) {
	out, err := r.run(ctx, "for-each-ref", "--format=%(refname)%09%(refname:short)", "refs/remotes")
	if err != nil {
		return nil, err
	}
	var refs []RemoteRef
	for _, line := range splitNonEmpty(out) {
		fullRef, name, ok := strings.Cut(line, "\t")
		if !ok || strings.HasSuffix(fullRef, "/HEAD") {
			continue
		}
		refs = append(refs, RemoteRef{FullRef: fullRef, Name: name})
	}
	return refs, nil
}

// MergedOutput returns the raw `git branch --merged base` listing, current
// branch marker included.
func (r *Repo) MergedOutput(ctx context.Context, base string) (string, error) {
	return r.run(ctx, "branch", "--no-color", "--merged", base)
}

// RemoteMergedOutput returns the raw `git branch -r --merged base` listing.
func (r *Repo) RemoteMergedOutput(ctx context.Context, base string) (string, error) {
	return r.run(ctx, "branch", "--no-color", "-r", "--merged", base)
}

// VerboseBranches returns the raw `git branch -vv` listing, which carries
// the "[origin/x: gone]" annotations.
func (r *Repo) VerboseBranches(ctx context.Context) (string, error) {
	return r.run(ctx, "branch", "--no-color", "-vv")
}

// LocalCommitDates maps each local branch to its last commit date.
func (r *Repo) LocalCommitDates(ctx context.Context) (map[string]time.Time, error) {
	return r.commitDates(ctx, "refs/heads")
}

// RemoteCommitDates maps each remote-tracking branch to its last commit date.
func (r *Repo) RemoteCommitDates(ctx context.Context) (map[string]time.Time, error) {
	return r.commitDates(ctx, "refs/remotes")
}

func (r *Repo) commitDates(ctx context.Context, prefix string) (map[string]time.Time, error) {
	out, err := r.run(ctx, "for-each-ref", "--format=%(refname:short)%09%(committerdate:iso-strict)", prefix)
	if err != nil {
		return nil, err
	}
	dates := make(map[string]time.Time)
	for _, line := range splitNonEmpty(out) {
		name, stamp, ok := strings.Cut(line, "\t")
		if !ok || stamp == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			continue
		}
		dates[name] = t
	}
	return dates, nil
}

// DefaultRemoteBranch returns the branch the remote's HEAD points to
// (e.g. "main" for refs/remotes/origin/HEAD -> refs/remotes/origin/main).
func (r *Repo) DefaultRemoteBranch(ctx context.Context, remote string) (string, error) {
	out, err := r.output(ctx, "symbolic-ref", "--quiet", "refs/remotes/"+remote+"/HEAD")
	if err != nil {
		return "", err
	}
	name := strings.TrimPrefix(out, "refs/remotes/"+remote+"/")
	if name == "" || name == out {
		return "", fmt.Errorf("unexpected symbolic ref %q for %s/HEAD", out, remote)
	}
	return name, nil
}

// BranchExists returns true if a local branch with the given name exists.
func (r *Repo) BranchExists(ctx context.Context, branch string) bool {
	_, err := r.run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// RemoteBranchExists returns true if the remote-tracking ref remote/branch exists.
func (r *Repo) RemoteBranchExists(ctx context.Context, remote, branch string) bool {
	_, err := r.run(ctx, "rev-parse", "--verify", "--quiet", "refs/remotes/"+remote+"/"+branch)
	return err == nil
}

// DeleteLocalBranch deletes a local branch. If force is true, uses -D instead of -d.
func (r *Repo) DeleteLocalBranch(ctx context.Context, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.run(ctx, "branch", flag, branch)
	return err
}

// DeleteRemoteBranch deletes a branch on the given remote.
func (r *Repo) DeleteRemoteBranch(ctx context.Context, remote, branch string) error {
	_, err := r.run(ctx, "push", remote, "--delete", branch)
	return err
}

// CreateBranch creates a branch at startPoint, or at HEAD when startPoint is empty.
func (r *Repo) CreateBranch(ctx context.Context, name, startPoint string) error {
	args := []string{"branch", name}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := r.run(ctx, args...)
	return err
}

// RenameBranch renames a local branch.
func (r *Repo) RenameBranch(ctx context.Context, oldName, newName string) error {
	_, err := r.run(ctx, "branch", "-m", oldName, newName)
	return err
}

// Checkout switches to the given branch.
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "checkout", branch)
	return err
}

// Merge merges branch into the checked-out branch.
func (r *Repo) Merge(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "merge", "--no-edit", branch)
	return err
}

// FetchPrune fetches from remote and prunes deleted remote-tracking refs.
func (r *Repo) FetchPrune(ctx context.Context, remote string) error {
	_, err := r.run(ctx, "fetch", "--prune", remote)
	return err
}

// RemoteURL returns the fetch URL of the given remote (usually "origin").
func (r *Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	return r.output(ctx, "remote", "get-url", remote)
}

// splitNonEmpty splits a newline-separated string and returns non-empty lines.
func splitNonEmpty(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
