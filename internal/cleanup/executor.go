package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrahamlincoln/sentei/internal/branches"
	"github.com/agrahamlincoln/sentei/internal/protect"
	"github.com/agrahamlincoln/sentei/pkg/git"
)

// Question identifies what the user is asked to confirm.
type Question int

const (
	// AskDelete confirms deleting the whole batch.
	AskDelete Question = iota
	// AskForce confirms force-deleting branches whose safe delete failed.
	AskForce
	// AskUntrackedRemote confirms deleting remote branches that share a name
	// with a deleted local branch but were never its upstream.
	AskUntrackedRemote
)

func (q Question) String() string {
	switch q {
	case AskDelete:
		return "delete"
	case AskForce:
		return "force"
	case AskUntrackedRemote:
		return "untracked_remote"
	default:
		return fmt.Sprintf("Question(%d)", int(q))
	}
}

// Prompter asks the user yes/no questions about the given branch names.
type Prompter interface {
	Confirm(q Question, names []string) (bool, error)
}

// Git defines the git operations needed by cleanup.
type Git interface {
	LocalBranches(ctx context.Context) ([]git.LocalRef, error)
	DeleteLocalBranch(ctx context.Context, branch string, force bool) error
	DeleteRemoteBranch(ctx context.Context, remote, branch string) error
	RemoteBranchExists(ctx context.Context, remote, branch string) bool
}

// Executor runs cleanup batches against one repository.
type Executor struct {
	git    Git
	prompt Prompter
	s      Settings
}

// NewExecutor creates an Executor. Settings are fixed for its lifetime.
func NewExecutor(g Git, p Prompter, s Settings) *Executor {
	if s.Remote == "" {
		s.Remote = "origin"
	}
	return &Executor{git: g, prompt: p, s: s}
}

// Cleanup deletes the requested local branches and, when asked, their
// remote counterparts. The returned error is reserved for problems that
// stop the batch (a failed prompt or upstream lookup); individual delete
// failures are reported in the Result.
func (e *Executor) Cleanup(ctx context.Context, req Request) (Result, error) {
	plan := NewPlan(req, e.s)
	res := Result{Reason: plan.Reason, Rejected: plan.Rejected}
	if plan.Empty() {
		return res, nil
	}

	if plan.Confirm {
		ok, err := e.prompt.Confirm(AskDelete, plan.Local)
		if err != nil {
			return res, fmt.Errorf("confirming deletion: %w", err)
		}
		if !ok {
			res.Cancelled = true
			return res, nil
		}
	}

	// Upstreams are gone from the config once a branch is deleted.
	var upstreams map[string]string
	if plan.IncludeRemote {
		var err error
		upstreams, err = e.upstreams(ctx)
		if err != nil {
			return res, err
		}
	}

	if err := e.deleteLocal(ctx, plan.Local, plan.Force, &res); err != nil {
		return res, err
	}

	if plan.IncludeRemote && len(res.Deleted) > 0 {
		if err := e.cascade(ctx, res.Deleted, upstreams, &res); err != nil {
			return res, err
		}
	}

	slog.Debug("cleanup finished", "reason", res.Reason,
		"deleted", len(res.Deleted), "failed", len(res.Failed),
		"deleted_remote", len(res.DeletedRemote), "failed_remote", len(res.FailedRemote))
	return res, nil
}

// DeleteSelection deletes hand-picked local and remote branches. Remote
// names are remote-tracking short names such as "origin/feature/x". There
// is no cascade between the two lists.
func (e *Executor) DeleteSelection(ctx context.Context, local, remote []string) (Result, error) {
	plan := NewPlan(Request{Names: local, Reason: branches.ReasonSelected}, e.s)
	res := Result{Reason: branches.ReasonSelected, Rejected: plan.Rejected}

	var targets []RemoteBranch
	for _, name := range remote {
		if protect.IsProtectedRemote(name, e.s.Protected) {
			res.Rejected = append(res.Rejected, name)
			continue
		}
		rb, ok := ParseRemoteBranch(name)
		if !ok {
			res.FailedRemote = append(res.FailedRemote, Failure{
				Name: name,
				Err:  fmt.Errorf("not a remote branch name: %q", name),
			})
			continue
		}
		targets = append(targets, rb)
	}

	if plan.Empty() && len(targets) == 0 {
		return res, nil
	}

	if plan.Confirm {
		all := append([]string{}, plan.Local...)
		for _, rb := range targets {
			all = append(all, rb.String())
		}
		ok, err := e.prompt.Confirm(AskDelete, all)
		if err != nil {
			return res, fmt.Errorf("confirming deletion: %w", err)
		}
		if !ok {
			res.Cancelled = true
			return res, nil
		}
	}

	if !plan.Empty() {
		if err := e.deleteLocal(ctx, plan.Local, plan.Force, &res); err != nil {
			return res, err
		}
	}
	for _, rb := range targets {
		e.deleteRemote(ctx, rb, &res)
	}
	return res, nil
}

// deleteLocal attempts every name independently. When safe deletes fail
// and force is off, the user may approve a forced retry of only the
// failed names.
func (e *Executor) deleteLocal(ctx context.Context, names []string, force bool, res *Result) error {
	var failed []Failure
	for _, name := range names {
		slog.Debug("deleting branch", "branch", name, "force", force)
		if err := e.git.DeleteLocalBranch(ctx, name, force); err != nil {
			failed = append(failed, Failure{Name: name, Err: err})
			continue
		}
		res.Deleted = append(res.Deleted, name)
	}

	if len(failed) == 0 || force {
		res.Failed = append(res.Failed, failed...)
		return nil
	}

	ok, err := e.prompt.Confirm(AskForce, failureNames(failed))
	if err != nil {
		res.Failed = append(res.Failed, failed...)
		return fmt.Errorf("confirming force delete: %w", err)
	}
	if !ok {
		res.Failed = append(res.Failed, failed...)
		return nil
	}

	for _, f := range failed {
		slog.Debug("force deleting branch", "branch", f.Name)
		if err := e.git.DeleteLocalBranch(ctx, f.Name, true); err != nil {
			res.Failed = append(res.Failed, Failure{Name: f.Name, Err: err})
			continue
		}
		res.Deleted = append(res.Deleted, f.Name)
		res.Forced = append(res.Forced, f.Name)
	}
	return nil
}

// cascade removes the remote side of deleted local branches. Tracked
// upstreams are deleted directly; same-named branches on the default
// remote need one confirmation for the whole batch.
func (e *Executor) cascade(ctx context.Context, deleted []string, upstreams map[string]string, res *Result) error {
	tracked, untracked := SplitCascade(deleted, upstreams)

	for _, rb := range tracked {
		if protect.IsProtected(rb.Branch, e.s.Protected) {
			res.Rejected = append(res.Rejected, rb.String())
			continue
		}
		e.deleteRemote(ctx, rb, res)
	}

	var collisions []RemoteBranch
	for _, name := range untracked {
		if protect.IsProtected(name, e.s.Protected) {
			continue
		}
		if e.git.RemoteBranchExists(ctx, e.s.Remote, name) {
			collisions = append(collisions, RemoteBranch{Remote: e.s.Remote, Branch: name})
		}
	}
	if len(collisions) == 0 {
		return nil
	}

	names := make([]string, len(collisions))
	for i, rb := range collisions {
		names[i] = rb.String()
	}
	ok, err := e.prompt.Confirm(AskUntrackedRemote, names)
	if err != nil {
		return fmt.Errorf("confirming remote deletion: %w", err)
	}
	if !ok {
		res.SkippedRemote = append(res.SkippedRemote, names...)
		return nil
	}
	for _, rb := range collisions {
		e.deleteRemote(ctx, rb, res)
	}
	return nil
}

// deleteRemote is best effort: a failure is recorded and the batch moves on.
func (e *Executor) deleteRemote(ctx context.Context, rb RemoteBranch, res *Result) {
	slog.Debug("deleting remote branch", "remote", rb.Remote, "branch", rb.Branch)
	if err := e.git.DeleteRemoteBranch(ctx, rb.Remote, rb.Branch); err != nil {
		slog.Warn("could not delete remote branch", "branch", rb.String(), "error", err)
		res.FailedRemote = append(res.FailedRemote, Failure{Name: rb.String(), Err: err})
		return
	}
	res.DeletedRemote = append(res.DeletedRemote, rb.String())
}

func (e *Executor) upstreams(ctx context.Context) (map[string]string, error) {
	refs, err := e.git.LocalBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading upstreams: %w", err)
	}
	m := make(map[string]string, len(refs))
	for _, r := range refs {
		if r.Upstream != "" {
			m[r.Name] = r.Upstream
		}
	}
	return m, nil
}
