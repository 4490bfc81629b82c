package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agrahamlincoln/sentei/internal/branches"
	"github.com/agrahamlincoln/sentei/internal/cleanup"
	"github.com/agrahamlincoln/sentei/internal/config"
	"github.com/agrahamlincoln/sentei/internal/metrics"
	"github.com/agrahamlincoln/sentei/pkg/git"
)

// CleanCmd deletes every local branch flagged for one reason.
type CleanCmd struct {
	Merged bool `help:"Delete branches merged into the base branch." xor:"reason"`
	Stale  bool `help:"Delete branches with no commits for stale_days." xor:"reason"`
	Gone   bool `help:"Delete branches whose upstream was deleted." xor:"reason"`

	Remote    bool `help:"Also delete the remote counterparts." xor:"remote"`
	LocalOnly bool `name:"local-only" help:"Never delete remote branches." xor:"remote"`
	Select    bool `short:"s" help:"Choose which candidates to delete."`
	Yes       bool `short:"y" help:"Do not ask before deleting (overrides confirm_before_delete)."`
	Force     bool `short:"f" help:"Force-delete without trying a safe delete first (overrides force_delete_local)."`

	Base      string `help:"Base branch for merge detection (overrides base_branch)."`
	StaleDays int    `name:"stale-days" help:"Days before a branch is considered stale (overrides stale_days)." default:"-1"`
}

func (c *CleanCmd) reason() (branches.Reason, error) {
	switch {
	case c.Merged:
		return branches.ReasonMerged, nil
	case c.Stale:
		return branches.ReasonStale, nil
	case c.Gone:
		return branches.ReasonGone, nil
	}
	return "", fmt.Errorf("specify --merged, --stale, or --gone")
}

// includeRemote decides whether remote counterparts are deleted. Merged and
// gone branches follow include_remote_in_dead_cleanup; stale ones only
// cascade on request.
func (c *CleanCmd) includeRemote(reason branches.Reason, cfg config.Config) bool {
	switch {
	case c.LocalOnly:
		return false
	case c.Remote:
		return true
	}
	return reason != branches.ReasonStale && cfg.IncludeRemoteInDeadCleanup
}

// Run executes the clean command.
func (c *CleanCmd) Run(ctx context.Context, globals *CLI) error {
	reason, err := c.reason()
	if err != nil {
		return err
	}
	e, err := globals.setup("clean --"+string(reason), c.flags()...)
	if err != nil {
		return err
	}
	defer e.Close()

	repo, err := globals.openRepo()
	if err != nil {
		return err
	}

	start := time.Now()
	st, err := branches.NewLoader(repo, loaderOptions(e.cfg, c.Base, c.StaleDays), prChecker(e.cfg)).State(ctx)
	if err != nil {
		return fmt.Errorf("loading branches: %w", err)
	}
	_ = e.ml.LogPerf(1, len(st.Local)+len(st.Remote), time.Since(start))

	names := st.Candidates(reason)
	if len(names) == 0 {
		fmt.Printf("No %s branches found.\n", reason)
		return nil
	}
	printCandidates(os.Stdout, st, reason, names, time.Now())

	if c.Select && !globals.DryRun {
		names, err = selectBranches("Select branches to delete", names, true)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No branches selected for deletion.")
			return nil
		}
	}

	req := cleanup.Request{Names: names, Reason: reason, IncludeRemote: c.includeRemote(reason, e.cfg)}
	settings := c.settings(e.cfg)

	if globals.DryRun {
		printPlan(os.Stdout, cleanup.NewPlan(req, settings))
		_ = e.ml.LogCleanup(metrics.CleanupEvent{
			RepoFingerprint: repoFingerprint(ctx, repo, e.cfg.Remote),
			Reason:          string(reason),
			DryRun:          true,
		})
		return nil
	}

	res, err := cleanup.NewExecutor(repo, huhPrompter{ml: e.ml}, settings).Cleanup(ctx, req)
	logCleanup(ctx, e, repo, res)
	if err != nil {
		return err
	}
	printResult(os.Stdout, res)
	return res.Err()
}

func (c *CleanCmd) flags() []string {
	var flags []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"--remote", c.Remote},
		{"--local-only", c.LocalOnly},
		{"--select", c.Select},
		{"--yes", c.Yes},
		{"--force", c.Force},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	return flags
}

func (c *CleanCmd) settings(cfg config.Config) cleanup.Settings {
	return cleanupSettings(cfg, c.Yes, c.Force)
}

// cleanupSettings applies the --yes and --force overrides to cfg.
func cleanupSettings(cfg config.Config, yes, force bool) cleanup.Settings {
	return cleanup.Settings{
		Protected:     cfg.ProtectedBranches,
		ConfirmDelete: cfg.ConfirmBeforeDelete && !yes,
		ForceDelete:   cfg.ForceDeleteLocal || force,
		Remote:        cfg.Remote,
	}
}

// DeleteCmd deletes branches named on the command line, or picked
// interactively when none are named.
type DeleteCmd struct {
	Names        []string `arg:"" optional:"" help:"Local branches to delete."`
	RemoteBranch []string `name:"remote-branch" short:"r" help:"Remote branch to delete, e.g. origin/feature/x. Repeatable."`
	Yes          bool     `short:"y" help:"Do not ask before deleting (overrides confirm_before_delete)."`
	Force        bool     `short:"f" help:"Force-delete without trying a safe delete first (overrides force_delete_local)."`
}

// Run executes the delete command.
func (c *DeleteCmd) Run(ctx context.Context, globals *CLI) error {
	e, err := globals.setup("delete")
	if err != nil {
		return err
	}
	defer e.Close()

	repo, err := globals.openRepo()
	if err != nil {
		return err
	}

	local, remote := c.Names, c.RemoteBranch
	if len(local) == 0 && len(remote) == 0 {
		if local, remote, err = pickBranches(ctx, repo, e.cfg); err != nil {
			return err
		}
		if len(local) == 0 && len(remote) == 0 {
			fmt.Println("No branches selected for deletion.")
			return nil
		}
	}

	settings := cleanupSettings(e.cfg, c.Yes, c.Force)

	if globals.DryRun {
		printPlan(os.Stdout, cleanup.NewPlan(cleanup.Request{Names: local, Reason: branches.ReasonSelected}, settings))
		for _, name := range remote {
			fmt.Printf("  would delete remote %s\n", name)
		}
		return nil
	}

	res, err := cleanup.NewExecutor(repo, huhPrompter{ml: e.ml}, settings).DeleteSelection(ctx, local, remote)
	logCleanup(ctx, e, repo, res)
	if err != nil {
		return err
	}
	printResult(os.Stdout, res)
	return res.Err()
}

// pickBranches offers every deletable local and remote branch for
// selection. Current and protected branches are not offered.
func pickBranches(ctx context.Context, repo *git.Repo, cfg config.Config) (local, remote []string, err error) {
	st, err := branches.NewLoader(repo, loaderOptions(cfg, "", -1), nil).State(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading branches: %w", err)
	}

	var options []string
	isRemote := make(map[string]bool)
	for _, r := range st.Local {
		if !r.Current && !r.Protected {
			options = append(options, r.Name)
		}
	}
	for _, r := range st.Remote {
		if !r.Protected {
			options = append(options, r.Name)
			isRemote[r.Name] = true
		}
	}
	if len(options) == 0 {
		return nil, nil, nil
	}

	selected, err := selectBranches("Select branches to delete", options, false)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range selected {
		if isRemote[name] {
			remote = append(remote, name)
		} else {
			local = append(local, name)
		}
	}
	return local, remote, nil
}

func printPlan(w io.Writer, p cleanup.Plan) {
	for _, name := range p.Rejected {
		fmt.Fprintf(w, "  %s\n", yellow.Sprintf("skipping protected %s", name))
	}
	mode := "delete"
	if p.Force {
		mode = "force delete"
	}
	for _, name := range p.Local {
		fmt.Fprintf(w, "  would %s %s\n", mode, name)
	}
	if p.IncludeRemote && !p.Empty() {
		fmt.Fprintf(w, "  would also delete their remote branches\n")
	}
	fmt.Fprintln(w, bold.Sprint("Dry run -- no changes made."))
}

func printResult(w io.Writer, res cleanup.Result) {
	if res.Cancelled {
		fmt.Fprintln(w, "Cancelled. No branches deleted.")
		return
	}
	forced := make(map[string]bool, len(res.Forced))
	for _, name := range res.Forced {
		forced[name] = true
	}
	for _, name := range res.Deleted {
		msg := "deleted " + name
		if forced[name] {
			msg += " (forced)"
		}
		fmt.Fprintf(w, "  %s\n", green.Sprint(msg))
	}
	for _, name := range res.DeletedRemote {
		fmt.Fprintf(w, "  %s\n", green.Sprintf("deleted remote %s", name))
	}
	for _, name := range res.Rejected {
		fmt.Fprintf(w, "  %s\n", yellow.Sprintf("skipped protected %s", name))
	}
	for _, name := range res.SkippedRemote {
		fmt.Fprintf(w, "  %s\n", dim.Sprintf("kept remote %s", name))
	}
	for _, f := range append(append([]cleanup.Failure{}, res.Failed...), res.FailedRemote...) {
		fmt.Fprintf(w, "  %s\n", red.Sprintf("failed to delete %s: %v", f.Name, f.Err))
	}

	fmt.Fprintln(w)
	if n := len(res.Deleted); n > 0 {
		fmt.Fprintln(w, bold.Sprintf("Deleted %d local branch(es).", n))
	}
	if n := len(res.DeletedRemote); n > 0 {
		fmt.Fprintln(w, bold.Sprintf("Deleted %d remote branch(es).", n))
	}
}

func logCleanup(ctx context.Context, e *env, repo *git.Repo, res cleanup.Result) {
	_ = e.ml.LogCleanup(metrics.CleanupEvent{
		RepoFingerprint: repoFingerprint(ctx, repo, e.cfg.Remote),
		Reason:          string(res.Reason),
		Cancelled:       res.Cancelled,
		Deleted:         len(res.Deleted),
		Forced:          len(res.Forced),
		Failed:          len(res.Failed),
		Rejected:        len(res.Rejected),
		DeletedRemote:   len(res.DeletedRemote),
		FailedRemote:    len(res.FailedRemote),
		SkippedRemote:   len(res.SkippedRemote),
	})
}

// repoFingerprint identifies a repository by its remote URL when it has
// one, falling back to its path.
func repoFingerprint(ctx context.Context, repo *git.Repo, remote string) string {
	id, err := repo.RemoteURL(ctx, remote)
	if err != nil || id == "" {
		id = repo.Path
	}
	return metrics.Fingerprint(id)
}
