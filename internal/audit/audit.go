// Package audit reports cleanup candidates across every repository in the
// projects directory.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrahamlincoln/sentei/internal/branches"
	"github.com/agrahamlincoln/sentei/internal/parallel"
	"github.com/agrahamlincoln/sentei/internal/scanner"
	"github.com/agrahamlincoln/sentei/pkg/git"
)

// Options controls an audit run.
type Options struct {
	ExcludePatterns []string
	Workers         int
	Branches        branches.Options
	// PRs enables squash-merge detection when non-nil.
	PRs branches.PRMergeChecker
}

// RepoReport summarises one repository. Err is set when its branch state
// could not be loaded; the counts are then zero.
type RepoReport struct {
	Path     string
	Base     string
	Current  string
	Branches int
	Merged   int
	Stale    int
	Gone     int
	Err      error
}

// Clean reports whether the repository has nothing to clean up.
func (r RepoReport) Clean() bool {
	return r.Err == nil && r.Merged == 0 && r.Stale == 0 && r.Gone == 0
}

// Summary aggregates the reports of a run.
type Summary struct {
	Repos    int
	Failed   int
	Merged   int
	Stale    int
	Gone     int
	Duration time.Duration
}

// Run scans root and loads the branch state of every repository found,
// using a bounded pool of workers. Reports come back in scan order.
// onResult is called once per repository as it completes.
func Run(ctx context.Context, root string, opts Options, onResult func(completed, total int, r RepoReport)) ([]RepoReport, Summary, error) {
	start := time.Now()
	repos, err := scanner.Scan(root, scanner.Options{ExcludePatterns: opts.ExcludePatterns})
	if err != nil {
		return nil, Summary{}, fmt.Errorf("scanning %s: %w", root, err)
	}
	slog.Debug("audit scan complete", "root", root, "repos", len(repos))

	reports := parallel.Run(ctx, repos, opts.Workers, func(ctx context.Context, path string) RepoReport {
		return inspect(ctx, path, opts)
	}, onResult)

	sum := Summary{Repos: len(repos)}
	for i, r := range reports {
		if r.Path == "" {
			// skipped after cancellation
			reports[i] = RepoReport{Path: repos[i], Err: ctx.Err()}
			r = reports[i]
		}
		if r.Err != nil {
			sum.Failed++
			continue
		}
		sum.Merged += r.Merged
		sum.Stale += r.Stale
		sum.Gone += r.Gone
	}
	sum.Duration = time.Since(start)
	return reports, sum, ctx.Err()
}

func inspect(ctx context.Context, path string, opts Options) RepoReport {
	r := RepoReport{Path: path}
	st, err := branches.NewLoader(git.Open(path), opts.Branches, opts.PRs).State(ctx)
	if err != nil {
		slog.Warn("could not load branches", "repo", path, "error", err)
		r.Err = err
		return r
	}
	r.Base = st.Base
	r.Current = st.Current
	r.Branches = len(st.Local)
	r.Merged = len(st.Candidates(branches.ReasonMerged))
	r.Stale = len(st.Candidates(branches.ReasonStale))
	r.Gone = len(st.Candidates(branches.ReasonGone))
	return r
}
