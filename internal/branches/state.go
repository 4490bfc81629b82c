// Package branches builds classified snapshots of a repository's local and
// remote branches: merged, stale, gone and protected.
package branches

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrahamlincoln/sentei/internal/protect"
	"github.com/agrahamlincoln/sentei/pkg/git"
)

// Kind distinguishes local branches from remote-tracking branches.
type Kind int

const (
	// Local is a branch under refs/heads.
	Local Kind = iota
	// Remote is a remote-tracking branch under refs/remotes.
	Remote
)

// String returns the human-readable name of a Kind value.
func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Record is one branch as seen by a single refresh. Records are built fresh
// for every State call and are not modified afterwards.
type Record struct {
	FullRef  string
	Name     string
	Kind     Kind
	Current  bool
	Upstream string
	Ahead    *int
	Behind   *int

	Protected bool
	Merged    bool
	// MergedByPR is set when Merged comes from a merged pull request rather
	// than git ancestry (squash merges). Such branches need a forced delete.
	MergedByPR bool
	// Stale is false when the commit date is unknown; check AgeDays.
	Stale bool
	// Gone is always false for remote records.
	Gone bool

	LastCommit time.Time
	AgeDays    *int
}

// State is the full branch picture of a repository at one point in time.
type State struct {
	Local   []Record
	Remote  []Record
	Current string
	Base    string
}

// Candidates returns the names of local branches flagged for reason.
func (s State) Candidates(reason Reason) []string {
	var names []string
	for _, r := range s.Local {
		if r.Current || r.Protected {
			continue
		}
		if reason.Matches(r) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Lookup returns the local record with the given name.
func (s State) Lookup(name string) (Record, bool) {
	for _, r := range s.Local {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Options controls how a State is computed. It is read once per refresh.
type Options struct {
	BaseBranch string // "auto" or an explicit name
	Remote     string
	Protected  []string
	StaleDays  int
	FetchPrune bool
}

// PRMergeChecker finds branches whose pull request was merged on the
// hosting service even though git does not consider them merged.
type PRMergeChecker interface {
	MergedViaPR(remoteURL string, branches []string) []string
}

// Loader computes States for one repository.
type Loader struct {
	repo  *git.Repo
	opts  Options
	prs   PRMergeChecker
	nowFn func() time.Time
}

// NewLoader creates a Loader for repo. prs may be nil for git-only merge
// detection.
func NewLoader(repo *git.Repo, opts Options, prs PRMergeChecker) *Loader {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	return &Loader{repo: repo, opts: opts, prs: prs, nowFn: time.Now}
}

// WithClock returns a copy of the loader that uses now for branch ages.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	c := *l
	c.nowFn = now
	return &c
}

// queryResults collects the outputs of the independent queries issued by
// State before they are joined by branch name.
type queryResults struct {
	local        []git.LocalRef
	merged       map[string]bool
	localDates   map[string]time.Time
	gone         map[string]bool
	remote       []git.RemoteRef
	remoteMerged map[string]bool
	remoteDates  map[string]time.Time
}

// State runs the branch queries concurrently and joins them into records.
// Local records follow the order of the branch listing.
func (l *Loader) State(ctx context.Context) (State, error) {
	if l.opts.FetchPrune {
		slog.Debug("fetching with prune", "repo", l.repo.Path, "remote", l.opts.Remote)
		if err := l.repo.FetchPrune(ctx, l.opts.Remote); err != nil {
			slog.Warn("fetch --prune failed, gone detection may be out of date",
				"repo", l.repo.Path, "error", err)
		}
	}

	current, err := l.repo.CurrentBranch(ctx)
	if err != nil {
		slog.Warn("could not determine current branch", "repo", l.repo.Path, "error", err)
		current = ""
	}
	base := ResolveBase(ctx, l.repo, l.opts.BaseBranch, l.opts.Remote)
	slog.Debug("resolved base branch", "repo", l.repo.Path, "base", base, "current", current)

	q, err := l.query(ctx, base, current)
	if err != nil {
		return State{}, err
	}

	now := l.nowFn()
	st := State{
		Current: current,
		Base:    base,
		Local:   make([]Record, 0, len(q.local)),
		Remote:  make([]Record, 0, len(q.remote)),
	}

	for _, ref := range q.local {
		tr := ParseTracking(ref.Track)
		rec := Record{
			FullRef:   ref.FullRef,
			Name:      ref.Name,
			Kind:      Local,
			Current:   ref.Head,
			Upstream:  ref.Upstream,
			Ahead:     tr.Ahead,
			Behind:    tr.Behind,
			Protected: protect.IsProtected(ref.Name, l.opts.Protected),
			Merged:    q.merged[ref.Name],
			Gone:      q.gone[ref.Name],
		}
		l.applyAge(&rec, q.localDates, now)
		st.Local = append(st.Local, rec)
	}

	for _, ref := range q.remote {
		rec := Record{
			FullRef:   ref.FullRef,
			Name:      ref.Name,
			Kind:      Remote,
			Protected: protect.IsProtectedRemote(ref.Name, l.opts.Protected),
			Merged:    q.remoteMerged[ref.Name],
		}
		l.applyAge(&rec, q.remoteDates, now)
		st.Remote = append(st.Remote, rec)
	}

	if l.prs != nil {
		l.markSquashMerged(ctx, &st)
	}

	return st, nil
}

func (l *Loader) query(ctx context.Context, base, current string) (queryResults, error) {
	var q queryResults
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refs, err := l.repo.LocalBranches(ctx)
		if err != nil {
			return fmt.Errorf("listing local branches: %w", err)
		}
		q.local = refs
		return nil
	})
	g.Go(func() error {
		out, err := l.repo.MergedOutput(ctx, base)
		if err != nil {
			return fmt.Errorf("listing branches merged into %s: %w", base, err)
		}
		q.merged = toSet(ParseMerged(out, current, base, l.opts.Protected))
		return nil
	})
	g.Go(func() error {
		dates, err := l.repo.LocalCommitDates(ctx)
		if err != nil {
			return fmt.Errorf("reading local commit dates: %w", err)
		}
		q.localDates = dates
		return nil
	})
	g.Go(func() error {
		out, err := l.repo.VerboseBranches(ctx)
		if err != nil {
			return fmt.Errorf("listing gone branches: %w", err)
		}
		q.gone = toSet(ParseGone(out, current, l.opts.Protected))
		return nil
	})
	g.Go(func() error {
		refs, err := l.repo.RemoteBranches(ctx)
		if err != nil {
			return fmt.Errorf("listing remote branches: %w", err)
		}
		q.remote = refs
		return nil
	})
	g.Go(func() error {
		out, err := l.repo.RemoteMergedOutput(ctx, base)
		if err != nil {
			return fmt.Errorf("listing remote branches merged into %s: %w", base, err)
		}
		q.remoteMerged = toSet(ParseRemoteMerged(out, base, l.opts.Protected))
		return nil
	})
	g.Go(func() error {
		dates, err := l.repo.RemoteCommitDates(ctx)
		if err != nil {
			return fmt.Errorf("reading remote commit dates: %w", err)
		}
		q.remoteDates = dates
		return nil
	})

	if err := g.Wait(); err != nil {
		return queryResults{}, err
	}
	return q, nil
}

// applyAge fills in commit date, age and staleness when a date is known.
// Without a date the branch is never assumed stale.
func (l *Loader) applyAge(rec *Record, dates map[string]time.Time, now time.Time) {
	t, ok := dates[rec.Name]
	if !ok {
		return
	}
	days := ageDays(t, now)
	rec.LastCommit = t
	rec.AgeDays = &days
	rec.Stale = IsStale(days, l.opts.StaleDays)
}

// markSquashMerged asks the PR checker about local branches git does not
// consider merged. Lookup problems leave branches unmerged.
func (l *Loader) markSquashMerged(ctx context.Context, st *State) {
	var candidates []string
	for _, r := range st.Local {
		if !r.Merged && !r.Current && !r.Protected && r.Name != st.Base {
			candidates = append(candidates, r.Name)
		}
	}
	if len(candidates) == 0 {
		return
	}

	remoteURL, err := l.repo.RemoteURL(ctx, l.opts.Remote)
	if err != nil {
		slog.Debug("could not get remote URL, skipping PR check",
			"repo", l.repo.Path, "error", err)
		return
	}

	merged := toSet(l.prs.MergedViaPR(remoteURL, candidates))
	for i := range st.Local {
		if merged[st.Local[i].Name] {
			st.Local[i].Merged = true
			st.Local[i].MergedByPR = true
		}
	}
}
