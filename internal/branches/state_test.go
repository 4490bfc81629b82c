package branches

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agrahamlincoln/sentei/pkg/git"
)

var testNow = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format(time.RFC3339)
}

// fixtureRunner answers every query State issues for a small repository:
// main (current, protected), feature/done (merged), old-feature (gone,
// stale), local-only (no date) and develop (protected, exactly 30 days).
func fixtureRunner() *mockRunner {
	return (&mockRunner{}).
		on("main\n", "branch", "--show-current").
		on("refs/remotes/origin/main\n", "symbolic-ref", "refs/remotes/origin/HEAD").
		on(""+
			"refs/heads/main\tmain\torigin/main\t\t*\n"+
			"refs/heads/feature/done\tfeature/done\torigin/feature/done\tahead 2, behind 1\t \n"+
			"refs/heads/old-feature\told-feature\torigin/old-feature\tgone\t \n"+
			"refs/heads/local-only\tlocal-only\t\t\t \n"+
			"refs/heads/develop\tdevelop\t\t\t \n",
			"for-each-ref", "%(HEAD)", "refs/heads").
		on(""+
			"main\t"+daysAgo(0)+"\n"+
			"feature/done\t"+daysAgo(10)+"\n"+
			"old-feature\t"+daysAgo(45)+"\n"+
			"develop\t"+daysAgo(30)+"\n",
			"committerdate", "refs/heads").
		on(""+
			"origin/main\t"+daysAgo(0)+"\n"+
			"origin/feature/done\t"+daysAgo(10)+"\n"+
			"origin/old-wip\t"+daysAgo(60)+"\n",
			"committerdate", "refs/remotes").
		on(""+
			"refs/remotes/origin/HEAD\torigin\n"+
			"refs/remotes/origin/main\torigin/main\n"+
			"refs/remotes/origin/feature/done\torigin/feature/done\n"+
			"refs/remotes/origin/old-wip\torigin/old-wip\n",
			"for-each-ref", "refs/remotes").
		on("  origin/HEAD -> origin/main\n  origin/main\n  origin/feature/done\n",
			"branch", " -r ", "--merged", "main").
		on("* main\n  feature/done\n  develop\n",
			"branch", "--merged", "main").
		on(""+
			"* main         abc1234 [origin/main] latest\n"+
			"  feature/done 1111111 [origin/feature/done: ahead 2, behind 1] done\n"+
			"  old-feature  def5678 [origin/old-feature: gone] old commit\n"+
			"  local-only   2222222 no upstream\n"+
			"  develop      3333333 develop work\n",
			"branch", "-vv")
}

func fixtureLoader(runner git.Runner, opts Options) *Loader {
	if opts.Protected == nil {
		opts.Protected = []string{"main", "develop"}
	}
	if opts.StaleDays == 0 {
		opts.StaleDays = 30
	}
	if opts.BaseBranch == "" {
		opts.BaseBranch = AutoBase
	}
	return NewLoader(git.NewRepo("/repo", runner), opts, nil).WithClock(func() time.Time { return testNow })
}

func TestState_LocalRecords(t *testing.T) {
	st, err := fixtureLoader(fixtureRunner(), Options{}).State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.Current != "main" {
		t.Errorf("expected current main, got %q", st.Current)
	}
	if st.Base != "main" {
		t.Errorf("expected base main, got %q", st.Base)
	}

	wantOrder := []string{"main", "feature/done", "old-feature", "local-only", "develop"}
	if len(st.Local) != len(wantOrder) {
		t.Fatalf("expected %d local records, got %d", len(wantOrder), len(st.Local))
	}
	for i, name := range wantOrder {
		if st.Local[i].Name != name {
			t.Errorf("record %d: expected %q, got %q", i, name, st.Local[i].Name)
		}
		if st.Local[i].Kind != Local {
			t.Errorf("record %q: expected local kind", name)
		}
	}

	main, _ := st.Lookup("main")
	if !main.Current || !main.Protected || main.Merged {
		t.Errorf("main: unexpected flags %+v", main)
	}

	done, _ := st.Lookup("feature/done")
	if !done.Merged || done.Stale || done.Gone {
		t.Errorf("feature/done: unexpected flags %+v", done)
	}
	if done.Ahead == nil || *done.Ahead != 2 || done.Behind == nil || *done.Behind != 1 {
		t.Errorf("feature/done: expected +2/-1, got %v/%v", done.Ahead, done.Behind)
	}
	if done.Upstream != "origin/feature/done" {
		t.Errorf("feature/done: expected upstream, got %q", done.Upstream)
	}

	old, _ := st.Lookup("old-feature")
	if !old.Gone || !old.Stale || old.Merged {
		t.Errorf("old-feature: unexpected flags %+v", old)
	}
	if old.AgeDays == nil || *old.AgeDays != 45 {
		t.Errorf("old-feature: expected age 45, got %v", old.AgeDays)
	}

	localOnly, _ := st.Lookup("local-only")
	if localOnly.AgeDays != nil || localOnly.Stale {
		t.Errorf("local-only: branch without a date must not be stale: %+v", localOnly)
	}
	if !localOnly.LastCommit.IsZero() {
		t.Errorf("local-only: expected zero commit time, got %v", localOnly.LastCommit)
	}

	develop, _ := st.Lookup("develop")
	if !develop.Protected {
		t.Error("develop should be protected")
	}
	if develop.Merged {
		t.Error("protected develop must not be flagged merged")
	}
	if !develop.Stale {
		t.Error("develop is exactly 30 days old and should be stale")
	}
}

func TestState_RemoteRecords(t *testing.T) {
	st, err := fixtureLoader(fixtureRunner(), Options{}).State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.Remote) != 3 {
		t.Fatalf("expected 3 remote records (HEAD filtered), got %d: %+v", len(st.Remote), st.Remote)
	}
	byName := make(map[string]Record)
	for _, r := range st.Remote {
		if strings.HasSuffix(r.FullRef, "/HEAD") {
			t.Errorf("symbolic HEAD leaked into records: %+v", r)
		}
		if r.Kind != Remote || r.Gone || r.Current {
			t.Errorf("%s: unexpected remote flags %+v", r.Name, r)
		}
		byName[r.Name] = r
	}
	if !byName["origin/main"].Protected || byName["origin/main"].Merged {
		t.Errorf("origin/main: unexpected flags %+v", byName["origin/main"])
	}
	if !byName["origin/feature/done"].Merged {
		t.Error("origin/feature/done should be merged")
	}
	if !byName["origin/old-wip"].Stale || byName["origin/old-wip"].Merged {
		t.Errorf("origin/old-wip: unexpected flags %+v", byName["origin/old-wip"])
	}
}

func TestState_MergedNeverCurrentOrProtected(t *testing.T) {
	st, err := fixtureLoader(fixtureRunner(), Options{}).State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range st.Local {
		if r.Merged && (r.Current || r.Protected) {
			t.Errorf("%s flagged merged while current=%v protected=%v", r.Name, r.Current, r.Protected)
		}
	}
}

func TestState_Candidates(t *testing.T) {
	st, err := fixtureLoader(fixtureRunner(), Options{}).State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		reason Reason
		want   []string
	}{
		{ReasonMerged, []string{"feature/done"}},
		{ReasonStale, []string{"old-feature"}},
		{ReasonGone, []string{"old-feature"}},
		{ReasonSelected, nil},
	}
	for _, tt := range tests {
		got := st.Candidates(tt.reason)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Candidates(%s) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}

func TestState_QueryFailurePropagates(t *testing.T) {
	runner := (&mockRunner{}).fail("for-each-ref", "%(HEAD)")
	runner.rules = append(runner.rules, fixtureRunner().rules...)

	_, err := fixtureLoader(runner, Options{}).State(context.Background())
	if err == nil {
		t.Fatal("expected error when the local listing fails")
	}
	var ce *git.CommandError
	if !errors.As(err, &ce) {
		t.Errorf("expected wrapped *git.CommandError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "listing local branches") {
		t.Errorf("expected context in error, got %v", err)
	}
}

func TestState_FetchPruneFailureIsNotFatal(t *testing.T) {
	runner := (&mockRunner{}).fail("fetch", "--prune")
	runner.rules = append(runner.rules, fixtureRunner().rules...)

	_, err := fixtureLoader(runner, Options{FetchPrune: true}).State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !runner.called("fetch --prune origin") {
		t.Error("expected fetch --prune origin to be attempted")
	}
}

func TestState_NoFetchByDefault(t *testing.T) {
	runner := fixtureRunner()
	if _, err := fixtureLoader(runner, Options{}).State(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.called("fetch") {
		t.Error("fetch should only run when FetchPrune is set")
	}
}

func TestState_ExplicitBase(t *testing.T) {
	runner := fixtureRunner().on("", "branch", "--merged", "develop").on("", "-r", "--merged", "develop")
	// Put the develop rules first so they win over the main ones.
	runner.rules = append(runner.rules[len(runner.rules)-2:], runner.rules[:len(runner.rules)-2]...)

	st, err := fixtureLoader(runner, Options{BaseBranch: "develop"}).State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Base != "develop" {
		t.Errorf("expected base develop, got %q", st.Base)
	}
	if runner.called("symbolic-ref") {
		t.Error("explicit base should not query the remote HEAD")
	}
	for _, r := range st.Local {
		if r.Merged {
			t.Errorf("%s should not be merged into develop", r.Name)
		}
	}
}

type stubPRs struct {
	merged []string
	asked  []string
	url    string
}

func (s *stubPRs) MergedViaPR(remoteURL string, branches []string) []string {
	s.url = remoteURL
	s.asked = branches
	return s.merged
}

func TestState_SquashMergedViaPR(t *testing.T) {
	runner := fixtureRunner().on("git@github.com:owner/repo.git\n", "remote", "get-url", "origin")
	prs := &stubPRs{merged: []string{"local-only"}}
	loader := NewLoader(git.NewRepo("/repo", runner), Options{
		BaseBranch: AutoBase,
		Protected:  []string{"main", "develop"},
		StaleDays:  30,
	}, prs).WithClock(func() time.Time { return testNow })

	st, err := loader.State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prs.url != "git@github.com:owner/repo.git" {
		t.Errorf("unexpected remote URL %q", prs.url)
	}
	for _, name := range prs.asked {
		if name == "main" || name == "develop" || name == "feature/done" {
			t.Errorf("%s should not be sent to the PR checker", name)
		}
	}
	rec, _ := st.Lookup("local-only")
	if !rec.Merged || !rec.MergedByPR {
		t.Errorf("local-only should be merged via PR: %+v", rec)
	}
	done, _ := st.Lookup("feature/done")
	if done.MergedByPR {
		t.Error("git-merged branch should not be marked MergedByPR")
	}
}

func TestKind_String(t *testing.T) {
	if Local.String() != "local" || Remote.String() != "remote" {
		t.Errorf("unexpected kind names %q %q", Local, Remote)
	}
	if Kind(9).String() != "Kind(9)" {
		t.Errorf("unexpected unknown kind name %q", Kind(9))
	}
}
