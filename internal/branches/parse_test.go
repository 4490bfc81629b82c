package branches

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestParseTracking(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Tracking
	}{
		{"empty", "", Tracking{}},
		{"diverged marker", "<>", Tracking{}},
		{"ahead and behind", "+3 -2", Tracking{Ahead: intPtr(3), Behind: intPtr(2)}},
		{"zeros are present", "+0 -0", Tracking{Ahead: intPtr(0), Behind: intPtr(0)}},
		{"ahead only", "+5", Tracking{Ahead: intPtr(5)}},
		{"behind only", "-7", Tracking{Behind: intPtr(7)}},
		{"multi digit", "+120 -45", Tracking{Ahead: intPtr(120), Behind: intPtr(45)}},
		{"git long form", "ahead 1, behind 4", Tracking{Ahead: intPtr(1), Behind: intPtr(4)}},
		{"git long form ahead", "ahead 2", Tracking{Ahead: intPtr(2)}},
		{"gone has no counts", "gone", Tracking{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTracking(tt.token)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTracking(%q) = %s, want %s", tt.token, fmtTracking(got), fmtTracking(tt.want))
			}
		})
	}
}

func fmtTracking(t Tracking) string {
	f := func(p *int) string {
		if p == nil {
			return "nil"
		}
		return strconv.Itoa(*p)
	}
	return fmt.Sprintf("{ahead:%s behind:%s}", f(t.Ahead), f(t.Behind))
}

func TestParseMerged(t *testing.T) {
	out := "  main\n* feature/done\n  bugfix-123\n  develop\n"
	got := ParseMerged(out, "feature/done", "main", []string{"main", "develop"})
	want := []string{"bugfix-123"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseMerged = %v, want %v", got, want)
	}
}

func TestParseMerged_Markers(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		current string
		want    []string
	}{
		{
			name:   "empty output",
			output: "",
		},
		{
			name:   "blank lines ignored",
			output: "\n\n  feature/a\n\n",
			want:   []string{"feature/a"},
		},
		{
			name:   "star marker excluded even without current name",
			output: "* feature/here\n  feature/a\n",
			want:   []string{"feature/a"},
		},
		{
			name:   "worktree marker stripped",
			output: "+ feature/wt\n  feature/a\n",
			want:   []string{"feature/wt", "feature/a"},
		},
		{
			name:   "detached placeholder ignored",
			output: "* (HEAD detached at 1a2b3c4)\n  feature/a\n",
			want:   []string{"feature/a"},
		},
		{
			name:    "current by name",
			output:  "  feature/a\n  feature/b\n",
			current: "feature/b",
			want:    []string{"feature/a"},
		},
		{
			name:   "base excluded",
			output: "  main\n  feature/a\n",
			want:   []string{"feature/a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMerged(tt.output, tt.current, "main", nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMerged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRemoteMerged(t *testing.T) {
	out := "  origin/HEAD -> origin/main\n  origin/main\n  origin/feature/done\n  origin/release/1.0\n  upstream/fix\n"
	got := ParseRemoteMerged(out, "main", []string{"release/*"})
	want := []string{"origin/feature/done", "upstream/fix"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRemoteMerged = %v, want %v", got, want)
	}
}

func TestParseGone(t *testing.T) {
	out := "" +
		"* main         abc1234 [origin/main] latest\n" +
		"  old-feature  def5678 [origin/old-feature: gone] old commit\n" +
		"  local-only   1234abc no upstream here\n" +
		"  ahead-one    9876fed [origin/ahead-one: ahead 1] still there\n" +
		"  develop      aaaa111 [origin/develop: gone] protected\n" +
		"+ wt-branch    bbbb222 [origin/wt-branch: gone] in a worktree\n"

	got := ParseGone(out, "main", []string{"develop"})
	want := []string{"old-feature", "wt-branch"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseGone = %v, want %v", got, want)
	}
}

func TestParseGone_CurrentExcluded(t *testing.T) {
	out := "* doomed  def5678 [origin/doomed: gone] msg\n"
	if got := ParseGone(out, "doomed", nil); len(got) != 0 {
		t.Errorf("expected current branch to be excluded, got %v", got)
	}
}

func TestParseGone_SingleLine(t *testing.T) {
	got := ParseGone("  old-feature  def5678 [origin/old-feature: gone] old commit", "", nil)
	if len(got) != 1 || got[0] != "old-feature" {
		t.Errorf("expected [old-feature], got %v", got)
	}
	if got := ParseGone("  local-only  1234abc some commit", "", nil); len(got) != 0 {
		t.Errorf("expected no gone branches, got %v", got)
	}
}
