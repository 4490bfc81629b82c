package branches

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agrahamlincoln/sentei/internal/protect"
)

// Tracking is the ahead/behind divergence of a branch from its upstream.
// A nil field means the count is unknown, which is distinct from zero.
type Tracking struct {
	Ahead  *int
	Behind *int
}

var (
	aheadRe  = regexp.MustCompile(`(?:\+|ahead )(\d+)`)
	behindRe = regexp.MustCompile(`(?:-|behind )(\d+)`)
)

// ParseTracking parses a tracking token such as "+2 -1", "+0", "-3" or
// git's long form "ahead 2, behind 1". An empty token and the "<>"
// diverged marker carry no counts.
func ParseTracking(token string) Tracking {
	token = strings.TrimSpace(token)
	if token == "" || token == "<>" {
		return Tracking{}
	}
	var t Tracking
	if m := aheadRe.FindStringSubmatch(token); m != nil {
		t.Ahead = atoiPtr(m[1])
	}
	if m := behindRe.FindStringSubmatch(token); m != nil {
		t.Behind = atoiPtr(m[1])
	}
	return t
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ParseMerged extracts branch names from `git branch --merged` output.
// The checked-out branch (marked "*" or equal to current), the base branch,
// protected branches and placeholder lines like "(HEAD detached at ...)"
// are left out.
func ParseMerged(output, current, base string, protected []string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		isCurrent := strings.HasPrefix(strings.TrimSpace(line), "*")
		name := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "*+"))
		if name == "" || strings.HasPrefix(name, "(") {
			continue
		}
		if isCurrent || name == current || name == base {
			continue
		}
		if protect.IsProtected(name, protected) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// ParseRemoteMerged extracts remote branch names from
// `git branch -r --merged` output. Symbolic HEAD entries
// ("origin/HEAD -> origin/main"), the base branch's own remote ref and
// protected branches are left out.
func ParseRemoteMerged(output, base string, protected []string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.Contains(name, " -> ") || strings.HasSuffix(name, "/HEAD") {
			continue
		}
		if name == base || protect.StripRemote(name) == base {
			continue
		}
		if protect.IsProtectedRemote(name, protected) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// goneRe matches a `git branch -vv` line whose upstream has been deleted:
//
//	  old-feature  def5678 [origin/old-feature: gone] old commit
var goneRe = regexp.MustCompile(`^[*+]?\s*(\S+)\s+[0-9a-f]+\s+\[[^\]]+: gone\]`)

// ParseGone returns local branches whose configured upstream no longer
// exists. Branches without an upstream are not gone. The current branch
// and protected branches are left out.
func ParseGone(output, current string, protected []string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		m := goneRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if strings.HasPrefix(strings.TrimSpace(line), "*") || name == current {
			continue
		}
		if protect.IsProtected(name, protected) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
