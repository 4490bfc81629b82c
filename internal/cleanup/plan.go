// Package cleanup deletes batches of branches: protected names are
// rejected up front, safe deletes that fail can be retried with force, and
// remote counterparts can be removed alongside.
package cleanup

import (
	"strings"

	"github.com/agrahamlincoln/sentei/internal/branches"
	"github.com/agrahamlincoln/sentei/internal/protect"
)

// Settings are the configuration values a cleanup run depends on. They are
// captured once when the Executor is built.
type Settings struct {
	Protected     []string
	ConfirmDelete bool
	ForceDelete   bool
	Remote        string
}

// Request asks for a batch of local branches to be deleted.
type Request struct {
	Names         []string
	Reason        branches.Reason
	IncludeRemote bool
}

// Plan is the decision made for a Request before anything is touched.
type Plan struct {
	Reason branches.Reason
	// Local holds the names that will be deleted, in request order.
	Local []string
	// Rejected holds protected names that are never deleted.
	Rejected []string
	// Force is set when the first delete attempt is already forced.
	Force bool
	// Confirm is set when the user must approve the batch first.
	Confirm bool
	// IncludeRemote is set when remote counterparts are deleted as well.
	IncludeRemote bool
}

// NewPlan decides what a cleanup request will do. Duplicate and empty names
// are dropped. Gone branches have no remote left to cascade to.
func NewPlan(req Request, s Settings) Plan {
	p := Plan{
		Reason:        req.Reason,
		Force:         s.ForceDelete,
		Confirm:       s.ConfirmDelete,
		IncludeRemote: req.IncludeRemote && req.Reason != branches.ReasonGone,
	}
	seen := make(map[string]bool, len(req.Names))
	for _, name := range req.Names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if protect.IsProtected(name, s.Protected) {
			p.Rejected = append(p.Rejected, name)
			continue
		}
		p.Local = append(p.Local, name)
	}
	return p
}

// Empty reports whether the plan deletes nothing.
func (p Plan) Empty() bool {
	return len(p.Local) == 0
}

// RemoteBranch names a branch on a remote.
type RemoteBranch struct {
	Remote string
	Branch string
}

// String returns the remote-tracking short name, e.g. "origin/feature/x".
func (rb RemoteBranch) String() string {
	return rb.Remote + "/" + rb.Branch
}

// ParseRemoteBranch splits "origin/feature/x" into remote and branch.
func ParseRemoteBranch(name string) (RemoteBranch, bool) {
	remote, branch, ok := strings.Cut(name, "/")
	if !ok || remote == "" || branch == "" {
		return RemoteBranch{}, false
	}
	return RemoteBranch{Remote: remote, Branch: branch}, true
}

// SplitCascade sorts deleted local branches by whether they recorded an
// upstream. Tracked ones map to their upstream; untracked ones may only
// collide by name with a branch on the default remote.
func SplitCascade(deleted []string, upstreams map[string]string) (tracked []RemoteBranch, untracked []string) {
	for _, name := range deleted {
		if rb, ok := ParseRemoteBranch(upstreams[name]); ok {
			tracked = append(tracked, rb)
			continue
		}
		untracked = append(untracked, name)
	}
	return tracked, untracked
}
