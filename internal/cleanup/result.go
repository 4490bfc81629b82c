package cleanup

import (
	"fmt"
	"strings"

	"github.com/agrahamlincoln/sentei/internal/branches"
)

// Failure is a branch that could not be deleted and why.
type Failure struct {
	Name string
	Err  error
}

// Result reports the outcome of a cleanup batch. Partial failure is normal
// and is reported here rather than as an error.
type Result struct {
	Reason branches.Reason
	// Cancelled is set when the batch confirmation was declined.
	Cancelled bool

	Deleted  []string
	Forced   []string // subset of Deleted that needed a forced retry
	Failed   []Failure
	Rejected []string // protected, never attempted

	DeletedRemote []string
	FailedRemote  []Failure
	// SkippedRemote lists untracked same-named remote branches the user
	// chose to keep.
	SkippedRemote []string
}

// FailedNames returns the local and remote names that failed, local first.
func (r Result) FailedNames() []string {
	names := make([]string, 0, len(r.Failed)+len(r.FailedRemote))
	for _, f := range r.Failed {
		names = append(names, f.Name)
	}
	for _, f := range r.FailedRemote {
		names = append(names, f.Name)
	}
	return names
}

// OK reports whether nothing failed.
func (r Result) OK() bool {
	return len(r.Failed) == 0 && len(r.FailedRemote) == 0
}

// Err summarises failures as a single error, or nil when nothing failed.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	names := r.FailedNames()
	return fmt.Errorf("failed to delete %d branch(es): %s", len(names), strings.Join(names, ", "))
}

func failureNames(failures []Failure) []string {
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Name
	}
	return names
}
