package branches

// Reason tags why a set of branches is up for cleanup.
type Reason string

const (
	// ReasonMerged selects branches fully merged into the base branch.
	ReasonMerged Reason = "merged"
	// ReasonStale selects branches whose last commit is older than the
	// stale threshold.
	ReasonStale Reason = "stale"
	// ReasonGone selects branches whose upstream was deleted.
	ReasonGone Reason = "gone"
	// ReasonSelected marks branches picked by hand.
	ReasonSelected Reason = "selected"
)

// Matches reports whether rec carries the indicator for r. Hand selection
// has no indicator and matches nothing.
func (r Reason) Matches(rec Record) bool {
	switch r {
	case ReasonMerged:
		return rec.Merged
	case ReasonStale:
		return rec.Stale
	case ReasonGone:
		return rec.Gone
	default:
		return false
	}
}
