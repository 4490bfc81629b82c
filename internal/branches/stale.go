package branches

import "time"

// ageDays returns whole days elapsed between t and now. Commits dated in
// the future count as zero days old.
func ageDays(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// IsStale reports whether a branch aged ageDays is stale under threshold.
// The boundary is inclusive: a branch exactly threshold days old is stale.
func IsStale(ageDays, threshold int) bool {
	return ageDays >= threshold
}
