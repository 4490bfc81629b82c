package branches

import (
	"context"
	"log/slog"
)

// AutoBase is the base_branch setting that asks for detection.
const AutoBase = "auto"

// fallbackBase is returned when nothing else resolves.
const fallbackBase = "main"

var conventionalBases = []string{"main", "master", "develop"}

// BaseLookup is the subset of git queries the base-branch resolver needs.
type BaseLookup interface {
	DefaultRemoteBranch(ctx context.Context, remote string) (string, error)
	BranchExists(ctx context.Context, branch string) bool
	CurrentBranch(ctx context.Context) (string, error)
}

// ResolveBase returns the branch that merged status is computed against.
// An explicit configured name is returned as is. Otherwise the remote's
// HEAD, then main/master/develop, then the current branch are tried, and
// "main" is the last resort. Failures only move on to the next rule.
func ResolveBase(ctx context.Context, g BaseLookup, configured, remote string) string {
	if configured != "" && configured != AutoBase {
		return configured
	}

	if name, err := g.DefaultRemoteBranch(ctx, remote); err == nil && name != "" {
		return name
	} else if err != nil {
		slog.Debug("no remote HEAD, trying conventional names", "remote", remote, "error", err)
	}

	for _, name := range conventionalBases {
		if g.BranchExists(ctx, name) {
			return name
		}
	}

	current, err := g.CurrentBranch(ctx)
	if err != nil {
		slog.Warn("could not determine current branch", "error", err)
	}
	if current != "" {
		return current
	}

	slog.Debug("falling back to default base branch", "base", fallbackBase)
	return fallbackBase
}
