package branches

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/agrahamlincoln/sentei/pkg/git"
)

// rule answers any git invocation whose joined arguments contain every
// string in match.
type rule struct {
	match []string
	out   string
	err   error
}

// mockRunner implements git.Runner by answering from rules in order.
// Unmatched commands fail like a non-zero git exit.
type mockRunner struct {
	mu    sync.Mutex
	rules []rule
	calls []string
}

func (m *mockRunner) on(out string, match ...string) *mockRunner {
	m.rules = append(m.rules, rule{match: match, out: out})
	return m
}

func (m *mockRunner) fail(match ...string) *mockRunner {
	m.rules = append(m.rules, rule{match: match, err: errors.New("exit status 1")})
	return m
}

func (m *mockRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	joined := strings.Join(args, " ")
	m.mu.Lock()
	m.calls = append(m.calls, joined)
	m.mu.Unlock()

	for _, r := range m.rules {
		if containsAll(joined, r.match) {
			if r.err != nil {
				return "", &git.CommandError{Args: args, Dir: dir, Err: r.err}
			}
			return r.out, nil
		}
	}
	return "", &git.CommandError{Args: args, Dir: dir, Err: errors.New("exit status 128")}
}

func (m *mockRunner) called(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
