// Package refresh orders overlapping branch-state refreshes so that a slow,
// older refresh can never overwrite the result of a newer one.
package refresh

import "sync"

// Token identifies one refresh. Later refreshes get larger tokens.
type Token uint64

// Sequencer hands out tokens and tracks the newest applied one.
// The zero value is ready to use.
type Sequencer struct {
	mu      sync.Mutex
	issued  Token
	applied Token
}

// Begin starts a refresh and returns its token.
func (s *Sequencer) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Apply calls fn and returns true if t is newer than every token applied
// so far; otherwise fn is not called. fn runs under the sequencer's lock,
// so two results are never applied at once.
func (s *Sequencer) Apply(t Token, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t <= s.applied {
		return false
	}
	s.applied = t
	if fn != nil {
		fn()
	}
	return true
}

// Latest returns the token of the newest refresh begun so far.
func (s *Sequencer) Latest() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}
