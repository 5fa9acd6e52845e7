package relay

import (
	"context"
	"sync"
)

// Static is a relay reporting fixed epoch difficulties. It is used on
// development networks and in tests.
type Static struct {
	// Protects current and previous
	mu       sync.RWMutex
	current  uint64
	previous uint64
}

func NewStatic(current, previous uint64) *Static {
	return &Static{current: current, previous: previous}
}

func (s *Static) CurrentEpochDifficulty(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current, nil
}

func (s *Static) PrevEpochDifficulty(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.previous, nil
}

// Retarget moves to a new epoch with the given difficulty.
func (s *Static) Retarget(next uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.previous = s.current
	s.current = next
}
