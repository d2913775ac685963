package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/derekprior/diamonds/internal/schedule"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]schedule.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]schedule.State)}
}

func (s *MemoryStore) Load(_ context.Context, tournamentID string) (schedule.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.items[tournamentID]
	if !ok {
		return schedule.State{}, errors.Wrapf(ErrNotFound, "tournament %q", tournamentID)
	}
	return cloneState(state), nil
}

func (s *MemoryStore) Save(_ context.Context, tournamentID string, state schedule.State) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.items[tournamentID].Version; current != state.Version {
		return current, errors.Wrapf(ErrStaleState, "tournament %q is at version %d, not %d", tournamentID, current, state.Version)
	}
	saved := cloneState(state)
	saved.Version++
	s.items[tournamentID] = saved
	return saved.Version, nil
}
