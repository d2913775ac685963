package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/derekprior/diamonds/internal/schedule"
)

var (
	// ErrNotFound means no state has been saved for the tournament yet.
	ErrNotFound = errors.New("tournament state not found")
	// ErrStaleState means the state was modified since it was loaded. The
	// caller reloads and lets the user retry; it is never retried silently.
	ErrStaleState = errors.New("tournament state changed since it was loaded")
)

// Store persists one schedule.State per tournament.
//
// Save is a compare-and-swap on State.Version: it succeeds only if the stored
// version still equals state.Version (0 for a tournament never saved), and
// returns the new version.
type Store interface {
	Load(ctx context.Context, tournamentID string) (schedule.State, error)
	Save(ctx context.Context, tournamentID string, state schedule.State) (int, error)
}

func cloneState(s schedule.State) schedule.State {
	copied := s
	copied.Matchups = append([]schedule.Matchup(nil), s.Matchups...)
	copied.Games = append([]schedule.Game(nil), s.Games...)
	return copied
}
