package strategy

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/schedule"
)

// Strategy generates the matchups a tournament needs placed.
type Strategy interface {
	GenerateMatchups(pools []config.Pool) []schedule.Matchup
}

// Get returns a Strategy by name. Matchup ids come from newID, or uuid.New
// when newID is nil.
func Get(name string, newID func() uuid.UUID) (Strategy, error) {
	if newID == nil {
		newID = uuid.New
	}
	switch name {
	case "round_robin":
		return &RoundRobin{NewID: newID}, nil
	case "double_round_robin":
		return &RoundRobin{NewID: newID, Legs: 2}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

// RoundRobin pairs every team in a pool with every other team in the same
// pool. With one leg, home and away alternate so that each team hosts about
// half its games; with two legs each pair meets once at each end.
type RoundRobin struct {
	NewID func() uuid.UUID
	Legs  int
}

func (s *RoundRobin) GenerateMatchups(pools []config.Pool) []schedule.Matchup {
	newID := s.NewID
	if newID == nil {
		newID = uuid.New
	}

	var matchups []schedule.Matchup
	for _, pool := range pools {
		teams := pool.Teams
		for i := 0; i < len(teams); i++ {
			for j := i + 1; j < len(teams); j++ {
				home, away := teams[i].ID, teams[j].ID
				if (i+j)%2 == 1 {
					home, away = away, home
				}
				matchups = append(matchups, schedule.Matchup{
					ID:         newID(),
					HomeTeamID: home,
					AwayTeamID: away,
					PoolID:     pool.ID,
				})
				if s.Legs >= 2 {
					matchups = append(matchups, schedule.Matchup{
						ID:         newID(),
						HomeTeamID: away,
						AwayTeamID: home,
						PoolID:     pool.ID,
					})
				}
			}
		}
	}
	return matchups
}
