package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Matchup is an unscheduled home/away pairing within a pool.
type Matchup struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	HomeTeamID string    `json:"homeTeamId" yaml:"home_team_id"`
	AwayTeamID string    `json:"awayTeamId" yaml:"away_team_id"`
	PoolID     string    `json:"poolId" yaml:"pool_id"`
}

// Teams returns the home and away team ids.
func (m Matchup) Teams() [2]string {
	return [2]string{m.HomeTeamID, m.AwayTeamID}
}

// Game is a matchup placed on a concrete date, start time, venue and duration.
type Game struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	MatchupID  uuid.UUID `json:"matchupId" yaml:"matchup_id"`
	HomeTeamID string    `json:"homeTeamId" yaml:"home_team_id"`
	AwayTeamID string    `json:"awayTeamId" yaml:"away_team_id"`
	PoolID     string    `json:"poolId" yaml:"pool_id"`
	VenueID    string    `json:"venueId" yaml:"venue_id"`
	Date       time.Time `json:"date" yaml:"date"`
	Start      Clock     `json:"time" yaml:"time"`
	Duration   int       `json:"durationMinutes" yaml:"duration_minutes"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updated_at"`
}

// End returns the clock time the game finishes.
func (g Game) End() Clock {
	return g.Start.Add(g.Duration)
}

// Involves reports whether the team plays in the game on either side.
func (g Game) Involves(team string) bool {
	return g.HomeTeamID == team || g.AwayTeamID == team
}

// Attempt is a proposed placement evaluated by the Checker. It is never
// persisted.
type Attempt struct {
	Matchup  Matchup
	Date     time.Time
	Start    Clock
	Venue    Venue
	Duration int
}

// End returns the clock time the proposed game would finish.
func (a Attempt) End() Clock {
	return a.Start.Add(a.Duration)
}

// Progress counts matchups against placed games.
type Progress struct {
	Total    int `json:"total"`
	Placed   int `json:"placed"`
	Unplaced int `json:"unplaced"`
}

// State is the persisted working set for one tournament: every matchup ever
// generated plus the games placed so far. Version increases with every save.
type State struct {
	Version  int       `json:"version" yaml:"version"`
	Matchups []Matchup `json:"matchups" yaml:"matchups"`
	Games    []Game    `json:"games" yaml:"games"`
}
