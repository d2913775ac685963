package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Directory resolves ids on a game to display names.
type Directory interface {
	VenueName(id string) string
	TeamName(id string) string
	PoolName(id string) string
	DivisionOf(poolID string) string
}

// ExportFilter narrows an export. Zero values match everything.
type ExportFilter struct {
	Date     *time.Time
	Division string
	PoolID   string
	VenueID  string
}

// ExportRow is one placed game flattened for a CSV, PDF or spreadsheet
// renderer.
type ExportRow struct {
	GameID     uuid.UUID `json:"gameId"`
	Date       time.Time `json:"date"`
	Start      Clock     `json:"start"`
	End        Clock     `json:"end"`
	Duration   int       `json:"durationMinutes"`
	VenueID    string    `json:"venueId"`
	Venue      string    `json:"venue"`
	Division   string    `json:"division"`
	PoolID     string    `json:"poolId"`
	Pool       string    `json:"pool"`
	HomeTeamID string    `json:"homeTeamId"`
	Home       string    `json:"home"`
	AwayTeamID string    `json:"awayTeamId"`
	Away       string    `json:"away"`
}

// Export flattens the games matching filter into rows ordered by date, start
// time and venue.
func Export(games []Game, filter ExportFilter, dir Directory) []ExportRow {
	sorted := make([]Game, len(games))
	copy(sorted, games)
	sortGames(sorted)

	rows := make([]ExportRow, 0, len(sorted))
	for _, g := range sorted {
		division := dir.DivisionOf(g.PoolID)
		if filter.Date != nil && !SameDay(g.Date, *filter.Date) {
			continue
		}
		if filter.Division != "" && filter.Division != division {
			continue
		}
		if filter.PoolID != "" && filter.PoolID != g.PoolID {
			continue
		}
		if filter.VenueID != "" && filter.VenueID != g.VenueID {
			continue
		}
		rows = append(rows, ExportRow{
			GameID:     g.ID,
			Date:       g.Date,
			Start:      g.Start,
			End:        g.End(),
			Duration:   g.Duration,
			VenueID:    g.VenueID,
			Venue:      dir.VenueName(g.VenueID),
			Division:   division,
			PoolID:     g.PoolID,
			Pool:       dir.PoolName(g.PoolID),
			HomeTeamID: g.HomeTeamID,
			Home:       dir.TeamName(g.HomeTeamID),
			AwayTeamID: g.AwayTeamID,
			Away:       dir.TeamName(g.AwayTeamID),
		})
	}
	return rows
}
