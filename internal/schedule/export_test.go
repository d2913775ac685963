package schedule

import (
	"testing"

	"github.com/google/uuid"
)

type testDirectory struct{}

func (testDirectory) VenueName(id string) string {
	for _, v := range testVenues() {
		if v.ID == id {
			return v.Name
		}
	}
	return id
}

func (testDirectory) TeamName(id string) string { return teamNames[id] }

func (testDirectory) PoolName(id string) string { return "Pool " + id }

func (testDirectory) DivisionOf(poolID string) string {
	if poolID == "pool-b" {
		return "13U"
	}
	return "11U"
}

func TestExport(t *testing.T) {
	day1, day2 := mustDate("2025-07-01"), mustDate("2025-07-02")
	g := func(pool, venue string, date string, start string) Game {
		return Game{
			ID:         uuid.New(),
			HomeTeamID: "dragons",
			AwayTeamID: "tigers",
			PoolID:     pool,
			VenueID:    venue,
			Date:       mustDate(date),
			Start:      MustParseClock(start),
			Duration:   90,
		}
	}
	games := []Game{
		g("pool-a", "diamond-b", "2025-07-02", "09:00"),
		g("pool-b", "diamond-a", "2025-07-01", "13:00"),
		g("pool-a", "diamond-a", "2025-07-01", "09:00"),
		g("pool-a", "diamond-b", "2025-07-01", "09:00"),
	}

	t.Run("ordered by date, time and venue", func(t *testing.T) {
		rows := Export(games, ExportFilter{}, testDirectory{})
		if len(rows) != 4 {
			t.Fatalf("rows = %d, want 4", len(rows))
		}
		want := []struct {
			venue string
			start string
		}{
			{"diamond-a", "09:00"},
			{"diamond-b", "09:00"},
			{"diamond-a", "13:00"},
			{"diamond-b", "09:00"},
		}
		for i, w := range want {
			if rows[i].VenueID != w.venue || rows[i].Start.String() != w.start {
				t.Errorf("row %d = %s %s, want %s %s", i, rows[i].VenueID, rows[i].Start, w.venue, w.start)
			}
		}
		if !rows[3].Date.Equal(day2) {
			t.Errorf("last row date = %v, want %v", rows[3].Date, day2)
		}
	})

	t.Run("resolves names", func(t *testing.T) {
		row := Export(games[:1], ExportFilter{}, testDirectory{})[0]
		if row.Venue != "Diamond B" || row.Home != "Dragons" || row.Away != "Tigers" {
			t.Errorf("row = %+v, want resolved names", row)
		}
		if row.Division != "11U" || row.Pool != "Pool pool-a" {
			t.Errorf("division/pool = %s/%s, want 11U/Pool pool-a", row.Division, row.Pool)
		}
		if row.End != MustParseClock("10:30") {
			t.Errorf("end = %s, want 10:30", row.End)
		}
	})

	t.Run("filters by day", func(t *testing.T) {
		rows := Export(games, ExportFilter{Date: &day1}, testDirectory{})
		if len(rows) != 3 {
			t.Errorf("rows = %d, want 3", len(rows))
		}
	})

	t.Run("filters by division", func(t *testing.T) {
		rows := Export(games, ExportFilter{Division: "13U"}, testDirectory{})
		if len(rows) != 1 || rows[0].PoolID != "pool-b" {
			t.Errorf("rows = %+v, want the single pool-b game", rows)
		}
	})

	t.Run("filters combine", func(t *testing.T) {
		rows := Export(games, ExportFilter{Date: &day1, Division: "11U", VenueID: "diamond-b"}, testDirectory{})
		if len(rows) != 1 {
			t.Errorf("rows = %d, want 1", len(rows))
		}
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		first := games[0].ID
		Export(games, ExportFilter{}, testDirectory{})
		if games[0].ID != first {
			t.Error("Export sorted the caller's slice")
		}
	})
}
