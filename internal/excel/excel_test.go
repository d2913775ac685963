package excel

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/schedule"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func clock(s string) config.Time {
	return config.Time{Clock: schedule.MustParseClock(s)}
}

func testData() (*config.Config, []schedule.Game) {
	cfg := &config.Config{
		Tournament: config.Tournament{
			ID:        "summer",
			StartDate: config.Date{Time: date(2025, 7, 1)},
			EndDate:   config.Date{Time: date(2025, 7, 2)},
		},
		Venues: []config.Venue{
			{ID: "diamond-a", Name: "Diamond A", AvailableStartTime: clock("09:00"), AvailableEndTime: clock("12:00")},
			{ID: "field-b", Name: "Field B", AvailableStartTime: clock("10:00"), AvailableEndTime: clock("12:00")},
		},
		Pools: []config.Pool{
			{ID: "pool-a", Name: "A", Division: "11U", Teams: []config.Team{
				{ID: "dragons", Name: "Dragons"}, {ID: "tigers", Name: "Tigers"},
			}},
			{ID: "pool-b", Name: "B", Division: "13U", Teams: []config.Team{
				{ID: "hawks", Name: "Hawks"}, {ID: "sharks", Name: "Sharks"},
			}},
		},
		Grid: config.Grid{IntervalMinutes: 60, DefaultDurationMinutes: 90, MaxDurationMinutes: 480},
	}

	games := []schedule.Game{
		{
			ID: uuid.New(), MatchupID: uuid.New(),
			HomeTeamID: "dragons", AwayTeamID: "tigers", PoolID: "pool-a",
			VenueID: "diamond-a", Date: date(2025, 7, 1), Start: schedule.MustParseClock("09:00"), Duration: 90,
		},
		{
			ID: uuid.New(), MatchupID: uuid.New(),
			HomeTeamID: "hawks", AwayTeamID: "sharks", PoolID: "pool-b",
			VenueID: "field-b", Date: date(2025, 7, 2), Start: schedule.MustParseClock("10:00"), Duration: 60,
		},
	}
	return cfg, games
}

func TestGenerateWorkbook(t *testing.T) {
	cfg, games := testData()

	f, err := Generate(cfg, games, schedule.ExportFilter{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	t.Run("has Master Schedule sheet", func(t *testing.T) {
		idx, err := f.GetSheetIndex(MasterSheet)
		if err != nil {
			t.Fatalf("GetSheetIndex error: %v", err)
		}
		if idx < 0 {
			t.Error("Master Schedule sheet not found")
		}
	})

	t.Run("master sheet has headers", func(t *testing.T) {
		for cell, want := range map[string]string{"A1": "Date", "C1": "Time", "D1": "Diamond", "E1": "Field"} {
			if val, _ := f.GetCellValue(MasterSheet, cell); val != want {
				t.Errorf("%s = %q, want %q", cell, val, want)
			}
		}
	})

	t.Run("one row per slot", func(t *testing.T) {
		rows, _ := f.GetRows(MasterSheet)
		// 09:00-12:00 at 60 minutes over two days, plus the header
		if len(rows) != 7 {
			t.Errorf("rows = %d, want 7", len(rows))
		}
	})

	t.Run("game fills every slot it occupies", func(t *testing.T) {
		for _, cell := range []string{"D2", "D3"} {
			if val, _ := f.GetCellValue(MasterSheet, cell); val != "Tigers @ Dragons" {
				t.Errorf("%s = %q, want Tigers @ Dragons", cell, val)
			}
		}
		if val, _ := f.GetCellValue(MasterSheet, "D4"); val != "" {
			t.Errorf("D4 = %q, want empty after the game ends", val)
		}
	})

	t.Run("closed cells are marked", func(t *testing.T) {
		if val, _ := f.GetCellValue(MasterSheet, "E2"); val != "Closed" {
			t.Errorf("E2 = %q, want Closed before Field B opens", val)
		}
		if val, _ := f.GetCellValue(MasterSheet, "E3"); val != "" {
			t.Errorf("E3 = %q, want empty", val)
		}
	})

	t.Run("games sheet lists each game", func(t *testing.T) {
		rows, _ := f.GetRows(GamesSheet)
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want 3", len(rows))
		}
		want := []string{"07/01/2025", "Tue", "09:00", "10:30", "90", "Diamond A", "11U", "A", "Dragons", "Tigers", games[0].ID.String()}
		for i, w := range want {
			if rows[1][i] != w {
				t.Errorf("%s = %q, want %q", GamesHeader[i], rows[1][i], w)
			}
		}
	})

	t.Run("has per-team sheets", func(t *testing.T) {
		for _, team := range []string{"Dragons", "Tigers", "Hawks", "Sharks"} {
			idx, err := f.GetSheetIndex(team)
			if err != nil {
				t.Fatalf("GetSheetIndex error: %v", err)
			}
			if idx < 0 {
				t.Errorf("sheet for %s not found", team)
			}
		}
	})

	t.Run("team sheet has correct games", func(t *testing.T) {
		rows, _ := f.GetRows("Tigers")
		if len(rows) != 2 {
			t.Fatalf("Tigers sheet has %d rows, want 2", len(rows))
		}
		if rows[1][4] != "Dragons" || rows[1][5] != "Away" {
			t.Errorf("row = %v, want Dragons/Away", rows[1])
		}
	})

	t.Run("default Sheet1 removed", func(t *testing.T) {
		idx, _ := f.GetSheetIndex("Sheet1")
		if idx >= 0 {
			t.Error("Sheet1 should be removed")
		}
	})
}

func TestGenerateFiltered(t *testing.T) {
	cfg, games := testData()
	day := date(2025, 7, 2)

	f, err := Generate(cfg, games, schedule.ExportFilter{Date: &day})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	rows, _ := f.GetRows(GamesSheet)
	if len(rows) != 2 || rows[1][8] != "Hawks" {
		t.Errorf("games rows = %v, want only the Hawks game", rows)
	}
	master, _ := f.GetRows(MasterSheet)
	if len(master) != 4 {
		t.Errorf("master rows = %d, want 4 for a single day", len(master))
	}
}

func TestSheetName(t *testing.T) {
	used := make(map[string]bool)
	tests := []struct {
		in, want string
	}{
		{"Dragons", "Dragons"},
		{"Dragons", "Dragons (2)"},
		{"A/B Team", "A-B Team"},
		{"Games", "Games (2)"},
		{"games", "games (3)"},
		{"master schedule", "master schedule (2)"},
		{"DRAGONS", "DRAGONS (3)"},
		{"The Extremely Long Team Name Of Doom", "The Extremely Long Team Name Of"},
	}
	for _, tt := range tests {
		if got := sheetName(tt.in, used); got != tt.want {
			t.Errorf("sheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAndRead(t *testing.T) {
	cfg, games := testData()

	f, err := Generate(cfg, games, schedule.ExportFilter{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	path := t.TempDir() + "/test.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	f2, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer f2.Close()

	val, _ := f2.GetCellValue(MasterSheet, "A1")
	if val != "Date" {
		t.Errorf("re-read A1 = %q, want Date", val)
	}
}
