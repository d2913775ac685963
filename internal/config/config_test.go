package config

import (
	"strings"
	"testing"
	"time"

	"github.com/derekprior/diamonds/internal/schedule"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

const testConfigYAML = `
tournament:
  id: summer-classic-2025
  name: Summer Classic
  start_date: "2025-07-01"
  end_date: "2025-07-03"
  selected_venues: [diamond-a, diamond-b]

venues:
  - id: diamond-a
    name: Diamond A
    available_start_time: "09:00"
    available_end_time: "17:00"
  - id: diamond-b
    name: Diamond B
    available_start_time: "08:30"
    available_end_time: "21:00"
  - id: diamond-c
    name: Diamond C
    available_start_time: "10:00"
    available_end_time: "14:00"

pools:
  - id: pool-a
    name: A
    division: 11U
    teams:
      - {id: dragons, name: Dragons}
      - {id: tigers, name: Tigers}
      - Hawks
  - id: pool-b
    name: B
    division: 13U
    teams: [Sharks, Bears]

grid:
  interval_minutes: 30
  default_duration_minutes: 90
  enforce_closing_time: true

strategy: double_round_robin
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("tournament", func(t *testing.T) {
		if cfg.Tournament.ID != "summer-classic-2025" {
			t.Errorf("id = %q, want summer-classic-2025", cfg.Tournament.ID)
		}
		if cfg.Tournament.StartDate.Time != mustDate("2025-07-01") {
			t.Errorf("start date = %v, want 2025-07-01", cfg.Tournament.StartDate.Time)
		}
		if cfg.Tournament.EndDate.Time != mustDate("2025-07-03") {
			t.Errorf("end date = %v, want 2025-07-03", cfg.Tournament.EndDate.Time)
		}
	})

	t.Run("venues", func(t *testing.T) {
		if len(cfg.Venues) != 3 {
			t.Fatalf("venues = %d, want 3", len(cfg.Venues))
		}
		b := cfg.Venues[1]
		if b.AvailableStartTime.Clock != schedule.MustParseClock("08:30") {
			t.Errorf("Diamond B opens %s, want 08:30", b.AvailableStartTime.Clock)
		}
		if b.AvailableEndTime.Clock != schedule.MustParseClock("21:00") {
			t.Errorf("Diamond B closes %s, want 21:00", b.AvailableEndTime.Clock)
		}
	})

	t.Run("selected venues only", func(t *testing.T) {
		venues := cfg.ScheduleVenues()
		if len(venues) != 2 {
			t.Fatalf("schedule venues = %d, want 2", len(venues))
		}
		for _, v := range venues {
			if v.ID == "diamond-c" {
				t.Error("diamond-c is not selected but was returned")
			}
		}
	})

	t.Run("teams accept names or mappings", func(t *testing.T) {
		teams := cfg.Pools[0].Teams
		if teams[0].ID != "dragons" || teams[0].Name != "Dragons" {
			t.Errorf("team 0 = %+v, want dragons/Dragons", teams[0])
		}
		if teams[2].ID != "Hawks" || teams[2].Name != "Hawks" {
			t.Errorf("team 2 = %+v, want Hawks/Hawks", teams[2])
		}
		if len(cfg.AllTeams()) != 5 {
			t.Errorf("AllTeams() = %d teams, want 5", len(cfg.AllTeams()))
		}
	})

	t.Run("grid", func(t *testing.T) {
		if cfg.Interval() != schedule.Interval30 {
			t.Errorf("interval = %d, want 30", cfg.Interval())
		}
		if cfg.Grid.MaxDurationMinutes != 480 {
			t.Errorf("max duration = %d, want default 480", cfg.Grid.MaxDurationMinutes)
		}
		if !cfg.Checker().EnforceClosingTime {
			t.Error("enforce_closing_time should be true")
		}
	})

	t.Run("strategy", func(t *testing.T) {
		if cfg.Strategy != "double_round_robin" {
			t.Errorf("strategy = %q, want %q", cfg.Strategy, "double_round_robin")
		}
	})

	t.Run("directory lookups", func(t *testing.T) {
		if got := cfg.TeamName("dragons"); got != "Dragons" {
			t.Errorf("TeamName(dragons) = %q, want Dragons", got)
		}
		if got := cfg.VenueName("diamond-a"); got != "Diamond A" {
			t.Errorf("VenueName(diamond-a) = %q, want Diamond A", got)
		}
		if got := cfg.PoolName("pool-b"); got != "B" {
			t.Errorf("PoolName(pool-b) = %q, want B", got)
		}
		if got := cfg.DivisionOf("pool-b"); got != "13U" {
			t.Errorf("DivisionOf(pool-b) = %q, want 13U", got)
		}
		if got := cfg.TeamName("unknown"); got != "unknown" {
			t.Errorf("TeamName(unknown) = %q, want the id back", got)
		}
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
tournament:
  id: t
  start_date: "2025-07-01"
  end_date: "2025-07-01"
venues:
  - id: f1
    available_start_time: "09:00"
    available_end_time: "17:00"
pools:
  - id: p
    teams: [A, B]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Grid.IntervalMinutes != 60 {
		t.Errorf("interval = %d, want 60", cfg.Grid.IntervalMinutes)
	}
	if cfg.Grid.DefaultDurationMinutes != 90 {
		t.Errorf("default duration = %d, want 90", cfg.Grid.DefaultDurationMinutes)
	}
	if cfg.Strategy != "round_robin" {
		t.Errorf("strategy = %q, want round_robin", cfg.Strategy)
	}
	if len(cfg.ScheduleVenues()) != 1 {
		t.Errorf("all venues should be selected when none are listed")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	base := func(venues, pools, grid string) string {
		return `
tournament:
  id: t
  start_date: "2025-07-01"
  end_date: "2025-07-02"
` + venues + pools + grid
	}
	oneVenue := `
venues:
  - id: f1
    available_start_time: "09:00"
    available_end_time: "17:00"
`
	onePool := `
pools:
  - id: p
    teams: [A, B]
`

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "end before start",
			yaml: `
tournament:
  id: t
  start_date: "2025-07-03"
  end_date: "2025-07-01"
` + oneVenue + onePool,
			want: "must not be before",
		},
		{
			name: "no venues",
			yaml: base("venues: []\n", onePool, ""),
			want: "Venues",
		},
		{
			name: "no pools",
			yaml: base(oneVenue, "pools: []\n", ""),
			want: "Pools",
		},
		{
			name: "venue closes before it opens",
			yaml: base(`
venues:
  - id: f1
    available_start_time: "17:00"
    available_end_time: "09:00"
`, onePool, ""),
			want: "must be before",
		},
		{
			name: "malformed time",
			yaml: base(`
venues:
  - id: f1
    available_start_time: "9am"
    available_end_time: "17:00"
`, onePool, ""),
			want: "malformed time",
		},
		{
			name: "unsupported interval",
			yaml: base(oneVenue, onePool, "grid:\n  interval_minutes: 20\n"),
			want: "IntervalMinutes",
		},
		{
			name: "selected venue missing",
			yaml: `
tournament:
  id: t
  start_date: "2025-07-01"
  end_date: "2025-07-02"
  selected_venues: [nowhere]
` + oneVenue + onePool,
			want: "nowhere",
		},
		{
			name: "duplicate team",
			yaml: base(oneVenue, `
pools:
  - id: a
    teams: [Dragons, Tigers]
  - id: b
    teams: [Dragons, Hawks]
`, ""),
			want: "appears in both",
		},
		{
			name: "pool with one team",
			yaml: base(oneVenue, `
pools:
  - id: a
    teams: [Dragons]
`, ""),
			want: "Teams",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}
