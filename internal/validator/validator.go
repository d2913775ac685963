package validator

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/excel"
	"github.com/derekprior/diamonds/internal/schedule"
	"github.com/derekprior/diamonds/internal/strategy"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Row     int // Games sheet row; 0 when not read from a workbook
	GameID  uuid.UUID
	Type    string // "error" or "warning"
	Message string
}

const (
	typeError   = "error"
	typeWarning = "warning"
)

type entry struct {
	Row  int
	Game schedule.Game
}

// Audit checks placed games against the tournament config: tournament
// days, venue hours, durations, overlaps and whether every pool pairing is on the schedule.
func Audit(cfg *config.Config, games []schedule.Game) []Violation {
	entries := make([]entry, len(games))
	for i, g := range games {
		entries[i] = entry{Game: g}
	}
	return audit(cfg, entries)
}

// Validate reads the Games sheet of a schedule workbook and audits it.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	entries, err := readGames(cfg, f)
	if err != nil {
		return nil, errors.Wrap(err, "reading games")
	}
	return audit(cfg, entries), nil
}

func audit(cfg *config.Config, entries []entry) []Violation {
	var violations []Violation

	violations = append(violations, checkDateRange(cfg, entries)...)
	violations = append(violations, checkVenueHours(cfg, entries)...)
	violations = append(violations, checkDurations(cfg, entries)...)

	// Overlaps only happen within a day, so each day is checked on its own.
	days := groupByDay(entries)
	for _, found := range iter.Map(days, func(day *[]entry) []Violation {
		return checkOverlaps(cfg, *day)
	}) {
		violations = append(violations, found...)
	}

	violations = append(violations, checkCompleteness(cfg, entries)...)

	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Row != violations[j].Row {
			return violations[i].Row < violations[j].Row
		}
		return violations[i].Type == typeError && violations[j].Type != typeError
	})
	return violations
}

func readGames(cfg *config.Config, f *excelize.File) ([]entry, error) {
	rows, err := f.GetRows(excel.GamesSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", excel.GamesSheet)
	}
	if len(rows) == 0 {
		return nil, errors.Newf("%s is empty", excel.GamesSheet)
	}

	col := make(map[string]int)
	for i, h := range rows[0] {
		col[h] = i
	}
	for _, h := range excel.GamesHeader {
		if _, ok := col[h]; !ok {
			return nil, errors.Newf("%s is missing the %q column", excel.GamesSheet, h)
		}
	}

	venues := make(map[string]string)
	for _, v := range cfg.Venues {
		venues[cfg.VenueName(v.ID)] = v.ID
	}
	teams := make(map[string]string)
	for _, t := range cfg.AllTeams() {
		teams[t.Name] = t.ID
	}
	pools := make(map[string]string)
	for _, p := range cfg.Pools {
		pools[cfg.PoolName(p.ID)] = p.ID
	}
	lookup := func(names map[string]string, name string) string {
		if id, ok := names[name]; ok {
			return id
		}
		return name
	}

	var entries []entry
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(h string) string {
			if c := col[h]; c < len(row) {
				return row[c]
			}
			return ""
		}
		if cell("Date") == "" {
			continue
		}

		date, err := time.Parse("01/02/2006", cell("Date"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: date", rowNum)
		}
		start, err := schedule.ParseClock(cell("Start"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: start", rowNum)
		}
		minutes, err := strconv.Atoi(cell("Minutes"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: minutes", rowNum)
		}
		id, err := uuid.Parse(cell("Game ID"))
		if err != nil {
			id = uuid.Nil
		}

		entries = append(entries, entry{
			Row: rowNum,
			Game: schedule.Game{
				ID:         id,
				HomeTeamID: lookup(teams, cell("Home")),
				AwayTeamID: lookup(teams, cell("Away")),
				PoolID:     lookup(pools, cell("Pool")),
				VenueID:    lookup(venues, cell("Venue")),
				Date:       date,
				Start:      start,
				Duration:   minutes,
			},
		})
	}
	return entries, nil
}

func checkDateRange(cfg *config.Config, entries []entry) []Violation {
	first, last := cfg.Tournament.StartDate.Time, cfg.Tournament.EndDate.Time
	var violations []Violation
	for _, e := range entries {
		g := e.Game
		if !schedule.InRange(g.Date, first, last) {
			violations = append(violations, Violation{
				Row: e.Row, GameID: g.ID, Type: typeError,
				Message: fmt.Sprintf("%s is on %s, outside the tournament (%s to %s)",
					label(cfg, g), g.Date.Format("2006-01-02"), first.Format("2006-01-02"), last.Format("2006-01-02")),
			})
		}
	}
	return violations
}

func checkVenueHours(cfg *config.Config, entries []entry) []Violation {
	venues := make(map[string]schedule.Venue)
	for _, v := range cfg.ScheduleVenues() {
		venues[v.ID] = v
	}

	var violations []Violation
	for _, e := range entries {
		g := e.Game
		v, ok := venues[g.VenueID]
		if !ok {
			violations = append(violations, Violation{
				Row: e.Row, GameID: g.ID, Type: typeError,
				Message: fmt.Sprintf("%s is not a venue of this tournament", cfg.VenueName(g.VenueID)),
			})
			continue
		}
		if !schedule.IsTimeAvailable(g.Start, v) {
			violations = append(violations, Violation{
				Row: e.Row, GameID: g.ID, Type: typeError,
				Message: fmt.Sprintf("%s starts at %s on %s, outside %s hours %s-%s",
					label(cfg, g), g.Start, g.Date.Format("01/02"), cfg.VenueName(v.ID), v.Open, v.Close),
			})
			continue
		}
		if g.End() > v.Close {
			typ := typeWarning
			if cfg.Grid.EnforceClosingTime {
				typ = typeError
			}
			violations = append(violations, Violation{
				Row: e.Row, GameID: g.ID, Type: typ,
				Message: fmt.Sprintf("%s runs until %s on %s, after %s closes at %s",
					label(cfg, g), g.End(), g.Date.Format("01/02"), cfg.VenueName(v.ID), v.Close),
			})
		}
	}
	return violations
}

func checkDurations(cfg *config.Config, entries []entry) []Violation {
	lo, hi := cfg.Interval().Minutes(), cfg.Grid.MaxDurationMinutes
	var violations []Violation
	for _, e := range entries {
		if d := e.Game.Duration; d < lo || d > hi {
			violations = append(violations, Violation{
				Row: e.Row, GameID: e.Game.ID, Type: typeError,
				Message: fmt.Sprintf("%s lasts %d minutes (allowed %d-%d)", label(cfg, e.Game), d, lo, hi),
			})
		}
	}
	return violations
}

func groupByDay(entries []entry) [][]entry {
	byDay := make(map[string][]entry)
	var keys []string
	for _, e := range entries {
		k := e.Game.Date.Format(time.DateOnly)
		if _, ok := byDay[k]; !ok {
			keys = append(keys, k)
		}
		byDay[k] = append(byDay[k], e)
	}
	sort.Strings(keys)

	days := make([][]entry, len(keys))
	for i, k := range keys {
		days[i] = byDay[k]
	}
	return days
}

// checkOverlaps reports every pair of games on one day that share a venue or
// a team and whose times intersect.
func checkOverlaps(cfg *config.Config, day []entry) []Violation {
	sort.Slice(day, func(i, j int) bool {
		if day[i].Game.Start != day[j].Game.Start {
			return day[i].Game.Start < day[j].Game.Start
		}
		return day[i].Row < day[j].Row
	})

	var violations []Violation
	for i := range day {
		a := day[i].Game
		for j := i + 1; j < len(day); j++ {
			b := day[j].Game
			if b.Start >= a.End() {
				break
			}
			if !schedule.Overlaps(a.Start, a.End(), b.Start, b.End()) {
				continue
			}
			when := fmt.Sprintf("%s %s-%s and %s-%s", a.Date.Format("01/02"), a.Start, a.End(), b.Start, b.End())
			if a.VenueID == b.VenueID {
				violations = append(violations, Violation{
					Row: day[j].Row, GameID: b.ID, Type: typeError,
					Message: fmt.Sprintf("%s is double-booked on %s", cfg.VenueName(a.VenueID), when),
				})
			}
			for _, team := range []string{a.HomeTeamID, a.AwayTeamID} {
				if b.Involves(team) {
					violations = append(violations, Violation{
						Row: day[j].Row, GameID: b.ID, Type: typeError,
						Message: fmt.Sprintf("%s plays overlapping games on %s", cfg.TeamName(team), when),
					})
				}
			}
		}
	}
	return violations
}

// checkCompleteness compares scheduled pairings with the ones the configured
// strategy generates.
func checkCompleteness(cfg *config.Config, entries []entry) []Violation {
	s, err := strategy.Get(cfg.Strategy, nil)
	if err != nil {
		return []Violation{{Type: typeWarning, Message: err.Error()}}
	}

	type pairing struct{ pool, a, b string }
	key := func(pool, home, away string) pairing {
		if home > away {
			home, away = away, home
		}
		return pairing{pool, home, away}
	}

	expected := make(map[pairing]int)
	var order []pairing
	for _, m := range s.GenerateMatchups(cfg.Pools) {
		k := key(m.PoolID, m.HomeTeamID, m.AwayTeamID)
		if expected[k] == 0 {
			order = append(order, k)
		}
		expected[k]++
	}
	scheduled := make(map[pairing]int)
	counts := make(map[string]int)
	for _, e := range entries {
		g := e.Game
		scheduled[key(g.PoolID, g.HomeTeamID, g.AwayTeamID)]++
		counts[g.HomeTeamID]++
		counts[g.AwayTeamID]++
	}

	var violations []Violation
	for _, k := range order {
		if got, want := scheduled[k], expected[k]; got != want {
			violations = append(violations, Violation{
				Type: typeWarning,
				Message: fmt.Sprintf("%s: %s vs %s scheduled %d of %d times",
					cfg.PoolName(k.pool), cfg.TeamName(k.a), cfg.TeamName(k.b), got, want),
			})
		}
	}
	for _, team := range cfg.AllTeams() {
		if counts[team.ID] == 0 {
			violations = append(violations, Violation{
				Type:    typeError,
				Message: fmt.Sprintf("%s has no games scheduled", team.Name),
			})
		}
	}
	return violations
}

func label(cfg *config.Config, g schedule.Game) string {
	return fmt.Sprintf("%s @ %s", cfg.TeamName(g.AwayTeamID), cfg.TeamName(g.HomeTeamID))
}
