package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/schedule"
)

// Sheet names shared with the validator, which reads workbooks back.
const (
	MasterSheet = "Master Schedule"
	GamesSheet  = "Games"
)

const (
	dateFormat = "01/02/2006"
	closedCell = "Closed"
)

// GamesHeader is the column layout of the Games sheet.
var GamesHeader = []string{"Date", "Day", "Start", "End", "Minutes", "Venue", "Division", "Pool", "Home", "Away", "Game ID"}

// Generate creates a workbook with the master grid, a flat list of games and
// one sheet per team. Only games matching filter are written.
func Generate(cfg *config.Config, games []schedule.Game, filter schedule.ExportFilter) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetDefaultFont("Arial"); err != nil {
		return nil, errors.Wrap(err, "setting default font")
	}

	rows := schedule.Export(games, filter, cfg)

	if err := writeMasterSheet(f, cfg, rows, filter); err != nil {
		return nil, errors.Wrap(err, "writing master sheet")
	}
	if err := writeGamesSheet(f, rows); err != nil {
		return nil, errors.Wrap(err, "writing games sheet")
	}
	if err := writeTeamSheets(f, cfg, rows); err != nil {
		return nil, errors.Wrap(err, "writing team sheets")
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "removing default sheet")
	}
	return f, nil
}

// venueColumnName shortens a venue to its first word when that word is
// unique among all venues.
func venueColumnName(name string, allNames []string) string {
	first, _, _ := strings.Cut(name, " ")
	count := 0
	for _, n := range allNames {
		word, _, _ := strings.Cut(n, " ")
		if word == first {
			count++
		}
	}
	if count > 1 {
		return name
	}
	return first
}

type styles struct {
	header, cell, centered, closed int
}

func newStyles(f *excelize.File) styles {
	var s styles
	s.header, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.cell, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	s.centered, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.closed, _ = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	return s
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if style != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), style)
	}
}

// writeMasterSheet lays games out on the slot grid: one row per slot, one
// column per venue. A game fills its start cell and every following cell it
// still occupies; cells outside a venue's hours read "Closed".
func writeMasterSheet(f *excelize.File, cfg *config.Config, rows []schedule.ExportRow, filter schedule.ExportFilter) error {
	sheet := MasterSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)

	venues := cfg.ScheduleVenues()
	if filter.VenueID != "" {
		var only []schedule.Venue
		for _, v := range venues {
			if v.ID == filter.VenueID {
				only = append(only, v)
			}
		}
		venues = only
	}

	names := make([]string, len(venues))
	for i, v := range venues {
		names[i] = cfg.VenueName(v.ID)
	}
	headers := []string{"Date", "Day", "Time"}
	for _, n := range names {
		headers = append(headers, venueColumnName(n, names))
	}
	writeHeader(f, sheet, headers, st.header)

	type cellKey struct {
		date  string
		time  schedule.Clock
		venue string
	}
	interval := cfg.Interval()
	occupied := make(map[cellKey]string)
	for _, r := range rows {
		label := fmt.Sprintf("%s @ %s", r.Away, r.Home)
		for t := r.Start.Snap(interval); t < r.End; t = t.Add(interval.Minutes()) {
			k := cellKey{r.Date.Format(time.DateOnly), t, r.VenueID}
			if _, taken := occupied[k]; !taken {
				occupied[k] = label
			}
		}
	}

	start, end := cfg.Tournament.StartDate.Time, cfg.Tournament.EndDate.Time
	if filter.Date != nil {
		start, end = *filter.Date, *filter.Date
	}

	row := 1
	for slot := range schedule.GenerateSlots(start, end, venues, interval) {
		row++
		f.SetCellValue(sheet, cellRef(1, row), slot.Date.Format(dateFormat))
		f.SetCellValue(sheet, cellRef(2, row), slot.Date.Format("Mon"))
		f.SetCellValue(sheet, cellRef(3, row), slot.Time.String())
		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(3, row), st.cell)
		}

		for i, v := range venues {
			col := i + 4
			if label, ok := occupied[cellKey{slot.Date.Format(time.DateOnly), slot.Time, v.ID}]; ok {
				f.SetCellValue(sheet, cellRef(col, row), label)
				if st.centered != 0 {
					f.SetCellStyle(sheet, cellRef(col, row), cellRef(col, row), st.centered)
				}
				continue
			}
			if !schedule.IsTimeAvailable(slot.Time, v) {
				f.SetCellValue(sheet, cellRef(col, row), closedCell)
				if st.closed != 0 {
					f.SetCellStyle(sheet, cellRef(col, row), cellRef(col, row), st.closed)
				}
			}
		}
	}

	// Sized for Arial 16
	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "B", 8)
	f.SetColWidth(sheet, "C", "C", 10)
	for i := range venues {
		col := colLetter(i + 4)
		f.SetColWidth(sheet, col, col, 30)
	}
	return nil
}

func writeGamesSheet(f *excelize.File, rows []schedule.ExportRow) error {
	sheet := GamesSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)
	writeHeader(f, sheet, GamesHeader, st.header)

	for i, r := range rows {
		row := i + 2
		values := []any{
			r.Date.Format(dateFormat),
			r.Date.Format("Mon"),
			r.Start.String(),
			r.End.String(),
			r.Duration,
			r.Venue,
			r.Division,
			r.Pool,
			r.Home,
			r.Away,
			r.GameID.String(),
		}
		if err := f.SetSheetRow(sheet, cellRef(1, row), &values); err != nil {
			return err
		}
		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(values), row), st.cell)
		}
	}

	widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 10, "E": 10, "F": 28, "G": 12, "H": 12, "I": 20, "J": 20, "K": 40}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func writeTeamSheets(f *excelize.File, cfg *config.Config, rows []schedule.ExportRow) error {
	st := newStyles(f)
	headers := []string{"Date", "Day", "Time", "Venue", "Opponent", "Home/Away", "Minutes"}

	used := make(map[string]bool)
	for _, team := range cfg.AllTeams() {
		sheet := sheetName(team.Name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrapf(err, "team %q", team.ID)
		}
		writeHeader(f, sheet, headers, st.header)

		row := 1
		for _, r := range rows {
			var opponent, homeAway string
			switch team.ID {
			case r.HomeTeamID:
				opponent, homeAway = r.Away, "Home"
			case r.AwayTeamID:
				opponent, homeAway = r.Home, "Away"
			default:
				continue
			}
			row++
			f.SetCellValue(sheet, cellRef(1, row), r.Date.Format(dateFormat))
			f.SetCellValue(sheet, cellRef(2, row), r.Date.Format("Mon"))
			f.SetCellValue(sheet, cellRef(3, row), r.Start.String())
			f.SetCellValue(sheet, cellRef(4, row), r.Venue)
			f.SetCellValue(sheet, cellRef(5, row), opponent)
			f.SetCellValue(sheet, cellRef(6, row), homeAway)
			f.SetCellValue(sheet, cellRef(7, row), r.Duration)
			if st.cell != 0 {
				f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.cell)
			}
		}

		widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 28, "E": 20, "F": 14, "G": 12}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}
	return nil
}

// sheetName makes a team name usable as a worksheet name: at most 31
// characters, none of []:*?/\, and unique within the workbook.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	if clean == "" {
		clean = "Team"
	}
	if n := []rune(clean); len(n) > 31 {
		clean = string(n[:31])
	}
	candidate := clean
	for i := 2; sheetTaken(candidate, used); i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := []rune(clean)
		if len(base)+len(suffix) > 31 {
			base = base[:31-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// sheetTaken compares names case-insensitively, as Excel does.
func sheetTaken(name string, used map[string]bool) bool {
	key := strings.ToLower(name)
	return used[key] || key == strings.ToLower(MasterSheet) || key == strings.ToLower(GamesSheet) || key == "sheet1"
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
