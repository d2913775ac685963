package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/derekprior/diamonds/internal/excel"
	"github.com/derekprior/diamonds/internal/planner"
	"github.com/derekprior/diamonds/internal/schedule"
	"github.com/derekprior/diamonds/internal/store"
	"github.com/derekprior/diamonds/internal/validator"
)

type slotFlags struct {
	date    string
	at      string
	venueID string
}

func (f *slotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Game date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.at, "time", "", "Start time (HH:MM), snapped to the grid")
	cmd.Flags().StringVar(&f.venueID, "venue", "", "Venue id")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("venue")
}

func (f *slotFlags) parse() (time.Time, schedule.Clock, error) {
	date, err := time.Parse(time.DateOnly, f.date)
	if err != nil {
		return time.Time{}, 0, errors.Wrapf(err, "--date %q", f.date)
	}
	at, err := schedule.ParseClock(f.at)
	if err != nil {
		return time.Time{}, 0, errors.Wrap(err, "--time")
	}
	return date, at, nil
}

type exportFlags struct {
	date     string
	division string
	pool     string
	venue    string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Only games on this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.division, "division", "", "Only games in this division")
	cmd.Flags().StringVar(&f.pool, "pool", "", "Only games in this pool id")
	cmd.Flags().StringVar(&f.venue, "venue", "", "Only games at this venue id")
}

func (f *exportFlags) filter() (schedule.ExportFilter, error) {
	filter := schedule.ExportFilter{Division: f.division, PoolID: f.pool, VenueID: f.venue}
	if f.date != "" {
		d, err := time.Parse(time.DateOnly, f.date)
		if err != nil {
			return filter, errors.Wrapf(err, "--date %q", f.date)
		}
		filter.Date = &d
	}
	return filter, nil
}

func newScheduleCmd(g *globals) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Place, adjust and export games",
	}

	var slotsDate, slotsVenue string
	slotsCmd := &cobra.Command{
		Use:          "slots",
		Short:        "List the schedule grid",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlots(g, slotsDate, slotsVenue)
		},
	}
	slotsCmd.Flags().StringVar(&slotsDate, "date", "", "Only this date (YYYY-MM-DD)")
	slotsCmd.Flags().StringVar(&slotsVenue, "venue", "", "Only times this venue id is open")

	statusCmd := &cobra.Command{
		Use:          "status",
		Short:        "Show placed games and matchups still to place",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), g)
		},
	}

	var place slotFlags
	var duration int
	var dryRun bool
	placeCmd := &cobra.Command{
		Use:          "place <matchup-id>",
		Short:        "Place a matchup on the grid",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlace(cmd.Context(), g, args[0], place, duration, dryRun)
		},
	}
	place.register(placeCmd)
	placeCmd.Flags().IntVar(&duration, "duration", 0, "Game length in minutes (default: grid default)")
	placeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check the placement without saving it")

	resizeCmd := &cobra.Command{
		Use:          "resize <game-id> <minutes>",
		Short:        "Change a game's duration",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResize(cmd.Context(), g, args[0], args[1])
		},
	}

	var move slotFlags
	moveCmd := &cobra.Command{
		Use:          "move <game-id>",
		Short:        "Move a game to another date, time or venue",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd.Context(), g, args[0], move)
		},
	}
	move.register(moveCmd)

	removeCmd := &cobra.Command{
		Use:          "remove <game-id>",
		Short:        "Remove a game and return its matchup to the unplaced pool",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), g, args[0])
		},
	}

	var export exportFlags
	var outputFile, format string
	exportCmd := &cobra.Command{
		Use:          "export",
		Short:        "Export placed games to Excel or JSON",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), g, export, format, outputFile)
		},
	}
	export.register(exportCmd)
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "schedule.xlsx", "Output file path (xlsx format only)")
	exportCmd.Flags().StringVar(&format, "format", "xlsx", "Output format: xlsx or json (json is written to stdout)")

	validateCmd := &cobra.Command{
		Use:          "validate [schedule.xlsx]",
		Short:        "Check saved games, or an exported workbook, against the config",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(cmd.Context(), g, path)
		},
	}

	scheduleCmd.AddCommand(slotsCmd, statusCmd, placeCmd, resizeCmd, moveCmd, removeCmd, exportCmd, validateCmd)
	return scheduleCmd
}

func runSlots(g *globals, dateFlag, venueID string) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	var day *time.Time
	if dateFlag != "" {
		d, err := time.Parse(time.DateOnly, dateFlag)
		if err != nil {
			return errors.Wrapf(err, "--date %q", dateFlag)
		}
		day = &d
	}
	slots, err := p.Slots(day, venueID)
	if err != nil {
		return err
	}

	var current time.Time
	count := 0
	for s := range slots {
		if !schedule.SameDay(s.Date, current) {
			if count > 0 {
				fmt.Println()
			}
			fmt.Printf("%s (%s)\n", s.Date.Format(time.DateOnly), s.Date.Weekday())
			current = s.Date
		}
		fmt.Printf("  %s\n", s.Time)
		count++
	}
	fmt.Printf("\n%d slots at %d-minute intervals\n", count, p.Config().Grid.IntervalMinutes)
	return nil
}

func runStatus(ctx context.Context, g *globals) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	progress, err := p.Progress(ctx)
	if err != nil {
		return notSeeded(err)
	}
	cfg := p.Config()

	games, err := p.Games(ctx)
	if err != nil {
		return err
	}
	if len(games) > 0 {
		fmt.Println("Placed games:")
		fmt.Printf("  %-36s  %-10s %-11s %-16s %s\n", "ID", "Date", "Time", "Venue", "Game")
		for _, gm := range games {
			fmt.Printf("  %-36s  %-10s %-11s %-16s %s @ %s\n",
				gm.ID, gm.Date.Format(time.DateOnly), gm.Start.String()+"-"+gm.End().String(),
				cfg.VenueName(gm.VenueID), cfg.TeamName(gm.AwayTeamID), cfg.TeamName(gm.HomeTeamID))
		}
		fmt.Println()
	}

	unplaced, err := p.Unplaced(ctx)
	if err != nil {
		return err
	}
	if len(unplaced) > 0 {
		fmt.Println("Unplaced matchups:")
		fmt.Printf("  %-36s  %-14s %s\n", "ID", "Pool", "Matchup")
		for _, m := range unplaced {
			fmt.Printf("  %-36s  %-14s %s @ %s\n", m.ID, cfg.PoolName(m.PoolID), cfg.TeamName(m.AwayTeamID), cfg.TeamName(m.HomeTeamID))
		}
		fmt.Println()
	}

	if progress.Unplaced == 0 {
		fmt.Printf("✓ All %d matchups placed\n", progress.Total)
	} else {
		fmt.Printf("Placed %d of %d matchups (%d to go)\n", progress.Placed, progress.Total, progress.Unplaced)
	}
	return nil
}

func runPlace(ctx context.Context, g *globals, matchupArg string, f slotFlags, duration int, dryRun bool) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	matchupID, err := uuid.Parse(matchupArg)
	if err != nil {
		return errors.Wrapf(err, "matchup id %q", matchupArg)
	}
	date, at, err := f.parse()
	if err != nil {
		return err
	}
	req := schedule.PlaceRequest{MatchupID: matchupID, Date: date, Time: at, VenueID: f.venueID, Duration: duration}

	if dryRun {
		conflict, err := p.Preview(ctx, req)
		if err != nil {
			return notSeeded(err)
		}
		if conflict != nil {
			return rejected(conflict)
		}
		fmt.Printf("✓ %s at %s on %s is open\n", p.Config().VenueName(f.venueID), at.Snap(p.Config().Interval()), date.Format(time.DateOnly))
		return nil
	}

	game, err := p.Place(ctx, req)
	if err != nil {
		return editFailed(err)
	}
	printGame(p, "Placed", game)
	return nil
}

func runResize(ctx context.Context, g *globals, gameArg, minutesArg string) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	gameID, err := uuid.Parse(gameArg)
	if err != nil {
		return errors.Wrapf(err, "game id %q", gameArg)
	}
	minutes, err := strconv.Atoi(minutesArg)
	if err != nil {
		return errors.Newf("minutes must be a whole number, got %q", minutesArg)
	}
	game, err := p.Resize(ctx, gameID, minutes)
	if err != nil {
		return editFailed(err)
	}
	printGame(p, "Resized", game)
	return nil
}

func runMove(ctx context.Context, g *globals, gameArg string, f slotFlags) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	gameID, err := uuid.Parse(gameArg)
	if err != nil {
		return errors.Wrapf(err, "game id %q", gameArg)
	}
	date, at, err := f.parse()
	if err != nil {
		return err
	}
	game, err := p.Move(ctx, schedule.MoveRequest{GameID: gameID, Date: date, Time: at, VenueID: f.venueID})
	if err != nil {
		return editFailed(err)
	}
	printGame(p, "Moved", game)
	return nil
}

func runRemove(ctx context.Context, g *globals, gameArg string) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	gameID, err := uuid.Parse(gameArg)
	if err != nil {
		return errors.Wrapf(err, "game id %q", gameArg)
	}
	matchupID, err := p.Remove(ctx, gameID)
	if err != nil {
		return editFailed(err)
	}
	fmt.Printf("✓ Removed game %s; matchup %s is unplaced again\n", gameID, matchupID)
	return nil
}

func runExport(ctx context.Context, g *globals, f exportFlags, format, outputPath string) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	filter, err := f.filter()
	if err != nil {
		return err
	}

	switch format {
	case "json":
		rows, err := p.Export(ctx, filter)
		if err != nil {
			return notSeeded(err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "xlsx":
		games, err := p.Games(ctx)
		if err != nil {
			return notSeeded(err)
		}
		wb, err := excel.Generate(p.Config(), games, filter)
		if err != nil {
			return errors.Wrap(err, "generating Excel")
		}
		defer wb.Close()
		if err := wb.SaveAs(outputPath); err != nil {
			return errors.Wrap(err, "saving file")
		}
		fmt.Printf("✓ Schedule saved to %s\n", outputPath)
		return nil
	default:
		return errors.Newf("unknown format %q; use xlsx or json", format)
	}
}

func runValidate(ctx context.Context, g *globals, schedulePath string) error {
	var violations []validator.Violation
	if schedulePath != "" {
		cfg, err := g.loadConfig()
		if err != nil {
			return err
		}
		violations, err = validator.Validate(cfg, schedulePath)
		if err != nil {
			return errors.Wrap(err, "validating")
		}
	} else {
		p, err := g.openPlanner()
		if err != nil {
			return err
		}
		violations, err = p.Audit(ctx)
		if err != nil {
			return notSeeded(err)
		}
	}

	errorCount := 0
	warnings := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errorCount++
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ Warning: %s\n", v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d warnings\n", errorCount, warnings)
	if errorCount > 0 {
		return errors.Newf("%d rule violations found", errorCount)
	}
	return nil
}

func printGame(p *planner.Service, verb string, game schedule.Game) {
	cfg := p.Config()
	fmt.Printf("✓ %s %s @ %s: %s %s-%s at %s\n", verb,
		cfg.TeamName(game.AwayTeamID), cfg.TeamName(game.HomeTeamID),
		game.Date.Format(time.DateOnly), game.Start, game.End(), cfg.VenueName(game.VenueID))
	fmt.Printf("  game id %s\n", game.ID)
}

func rejected(conflict *schedule.Conflict) error {
	fmt.Printf("✗ %s: %s\n", conflict.Kind, conflict.Reason)
	return errors.New("placement rejected")
}

// editFailed reports a conflict to the user and adds hints for the errors a
// user can fix by running something else first.
func editFailed(err error) error {
	var conflict *schedule.Conflict
	if errors.As(err, &conflict) {
		return rejected(conflict)
	}
	if errors.Is(err, store.ErrStaleState) {
		return errors.WithHint(err, "another edit was saved first; check `diamonds schedule status` and try again")
	}
	return notSeeded(err)
}

func notSeeded(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errors.WithHint(err, "run `diamonds matchups generate` first")
	}
	return err
}
