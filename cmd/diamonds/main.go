package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/logging"
	"github.com/derekprior/diamonds/internal/planner"
	"github.com/derekprior/diamonds/internal/store"
)

const (
	defaultConfigFile = "tournament.yaml"
	defaultStateDir   = ".diamonds"
)

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", errors.WithHint(
		errors.New("no config file found"),
		fmt.Sprintf("create %s in the current directory with `diamonds init`, or pass --config", defaultConfigFile),
	)
}

// globals are the flags shared by every command that touches a tournament.
type globals struct {
	configFile string
	stateDir   string
	logLevel   string
}

func (g *globals) loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath(g.configFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	return cfg, nil
}

func (g *globals) logger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(g.logLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewConsole(os.Stderr, level), nil
}

// openPlanner builds a planner over the YAML state directory the CLI works in.
func (g *globals) openPlanner() (*planner.Service, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := g.logger()
	if err != nil {
		return nil, err
	}
	st, err := store.NewFileStore(g.stateDir)
	if err != nil {
		return nil, err
	}
	return planner.New(cfg, st, planner.WithLogger(logger)), nil
}

func main() {
	var g globals
	rootCmd := &cobra.Command{
		Use:   "diamonds",
		Short: "Interactive tournament schedule builder",
	}
	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "Path to tournament config (default: tournament.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&g.stateDir, "state-dir", defaultStateDir, "Directory holding schedule state")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter tournament.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	matchupsCmd := &cobra.Command{
		Use:   "matchups",
		Short: "Manage the pool of matchups to place",
	}
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate matchups for every pool with the configured strategy",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), &g)
		},
	}
	matchupsCmd.AddCommand(generateCmd)

	rootCmd.AddCommand(initCmd, matchupsCmd, newScheduleCmd(&g), newServeCmd(&g))
	if err := rootCmd.Execute(); err != nil {
		for _, h := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", h)
		}
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return errors.Newf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return errors.Wrap(err, "writing config")
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# Tournament Configuration
# ========================
# This file defines the venues, teams and grid for building a tournament
# schedule by hand, one game at a time.

# The tournament runs every day from start_date to end_date inclusive.
tournament:
  id: summer-classic-2026
  name: Summer Classic
  start_date: "2026-07-10"
  end_date: "2026-07-12"

  # Restrict the tournament to some of the venues below. All venues are used
  # when this is omitted.
  selected_venues: [diamond-1, diamond-2]

# Venues and their daily operating hours. Times use 24-hour format
# (e.g., "17:45" = 5:45 PM). A game may start at any grid time from the
# opening time up to, but not including, the closing time.
venues:
  - id: diamond-1
    name: Diamond 1
    available_start_time: "08:00"
    available_end_time: "20:00"
  - id: diamond-2
    name: Diamond 2
    available_start_time: "09:00"
    available_end_time: "18:00"
  - id: practice
    name: Practice Field
    available_start_time: "10:00"
    available_end_time: "14:00"

# Pools group the teams that play each other. Team ids must be unique across
# all pools. A team is either a plain name or an {id, name} mapping.
pools:
  - id: 10u-a
    name: 10U Pool A
    division: 10U
    teams: [Bandits, Cardinals, Knights, Storm]
  - id: 12u-a
    name: 12U Pool A
    division: 12U
    teams:
      - id: rays
        name: Lightning Rays
      - Mustangs
      - Outlaws
      - Thunder

# The grid controls where games can be dropped.
grid:
  interval_minutes: 30            # 15, 30 or 60; start times snap to this grid
  default_duration_minutes: 90    # Used when a placement gives no duration
  max_duration_minutes: 480       # Longest a game may be resized to
  enforce_closing_time: false     # Also reject games that would end after closing

# Strategy determines how matchups are generated.
# "round_robin" pairs every team in a pool once; "double_round_robin" plays
# each pair twice with home and away swapped.
strategy: round_robin
`

func runGenerate(ctx context.Context, g *globals) error {
	p, err := g.openPlanner()
	if err != nil {
		return err
	}
	n, err := p.Seed(ctx)
	if errors.Is(err, planner.ErrAlreadySeeded) {
		return errors.WithHint(err, fmt.Sprintf("remove %s to start over", g.stateDir))
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Generated %d matchups (%s)\n", n, p.Config().Strategy)
	return nil
}
