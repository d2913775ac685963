package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/derekprior/diamonds/internal/schedule"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tournaments (
    id         TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matchups (
    id            UUID PRIMARY KEY,
    tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
    seq           INTEGER NOT NULL,
    home_team_id  TEXT NOT NULL,
    away_team_id  TEXT NOT NULL,
    pool_id       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
    id               UUID PRIMARY KEY,
    tournament_id    TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
    matchup_id       UUID NOT NULL UNIQUE REFERENCES matchups(id) ON DELETE CASCADE,
    home_team_id     TEXT NOT NULL,
    away_team_id     TEXT NOT NULL,
    pool_id          TEXT NOT NULL,
    venue_id         TEXT NOT NULL,
    game_date        DATE NOT NULL,
    start_minute     INTEGER NOT NULL,
    duration_minutes INTEGER NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS games_tournament_date_idx ON games (tournament_id, game_date);
`

type matchupRow struct {
	ID           uuid.UUID `db:"id"`
	TournamentID string    `db:"tournament_id"`
	Seq          int       `db:"seq"`
	HomeTeamID   string    `db:"home_team_id"`
	AwayTeamID   string    `db:"away_team_id"`
	PoolID       string    `db:"pool_id"`
}

type gameRow struct {
	ID              uuid.UUID `db:"id"`
	TournamentID    string    `db:"tournament_id"`
	MatchupID       uuid.UUID `db:"matchup_id"`
	HomeTeamID      string    `db:"home_team_id"`
	AwayTeamID      string    `db:"away_team_id"`
	PoolID          string    `db:"pool_id"`
	VenueID         string    `db:"venue_id"`
	GameDate        time.Time `db:"game_date"`
	StartMinute     int       `db:"start_minute"`
	DurationMinutes int       `db:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// PostgresStore keeps tournament state in PostgreSQL. Save locks the
// tournament row for the whole read-check-write so that two writers cannot
// both pass the version check.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgres connects to the database at url using lib/pq.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "migrating schema")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context, tournamentID string) (schedule.State, error) {
	var version int
	err := s.db.GetContext(ctx, &version, `SELECT version FROM tournaments WHERE id = $1`, tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.State{}, errors.Wrapf(ErrNotFound, "tournament %q", tournamentID)
	}
	if err != nil {
		return schedule.State{}, errors.Wrap(err, "get tournament version")
	}

	var matchups []matchupRow
	const matchupsQuery = `
SELECT id, tournament_id, seq, home_team_id, away_team_id, pool_id
FROM matchups
WHERE tournament_id = $1
ORDER BY seq`
	if err := s.db.SelectContext(ctx, &matchups, matchupsQuery, tournamentID); err != nil {
		return schedule.State{}, errors.Wrap(err, "list matchups")
	}

	var games []gameRow
	const gamesQuery = `
SELECT id, tournament_id, matchup_id, home_team_id, away_team_id, pool_id, venue_id,
       game_date, start_minute, duration_minutes, created_at, updated_at
FROM games
WHERE tournament_id = $1
ORDER BY game_date, start_minute, venue_id`
	if err := s.db.SelectContext(ctx, &games, gamesQuery, tournamentID); err != nil {
		return schedule.State{}, errors.Wrap(err, "list games")
	}

	state := schedule.State{
		Version:  version,
		Matchups: make([]schedule.Matchup, 0, len(matchups)),
		Games:    make([]schedule.Game, 0, len(games)),
	}
	for _, m := range matchups {
		state.Matchups = append(state.Matchups, schedule.Matchup{
			ID:         m.ID,
			HomeTeamID: m.HomeTeamID,
			AwayTeamID: m.AwayTeamID,
			PoolID:     m.PoolID,
		})
	}
	for _, g := range games {
		y, mo, d := g.GameDate.Date()
		state.Games = append(state.Games, schedule.Game{
			ID:         g.ID,
			MatchupID:  g.MatchupID,
			HomeTeamID: g.HomeTeamID,
			AwayTeamID: g.AwayTeamID,
			PoolID:     g.PoolID,
			VenueID:    g.VenueID,
			Date:       time.Date(y, mo, d, 0, 0, 0, 0, time.UTC),
			Start:      schedule.Clock(g.StartMinute),
			Duration:   g.DurationMinutes,
			CreatedAt:  g.CreatedAt,
			UpdatedAt:  g.UpdatedAt,
		})
	}
	return state, nil
}

// Save replaces the tournament's matchups and games in one transaction.
func (s *PostgresStore) Save(ctx context.Context, tournamentID string, state schedule.State) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx for state save")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// A concurrent first save blocks on the insert until the other commits.
	if _, err := tx.ExecContext(ctx, `INSERT INTO tournaments (id, version) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`, tournamentID); err != nil {
		return 0, errors.Wrap(err, "insert tournament")
	}
	var current int
	if err := tx.GetContext(ctx, &current, `SELECT version FROM tournaments WHERE id = $1 FOR UPDATE`, tournamentID); err != nil {
		return 0, errors.Wrap(err, "lock tournament")
	}
	if current != state.Version {
		return current, errors.Wrapf(ErrStaleState, "tournament %q is at version %d, not %d", tournamentID, current, state.Version)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE tournament_id = $1`, tournamentID); err != nil {
		return 0, errors.Wrap(err, "clear games")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matchups WHERE tournament_id = $1`, tournamentID); err != nil {
		return 0, errors.Wrap(err, "clear matchups")
	}

	if len(state.Matchups) > 0 {
		rows := make([]matchupRow, len(state.Matchups))
		for i, m := range state.Matchups {
			rows[i] = matchupRow{
				ID:           m.ID,
				TournamentID: tournamentID,
				Seq:          i,
				HomeTeamID:   m.HomeTeamID,
				AwayTeamID:   m.AwayTeamID,
				PoolID:       m.PoolID,
			}
		}
		const insertMatchups = `
INSERT INTO matchups (id, tournament_id, seq, home_team_id, away_team_id, pool_id)
VALUES (:id, :tournament_id, :seq, :home_team_id, :away_team_id, :pool_id)`
		if _, err := tx.NamedExecContext(ctx, insertMatchups, rows); err != nil {
			return 0, errors.Wrap(err, "insert matchups")
		}
	}

	if len(state.Games) > 0 {
		rows := make([]gameRow, len(state.Games))
		for i, g := range state.Games {
			rows[i] = gameRow{
				ID:              g.ID,
				TournamentID:    tournamentID,
				MatchupID:       g.MatchupID,
				HomeTeamID:      g.HomeTeamID,
				AwayTeamID:      g.AwayTeamID,
				PoolID:          g.PoolID,
				VenueID:         g.VenueID,
				GameDate:        g.Date,
				StartMinute:     int(g.Start),
				DurationMinutes: g.Duration,
				CreatedAt:       g.CreatedAt,
				UpdatedAt:       g.UpdatedAt,
			}
		}
		const insertGames = `
INSERT INTO games (id, tournament_id, matchup_id, home_team_id, away_team_id, pool_id, venue_id,
                   game_date, start_minute, duration_minutes, created_at, updated_at)
VALUES (:id, :tournament_id, :matchup_id, :home_team_id, :away_team_id, :pool_id, :venue_id,
        :game_date, :start_minute, :duration_minutes, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertGames, rows); err != nil {
			return 0, errors.Wrap(err, "insert games")
		}
	}

	next := current + 1
	if _, err := tx.ExecContext(ctx, `UPDATE tournaments SET version = $2, updated_at = now() WHERE id = $1`, tournamentID, next); err != nil {
		return 0, errors.Wrap(err, "bump tournament version")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit state save")
	}
	return next, nil
}
