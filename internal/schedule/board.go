package schedule

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalidMatchup means the referenced matchup is not in the working set,
	// or is not waiting in the unplaced pool. It is a caller bug, not a
	// conflict to show the user.
	ErrInvalidMatchup = errors.New("invalid matchup")
	// ErrInvalidGame means the referenced game is not in the working set.
	ErrInvalidGame = errors.New("invalid game")
	// ErrInvalidVenue means the referenced venue is not configured.
	ErrInvalidVenue = errors.New("invalid venue")
	// ErrInvalidSlot means the requested date is not a tournament day.
	ErrInvalidSlot = errors.New("invalid slot")
)

// MaxDuration is the longest a game may last, in minutes.
const MaxDuration = 480

// BoardConfig holds the rules a Board places games under.
type BoardConfig struct {
	Venues   []Venue
	Interval Interval
	// FirstDay and LastDay bound the dates games may be placed on. A zero
	// value leaves that side open.
	FirstDay time.Time
	LastDay  time.Time
	// DefaultDuration is used when a placement does not name a duration.
	DefaultDuration int
	// MaxDuration caps game length; MaxDuration (480) when zero.
	MaxDuration int
	Checker     Checker
	Clock       clockwork.Clock
	NewID       func() uuid.UUID
}

// PlaceRequest asks for a matchup to be placed at a raw (unsnapped) time.
type PlaceRequest struct {
	MatchupID uuid.UUID
	Date      time.Time
	Time      Clock
	VenueID   string
	Duration  int
}

// MoveRequest asks for a placed game to be moved to a new slot.
type MoveRequest struct {
	GameID  uuid.UUID
	Date    time.Time
	Time    Clock
	VenueID string
}

// Board is the working set of one tournament's schedule: every matchup, the
// games placed so far, and the pool of matchups still waiting for a slot.
// A matchup leaves the pool only through a successful Place and returns to it
// only through Remove.
//
// A Board is not safe for concurrent use; callers serialize access.
type Board struct {
	cfg      BoardConfig
	version  int
	venues   map[string]Venue
	matchups map[uuid.UUID]Matchup
	order    []uuid.UUID
	games    map[uuid.UUID]Game
	placed   map[uuid.UUID]uuid.UUID // matchup id -> game id
}

// NewBoard builds a Board from persisted state. It fails if the state breaks
// matchup conservation: duplicate matchups, games for unknown matchups, or a
// matchup placed twice.
func NewBoard(cfg BoardConfig, state State) (*Board, error) {
	if !cfg.Interval.Valid() {
		return nil, errors.Newf("unsupported grid interval %d", cfg.Interval)
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = MaxDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.New
	}

	b := &Board{
		cfg:      cfg,
		version:  state.Version,
		venues:   make(map[string]Venue, len(cfg.Venues)),
		matchups: make(map[uuid.UUID]Matchup, len(state.Matchups)),
		games:    make(map[uuid.UUID]Game, len(state.Games)),
		placed:   make(map[uuid.UUID]uuid.UUID, len(state.Games)),
	}
	for _, v := range cfg.Venues {
		b.venues[v.ID] = v
	}
	for _, m := range state.Matchups {
		if _, dup := b.matchups[m.ID]; dup {
			return nil, errors.Wrapf(ErrInvalidMatchup, "matchup %s appears twice", m.ID)
		}
		b.matchups[m.ID] = m
		b.order = append(b.order, m.ID)
	}
	for _, g := range state.Games {
		if _, ok := b.matchups[g.MatchupID]; !ok {
			return nil, errors.Wrapf(ErrInvalidMatchup, "game %s references unknown matchup %s", g.ID, g.MatchupID)
		}
		if other, dup := b.placed[g.MatchupID]; dup {
			return nil, errors.Wrapf(ErrInvalidMatchup, "matchup %s is placed by both game %s and game %s", g.MatchupID, other, g.ID)
		}
		if _, dup := b.games[g.ID]; dup {
			return nil, errors.Wrapf(ErrInvalidGame, "game %s appears twice", g.ID)
		}
		b.games[g.ID] = g
		b.placed[g.MatchupID] = g.ID
	}
	return b, nil
}

// Version is the state version the Board was loaded from.
func (b *Board) Version() int {
	return b.version
}

// Interval returns the active grid interval.
func (b *Board) Interval() Interval {
	return b.cfg.Interval
}

// Preview runs the conflict checks for a placement without committing it.
// It returns nil when the placement would be accepted.
func (b *Board) Preview(req PlaceRequest) (*Conflict, error) {
	attempt, err := b.attempt(req)
	if err != nil {
		return nil, err
	}
	return b.cfg.Checker.CheckPlacement(attempt, b.Games()), nil
}

// Place snaps the requested time to the grid, checks the placement and, if it
// is legal, commits a new game and takes the matchup out of the unplaced pool.
// A rejected placement returns a *Conflict and leaves the Board unchanged.
func (b *Board) Place(req PlaceRequest) (Game, error) {
	attempt, err := b.attempt(req)
	if err != nil {
		return Game{}, err
	}
	if conflict := b.cfg.Checker.CheckPlacement(attempt, b.Games()); conflict != nil {
		return Game{}, conflict
	}

	now := b.cfg.Clock.Now()
	m := attempt.Matchup
	g := Game{
		ID:         b.cfg.NewID(),
		MatchupID:  m.ID,
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
		PoolID:     m.PoolID,
		VenueID:    attempt.Venue.ID,
		Date:       truncateDay(attempt.Date),
		Start:      attempt.Start,
		Duration:   attempt.Duration,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.games[g.ID] = g
	b.placed[m.ID] = g.ID
	return g, nil
}

func (b *Board) attempt(req PlaceRequest) (Attempt, error) {
	m, ok := b.matchups[req.MatchupID]
	if !ok {
		return Attempt{}, errors.Wrapf(ErrInvalidMatchup, "matchup %s does not exist", req.MatchupID)
	}
	if gameID, placed := b.placed[m.ID]; placed {
		return Attempt{}, errors.Wrapf(ErrInvalidMatchup, "matchup %s is already placed as game %s", m.ID, gameID)
	}
	if err := b.checkDay(req.Date); err != nil {
		return Attempt{}, err
	}
	v, err := b.venue(req.VenueID)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{
		Matchup:  m,
		Date:     req.Date,
		Start:    req.Time.Snap(b.cfg.Interval),
		Venue:    v,
		Duration: b.clampDuration(req.Duration),
	}, nil
}

// Resize changes a game's duration in place. The new duration is clamped to
// [interval, max] and checked for venue and team overlaps against every other
// game; on conflict the game keeps its old duration.
func (b *Board) Resize(gameID uuid.UUID, minutes int) (Game, error) {
	g, ok := b.games[gameID]
	if !ok {
		return Game{}, errors.Wrapf(ErrInvalidGame, "game %s does not exist", gameID)
	}

	attempt := Attempt{
		Matchup:  matchupOf(g),
		Date:     g.Date,
		Start:    g.Start,
		Venue:    b.venueOrBare(g.VenueID),
		Duration: b.clampDuration(minutes),
	}
	if _, known := b.venues[g.VenueID]; known {
		if conflict := b.cfg.Checker.checkClosing(attempt); conflict != nil {
			return g, conflict
		}
	}
	if conflict := b.cfg.Checker.CheckOverlap(attempt, b.Games(), g.ID); conflict != nil {
		return g, conflict
	}

	g.Duration = attempt.Duration
	g.UpdatedAt = b.cfg.Clock.Now()
	b.games[g.ID] = g
	return g, nil
}

// Move re-slots a game to a new date, time and venue. The time is snapped to
// the grid and the full placement checks run against every other game.
func (b *Board) Move(req MoveRequest) (Game, error) {
	g, ok := b.games[req.GameID]
	if !ok {
		return Game{}, errors.Wrapf(ErrInvalidGame, "game %s does not exist", req.GameID)
	}
	if err := b.checkDay(req.Date); err != nil {
		return Game{}, err
	}
	v, err := b.venue(req.VenueID)
	if err != nil {
		return Game{}, err
	}

	attempt := Attempt{
		Matchup:  matchupOf(g),
		Date:     req.Date,
		Start:    req.Time.Snap(b.cfg.Interval),
		Venue:    v,
		Duration: g.Duration,
	}
	if conflict := b.cfg.Checker.checkHours(attempt); conflict != nil {
		return g, conflict
	}
	if conflict := b.cfg.Checker.CheckOverlap(attempt, b.Games(), g.ID); conflict != nil {
		return g, conflict
	}

	g.Date = truncateDay(attempt.Date)
	g.Start = attempt.Start
	g.VenueID = v.ID
	g.UpdatedAt = b.cfg.Clock.Now()
	b.games[g.ID] = g
	return g, nil
}

// Remove deletes a game and returns its matchup to the unplaced pool.
func (b *Board) Remove(gameID uuid.UUID) (uuid.UUID, error) {
	g, ok := b.games[gameID]
	if !ok {
		return uuid.Nil, errors.Wrapf(ErrInvalidGame, "game %s does not exist", gameID)
	}
	delete(b.games, g.ID)
	delete(b.placed, g.MatchupID)
	return g.MatchupID, nil
}

// Game returns a placed game by id.
func (b *Board) Game(id uuid.UUID) (Game, bool) {
	g, ok := b.games[id]
	return g, ok
}

// Games returns placed games ordered by date, start time and venue.
func (b *Board) Games() []Game {
	games := make([]Game, 0, len(b.games))
	for _, g := range b.games {
		games = append(games, g)
	}
	sortGames(games)
	return games
}

// Matchups returns every matchup in generation order.
func (b *Board) Matchups() []Matchup {
	out := make([]Matchup, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.matchups[id])
	}
	return out
}

// Unplaced returns matchups still waiting for a slot, in generation order.
func (b *Board) Unplaced() []Matchup {
	var out []Matchup
	for _, id := range b.order {
		if _, placed := b.placed[id]; !placed {
			out = append(out, b.matchups[id])
		}
	}
	return out
}

// Progress reports placed and unplaced counts.
func (b *Board) Progress() Progress {
	return Progress{
		Total:    len(b.matchups),
		Placed:   len(b.placed),
		Unplaced: len(b.matchups) - len(b.placed),
	}
}

// State returns the Board contents for persistence.
func (b *Board) State() State {
	return State{
		Version:  b.version,
		Matchups: b.Matchups(),
		Games:    b.Games(),
	}
}

func (b *Board) venue(id string) (Venue, error) {
	v, ok := b.venues[id]
	if !ok {
		return Venue{}, errors.Wrapf(ErrInvalidVenue, "venue %q is not available to this tournament", id)
	}
	return v, nil
}

func (b *Board) checkDay(date time.Time) error {
	if !InRange(date, b.cfg.FirstDay, b.cfg.LastDay) {
		return errors.Wrapf(ErrInvalidSlot, "%s is not a tournament day", date.Format("2006-01-02"))
	}
	return nil
}

// venueOrBare returns the configured venue, or one carrying only the id for
// games left on a venue that has since been deselected.
func (b *Board) venueOrBare(id string) Venue {
	if v, ok := b.venues[id]; ok {
		return v
	}
	return Venue{ID: id}
}

func (b *Board) clampDuration(minutes int) int {
	if minutes <= 0 {
		minutes = b.cfg.DefaultDuration
	}
	lo := b.cfg.Interval.Minutes()
	if minutes < lo {
		return lo
	}
	if minutes > b.cfg.MaxDuration {
		return b.cfg.MaxDuration
	}
	return minutes
}

func matchupOf(g Game) Matchup {
	return Matchup{
		ID:         g.MatchupID,
		HomeTeamID: g.HomeTeamID,
		AwayTeamID: g.AwayTeamID,
		PoolID:     g.PoolID,
	}
}

func sortGames(games []Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].Date.Equal(games[j].Date) {
			return games[i].Date.Before(games[j].Date)
		}
		if games[i].Start != games[j].Start {
			return games[i].Start < games[j].Start
		}
		if games[i].VenueID != games[j].VenueID {
			return games[i].VenueID < games[j].VenueID
		}
		return games[i].ID.String() < games[j].ID.String()
	})
}
