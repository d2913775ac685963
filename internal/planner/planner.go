package planner

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/logging"
	"github.com/derekprior/diamonds/internal/notify"
	"github.com/derekprior/diamonds/internal/schedule"
	"github.com/derekprior/diamonds/internal/store"
	"github.com/derekprior/diamonds/internal/strategy"
	"github.com/derekprior/diamonds/internal/validator"
)

// ErrAlreadySeeded is returned by Seed when matchups already exist.
var ErrAlreadySeeded = errors.New("matchups already generated")

// Service runs schedule edits for one tournament. Each edit loads the latest
// state, applies it on a Board and saves it back while holding the
// tournament's lock, so two edits never validate against the same snapshot.
// The store's version check catches writers outside this process.
type Service struct {
	cfg   *config.Config
	store store.Store
	pub   notify.Publisher
	clock clockwork.Clock
	log   *logging.Logger
	newID func() uuid.UUID

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Service)

func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithIDSource sets how matchup, game and event ids are generated.
func WithIDSource(f func() uuid.UUID) Option {
	return func(s *Service) { s.newID = f }
}

func New(cfg *config.Config, st store.Store, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		store: st,
		pub:   notify.NopPublisher{},
		clock: clockwork.NewRealClock(),
		log:   logging.Default(),
		newID: uuid.New,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("tournament", cfg.Tournament.ID)
	return s
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

// TournamentID is the id state is stored under.
func (s *Service) TournamentID() string {
	return s.cfg.Tournament.ID
}

func (s *Service) lock() func() {
	id := s.TournamentID()
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Seed generates the tournament's matchups with the configured strategy and
// stores them as the initial unplaced pool.
func (s *Service) Seed(ctx context.Context) (int, error) {
	unlock := s.lock()
	defer unlock()

	_, err := s.store.Load(ctx, s.TournamentID())
	if err == nil {
		return 0, errors.Wrapf(ErrAlreadySeeded, "tournament %q", s.TournamentID())
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	strat, err := strategy.Get(s.cfg.Strategy, s.newID)
	if err != nil {
		return 0, err
	}
	matchups := strat.GenerateMatchups(s.cfg.Pools)
	version, err := s.store.Save(ctx, s.TournamentID(), schedule.State{Matchups: matchups})
	if err != nil {
		return 0, errors.Wrap(err, "saving matchups")
	}
	s.log.InfoContext(ctx, "matchups generated", "count", len(matchups), "strategy", s.cfg.Strategy, "version", version)
	return len(matchups), nil
}

// Slots returns the grid for the tournament, or for a single day when day is
// not nil. With a venue id, only slots that venue is open for are returned.
func (s *Service) Slots(day *time.Time, venueID string) (iter.Seq[schedule.Slot], error) {
	start, end := s.cfg.Tournament.StartDate.Time, s.cfg.Tournament.EndDate.Time
	if day != nil {
		start, end = *day, *day
	}
	venues := s.cfg.ScheduleVenues()
	slots := schedule.GenerateSlots(start, end, venues, s.cfg.Interval())
	if venueID == "" {
		return slots, nil
	}
	for _, v := range venues {
		if v.ID == venueID {
			return schedule.SlotsForVenue(slots, v), nil
		}
	}
	return nil, errors.Wrapf(schedule.ErrInvalidVenue, "venue %q is not available to this tournament", venueID)
}

func (s *Service) board(ctx context.Context) (*schedule.Board, error) {
	state, err := s.store.Load(ctx, s.TournamentID())
	if err != nil {
		return nil, err
	}
	cfg := s.cfg.BoardConfig()
	cfg.Clock = s.clock
	cfg.NewID = s.newID
	return schedule.NewBoard(cfg, state)
}

func (s *Service) Unplaced(ctx context.Context) ([]schedule.Matchup, error) {
	b, err := s.board(ctx)
	if err != nil {
		return nil, err
	}
	return b.Unplaced(), nil
}

func (s *Service) Games(ctx context.Context) ([]schedule.Game, error) {
	b, err := s.board(ctx)
	if err != nil {
		return nil, err
	}
	return b.Games(), nil
}

func (s *Service) Progress(ctx context.Context) (schedule.Progress, error) {
	b, err := s.board(ctx)
	if err != nil {
		return schedule.Progress{}, err
	}
	return b.Progress(), nil
}

func (s *Service) Export(ctx context.Context, filter schedule.ExportFilter) ([]schedule.ExportRow, error) {
	games, err := s.Games(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.Export(games, filter, s.cfg), nil
}

// Audit checks the stored games against the config.
func (s *Service) Audit(ctx context.Context) ([]validator.Violation, error) {
	games, err := s.Games(ctx)
	if err != nil {
		return nil, err
	}
	return validator.Audit(s.cfg, games), nil
}

// Preview reports the conflict a placement would hit, or nil. Nothing is
// saved.
func (s *Service) Preview(ctx context.Context, req schedule.PlaceRequest) (*schedule.Conflict, error) {
	b, err := s.board(ctx)
	if err != nil {
		return nil, err
	}
	return b.Preview(req)
}

func (s *Service) Place(ctx context.Context, req schedule.PlaceRequest) (schedule.Game, error) {
	var placed schedule.Game
	err := s.edit(ctx, notify.GamePlaced, func(b *schedule.Board) (schedule.Game, error) {
		g, err := b.Place(req)
		placed = g
		return g, err
	})
	return placed, err
}

func (s *Service) Resize(ctx context.Context, gameID uuid.UUID, minutes int) (schedule.Game, error) {
	var resized schedule.Game
	err := s.edit(ctx, notify.GameResized, func(b *schedule.Board) (schedule.Game, error) {
		g, err := b.Resize(gameID, minutes)
		resized = g
		return g, err
	})
	return resized, err
}

func (s *Service) Move(ctx context.Context, req schedule.MoveRequest) (schedule.Game, error) {
	var moved schedule.Game
	err := s.edit(ctx, notify.GameMoved, func(b *schedule.Board) (schedule.Game, error) {
		g, err := b.Move(req)
		moved = g
		return g, err
	})
	return moved, err
}

// Remove deletes a game and returns the id of the matchup that is unplaced
// again.
func (s *Service) Remove(ctx context.Context, gameID uuid.UUID) (uuid.UUID, error) {
	var matchupID uuid.UUID
	err := s.edit(ctx, notify.GameRemoved, func(b *schedule.Board) (schedule.Game, error) {
		g, _ := b.Game(gameID)
		id, err := b.Remove(gameID)
		if err != nil {
			return schedule.Game{}, err
		}
		matchupID = id
		return g, nil
	})
	return matchupID, err
}

// edit runs one mutation under the tournament lock. A conflict or any other
// error leaves the stored state untouched.
func (s *Service) edit(ctx context.Context, eventType string, apply func(*schedule.Board) (schedule.Game, error)) error {
	unlock := s.lock()
	defer unlock()

	b, err := s.board(ctx)
	if err != nil {
		return err
	}

	g, err := apply(b)
	if err != nil {
		var conflict *schedule.Conflict
		if errors.As(err, &conflict) {
			s.log.InfoContext(ctx, "edit rejected", "event", eventType, "kind", conflict.Kind.String(), "reason", conflict.Reason)
		} else {
			s.log.WarnContext(ctx, "edit failed", "event", eventType, "error", err)
		}
		return err
	}

	version, err := s.store.Save(ctx, s.TournamentID(), b.State())
	if err != nil {
		if errors.Is(err, store.ErrStaleState) {
			s.log.WarnContext(ctx, "edit lost a race", "event", eventType, "error", err)
		}
		return err
	}
	s.log.InfoContext(ctx, "edit saved", "event", eventType, "game_id", g.ID.String(), "version", version)

	event := notify.Event{
		ID:           s.newID(),
		Type:         eventType,
		TournamentID: s.TournamentID(),
		Version:      version,
		Game:         g,
		At:           s.clock.Now(),
	}
	if err := s.pub.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "publish failed", "event", eventType, "error", err)
	}
	return nil
}
