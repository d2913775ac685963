package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/derekprior/diamonds/internal/logging"
	"github.com/derekprior/diamonds/internal/schedule"
)

// Event types, appended to the subject prefix.
const (
	GamePlaced  = "game.placed"
	GameResized = "game.resized"
	GameMoved   = "game.moved"
	GameRemoved = "game.removed"
)

// Event announces a committed schedule change so other editors can refresh.
type Event struct {
	ID           uuid.UUID     `json:"eventId"`
	Type         string        `json:"eventType"`
	TournamentID string        `json:"tournamentId"`
	Version      int           `json:"version"`
	Game         schedule.Game `json:"game"`
	At           time.Time     `json:"timestamp"`
}

// Publisher delivers events after a change is saved. Publishing is best
// effort: the change is already committed when Publish runs.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "diamonds",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes events on <prefix>.<tournament id>.<event type>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	log    *logging.Logger
}

func NewNATSPublisher(cfg NATSConfig, logger *logging.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []nats.Option{
		nats.Name("diamonds"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", "error", err)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "connect to NATS")
	}
	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix, log: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := newMsg(p.prefix, event)
	if err != nil {
		return err
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "publish to NATS")
	}
	p.log.DebugContext(ctx, "published event", "subject", msg.Subject, "event_id", event.ID.String())
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

func Subject(prefix, tournamentID, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, tournamentID, eventType)
}

func newMsg(prefix string, event Event) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "marshal event")
	}
	return &nats.Msg{
		Subject: Subject(prefix, event.TournamentID, event.Type),
		Data:    data,
		Header: nats.Header{
			"Event-Type":    []string{event.Type},
			"Event-ID":      []string{event.ID.String()},
			"Tournament-ID": []string{event.TournamentID},
			nats.MsgIdHdr:   []string{event.ID.String()},
		},
	}, nil
}
