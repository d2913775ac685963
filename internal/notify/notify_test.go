package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/diamonds/internal/logging"
	"github.com/derekprior/diamonds/internal/schedule"
)

func sampleEvent() Event {
	return Event{
		ID:           uuid.New(),
		Type:         GamePlaced,
		TournamentID: "summer",
		Version:      4,
		Game: schedule.Game{
			ID:         uuid.New(),
			HomeTeamID: "dragons",
			AwayTeamID: "tigers",
			VenueID:    "diamond-a",
			Start:      schedule.MustParseClock("09:00"),
			Duration:   90,
		},
		At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewMsg(t *testing.T) {
	t.Parallel()

	event := sampleEvent()
	msg, err := newMsg("diamonds", event)
	require.NoError(t, err)

	assert.Equal(t, "diamonds.summer.game.placed", msg.Subject)
	assert.Equal(t, GamePlaced, msg.Header.Get("Event-Type"))
	assert.Equal(t, event.ID.String(), msg.Header.Get(nats.MsgIdHdr))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "summer", body["tournamentId"])
	assert.EqualValues(t, 4, body["version"])
	game, ok := body["game"].(map[string]any)
	require.True(t, ok, "game should be an object")
	assert.Equal(t, "09:00", game["time"])
	assert.EqualValues(t, 90, game["durationMinutes"])
}

func TestNopPublisher(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), sampleEvent()))
}

// TestNATSPublisher runs against a real server when DIAMONDS_TEST_NATS_URL
// is set.
func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("DIAMONDS_TEST_NATS_URL")
	if url == "" {
		t.Skip("DIAMONDS_TEST_NATS_URL not set")
	}

	cfg := DefaultNATSConfig()
	cfg.URL = url
	pub, err := NewNATSPublisher(cfg, logging.NewNop())
	require.NoError(t, err)
	defer pub.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("diamonds.summer.>", ch)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	event := sampleEvent()
	require.NoError(t, pub.Publish(context.Background(), event))

	select {
	case msg := <-ch:
		assert.Equal(t, event.ID.String(), msg.Header.Get("Event-ID"))
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
