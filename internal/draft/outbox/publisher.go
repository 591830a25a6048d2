package outbox

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogPublisher writes events to the log instead of a bus. Development and
// tests only.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("room_id", event.RoomID.String()).
		Msg("publishing event")
	return nil
}
