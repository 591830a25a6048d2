package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one staged domain event awaiting publication.
type Event struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	EventType string    `json:"event_type"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is what the relay needs from the outbox table.
type Store interface {
	FetchUnsent(ctx context.Context, limit int32) ([]Event, error)
	MarkSent(ctx context.Context, ids []uuid.UUID) error
}

// EventPublisher delivers one event to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
