// Package outbox implements the transactional outbox between the draft
// engine's Postgres writes and the message bus. Events are staged in the
// same database as the state they describe and relayed to NATS by a worker,
// so a pick that commits always eventually publishes and a pick that rolls
// back never does.
package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// Repository reads and writes the draft_outbox table. It runs on
// database/sql with lib/pq because the listener shares the same DSN for
// LISTEN/NOTIFY.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// InsertEvent stages one event. Used for lifecycle events staged outside the
// pick transaction; the pick commit protocol writes the same table inside
// its own transaction.
func (r *Repository) InsertEvent(ctx context.Context, roomID uuid.UUID, eventType string, payload []byte) error {
	var body pqtype.NullRawMessage
	if payload != nil {
		body = pqtype.NullRawMessage{RawMessage: payload, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO draft_outbox (id, room_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), roomID, eventType, body)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// FetchUnsent returns unsent events in staging order. The seq column breaks
// created_at ties, so events staged in one transaction (PickMade then
// PickStarted) relay in insert order. Publishing is at-least-once: a crash
// between publish and MarkSent redelivers, and the JetStream duplicate
// window deduplicates on the event id.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, room_id, event_type, payload, created_at
		 FROM draft_outbox
		 WHERE sent_at IS NULL
		 ORDER BY seq
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			body pqtype.NullRawMessage
		)
		if err := rows.Scan(&e.ID, &e.RoomID, &e.EventType, &body, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if body.Valid {
			e.Payload = body.RawMessage
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkSent stamps events as published.
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE draft_outbox SET sent_at = now() WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}
