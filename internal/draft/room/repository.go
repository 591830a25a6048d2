package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
	"github.com/ErinHernandez/TopDog-sub003/internal/postgres"
)

// ErrNotFound is returned when a room or seat does not exist.
var ErrNotFound = errors.New("draft room not found")

// ErrSeatTaken is returned when a seat already has a user.
var ErrSeatTaken = errors.New("seat already taken")

// ErrStatusConflict is returned when a status update loses a race: the room
// moved to a different status between the caller's read and the write.
var ErrStatusConflict = errors.New("room status changed concurrently")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRoom inserts the room row and its fixed participant seats in one
// transaction. Seats start unassigned; the room sits in FILLING until every
// seat has a user.
func (r *Repository) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.DraftRoom, error) {
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO draft_rooms (id, tournament_id, team_count, round_count, speed_class,
			                          pick_clock_sec, snake, status, current_pick)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)`,
			req.ID, req.TournamentID, req.TeamCount, req.RoundCount, req.SpeedClass,
			req.PickClockSec, req.Snake, models.RoomStatusFilling)
		if err != nil {
			return fmt.Errorf("failed to insert room: %w", err)
		}

		for seat := 0; seat < req.TeamCount; seat++ {
			_, err := tx.Exec(ctx,
				`INSERT INTO room_participants (room_id, seat, user_ref, autopick_enabled, queue)
				 VALUES ($1, $2, '', false, '{}')`,
				req.ID, seat)
			if err != nil {
				return fmt.Errorf("failed to insert seat %d: %w", seat, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetRoom(ctx, req.ID)
}

// GetRoom loads a room and its participants.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tournament_id, team_count, round_count, speed_class, pick_clock_sec,
		        snake, status, current_pick, pick_deadline, created_at, updated_at
		 FROM draft_rooms WHERE id = $1`, id)

	var room models.DraftRoom
	if err := row.Scan(
		&room.ID, &room.TournamentID, &room.TeamCount, &room.RoundCount, &room.SpeedClass,
		&room.PickClockSec, &room.Snake, &room.Status, &room.CurrentPick, &room.PickDeadline,
		&room.CreatedAt, &room.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT room_id, seat, user_ref, autopick_enabled, last_seen, queue
		 FROM room_participants WHERE room_id = $1 ORDER BY seat`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.RoomID, &p.Seat, &p.UserRef, &p.AutopickEnabled, &p.LastSeenAt, &p.Queue); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		room.Participants = append(room.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateStatus moves the room from one status to another, optionally setting
// the deadline, as a compare-and-set on the expected current status. Zero
// rows with an existing room means the room moved since the caller read it.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RoomStatus, deadline *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE draft_rooms SET status = $2, pick_deadline = $3, updated_at = now()
		 WHERE id = $1 AND status = $4`,
		id, to, deadline, from)
	if err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current models.RoomStatus
		err := r.pool.QueryRow(ctx,
			`SELECT status FROM draft_rooms WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check room status: %w", err)
		}
		return fmt.Errorf("room is %s, not %s: %w", current, from, ErrStatusConflict)
	}
	return nil
}

// AssignSeat claims an empty seat for a user. The occupancy predicate makes
// the claim atomic: two users racing for the same seat get exactly one
// winner, and an occupied seat is never overwritten.
func (r *Repository) AssignSeat(ctx context.Context, roomID uuid.UUID, seat int, userRef string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_participants SET user_ref = $3, last_seen = now()
		 WHERE room_id = $1 AND seat = $2 AND user_ref = ''`,
		roomID, seat, userRef)
	if err != nil {
		return fmt.Errorf("failed to assign seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := r.pool.QueryRow(ctx,
			`SELECT user_ref FROM room_participants WHERE room_id = $1 AND seat = $2`,
			roomID, seat).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check seat: %w", err)
		}
		return ErrSeatTaken
	}
	return nil
}

// CountUnassignedSeats reports how many seats still lack a user.
func (r *Repository) CountUnassignedSeats(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_participants WHERE room_id = $1 AND user_ref = ''`,
		roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unassigned seats: %w", err)
	}
	return n, nil
}

// FetchNextDeadline returns the soonest deadline across active rooms, or nil
// when no room has a clock running.
func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, pick_deadline FROM draft_rooms
		 WHERE status = $1 AND pick_deadline IS NOT NULL
		 ORDER BY pick_deadline LIMIT 1`, models.RoomStatusActive)

	var nd NextDeadline
	if err := row.Scan(&nd.RoomID, &nd.Deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return &nd, nil
}

// FetchRoomsDueForPick returns active rooms whose deadline has passed.
// Paused rooms never match: pause clears the deadline and flips the status.
func (r *Repository) FetchRoomsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM draft_rooms
		 WHERE status = $1 AND pick_deadline IS NOT NULL AND pick_deadline <= now()
		 ORDER BY pick_deadline LIMIT $2`, models.RoomStatusActive, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due rooms: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Heartbeat records participant connectivity.
func (r *Repository) Heartbeat(ctx context.Context, roomID uuid.UUID, seat int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_participants SET last_seen = now() WHERE room_id = $1 AND seat = $2`,
		roomID, seat)
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAutopickEnabled flips a seat's live autopick flag.
func (r *Repository) SetAutopickEnabled(ctx context.Context, roomID uuid.UUID, seat int, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_participants SET autopick_enabled = $3 WHERE room_id = $1 AND seat = $2`,
		roomID, seat, enabled)
	if err != nil {
		return fmt.Errorf("failed to set autopick flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetQueue returns a seat's personal player queue in order.
func (r *Repository) GetQueue(ctx context.Context, roomID uuid.UUID, seat int) ([]uuid.UUID, error) {
	var queue []uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT queue FROM room_participants WHERE room_id = $1 AND seat = $2`,
		roomID, seat).Scan(&queue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return queue, nil
}

// SetQueue replaces a seat's personal player queue.
func (r *Repository) SetQueue(ctx context.Context, roomID uuid.UUID, seat int, queue []uuid.UUID) error {
	if queue == nil {
		queue = []uuid.UUID{}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_participants SET queue = $3 WHERE room_id = $1 AND seat = $2`,
		roomID, seat, queue)
	if err != nil {
		return fmt.Errorf("failed to set queue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
