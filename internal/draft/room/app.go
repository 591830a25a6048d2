// Package room owns the draft room aggregate: configuration, the participant
// roster and lifecycle transitions. The pick cursor itself is advanced only
// by the pick commit protocol; this package handles everything else that may
// touch the room row (activation, pause/resume, cancellation).
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/draft/events"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/turn"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// RoomRepository defines what the app layer needs from storage.
type RoomRepository interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.DraftRoom, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RoomStatus, deadline *time.Time) error
	AssignSeat(ctx context.Context, roomID uuid.UUID, seat int, userRef string) error
	CountUnassignedSeats(ctx context.Context, roomID uuid.UUID) (int, error)
	FetchNextDeadline(ctx context.Context) (*NextDeadline, error)
	FetchRoomsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error)
	Heartbeat(ctx context.Context, roomID uuid.UUID, seat int) error
	SetAutopickEnabled(ctx context.Context, roomID uuid.UUID, seat int, enabled bool) error
	GetQueue(ctx context.Context, roomID uuid.UUID, seat int) ([]uuid.UUID, error)
	SetQueue(ctx context.Context, roomID uuid.UUID, seat int, queue []uuid.UUID) error
}

// Outbox defines what the app layer needs to stage lifecycle events.
type Outbox interface {
	InsertEvent(ctx context.Context, roomID uuid.UUID, eventType string, payload []byte) error
}

// App handles room business logic.
type App struct {
	repo   RoomRepository
	outbox Outbox
	clock  clockwork.Clock
}

// NewApp creates a room App with a real clock.
func NewApp(repo RoomRepository, outbox Outbox) *App {
	return NewAppWithClock(repo, outbox, clockwork.NewRealClock())
}

// NewAppWithClock creates a room App with an injected clock for tests.
func NewAppWithClock(repo RoomRepository, outbox Outbox, clock clockwork.Clock) *App {
	return &App{repo: repo, outbox: outbox, clock: clock}
}

// CreateRoom creates a new room in FILLING from tournament configuration.
func (a *App) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.DraftRoom, error) {
	if err := validateCreateRoomRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	room, err := a.repo.CreateRoom(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("tournament_id", room.TournamentID.String()).
		Str("speed_class", string(room.SpeedClass)).
		Int("total_picks", room.TotalPicks()).
		Msg("created draft room")
	return room, nil
}

// GetRoom retrieves a room by id.
func (a *App) GetRoom(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// AssignSeat claims a seat for a user while the room is filling, and
// activates the room once the last seat fills.
func (a *App) AssignSeat(ctx context.Context, roomID uuid.UUID, seat int, userRef string) (*models.DraftRoom, error) {
	if userRef == "" {
		return nil, fmt.Errorf("user_ref is required")
	}

	room, err := a.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	if room.Status != models.RoomStatusScheduled && room.Status != models.RoomStatusFilling {
		return nil, fmt.Errorf("cannot assign seat while room is %s", room.Status)
	}
	if seat < 0 || seat >= room.TeamCount {
		return nil, fmt.Errorf("seat %d out of range for %d teams", seat, room.TeamCount)
	}

	if err := a.repo.AssignSeat(ctx, roomID, seat, userRef); err != nil {
		return nil, fmt.Errorf("failed to assign seat: %w", err)
	}

	unassigned, err := a.repo.CountUnassignedSeats(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unassigned seats: %w", err)
	}
	if unassigned == 0 {
		if err := a.activate(ctx, room); err != nil {
			return nil, err
		}
	}
	return a.repo.GetRoom(ctx, roomID)
}

// activate flips a full room to ACTIVE and puts pick 1 on the clock. The
// compare-and-set on the filling status makes activation single-shot: when
// two final joins race, the loser's update matches zero rows and the room
// keeps the winner's deadline and events.
func (a *App) activate(ctx context.Context, room *models.DraftRoom) error {
	now := a.clock.Now()
	deadline := now.Add(room.PickClock())
	if err := a.repo.UpdateStatus(ctx, room.ID, room.Status, models.RoomStatusActive, &deadline); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			log.Debug().Str("room_id", room.ID.String()).Msg("room already activated")
			return nil
		}
		return fmt.Errorf("failed to activate room: %w", err)
	}

	a.emit(ctx, room.ID, events.TypeDraftStarted, events.DraftStartedPayload{
		RoomID:     room.ID.String(),
		StartedAt:  now,
		TotalPicks: room.TotalPicks(),
	})
	if slot, err := turn.At(1, room.TeamCount); err == nil {
		a.emit(ctx, room.ID, events.TypePickStarted, events.PickStartedPayload{
			RoomID:     room.ID.String(),
			PickNumber: 1,
			Seat:       slot.Seat,
			Round:      slot.Round,
			StartedAt:  now,
			Deadline:   deadline,
		})
	}

	log.Info().Str("room_id", room.ID.String()).Time("deadline", deadline).Msg("room activated")
	return nil
}

// Pause suspends an active room. The deadline is cleared so the supervisor
// never treats the frozen clock as expired.
func (a *App) Pause(ctx context.Context, id uuid.UUID, reason string) (*models.DraftRoom, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	if err := validateTransition(room.Status, models.RoomStatusPaused); err != nil {
		return nil, err
	}

	if err := a.repo.UpdateStatus(ctx, id, room.Status, models.RoomStatusPaused, nil); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("invalid status transition: %w", err)
		}
		return nil, fmt.Errorf("failed to pause room: %w", err)
	}

	a.emit(ctx, id, events.TypeDraftPaused, events.DraftPausedPayload{
		RoomID:   id.String(),
		PausedAt: a.clock.Now(),
		Reason:   reason,
	})

	log.Info().Str("room_id", id.String()).Str("reason", reason).Msg("room paused")
	return a.repo.GetRoom(ctx, id)
}

// Resume reactivates a paused room with a fresh full pick clock from the
// resume moment.
func (a *App) Resume(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	if err := validateTransition(room.Status, models.RoomStatusActive); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	deadline := now.Add(room.PickClock())
	if err := a.repo.UpdateStatus(ctx, id, room.Status, models.RoomStatusActive, &deadline); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("invalid status transition: %w", err)
		}
		return nil, fmt.Errorf("failed to resume room: %w", err)
	}

	a.emit(ctx, id, events.TypeDraftResumed, events.DraftResumedPayload{
		RoomID:    id.String(),
		ResumedAt: now,
		Deadline:  deadline,
	})

	log.Info().Str("room_id", id.String()).Time("deadline", deadline).Msg("room resumed")
	return a.repo.GetRoom(ctx, id)
}

// Cancel aborts a room terminally.
func (a *App) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.DraftRoom, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	if err := validateTransition(room.Status, models.RoomStatusCancelled); err != nil {
		return nil, err
	}

	if err := a.repo.UpdateStatus(ctx, id, room.Status, models.RoomStatusCancelled, nil); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("invalid status transition: %w", err)
		}
		return nil, fmt.Errorf("failed to cancel room: %w", err)
	}

	a.emit(ctx, id, events.TypeDraftCancelled, events.DraftCancelledPayload{
		RoomID:      id.String(),
		CancelledAt: a.clock.Now(),
		Reason:      reason,
	})

	log.Info().Str("room_id", id.String()).Str("reason", reason).Msg("room cancelled")
	return a.repo.GetRoom(ctx, id)
}

// FetchNextDeadline retrieves the soonest deadline across active rooms.
func (a *App) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	return a.repo.FetchNextDeadline(ctx)
}

// FetchRoomsDueForPick retrieves rooms whose pick clock has expired.
func (a *App) FetchRoomsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	return a.repo.FetchRoomsDueForPick(ctx, limit)
}

// Heartbeat records that a participant's client is connected.
func (a *App) Heartbeat(ctx context.Context, roomID uuid.UUID, seat int) error {
	return a.repo.Heartbeat(ctx, roomID, seat)
}

// SetAutopickEnabled flips a seat's autopick flag.
func (a *App) SetAutopickEnabled(ctx context.Context, roomID uuid.UUID, seat int, enabled bool) error {
	return a.repo.SetAutopickEnabled(ctx, roomID, seat, enabled)
}

// GetQueue returns a seat's personal queue.
func (a *App) GetQueue(ctx context.Context, roomID uuid.UUID, seat int) ([]uuid.UUID, error) {
	return a.repo.GetQueue(ctx, roomID, seat)
}

// SetQueue replaces a seat's personal queue.
func (a *App) SetQueue(ctx context.Context, roomID uuid.UUID, seat int, queue []uuid.UUID) error {
	if len(queue) > 500 {
		return fmt.Errorf("queue too long: %d entries", len(queue))
	}
	return a.repo.SetQueue(ctx, roomID, seat, queue)
}

// emit stages a lifecycle event; failures are logged, not fatal, matching
// how status changes and event staging are decoupled outside the pick
// transaction.
func (a *App) emit(ctx context.Context, roomID uuid.UUID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}
	if err := a.outbox.InsertEvent(ctx, roomID, eventType, data); err != nil {
		log.Error().Err(err).
			Str("room_id", roomID.String()).
			Str("event_type", eventType).
			Msg("failed to stage event")
	}
}

// validateTransition enforces the lifecycle: monotonic except active⇄paused.
func validateTransition(from, to models.RoomStatus) error {
	allowed := map[models.RoomStatus][]models.RoomStatus{
		models.RoomStatusScheduled: {models.RoomStatusFilling, models.RoomStatusCancelled},
		models.RoomStatusFilling:   {models.RoomStatusActive, models.RoomStatusCancelled},
		models.RoomStatusActive:    {models.RoomStatusPaused, models.RoomStatusCompleted, models.RoomStatusCancelled},
		models.RoomStatusPaused:    {models.RoomStatusActive, models.RoomStatusCancelled},
	}
	for _, s := range allowed[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition: %s -> %s", from, to)
}

func validateCreateRoomRequest(req CreateRoomRequest) error {
	if req.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if req.TournamentID == uuid.Nil {
		return fmt.Errorf("tournament_id is required")
	}
	if req.TeamCount < 2 {
		return fmt.Errorf("team_count must be at least 2")
	}
	if req.RoundCount < 1 {
		return fmt.Errorf("round_count must be at least 1")
	}
	if req.PickClockSec < 1 {
		return fmt.Errorf("pick_clock_sec must be at least 1")
	}
	if req.SpeedClass != models.SpeedClassFast && req.SpeedClass != models.SpeedClassSlow {
		return fmt.Errorf("unknown speed class %q", req.SpeedClass)
	}
	if !req.Snake {
		return fmt.Errorf("only snake drafts are supported")
	}
	return nil
}
