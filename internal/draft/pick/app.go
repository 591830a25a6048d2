// Package pick implements the pick commit protocol: the one code path that
// appends a ledger entry and advances a room's cursor. Every actor — human
// client, stale retry, autopick supervisor — goes through SubmitPick, so the
// exactly-once guarantee is enforced in one place.
package pick

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/draft/events"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/turn"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// App runs the commit protocol over a Store.
type App struct {
	store Store
	clock clockwork.Clock
}

// NewApp creates a pick App with a real clock.
func NewApp(store Store) *App {
	return NewAppWithClock(store, clockwork.NewRealClock())
}

// NewAppWithClock creates a pick App with an injected clock for tests.
func NewAppWithClock(store Store, clock clockwork.Clock) *App {
	return &App{store: store, clock: clock}
}

// SubmitPick validates and commits exactly one pick inside a single room
// transaction. Precondition failures come back as *RejectionError and are
// never retried here; transient storage errors are safe for the caller to
// retry verbatim because the cursor precondition makes retries idempotent —
// a retry either finds the cursor unmoved (succeeds) or already advanced
// (rejected as stale, the correct outcome).
func (a *App) SubmitPick(ctx context.Context, req SubmitPickRequest) (*models.PickLedgerEntry, error) {
	if err := validateSubmitPickRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var entry *models.PickLedgerEntry
	err := a.store.WithRoomTx(ctx, req.RoomID, func(tx Tx) error {
		room := tx.Room()

		// The cursor of a well-formed room never leaves [1, total+1]; a row
		// outside that is corruption, not a client mistake.
		if room.CurrentPick < 1 || room.CurrentPick > room.TotalPicks()+1 {
			return fmt.Errorf("room cursor %d outside draft of %d picks", room.CurrentPick, room.TotalPicks())
		}

		if room.Status != models.RoomStatusActive {
			return &RejectionError{Code: CodeRoomNotActive, Detail: fmt.Sprintf("room status is %s", room.Status)}
		}
		if room.CurrentPick != req.PickNumber {
			return &RejectionError{
				Code:   CodeStalePick,
				Detail: fmt.Sprintf("pick %d submitted but cursor is at %d", req.PickNumber, room.CurrentPick),
			}
		}

		slot, err := turn.At(req.PickNumber, room.TeamCount)
		if err != nil {
			return err
		}
		if !req.Auto && slot.Seat != req.Seat {
			return &RejectionError{
				Code:   CodeNotYourTurn,
				Detail: fmt.Sprintf("pick %d belongs to seat %d", req.PickNumber, slot.Seat),
			}
		}

		taken, err := tx.PlayerTaken(ctx, req.PlayerID)
		if err != nil {
			return err
		}
		if taken {
			return &RejectionError{Code: CodePlayerTaken, Detail: req.PlayerID.String()}
		}

		now := a.clock.Now()
		timeUsed := 0
		if room.PickDeadline != nil {
			used := room.PickClock() - room.PickDeadline.Sub(now)
			if used > room.PickClock() {
				used = room.PickClock()
			}
			if used > 0 {
				timeUsed = int(used.Seconds())
			}
		}

		e := models.PickLedgerEntry{
			RoomID:       room.ID,
			PickNumber:   req.PickNumber,
			PlayerID:     req.PlayerID,
			Seat:         slot.Seat,
			Round:        slot.Round,
			PickInRound:  slot.PickInRound,
			Auto:         req.Auto,
			PickedAt:     now,
			TimeUsedSec:  timeUsed,
			SpeedClass:   room.SpeedClass,
			TournamentID: room.TournamentID,
		}
		if err := tx.InsertLedgerEntry(ctx, e); err != nil {
			return err
		}
		if err := tx.InsertProjection(ctx, models.PickProjection{
			PlayerID:     e.PlayerID,
			SpeedClass:   e.SpeedClass,
			TournamentID: e.TournamentID,
			PickNumber:   e.PickNumber,
			PickedAt:     e.PickedAt,
		}); err != nil {
			return err
		}
		if err := a.emitPickMade(ctx, tx, e); err != nil {
			return err
		}

		adv := RoomAdvance{CurrentPick: req.PickNumber + 1, Status: models.RoomStatusActive}
		if adv.CurrentPick > room.TotalPicks() {
			adv.Status = models.RoomStatusCompleted
			adv.Deadline = nil
			if err := a.emitDraftCompleted(ctx, tx, room, now); err != nil {
				return err
			}
		} else {
			deadline := now.Add(room.PickClock())
			adv.Deadline = &deadline
			if err := a.emitPickStarted(ctx, tx, room, adv.CurrentPick, now, deadline); err != nil {
				return err
			}
		}
		if err := tx.AdvanceRoom(ctx, adv); err != nil {
			return err
		}

		entry = &e
		return nil
	})
	if err != nil {
		if r, ok := AsRejection(err); ok {
			log.Debug().
				Str("room_id", req.RoomID.String()).
				Int("pick_number", req.PickNumber).
				Str("code", r.Code).
				Bool("auto", req.Auto).
				Msg("pick rejected")
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit pick: %w", err)
	}

	log.Info().
		Str("room_id", entry.RoomID.String()).
		Int("pick_number", entry.PickNumber).
		Int("seat", entry.Seat).
		Str("player_id", entry.PlayerID.String()).
		Bool("auto", entry.Auto).
		Msg("pick committed")
	return entry, nil
}

// Ledger returns the room's committed picks ordered by pick number.
func (a *App) Ledger(ctx context.Context, roomID uuid.UUID) ([]models.PickLedgerEntry, error) {
	entries, err := a.store.Ledger(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return entries, nil
}

// DraftedPlayerIDs returns the set of players already taken in the room.
func (a *App) DraftedPlayerIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := a.store.DraftedPlayerIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get drafted players: %w", err)
	}
	return ids, nil
}

// Roster returns one seat's drafted players ordered by round.
func (a *App) Roster(ctx context.Context, roomID uuid.UUID, seat int) ([]RosterSlot, error) {
	if seat < 0 {
		return nil, fmt.Errorf("seat must be non-negative")
	}
	slots, err := a.store.Roster(ctx, roomID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	return slots, nil
}

// AvailablePlayers returns catalog players not yet drafted in the room.
func (a *App) AvailablePlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	players, err := a.store.AvailablePlayers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get available players: %w", err)
	}
	return players, nil
}

func (a *App) emitPickMade(ctx context.Context, tx Tx, e models.PickLedgerEntry) error {
	payload, err := json.Marshal(events.PickMadePayload{
		RoomID:      e.RoomID.String(),
		PickNumber:  e.PickNumber,
		Seat:        e.Seat,
		PlayerID:    e.PlayerID.String(),
		Round:       e.Round,
		PickInRound: e.PickInRound,
		Auto:        e.Auto,
		MadeAt:      e.PickedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal PickMade payload: %w", err)
	}
	return tx.InsertOutboxEvent(ctx, events.TypePickMade, payload)
}

func (a *App) emitPickStarted(ctx context.Context, tx Tx, room *models.DraftRoom, pickNumber int, startedAt, deadline time.Time) error {
	slot, err := turn.At(pickNumber, room.TeamCount)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(events.PickStartedPayload{
		RoomID:     room.ID.String(),
		PickNumber: pickNumber,
		Seat:       slot.Seat,
		Round:      slot.Round,
		StartedAt:  startedAt,
		Deadline:   deadline,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal PickStarted payload: %w", err)
	}
	return tx.InsertOutboxEvent(ctx, events.TypePickStarted, payload)
}

func (a *App) emitDraftCompleted(ctx context.Context, tx Tx, room *models.DraftRoom, completedAt time.Time) error {
	payload, err := json.Marshal(events.DraftCompletedPayload{
		RoomID:      room.ID.String(),
		CompletedAt: completedAt,
		TotalPicks:  room.TotalPicks(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DraftCompleted payload: %w", err)
	}
	return tx.InsertOutboxEvent(ctx, events.TypeDraftCompleted, payload)
}

func validateSubmitPickRequest(req SubmitPickRequest) error {
	if req.RoomID == uuid.Nil {
		return fmt.Errorf("room_id is required")
	}
	if req.PlayerID == uuid.Nil {
		return fmt.Errorf("player_id is required")
	}
	if req.PickNumber < 1 {
		return fmt.Errorf("pick_number must be greater than 0")
	}
	if !req.Auto && req.Seat < 0 {
		return fmt.Errorf("seat must be non-negative")
	}
	return nil
}
