package pick

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ErinHernandez/TopDog-sub003/internal/draft/events"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/turn"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// memStore is an in-memory Store. A mutex stands in for the room row lock:
// concurrent WithRoomTx calls for the room serialize, and mutations apply
// only when fn returns nil, mirroring commit/rollback.
type memStore struct {
	mu          sync.Mutex
	room        models.DraftRoom
	ledger      []models.PickLedgerEntry
	projections []models.PickProjection
	eventTypes  []string
}

type memTx struct {
	store       *memStore
	room        models.DraftRoom
	entries     []models.PickLedgerEntry
	projections []models.PickProjection
	eventTypes  []string
	advance     *RoomAdvance
}

func (s *memStore) WithRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID != s.room.ID {
		return ErrRoomNotFound
	}
	tx := &memTx{store: s, room: s.room}
	if err := fn(tx); err != nil {
		return err
	}

	s.ledger = append(s.ledger, tx.entries...)
	s.projections = append(s.projections, tx.projections...)
	s.eventTypes = append(s.eventTypes, tx.eventTypes...)
	if tx.advance != nil {
		s.room.CurrentPick = tx.advance.CurrentPick
		s.room.PickDeadline = tx.advance.Deadline
		s.room.Status = tx.advance.Status
	}
	return nil
}

func (s *memStore) Ledger(ctx context.Context, roomID uuid.UUID) ([]models.PickLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PickLedgerEntry(nil), s.ledger...), nil
}

func (s *memStore) DraftedPlayerIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.ledger))
	for _, e := range s.ledger {
		ids = append(ids, e.PlayerID)
	}
	return ids, nil
}

func (s *memStore) Roster(ctx context.Context, roomID uuid.UUID, seat int) ([]RosterSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var slots []RosterSlot
	for _, e := range s.ledger {
		if e.Seat == seat {
			slots = append(slots, RosterSlot{Round: e.Round, PickNumber: e.PickNumber, PlayerID: e.PlayerID, Auto: e.Auto})
		}
	}
	return slots, nil
}

func (s *memStore) AvailablePlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	return nil, nil
}

func (t *memTx) Room() *models.DraftRoom {
	return &t.room
}

func (t *memTx) PlayerTaken(ctx context.Context, playerID uuid.UUID) (bool, error) {
	for _, e := range t.store.ledger {
		if e.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertLedgerEntry(ctx context.Context, entry models.PickLedgerEntry) error {
	for _, e := range t.store.ledger {
		if e.PickNumber == entry.PickNumber {
			return ErrStalePick
		}
		if e.PlayerID == entry.PlayerID {
			return ErrPlayerTaken
		}
	}
	t.entries = append(t.entries, entry)
	return nil
}

func (t *memTx) InsertProjection(ctx context.Context, p models.PickProjection) error {
	t.projections = append(t.projections, p)
	return nil
}

func (t *memTx) InsertOutboxEvent(ctx context.Context, eventType string, payload []byte) error {
	t.eventTypes = append(t.eventTypes, eventType)
	return nil
}

func (t *memTx) AdvanceRoom(ctx context.Context, adv RoomAdvance) error {
	t.advance = &adv
	return nil
}

func newTestRoom(teamCount, roundCount int, deadline time.Time) models.DraftRoom {
	return models.DraftRoom{
		ID:           uuid.New(),
		TournamentID: uuid.New(),
		TeamCount:    teamCount,
		RoundCount:   roundCount,
		SpeedClass:   models.SpeedClassFast,
		PickClockSec: 30,
		Snake:        true,
		Status:       models.RoomStatusActive,
		CurrentPick:  1,
		PickDeadline: &deadline,
	}
}

func TestSubmitPickAdvancesCursor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(30 * time.Second)
	store := &memStore{room: newTestRoom(2, 2, deadline)}
	app := NewAppWithClock(store, clock)

	playerID := uuid.New()
	clock.Advance(10 * time.Second)

	entry, err := app.SubmitPick(context.Background(), SubmitPickRequest{
		RoomID:     store.room.ID,
		PickNumber: 1,
		PlayerID:   playerID,
		Seat:       0,
	})
	if err != nil {
		t.Fatalf("SubmitPick failed: %v", err)
	}

	if entry.Seat != 0 || entry.Round != 1 || entry.PickInRound != 1 {
		t.Errorf("unexpected slot: seat=%d round=%d pick_in_round=%d", entry.Seat, entry.Round, entry.PickInRound)
	}
	if entry.TimeUsedSec != 10 {
		t.Errorf("TimeUsedSec = %d, want 10", entry.TimeUsedSec)
	}
	if store.room.CurrentPick != 2 {
		t.Errorf("cursor = %d, want 2", store.room.CurrentPick)
	}
	if store.room.PickDeadline == nil {
		t.Fatal("expected next deadline to be set")
	}
	wantDeadline := clock.Now().Add(30 * time.Second)
	if !store.room.PickDeadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", store.room.PickDeadline, wantDeadline)
	}
	if len(store.projections) != 1 {
		t.Errorf("projections = %d, want 1", len(store.projections))
	}
	wantEvents := []string{events.TypePickMade, events.TypePickStarted}
	if len(store.eventTypes) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", store.eventTypes, wantEvents)
	}
	for i, et := range wantEvents {
		if store.eventTypes[i] != et {
			t.Errorf("event[%d] = %s, want %s", i, store.eventTypes[i], et)
		}
	}
}

func TestSubmitPickRejections(t *testing.T) {
	taken := uuid.New()

	tests := []struct {
		name     string
		mutate   func(*memStore)
		req      func(*memStore) SubmitPickRequest
		wantCode string
	}{
		{
			name:   "paused room",
			mutate: func(s *memStore) { s.room.Status = models.RoomStatusPaused },
			req: func(s *memStore) SubmitPickRequest {
				return SubmitPickRequest{RoomID: s.room.ID, PickNumber: 1, PlayerID: uuid.New(), Seat: 0}
			},
			wantCode: CodeRoomNotActive,
		},
		{
			name:   "stale pick number",
			mutate: func(s *memStore) { s.room.CurrentPick = 3 },
			req: func(s *memStore) SubmitPickRequest {
				return SubmitPickRequest{RoomID: s.room.ID, PickNumber: 1, PlayerID: uuid.New(), Seat: 0}
			},
			wantCode: CodeStalePick,
		},
		{
			name:   "wrong seat",
			mutate: func(s *memStore) {},
			req: func(s *memStore) SubmitPickRequest {
				return SubmitPickRequest{RoomID: s.room.ID, PickNumber: 1, PlayerID: uuid.New(), Seat: 1}
			},
			wantCode: CodeNotYourTurn,
		},
		{
			name: "player already taken",
			mutate: func(s *memStore) {
				s.ledger = append(s.ledger, models.PickLedgerEntry{RoomID: s.room.ID, PickNumber: 1, PlayerID: taken, Seat: 0})
				s.room.CurrentPick = 2
			},
			req: func(s *memStore) SubmitPickRequest {
				return SubmitPickRequest{RoomID: s.room.ID, PickNumber: 2, PlayerID: taken, Seat: 1}
			},
			wantCode: CodePlayerTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			deadline := clock.Now().Add(30 * time.Second)
			store := &memStore{room: newTestRoom(2, 2, deadline)}
			tt.mutate(store)
			app := NewAppWithClock(store, clock)

			before := len(store.ledger)
			_, err := app.SubmitPick(context.Background(), tt.req(store))
			rej, ok := AsRejection(err)
			if !ok {
				t.Fatalf("expected rejection, got %v", err)
			}
			if rej.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", rej.Code, tt.wantCode)
			}
			if len(store.ledger) != before {
				t.Errorf("ledger grew on rejection: %d -> %d", before, len(store.ledger))
			}
		})
	}
}

func TestSubmitPickRetryIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(30 * time.Second)
	store := &memStore{room: newTestRoom(2, 2, deadline)}
	app := NewAppWithClock(store, clock)

	req := SubmitPickRequest{RoomID: store.room.ID, PickNumber: 1, PlayerID: uuid.New(), Seat: 0}
	if _, err := app.SubmitPick(context.Background(), req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// A client retrying after a lost response must not double-commit.
	_, err := app.SubmitPick(context.Background(), req)
	if !errors.Is(err, ErrStalePick) {
		t.Fatalf("retry error = %v, want stale rejection", err)
	}
	if len(store.ledger) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(store.ledger))
	}
}

func TestConcurrentSubmitsCommitExactlyOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(30 * time.Second)
	store := &memStore{room: newTestRoom(12, 18, deadline)}
	app := NewAppWithClock(store, clock)

	const contenders = 16
	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.SubmitPick(context.Background(), SubmitPickRequest{
				RoomID:     store.room.ID,
				PickNumber: 1,
				PlayerID:   uuid.New(),
				Seat:       0,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var committed, rejected int
	for err := range results {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, ErrStalePick):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if committed != 1 {
		t.Errorf("committed = %d, want exactly 1", committed)
	}
	if rejected != contenders-1 {
		t.Errorf("rejected = %d, want %d", rejected, contenders-1)
	}
	if len(store.ledger) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(store.ledger))
	}
	if store.room.CurrentPick != 2 {
		t.Errorf("cursor = %d, want 2", store.room.CurrentPick)
	}
}

func TestDraftRunsToCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(30 * time.Second)
	store := &memStore{room: newTestRoom(2, 2, deadline)}
	app := NewAppWithClock(store, clock)

	// Snake order for 2 teams over 2 rounds: seats 0, 1, 1, 0.
	wantSeats := []int{0, 1, 1, 0}
	for pickNum := 1; pickNum <= 4; pickNum++ {
		entry, err := app.SubmitPick(context.Background(), SubmitPickRequest{
			RoomID:     store.room.ID,
			PickNumber: pickNum,
			PlayerID:   uuid.New(),
			Seat:       wantSeats[pickNum-1],
		})
		if err != nil {
			t.Fatalf("pick %d failed: %v", pickNum, err)
		}
		if entry.Seat != wantSeats[pickNum-1] {
			t.Errorf("pick %d seat = %d, want %d", pickNum, entry.Seat, wantSeats[pickNum-1])
		}
	}

	if store.room.Status != models.RoomStatusCompleted {
		t.Errorf("status = %s, want %s", store.room.Status, models.RoomStatusCompleted)
	}
	if store.room.PickDeadline != nil {
		t.Errorf("deadline = %v, want nil after completion", store.room.PickDeadline)
	}
	last := store.eventTypes[len(store.eventTypes)-1]
	if last != events.TypeDraftCompleted {
		t.Errorf("last event = %s, want %s", last, events.TypeDraftCompleted)
	}

	// The room is terminal: no more picks.
	_, err := app.SubmitPick(context.Background(), SubmitPickRequest{
		RoomID:     store.room.ID,
		PickNumber: 5,
		PlayerID:   uuid.New(),
		Seat:       0,
	})
	if !errors.Is(err, ErrRoomNotActive) {
		t.Fatalf("post-completion submit error = %v, want room not active", err)
	}
}

func TestFullFastDraftCommitsAllPicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(30 * time.Second)
	store := &memStore{room: newTestRoom(12, 18, deadline)}
	app := NewAppWithClock(store, clock)

	const total = 12 * 18
	for pickNum := 1; pickNum <= total; pickNum++ {
		slot, err := turn.At(pickNum, 12)
		if err != nil {
			t.Fatalf("turn.At(%d, 12) failed: %v", pickNum, err)
		}
		entry, err := app.SubmitPick(context.Background(), SubmitPickRequest{
			RoomID:     store.room.ID,
			PickNumber: pickNum,
			PlayerID:   uuid.New(),
			Seat:       slot.Seat,
		})
		if err != nil {
			t.Fatalf("pick %d failed: %v", pickNum, err)
		}
		if entry.Seat != slot.Seat || entry.Round != slot.Round {
			t.Fatalf("pick %d slot = seat %d round %d, want seat %d round %d",
				pickNum, entry.Seat, entry.Round, slot.Seat, slot.Round)
		}
		clock.Advance(3 * time.Second)
	}

	if len(store.ledger) != total {
		t.Fatalf("ledger has %d entries, want %d", len(store.ledger), total)
	}
	if store.room.CurrentPick != total+1 {
		t.Errorf("cursor = %d, want %d", store.room.CurrentPick, total+1)
	}
	if store.room.Status != models.RoomStatusCompleted {
		t.Errorf("status = %s, want %s", store.room.Status, models.RoomStatusCompleted)
	}
	if store.room.PickDeadline != nil {
		t.Errorf("deadline = %v, want nil after completion", store.room.PickDeadline)
	}
	// Contiguous 1..216 with no gaps or duplicates.
	if faults := VerifyLedger(&store.room, store.ledger); len(faults) != 0 {
		t.Errorf("ledger faults: %v", faults)
	}
	for i, e := range store.ledger {
		if e.PickNumber != i+1 {
			t.Fatalf("ledger[%d].PickNumber = %d, want %d", i, e.PickNumber, i+1)
		}
	}
	last := store.eventTypes[len(store.eventTypes)-1]
	if last != events.TypeDraftCompleted {
		t.Errorf("last event = %s, want %s", last, events.TypeDraftCompleted)
	}
}

func TestAutoPickIgnoresSeatMismatch(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(-5 * time.Second) // already expired
	store := &memStore{room: newTestRoom(2, 2, deadline)}
	app := NewAppWithClock(store, clock)

	// The supervisor does not know the on-clock seat; the protocol resolves
	// it from the turn order when Auto is set.
	entry, err := app.SubmitPick(context.Background(), SubmitPickRequest{
		RoomID:     store.room.ID,
		PickNumber: 1,
		PlayerID:   uuid.New(),
		Seat:       1,
		Auto:       true,
	})
	if err != nil {
		t.Fatalf("auto submit failed: %v", err)
	}
	if !entry.Auto {
		t.Error("entry not flagged auto")
	}
	if entry.Seat != 0 {
		t.Errorf("seat = %d, want on-clock seat 0", entry.Seat)
	}
	// Expired deadline charges the full clock.
	if entry.TimeUsedSec != 30 {
		t.Errorf("TimeUsedSec = %d, want 30", entry.TimeUsedSec)
	}
}

func TestSubmitPickDetectsCorruptCursor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deadline := clock.Now().Add(30 * time.Second)
	store := &memStore{room: newTestRoom(2, 2, deadline)}
	store.room.CurrentPick = 7 // past total+1 for a 2x2 draft
	app := NewAppWithClock(store, clock)

	_, err := app.SubmitPick(context.Background(), SubmitPickRequest{
		RoomID:     store.room.ID,
		PickNumber: 7,
		PlayerID:   uuid.New(),
		Seat:       0,
	})
	if err == nil {
		t.Fatal("expected error for a cursor outside the draft")
	}
	// Corruption is an internal fault, not a client rejection.
	if _, ok := AsRejection(err); ok {
		t.Fatalf("corrupt cursor surfaced as a rejection: %v", err)
	}
}

func TestSubmitPickValidation(t *testing.T) {
	app := NewApp(&memStore{})

	tests := []struct {
		name string
		req  SubmitPickRequest
	}{
		{"missing room", SubmitPickRequest{PickNumber: 1, PlayerID: uuid.New()}},
		{"missing player", SubmitPickRequest{RoomID: uuid.New(), PickNumber: 1}},
		{"zero pick number", SubmitPickRequest{RoomID: uuid.New(), PlayerID: uuid.New()}},
		{"negative seat", SubmitPickRequest{RoomID: uuid.New(), PickNumber: 1, PlayerID: uuid.New(), Seat: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := app.SubmitPick(context.Background(), tt.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
