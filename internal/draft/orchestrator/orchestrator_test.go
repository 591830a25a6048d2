package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ErinHernandez/TopDog-sub003/internal/adp"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/pick"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/room"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

type fakeScheduler struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]*models.DraftRoom
	fetches int
}

func (f *fakeScheduler) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeScheduler) GetRoom(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rm, ok := f.rooms[id]
	if !ok {
		return nil, room.ErrNotFound
	}
	copied := *rm
	return &copied, nil
}

func (f *fakeScheduler) FetchNextDeadline(ctx context.Context) (*room.NextDeadline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	var next *room.NextDeadline
	for _, rm := range f.rooms {
		if rm.Status != models.RoomStatusActive || rm.PickDeadline == nil {
			continue
		}
		if next == nil || rm.PickDeadline.Before(*next.Deadline) {
			next = &room.NextDeadline{RoomID: rm.ID, Deadline: rm.PickDeadline}
		}
	}
	return next, nil
}

func (f *fakeScheduler) FetchRoomsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []uuid.UUID
	now := time.Now()
	for _, rm := range f.rooms {
		if rm.Status == models.RoomStatusActive && rm.PickDeadline != nil && !rm.PickDeadline.After(now) {
			due = append(due, rm.ID)
		}
	}
	return due, nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []pick.SubmitPickRequest
	err      error
	done     chan struct{}
}

func (f *fakeSubmitter) SubmitPick(ctx context.Context, req pick.SubmitPickRequest) (*models.PickLedgerEntry, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.done != nil {
		select {
		case f.done <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.PickLedgerEntry{RoomID: req.RoomID, PickNumber: req.PickNumber, PlayerID: req.PlayerID, Auto: true}, nil
}

func (f *fakeSubmitter) submitted() []pick.SubmitPickRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pick.SubmitPickRequest(nil), f.requests...)
}

type fixedStrategy struct {
	playerID uuid.UUID
}

func (s fixedStrategy) SelectPlayer(ctx context.Context, rm *models.DraftRoom) (uuid.UUID, error) {
	return s.playerID, nil
}

func expiredRoom(teamCount, roundCount int) *models.DraftRoom {
	past := time.Now().Add(-5 * time.Second)
	return &models.DraftRoom{
		ID:           uuid.New(),
		TournamentID: uuid.New(),
		TeamCount:    teamCount,
		RoundCount:   roundCount,
		SpeedClass:   models.SpeedClassFast,
		PickClockSec: 30,
		Snake:        true,
		Status:       models.RoomStatusActive,
		CurrentPick:  7,
		PickDeadline: &past,
	}
}

func TestHandleTimeoutCommitsAutoPick(t *testing.T) {
	rm := expiredRoom(12, 18)
	sched := &fakeScheduler{rooms: map[uuid.UUID]*models.DraftRoom{rm.ID: rm}}
	sub := &fakeSubmitter{}
	playerID := uuid.New()

	o := New(sched, sub, fixedStrategy{playerID}, DefaultConfig())
	o.handleTimeout(context.Background(), rm.ID)

	reqs := sub.submitted()
	if len(reqs) != 1 {
		t.Fatalf("submitted %d picks, want 1", len(reqs))
	}
	req := reqs[0]
	if !req.Auto {
		t.Error("request not flagged auto")
	}
	if req.PickNumber != rm.CurrentPick {
		t.Errorf("pick number = %d, want %d", req.PickNumber, rm.CurrentPick)
	}
	if req.PlayerID != playerID {
		t.Errorf("player = %s, want %s", req.PlayerID, playerID)
	}
}

func TestHandleTimeoutSkipsFreshDeadline(t *testing.T) {
	rm := expiredRoom(12, 18)
	future := time.Now().Add(time.Minute)
	rm.PickDeadline = &future
	sched := &fakeScheduler{rooms: map[uuid.UUID]*models.DraftRoom{rm.ID: rm}}
	sub := &fakeSubmitter{}

	o := New(sched, sub, fixedStrategy{uuid.New()}, DefaultConfig())
	o.handleTimeout(context.Background(), rm.ID)

	if len(sub.submitted()) != 0 {
		t.Error("submitted a pick for a room whose clock has not expired")
	}
}

func TestHandleTimeoutSkipsInactiveRoom(t *testing.T) {
	for _, status := range []models.RoomStatus{models.RoomStatusPaused, models.RoomStatusCompleted, models.RoomStatusCancelled} {
		rm := expiredRoom(12, 18)
		rm.Status = status
		sched := &fakeScheduler{rooms: map[uuid.UUID]*models.DraftRoom{rm.ID: rm}}
		sub := &fakeSubmitter{}

		o := New(sched, sub, fixedStrategy{uuid.New()}, DefaultConfig())
		o.handleTimeout(context.Background(), rm.ID)

		if len(sub.submitted()) != 0 {
			t.Errorf("submitted a pick for %s room", status)
		}
	}
}

func TestHandleTimeoutToleratesRejection(t *testing.T) {
	rm := expiredRoom(12, 18)
	sched := &fakeScheduler{rooms: map[uuid.UUID]*models.DraftRoom{rm.ID: rm}}
	sub := &fakeSubmitter{err: pick.ErrStalePick}

	o := New(sched, sub, fixedStrategy{uuid.New()}, DefaultConfig())
	// A losing race against a human pick is routine, not an error.
	o.handleTimeout(context.Background(), rm.ID)

	if len(sub.submitted()) != 1 {
		t.Fatalf("submitted %d picks, want 1", len(sub.submitted()))
	}
}

func TestSchedulerParksOnExpiredDeadline(t *testing.T) {
	rm := expiredRoom(12, 18)
	sched := &fakeScheduler{rooms: map[uuid.UUID]*models.DraftRoom{rm.ID: rm}}
	sub := &fakeSubmitter{done: make(chan struct{}, 1)}
	clock := clockwork.NewFakeClock()

	o := NewWithClock(sched, sub, fixedStrategy{uuid.New()}, Config{Workers: 1, IdlePoll: 5 * time.Second}, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	// An expired deadline must not turn the loop into a tight poll: after
	// one fetch the scheduler parks on the timer until the pause elapses.
	time.Sleep(50 * time.Millisecond)
	if n := sched.fetchCount(); n > 2 {
		t.Errorf("deadline fetches = %d, want the loop parked after the first pass", n)
	}

	clock.BlockUntil(1)
	clock.Advance(minSchedulerPause)
	select {
	case <-sub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("autopick not dispatched after the scheduler pause elapsed")
	}

	cancel()
	<-errCh
}

func TestRunDispatchesExpiredRooms(t *testing.T) {
	rm := expiredRoom(12, 18)
	sched := &fakeScheduler{rooms: map[uuid.UUID]*models.DraftRoom{rm.ID: rm}}
	sub := &fakeSubmitter{done: make(chan struct{}, 1)}

	o := NewWithClock(sched, sub, fixedStrategy{uuid.New()}, Config{
		BatchSize: 10,
		Workers:   2,
		IdlePoll:  5 * time.Millisecond,
	}, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	select {
	case <-sub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor never dispatched the expired room")
	}
	cancel()
}

// Strategy fakes.

type fakeQueues struct {
	queue []uuid.UUID
}

func (f fakeQueues) GetQueue(ctx context.Context, roomID uuid.UUID, seat int) ([]uuid.UUID, error) {
	return f.queue, nil
}

type fakeDrafted struct {
	ids []uuid.UUID
}

func (f fakeDrafted) DraftedPlayerIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	return f.ids, nil
}

type fakeRanked struct {
	best uuid.UUID
	err  error
}

func (f fakeRanked) BestAvailable(ctx context.Context, speedClass models.SpeedClass, excluded []uuid.UUID) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.best, nil
}

type fakeCatalog struct {
	lowest uuid.UUID
}

func (f fakeCatalog) LowestIDExcluding(ctx context.Context, excluded []uuid.UUID) (uuid.UUID, error) {
	return f.lowest, nil
}

func strategyRoom() *models.DraftRoom {
	rm := expiredRoom(2, 2)
	rm.CurrentPick = 1
	return rm
}

func TestStrategyPrefersQueue(t *testing.T) {
	taken := uuid.New()
	queued := uuid.New()
	ranked := uuid.New()

	s := NewQueueADPStrategy(
		fakeQueues{queue: []uuid.UUID{taken, queued}},
		fakeDrafted{ids: []uuid.UUID{taken}},
		fakeRanked{best: ranked},
		fakeCatalog{lowest: uuid.New()},
	)

	got, err := s.SelectPlayer(context.Background(), strategyRoom())
	if err != nil {
		t.Fatalf("SelectPlayer failed: %v", err)
	}
	// The drafted queue entry is skipped, not an error.
	if got != queued {
		t.Errorf("selected %s, want queued player %s", got, queued)
	}
}

func TestStrategyFallsBackToRankings(t *testing.T) {
	ranked := uuid.New()
	s := NewQueueADPStrategy(
		fakeQueues{},
		fakeDrafted{},
		fakeRanked{best: ranked},
		fakeCatalog{lowest: uuid.New()},
	)

	got, err := s.SelectPlayer(context.Background(), strategyRoom())
	if err != nil {
		t.Fatalf("SelectPlayer failed: %v", err)
	}
	if got != ranked {
		t.Errorf("selected %s, want ranked player %s", got, ranked)
	}
}

func TestStrategyFallsBackToCatalog(t *testing.T) {
	lowest := uuid.New()
	s := NewQueueADPStrategy(
		fakeQueues{},
		fakeDrafted{},
		fakeRanked{err: adp.ErrNoCandidates},
		fakeCatalog{lowest: lowest},
	)

	got, err := s.SelectPlayer(context.Background(), strategyRoom())
	if err != nil {
		t.Fatalf("SelectPlayer failed: %v", err)
	}
	if got != lowest {
		t.Errorf("selected %s, want catalog player %s", got, lowest)
	}
}

func TestStrategyExhaustedQueueUsesRankings(t *testing.T) {
	taken := []uuid.UUID{uuid.New(), uuid.New()}
	ranked := uuid.New()

	s := NewQueueADPStrategy(
		fakeQueues{queue: taken},
		fakeDrafted{ids: taken},
		fakeRanked{best: ranked},
		fakeCatalog{lowest: uuid.New()},
	)

	got, err := s.SelectPlayer(context.Background(), strategyRoom())
	if err != nil {
		t.Fatalf("SelectPlayer failed: %v", err)
	}
	if got != ranked {
		t.Errorf("selected %s, want ranked player %s", got, ranked)
	}
}
