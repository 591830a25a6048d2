package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/draft/pick"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/room"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// RoomScheduler exposes the deadline index the supervisor sleeps against.
type RoomScheduler interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error)
	FetchNextDeadline(ctx context.Context) (*room.NextDeadline, error)
	FetchRoomsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error)
}

// PickSubmitter commits picks through the regular pick protocol.
type PickSubmitter interface {
	SubmitPick(ctx context.Context, req pick.SubmitPickRequest) (*models.PickLedgerEntry, error)
}

type Config struct {
	BatchSize int32
	Workers   int
	// IdlePoll bounds how long the scheduler sleeps when no deadline is
	// pending, so rooms activated by another process are still noticed.
	IdlePoll time.Duration
}

func DefaultConfig() Config {
	return Config{BatchSize: 50, Workers: 8, IdlePoll: 5 * time.Second}
}

// minSchedulerPause is the shortest sleep between scheduler passes, applied
// even when the earliest deadline has already expired.
const minSchedulerPause = 25 * time.Millisecond

// Orchestrator watches pick deadlines and drafts on behalf of seats that run
// out of time. One scheduler goroutine sleeps until the earliest deadline,
// then fans expired rooms out to a worker pool. Every autopick goes through
// the same commit protocol as a human pick, so a user beating the timer by a
// hair is resolved by the room lock, not by this process.
type Orchestrator struct {
	rooms    RoomScheduler
	picks    PickSubmitter
	strategy AutoPickStrategy
	config   Config
	clock    clockwork.Clock

	wakeCh chan struct{}

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

func New(rooms RoomScheduler, picks PickSubmitter, strategy AutoPickStrategy, config Config) *Orchestrator {
	return NewWithClock(rooms, picks, strategy, config, clockwork.NewRealClock())
}

func NewWithClock(rooms RoomScheduler, picks PickSubmitter, strategy AutoPickStrategy, config Config, clock clockwork.Clock) *Orchestrator {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.IdlePoll <= 0 {
		config.IdlePoll = DefaultConfig().IdlePoll
	}
	return &Orchestrator{
		rooms:    rooms,
		picks:    picks,
		strategy: strategy,
		config:   config,
		clock:    clock,
		wakeCh:   make(chan struct{}, 1),
		inFlight: make(map[uuid.UUID]bool),
	}
}

// Wake nudges the scheduler to re-read the deadline index, typically after a
// room is activated or resumed in the same process.
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// Run drives the scheduler loop until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	jobs := make(chan uuid.UUID)
	var wg sync.WaitGroup
	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for roomID := range jobs {
				o.handleTimeout(ctx, roomID)
				o.mu.Lock()
				delete(o.inFlight, roomID)
				o.mu.Unlock()
			}
		}()
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	log.Info().
		Int("workers", o.config.Workers).
		Int32("batch_size", o.config.BatchSize).
		Msg("autopick supervisor started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := o.config.IdlePoll
		next, err := o.rooms.FetchNextDeadline(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch next deadline")
		} else if next != nil && next.Deadline != nil {
			until := next.Deadline.Sub(o.clock.Now())
			if until < wait {
				wait = until
			}
		}
		// An already-passed deadline stays in the index while its autopick is
		// in flight or keeps failing; the floor keeps the loop from polling
		// the store in a tight cycle.
		if wait < minSchedulerPause {
			wait = minSchedulerPause
		}

		timer := o.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-o.wakeCh:
			timer.Stop()
			continue
		case <-timer.Chan():
		}

		o.dispatchDue(ctx, jobs)
	}
}

func (o *Orchestrator) dispatchDue(ctx context.Context, jobs chan<- uuid.UUID) {
	roomIDs, err := o.rooms.FetchRoomsDueForPick(ctx, o.config.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch expired rooms")
		return
	}

	for _, roomID := range roomIDs {
		o.mu.Lock()
		if o.inFlight[roomID] {
			o.mu.Unlock()
			continue
		}
		o.inFlight[roomID] = true
		o.mu.Unlock()

		select {
		case jobs <- roomID:
		case <-ctx.Done():
			o.mu.Lock()
			delete(o.inFlight, roomID)
			o.mu.Unlock()
			return
		}
	}
}

func (o *Orchestrator) handleTimeout(ctx context.Context, roomID uuid.UUID) {
	rm, err := o.rooms.GetRoom(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to load expired room")
		return
	}

	// Re-check under fresh state. The room may have been paused, completed,
	// or advanced by a human pick between the index scan and now.
	if rm.Status != models.RoomStatusActive || rm.PickDeadline == nil || rm.PickDeadline.After(o.clock.Now()) {
		return
	}

	playerID, err := o.strategy.SelectPlayer(ctx, rm)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("autopick selection failed")
		return
	}

	_, err = o.picks.SubmitPick(ctx, pick.SubmitPickRequest{
		RoomID:     roomID,
		PickNumber: rm.CurrentPick,
		PlayerID:   playerID,
		Auto:       true,
	})
	if err != nil {
		if rej, ok := pick.AsRejection(err); ok {
			// A human pick landed first or the room changed state. The
			// next deadline scan covers whatever comes after.
			log.Debug().
				Str("room_id", roomID.String()).
				Str("code", rej.Code).
				Msg("autopick superseded")
			return
		}
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("autopick commit failed")
		return
	}

	log.Info().
		Str("room_id", roomID.String()).
		Int("pick_number", rm.CurrentPick).
		Str("player_id", playerID.String()).
		Msg("autopick committed")
}
