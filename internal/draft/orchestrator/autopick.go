package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/adp"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/turn"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// AutoPickStrategy selects the player to draft on behalf of a seat whose
// clock has run out.
type AutoPickStrategy interface {
	SelectPlayer(ctx context.Context, room *models.DraftRoom) (uuid.UUID, error)
}

// DraftedLister reports the players already taken in a room.
type DraftedLister interface {
	DraftedPlayerIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
}

// RankedSource returns the best available player from current ADP rankings.
type RankedSource interface {
	BestAvailable(ctx context.Context, speedClass models.SpeedClass, excluded []uuid.UUID) (uuid.UUID, error)
}

// Catalog is the last-resort player source when no rankings exist.
type Catalog interface {
	LowestIDExcluding(ctx context.Context, excluded []uuid.UUID) (uuid.UUID, error)
}

// QueueSource reads a seat's personal pick queue.
type QueueSource interface {
	GetQueue(ctx context.Context, roomID uuid.UUID, seat int) ([]uuid.UUID, error)
}

// QueueADPStrategy picks, in order: the first still-available player on the
// seat's queue, then the best available by ADP for the room's speed class,
// then the lowest player id remaining in the catalog.
type QueueADPStrategy struct {
	queues  QueueSource
	drafted DraftedLister
	ranked  RankedSource
	catalog Catalog
}

func NewQueueADPStrategy(queues QueueSource, drafted DraftedLister, ranked RankedSource, catalog Catalog) *QueueADPStrategy {
	return &QueueADPStrategy{queues: queues, drafted: drafted, ranked: ranked, catalog: catalog}
}

func (s *QueueADPStrategy) SelectPlayer(ctx context.Context, room *models.DraftRoom) (uuid.UUID, error) {
	slot, err := turn.At(room.CurrentPick, room.TeamCount)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve on-clock seat: %w", err)
	}

	drafted, err := s.drafted.DraftedPlayerIDs(ctx, room.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load drafted players: %w", err)
	}
	taken := make(map[uuid.UUID]bool, len(drafted))
	for _, id := range drafted {
		taken[id] = true
	}

	queue, err := s.queues.GetQueue(ctx, room.ID, slot.Seat)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load seat queue: %w", err)
	}
	for _, id := range queue {
		if !taken[id] {
			log.Debug().
				Str("room_id", room.ID.String()).
				Int("seat", slot.Seat).
				Str("player_id", id.String()).
				Msg("autopick from queue")
			return id, nil
		}
	}

	playerID, err := s.ranked.BestAvailable(ctx, room.SpeedClass, drafted)
	if err == nil {
		return playerID, nil
	}
	if !errors.Is(err, adp.ErrNoCandidates) {
		return uuid.Nil, fmt.Errorf("failed to query rankings: %w", err)
	}

	// Rankings can be empty right after launch or when every ranked player
	// is gone late in a draft.
	playerID, err = s.catalog.LowestIDExcluding(ctx, drafted)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to pick fallback player: %w", err)
	}
	return playerID, nil
}
