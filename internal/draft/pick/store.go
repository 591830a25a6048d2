package pick

import (
	"context"

	"github.com/google/uuid"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// Tx is the slice of a storage transaction the commit protocol needs. The
// room row behind Room() is locked for the life of the transaction; it is the
// single serialization point for the room's cursor.
type Tx interface {
	// Room returns the locked room row as read at transaction start.
	Room() *models.DraftRoom

	// PlayerTaken reports whether the player already has a ledger entry in
	// this room.
	PlayerTaken(ctx context.Context, playerID uuid.UUID) (bool, error)

	// InsertLedgerEntry appends one pick to the room's ledger.
	InsertLedgerEntry(ctx context.Context, entry models.PickLedgerEntry) error

	// InsertProjection writes the flat cross-room copy for the aggregator.
	InsertProjection(ctx context.Context, p models.PickProjection) error

	// InsertOutboxEvent stages a domain event in the same transaction.
	InsertOutboxEvent(ctx context.Context, eventType string, payload []byte) error

	// AdvanceRoom applies the cursor mutation.
	AdvanceRoom(ctx context.Context, adv RoomAdvance) error
}

// Store is what the commit protocol needs from storage. WithRoomTx runs fn
// inside one atomic transaction holding the room row; two concurrent calls
// for the same room serialize, which is what makes a racing human submission
// and autopick resolve to exactly one winner.
type Store interface {
	WithRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Tx) error) error

	Ledger(ctx context.Context, roomID uuid.UUID) ([]models.PickLedgerEntry, error)
	DraftedPlayerIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
	Roster(ctx context.Context, roomID uuid.UUID, seat int) ([]RosterSlot, error)
	AvailablePlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)
}
