package models

import (
	"time"

	"github.com/google/uuid"
)

// PickLedgerEntry is one committed pick in a room's ledger. Entries are
// append-only: exactly one per pick number, never edited or deleted.
type PickLedgerEntry struct {
	RoomID      uuid.UUID  `json:"room_id"`
	PickNumber  int        `json:"pick_number"` // 1-indexed, contiguous
	PlayerID    uuid.UUID  `json:"player_id"`
	Seat        int        `json:"seat"`
	Round       int        `json:"round"`
	PickInRound int        `json:"pick_in_round"`
	Auto        bool       `json:"auto"` // committed by the supervisor, not a human
	PickedAt    time.Time  `json:"picked_at"`
	TimeUsedSec int        `json:"time_used_sec"` // pick clock seconds consumed, clamped to [0, clock]

	// Denormalized from the room so cross-room queries need no join.
	SpeedClass   SpeedClass `json:"speed_class"`
	TournamentID uuid.UUID  `json:"tournament_id"`
}

// PickProjection is the flat cross-room copy of a committed pick, written in
// the same transaction as the ledger entry. The ADP aggregator scans these.
type PickProjection struct {
	PlayerID     uuid.UUID  `json:"player_id"`
	SpeedClass   SpeedClass `json:"speed_class"`
	TournamentID uuid.UUID  `json:"tournament_id"`
	PickNumber   int        `json:"pick_number"`
	PickedAt     time.Time  `json:"picked_at"`
}
