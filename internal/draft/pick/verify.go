package pick

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// LedgerFault describes a violated ledger invariant: a gap, duplicate or a
// mismatch against the room cursor. Any fault means exactly-once commitment
// broke and must reach operational monitoring, never be swallowed.
type LedgerFault struct {
	RoomID uuid.UUID `json:"room_id"`
	Detail string    `json:"detail"`
}

func (f LedgerFault) String() string {
	return fmt.Sprintf("room %s: %s", f.RoomID, f.Detail)
}

// VerifyLedger checks that a room's committed pick numbers are exactly
// {1..currentPick-1} with no gaps or duplicates. It is a read-only audit for
// admin tooling and monitoring.
func VerifyLedger(room *models.DraftRoom, entries []models.PickLedgerEntry) []LedgerFault {
	var faults []LedgerFault
	fault := func(format string, args ...any) {
		faults = append(faults, LedgerFault{RoomID: room.ID, Detail: fmt.Sprintf(format, args...)})
	}

	want := room.CurrentPick - 1
	if len(entries) != want {
		fault("ledger has %d entries, cursor at %d implies %d", len(entries), room.CurrentPick, want)
	}

	seenPick := make(map[int]bool, len(entries))
	seenPlayer := make(map[uuid.UUID]int, len(entries))
	for _, e := range entries {
		if seenPick[e.PickNumber] {
			fault("duplicate pick number %d", e.PickNumber)
		}
		seenPick[e.PickNumber] = true

		if prev, ok := seenPlayer[e.PlayerID]; ok {
			fault("player %s drafted at picks %d and %d", e.PlayerID, prev, e.PickNumber)
		}
		seenPlayer[e.PlayerID] = e.PickNumber

		if e.PickNumber < 1 || e.PickNumber > room.TotalPicks() {
			fault("pick number %d outside draft range", e.PickNumber)
		}
	}
	for n := 1; n <= want; n++ {
		if !seenPick[n] {
			fault("gap at pick number %d", n)
		}
	}

	for _, f := range faults {
		log.Error().Str("room_id", room.ID.String()).Str("fault", f.Detail).Msg("ledger integrity fault")
	}
	return faults
}

// Audit loads a room's ledger through the store and verifies it.
func (a *App) Audit(ctx context.Context, room *models.DraftRoom) ([]LedgerFault, error) {
	entries, err := a.store.Ledger(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for audit: %w", err)
	}
	return VerifyLedger(room, entries), nil
}
