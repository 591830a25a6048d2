package pick

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

func auditRoom(teamCount, roundCount, currentPick int) *models.DraftRoom {
	return &models.DraftRoom{
		ID:          uuid.New(),
		TeamCount:   teamCount,
		RoundCount:  roundCount,
		CurrentPick: currentPick,
	}
}

func entriesFor(room *models.DraftRoom, picks ...int) []models.PickLedgerEntry {
	entries := make([]models.PickLedgerEntry, 0, len(picks))
	for _, n := range picks {
		entries = append(entries, models.PickLedgerEntry{
			RoomID:     room.ID,
			PickNumber: n,
			PlayerID:   uuid.New(),
		})
	}
	return entries
}

func TestVerifyLedgerClean(t *testing.T) {
	room := auditRoom(2, 2, 4)
	if faults := VerifyLedger(room, entriesFor(room, 1, 2, 3)); len(faults) != 0 {
		t.Errorf("unexpected faults: %v", faults)
	}
}

func TestVerifyLedgerFaults(t *testing.T) {
	tests := []struct {
		name    string
		build   func(room *models.DraftRoom) []models.PickLedgerEntry
		current int
		detail  string
	}{
		{
			name:    "gap",
			build:   func(room *models.DraftRoom) []models.PickLedgerEntry { return entriesFor(room, 1, 3) },
			current: 4,
			detail:  "gap at pick number 2",
		},
		{
			name:    "duplicate pick number",
			build:   func(room *models.DraftRoom) []models.PickLedgerEntry { return entriesFor(room, 1, 2, 2) },
			current: 4,
			detail:  "duplicate pick number 2",
		},
		{
			name: "duplicate player",
			build: func(room *models.DraftRoom) []models.PickLedgerEntry {
				entries := entriesFor(room, 1, 2)
				entries[1].PlayerID = entries[0].PlayerID
				return entries
			},
			current: 3,
			detail:  "drafted at picks 1 and 2",
		},
		{
			name:    "count mismatch",
			build:   func(room *models.DraftRoom) []models.PickLedgerEntry { return entriesFor(room, 1) },
			current: 4,
			detail:  "cursor at 4 implies 3",
		},
		{
			name:    "out of range",
			build:   func(room *models.DraftRoom) []models.PickLedgerEntry { return entriesFor(room, 1, 2, 3, 99) },
			current: 5,
			detail:  "outside draft range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := auditRoom(2, 2, tt.current)
			faults := VerifyLedger(room, tt.build(room))
			if len(faults) == 0 {
				t.Fatal("expected at least one fault")
			}
			found := false
			for _, f := range faults {
				if strings.Contains(f.Detail, tt.detail) {
					found = true
				}
			}
			if !found {
				t.Errorf("no fault containing %q in %v", tt.detail, faults)
			}
		})
	}
}
