package pick

import (
	"time"

	"github.com/google/uuid"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// SubmitPickRequest proposes one pick for one pick number. Seat is the
// submitting participant's draft position; when Auto is set the supervisor
// submits on behalf of whichever seat the turn engine says is on the clock.
type SubmitPickRequest struct {
	RoomID     uuid.UUID `json:"room_id"`
	PickNumber int       `json:"pick_number"`
	PlayerID   uuid.UUID `json:"player_id"`
	Seat       int       `json:"seat"`
	Auto       bool      `json:"auto"`
}

// RoomAdvance is the cursor mutation applied at the end of a successful
// commit.
type RoomAdvance struct {
	CurrentPick int
	Deadline    *time.Time // nil clears the deadline (completion)
	Status      models.RoomStatus
}

// RosterSlot is one drafted player on a seat's roster view.
type RosterSlot struct {
	Round      int       `json:"round"`
	PickNumber int       `json:"pick_number"`
	PlayerID   uuid.UUID `json:"player_id"`
	Auto       bool      `json:"auto"`
}
