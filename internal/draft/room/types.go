package room

import (
	"time"

	"github.com/google/uuid"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// CreateRoomRequest carries the configuration the tournament service supplies
// when a draft room is formed.
type CreateRoomRequest struct {
	ID           uuid.UUID         `json:"id"`
	TournamentID uuid.UUID         `json:"tournament_id"`
	TeamCount    int               `json:"team_count"`
	RoundCount   int               `json:"round_count"`
	SpeedClass   models.SpeedClass `json:"speed_class"`
	PickClockSec int               `json:"pick_clock_sec"`
	Snake        bool              `json:"snake"`
}

// NextDeadline is the soonest pick deadline across all active rooms.
type NextDeadline struct {
	RoomID   uuid.UUID  `json:"room_id"`
	Deadline *time.Time `json:"deadline"`
}
