package models

import (
	"time"

	"github.com/google/uuid"
)

// SpeedClass classifies a draft's pacing. Fast drafts run on a short pick
// clock, slow drafts on a multi-hour one. ADP statistics are segmented by
// speed class because drafting behavior differs by pace.
type SpeedClass string

const (
	SpeedClassFast SpeedClass = "fast"
	SpeedClassSlow SpeedClass = "slow"
)

// RoomStatus defines the lifecycle status of a draft room.
type RoomStatus string

const (
	RoomStatusScheduled RoomStatus = "SCHEDULED"
	RoomStatusFilling   RoomStatus = "FILLING"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusPaused    RoomStatus = "PAUSED"
	RoomStatusCompleted RoomStatus = "COMPLETED"
	RoomStatusCancelled RoomStatus = "CANCELLED"
)

// Participant is one seat in a draft room. Seat is the fixed draft-position
// index (0..TeamCount-1) assigned at room creation.
type Participant struct {
	RoomID          uuid.UUID   `json:"room_id"`
	Seat            int         `json:"seat"`
	UserRef         string      `json:"user_ref"`
	AutopickEnabled bool        `json:"autopick_enabled"`
	LastSeenAt      *time.Time  `json:"last_seen_at,omitempty"`
	Queue           []uuid.UUID `json:"queue,omitempty"` // personal player queue, ordered
}

// DraftRoom is the aggregate root for one draft: configuration, roster and
// the mutable cursor (current pick, deadline, status). The cursor is mutated
// only by the pick commit protocol and admin pause/resume.
type DraftRoom struct {
	ID           uuid.UUID     `json:"id"`
	TournamentID uuid.UUID     `json:"tournament_id"`
	TeamCount    int           `json:"team_count"`
	RoundCount   int           `json:"round_count"`
	SpeedClass   SpeedClass    `json:"speed_class"`
	PickClockSec int           `json:"pick_clock_sec"`
	Snake        bool          `json:"snake"`
	Status       RoomStatus    `json:"status"`
	CurrentPick  int           `json:"current_pick"` // 1-indexed; TotalPicks()+1 once completed
	PickDeadline *time.Time    `json:"pick_deadline,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TotalPicks returns the number of picks in the room's full draft.
func (r *DraftRoom) TotalPicks() int {
	return r.TeamCount * r.RoundCount
}

// PickClock returns the pick clock as a duration.
func (r *DraftRoom) PickClock() time.Duration {
	return time.Duration(r.PickClockSec) * time.Second
}
