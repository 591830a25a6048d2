// Package events holds the domain event payloads shared between the draft
// engine, the outbox relay and the gateway.
package events

import "time"

// Event type names as stored in the outbox and used as bus subject suffixes.
const (
	TypePickMade       = "PickMade"
	TypePickStarted    = "PickStarted"
	TypeDraftStarted   = "DraftStarted"
	TypeDraftPaused    = "DraftPaused"
	TypeDraftResumed   = "DraftResumed"
	TypeDraftCompleted = "DraftCompleted"
	TypeDraftCancelled = "DraftCancelled"
)

// PickMadePayload announces a committed ledger entry. Roster projections
// subscribe to this to materialize each seat's drafted-player list.
type PickMadePayload struct {
	RoomID      string    `json:"room_id"`
	PickNumber  int       `json:"pick_number"`
	Seat        int       `json:"seat"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	PickInRound int       `json:"pick_in_round"`
	Auto        bool      `json:"auto"`
	MadeAt      time.Time `json:"made_at"`
}

// PickStartedPayload announces that a new pick is on the clock.
type PickStartedPayload struct {
	RoomID     string    `json:"room_id"`
	PickNumber int       `json:"pick_number"`
	Seat       int       `json:"seat"`
	Round      int       `json:"round"`
	StartedAt  time.Time `json:"started_at"`
	Deadline   time.Time `json:"deadline"`
}

// DraftStartedPayload announces that a room went active.
type DraftStartedPayload struct {
	RoomID     string    `json:"room_id"`
	StartedAt  time.Time `json:"started_at"`
	TotalPicks int       `json:"total_picks"`
}

// DraftPausedPayload announces an administrative pause.
type DraftPausedPayload struct {
	RoomID   string    `json:"room_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// DraftResumedPayload announces a resume; the pick clock restarts from
// ResumedAt.
type DraftResumedPayload struct {
	RoomID    string    `json:"room_id"`
	ResumedAt time.Time `json:"resumed_at"`
	Deadline  time.Time `json:"deadline"`
}

// DraftCompletedPayload announces a terminal completed room. The tournament
// service consumes this to record payout eligibility.
type DraftCompletedPayload struct {
	RoomID      string    `json:"room_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftCancelledPayload announces a terminal aborted room.
type DraftCancelledPayload struct {
	RoomID      string    `json:"room_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

// Subject builds the bus routing key for an event type.
func Subject(prefix, eventType string) string {
	return prefix + "." + eventType
}
