package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is catalog reference data: read-only to the draft engine, which
// treats player ids as opaque keys beyond existence checks.
type Player struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Position  string    `json:"position"` // 'QB', 'RB', 'WR', 'TE', ...
	NFLTeam   string    `json:"nfl_team"`
	ByeWeek   int       `json:"bye_week"`
	CreatedAt time.Time `json:"created_at"`
}
