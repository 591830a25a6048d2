package models

import (
	"time"

	"github.com/google/uuid"
)

// ADPEntry is one player's average draft position within a speed class.
// Entries are replaced wholesale per refresh cycle (generation flip), never
// mutated incrementally.
type ADPEntry struct {
	PlayerID    uuid.UUID  `json:"player_id"`
	SpeedClass  SpeedClass `json:"speed_class"`
	SampleCount int        `json:"sample_count"`
	AvgPick     float64    `json:"avg_pick"`
	RefreshedAt time.Time  `json:"refreshed_at"`
}
