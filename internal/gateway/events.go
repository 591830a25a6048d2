package gateway

import (
	"encoding/json"
	"time"
)

// RoomEvent is the frame pushed to WebSocket clients. Data carries the
// original outbox payload untouched.
type RoomEvent struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
