// internal/models/player.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a seat in a room. Chips are only mutated by round settlement or by
// the host setting initial chips while the room is still waiting. TurnOrder is
// a contiguous permutation of the current seats, recomputed at game start.
type Player struct {
	ID        uuid.UUID  `json:"id"`
	RoomID    uuid.UUID  `json:"room_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	IsHost    bool       `json:"is_host"`
	Chips     int        `json:"chips"`
	TurnOrder int        `json:"turn_order"`
	CreatedAt time.Time  `json:"created_at"`
}
