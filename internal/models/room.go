// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Room lifecycle statuses.
const (
	RoomStatusWaiting  = "waiting"
	RoomStatusPlaying  = "playing"
	RoomStatusFinished = "finished"
)

// Room represents a row in the rooms table: one play session shared by up to
// MaxPlayers seats. Exactly one player holds the host flag while any remain.
type Room struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	JoinCode     string     `json:"join_code"`
	HostID       *uuid.UUID `json:"host_id,omitempty"`
	Status       string     `json:"status"` // 'waiting', 'playing', or 'finished'
	MaxPlayers   int        `json:"max_players"`
	InitialChips int        `json:"initial_chips"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
