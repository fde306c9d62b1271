// internal/models/round.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Round statuses. At most one round per room is 'playing'.
const (
	RoundStatusPlaying  = "playing"
	RoundStatusFinished = "finished"
)

// Round phases, in order of progression.
const (
	PhaseBetting         = "betting"
	PhaseParentRolling   = "parent_rolling"
	PhaseChildrenRolling = "children_rolling"
	PhaseSettlement      = "settlement"
)

// Round is one hand of play within a room. ParentHandClass/Value are set when
// the parent's final roll is recorded; CurrentTurnPlayerID is nil whenever no
// single player owns the turn (betting and settlement phases).
type Round struct {
	ID                  uuid.UUID  `json:"id"`
	RoomID              uuid.UUID  `json:"room_id"`
	RoundNumber         int        `json:"round_number"`
	Status              string     `json:"status"`
	Phase               string     `json:"phase"`
	ParentID            uuid.UUID  `json:"parent_id"`
	CurrentTurnPlayerID *uuid.UUID `json:"current_turn_player_id,omitempty"`
	ParentHandClass     *string    `json:"parent_hand_class,omitempty"`
	ParentHandValue     *int       `json:"parent_hand_value,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Bet is a child player's wager for a round; one per (round, player), never
// created for the parent. ResultMultiplier is recorded at settlement.
type Bet struct {
	ID               uuid.UUID `json:"id"`
	RoundID          uuid.UUID `json:"round_id"`
	PlayerID         uuid.UUID `json:"player_id"`
	Amount           int       `json:"amount"`
	ResultMultiplier int       `json:"result_multiplier"`
	Settled          bool      `json:"settled"`
	CreatedAt        time.Time `json:"created_at"`
}

// Roll is one dice throw within a round. Attempts per (round, player) are
// numbered consecutively from 1 and capped at 3; exactly one roll per
// (round, player) ends up with IsFinal set.
type Roll struct {
	ID        uuid.UUID `json:"id"`
	RoundID   uuid.UUID `json:"round_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	Die1      int       `json:"die1"`
	Die2      int       `json:"die2"`
	Die3      int       `json:"die3"`
	HandClass string    `json:"hand_class"`
	HandValue int       `json:"hand_value"`
	Attempt   int       `json:"attempt"`
	IsFinal   bool      `json:"is_final"`
	RolledAt  time.Time `json:"rolled_at"`
}
