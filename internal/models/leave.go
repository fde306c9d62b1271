// internal/models/leave.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Leave request statuses. At most one pending request exists per room.
const (
	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"
)

// LeaveRequest is a player's pending request to leave a room mid-game,
// awaiting unanimous approval from the other players.
type LeaveRequest struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// LeaveVote is one player's vote on a leave request, keyed by
// (request, voter). Re-votes overwrite rather than duplicate.
type LeaveVote struct {
	RequestID uuid.UUID `json:"request_id"`
	VoterID   uuid.UUID `json:"voter_id"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}
