// internal/game/leave.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

// LeaveResult reports a leave request: either the player left immediately, or
// a vote is now pending among the other players.
type LeaveResult struct {
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Immediate    bool       `json:"immediate"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	VotersNeeded int        `json:"voters_needed,omitempty"`
	RoomDeleted  bool       `json:"room_deleted,omitempty"`
}

// VoteResult reports the state of a leave request after one vote.
type VoteResult struct {
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// Result is the request status after this vote: pending, approved, or
	// rejected.
	Result           string `json:"result,omitempty"`
	VotesReceived    int    `json:"votes_received,omitempty"`
	VotesNeeded      int    `json:"votes_needed,omitempty"`
	RemainingPlayers int    `json:"remaining_players,omitempty"`
	RoomDeleted      bool   `json:"room_deleted,omitempty"`
}

// LeaveRoom is the immediate leave path for rooms that are not mid-round.
// Mid-game leaves are soft-rejected and must go through RequestLeave.
func (e *Engine) LeaveRoom(ctx context.Context, roomID, playerID uuid.UUID) (*LeaveResult, error) {
	room, player, players, err := e.loadRoomAndPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, err
	}
	if midGame, err := e.midGame(ctx, room); err != nil {
		return nil, err
	} else if midGame {
		return &LeaveResult{Rejected: true, Reason: "game in progress, a leave vote is required"}, nil
	}
	return e.removePlayer(ctx, room, player, players)
}

// RequestLeave starts the leave-consensus protocol. Outside a live round the
// player simply leaves; mid-round a pending request is created and every
// other player must approve it. With no other players the request
// auto-approves.
func (e *Engine) RequestLeave(ctx context.Context, roomID, playerID uuid.UUID) (*LeaveResult, error) {
	room, player, players, err := e.loadRoomAndPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, err
	}

	if pending, err := e.Store.PendingLeaveRequest(ctx, roomID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	} else if pending != nil {
		return &LeaveResult{Rejected: true, Reason: "a leave request is already pending"}, nil
	}

	midGame, err := e.midGame(ctx, room)
	if err != nil {
		return nil, err
	}
	if !midGame {
		return e.removePlayer(ctx, room, player, players)
	}

	req := &models.LeaveRequest{
		ID:          uuid.New(),
		RoomID:      roomID,
		RequesterID: playerID,
		Status:      models.LeaveStatusPending,
	}
	if err := e.Store.CreateLeaveRequest(ctx, req); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return &LeaveResult{Rejected: true, Reason: "a leave request is already pending"}, nil
		}
		return nil, fmt.Errorf("create leave request: %w", err)
	}

	others := len(players) - 1
	if others == 0 {
		if _, err := e.Store.SetLeaveStatus(ctx, req.ID, models.LeaveStatusPending, models.LeaveStatusApproved); err != nil {
			return nil, err
		}
		return e.removePlayer(ctx, room, player, players)
	}

	e.log().WithFields(logrus.Fields{"room": roomID, "requester": playerID}).Info("leave vote opened")
	e.notify(ctx, roomID, "leave_requested")
	return &LeaveResult{RequestID: &req.ID, VotersNeeded: others}, nil
}

// VoteLeave records one player's vote. A single reject finalizes the request
// as rejected immediately; approvals from all other current players finalize
// it as approved and remove the requester. Re-votes overwrite.
func (e *Engine) VoteLeave(ctx context.Context, requestID, voterID uuid.UUID, approve bool) (*VoteResult, error) {
	req, err := e.Store.GetLeaveRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.LeaveStatusPending {
		return &VoteResult{Rejected: true, Reason: "leave request already finalized", Result: req.Status}, nil
	}
	if req.RequesterID == voterID {
		return nil, fmt.Errorf("cannot vote on your own leave request: %w", ErrValidation)
	}
	voter, err := e.Store.GetPlayer(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if voter.RoomID != req.RoomID {
		return nil, fmt.Errorf("voter is not in this room: %w", ErrValidation)
	}

	if err := e.Store.UpsertLeaveVote(ctx, &models.LeaveVote{
		RequestID: requestID,
		VoterID:   voterID,
		Approved:  approve,
	}); err != nil {
		return nil, fmt.Errorf("record vote: %w", err)
	}

	if !approve {
		// Fail-fast unanimity: one reject ends the vote. If the conditional
		// update loses a race the request was finalized elsewhere; either
		// way it is no longer pending.
		if _, err := e.Store.SetLeaveStatus(ctx, requestID, models.LeaveStatusPending, models.LeaveStatusRejected); err != nil {
			return nil, err
		}
		e.notify(ctx, req.RoomID, "leave_vote")
		return &VoteResult{Result: models.LeaveStatusRejected}, nil
	}

	players, err := e.Store.GetPlayers(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	var requester *models.Player
	needed := 0
	for i := range players {
		if players[i].ID == req.RequesterID {
			requester = &players[i]
		} else {
			needed++
		}
	}
	if requester == nil {
		return &VoteResult{Rejected: true, Reason: "requester already left", Result: req.Status}, nil
	}

	votes, err := e.Store.GetLeaveVotes(ctx, requestID)
	if err != nil {
		return nil, err
	}
	inRoom := make(map[uuid.UUID]bool, len(players))
	for _, p := range players {
		inRoom[p.ID] = true
	}
	approvals := 0
	for _, v := range votes {
		if v.Approved && inRoom[v.VoterID] {
			approvals++
		}
	}

	if approvals < needed {
		e.notify(ctx, req.RoomID, "leave_vote")
		return &VoteResult{Result: models.LeaveStatusPending, VotesReceived: approvals, VotesNeeded: needed}, nil
	}

	ok, err := e.Store.SetLeaveStatus(ctx, requestID, models.LeaveStatusPending, models.LeaveStatusApproved)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent reject won; approvals arriving afterwards are no-ops.
		final, err := e.Store.GetLeaveRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		return &VoteResult{Rejected: true, Reason: "leave request already finalized", Result: final.Status}, nil
	}

	room, err := e.Store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	leave, err := e.removePlayer(ctx, room, requester, players)
	if err != nil {
		return nil, err
	}
	return &VoteResult{
		Result:           models.LeaveStatusApproved,
		VotesReceived:    approvals,
		VotesNeeded:      needed,
		RemainingPlayers: len(players) - 1,
		RoomDeleted:      leave.RoomDeleted,
	}, nil
}

func (e *Engine) loadRoomAndPlayer(ctx context.Context, roomID, playerID uuid.UUID) (*models.Room, *models.Player, []models.Player, error) {
	room, err := e.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, nil, err
	}
	player, err := e.Store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if player.RoomID != roomID {
		return nil, nil, nil, fmt.Errorf("player is not in this room: %w", ErrValidation)
	}
	players, err := e.Store.GetPlayers(ctx, roomID)
	if err != nil {
		return nil, nil, nil, err
	}
	return room, player, players, nil
}

// midGame reports whether the room currently has a live round in play.
func (e *Engine) midGame(ctx context.Context, room *models.Room) (bool, error) {
	if room.Status != models.RoomStatusPlaying {
		return false, nil
	}
	if _, err := e.Store.CurrentRound(ctx, room.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// removePlayer applies the shared post-removal bookkeeping: host succession
// to the next seat in turn order, room deletion when nobody remains, and a
// forced game over when exactly one player would remain mid-game.
func (e *Engine) removePlayer(ctx context.Context, room *models.Room, leaver *models.Player, players []models.Player) (*LeaveResult, error) {
	plan := &RemovalPlan{RoomID: room.ID, PlayerID: leaver.ID}

	remaining := make([]models.Player, 0, len(players)-1)
	for _, p := range players {
		if p.ID != leaver.ID {
			remaining = append(remaining, p)
		}
	}

	switch {
	case len(remaining) == 0:
		plan.DeleteRoom = true
	case leaver.IsHost:
		id := remaining[0].ID
		plan.NewHostID = &id
	}
	if room.Status == models.RoomStatusPlaying && len(remaining) == 1 {
		plan.FinishGame = true
	}

	if err := e.Store.ApplyRemoval(ctx, plan); err != nil {
		return nil, fmt.Errorf("remove player: %w", err)
	}

	e.log().WithFields(logrus.Fields{
		"room":      room.ID,
		"player":    leaver.ID,
		"remaining": len(remaining),
	}).Info("player left room")
	if !plan.DeleteRoom {
		e.notify(ctx, room.ID, "player_left")
	}
	return &LeaveResult{Immediate: true, RoomDeleted: plan.DeleteRoom}, nil
}
