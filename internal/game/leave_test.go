// internal/game/leave_test.go
package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

func TestLeaveWaitingRoomIsImmediate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	room, host, err := e.CreateRoom(ctx, "dice night", "Aiko", 4, nil)
	require.NoError(t, err)
	guest, err := e.JoinRoom(ctx, room.ID, "Ben", nil)
	require.NoError(t, err)

	res, err := e.LeaveRoom(ctx, room.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, res.Immediate)
	assert.False(t, res.RoomDeleted)

	players, err := e.Store.GetPlayers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, host.ID, players[0].ID)
}

func TestLeaveLastPlayerDeletesRoom(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	room, host, err := e.CreateRoom(ctx, "dice night", "Aiko", 4, nil)
	require.NoError(t, err)

	res, err := e.LeaveRoom(ctx, room.ID, host.ID)
	require.NoError(t, err)
	assert.True(t, res.Immediate)
	assert.True(t, res.RoomDeleted)

	_, err = e.Store.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveHostPromotesNextSeat(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	room, host, err := e.CreateRoom(ctx, "dice night", "Aiko", 4, nil)
	require.NoError(t, err)
	guest, err := e.JoinRoom(ctx, room.ID, "Ben", nil)
	require.NoError(t, err)

	_, err = e.LeaveRoom(ctx, room.ID, host.ID)
	require.NoError(t, err)

	successor, err := e.Store.GetPlayer(ctx, guest.ID)
	require.NoError(t, err)
	assert.True(t, successor.IsHost)

	got, err := e.Store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, got.HostID)
	assert.Equal(t, guest.ID, *got.HostID)
}

func TestLeaveMidGameRequiresVote(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	room, players, _ := setupStartedGame(t, e, 3)

	res, err := e.LeaveRoom(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	assert.True(t, res.Rejected)

	req, err := e.RequestLeave(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	assert.False(t, req.Immediate)
	require.NotNil(t, req.RequestID)
	assert.Equal(t, 2, req.VotersNeeded)

	// One pending request per room.
	dup, err := e.RequestLeave(ctx, room.ID, players[2].ID)
	require.NoError(t, err)
	assert.True(t, dup.Rejected)
}

func TestVoteLeaveRejectFinalizesImmediately(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	room, players, _ := setupStartedGame(t, e, 3)

	req, err := e.RequestLeave(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	require.NotNil(t, req.RequestID)

	// Fail-fast unanimity: a single reject closes the vote.
	res, err := e.VoteLeave(ctx, *req.RequestID, players[0].ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusRejected, res.Result)

	// The requester stays seated, and late approvals are no-ops.
	players2, err := e.Store.GetPlayers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, players2, 3)

	late, err := e.VoteLeave(ctx, *req.RequestID, players[2].ID, true)
	require.NoError(t, err)
	assert.True(t, late.Rejected)
	assert.Equal(t, models.LeaveStatusRejected, late.Result)
}

func TestVoteLeaveUnanimousApprovalRemovesRequester(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	room, players, _ := setupStartedGame(t, e, 3)

	req, err := e.RequestLeave(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	require.NotNil(t, req.RequestID)

	partial, err := e.VoteLeave(ctx, *req.RequestID, players[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusPending, partial.Result)
	assert.Equal(t, 1, partial.VotesReceived)
	assert.Equal(t, 2, partial.VotesNeeded)

	final, err := e.VoteLeave(ctx, *req.RequestID, players[2].ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusApproved, final.Result)
	assert.Equal(t, 2, final.RemainingPlayers)

	remaining, err := e.Store.GetPlayers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	for _, p := range remaining {
		assert.NotEqual(t, players[1].ID, p.ID)
	}
}

func TestVoteLeaveSelfVoteIsInvalid(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	room, players, _ := setupStartedGame(t, e, 3)

	req, err := e.RequestLeave(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	require.NotNil(t, req.RequestID)

	_, err = e.VoteLeave(ctx, *req.RequestID, players[1].ID, true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVoteLeaveRevoteOverwrites(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	room, players, _ := setupStartedGame(t, e, 4)

	req, err := e.RequestLeave(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	require.NotNil(t, req.RequestID)

	_, err = e.VoteLeave(ctx, *req.RequestID, players[0].ID, true)
	require.NoError(t, err)

	// The same voter approving again does not double count.
	again, err := e.VoteLeave(ctx, *req.RequestID, players[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusPending, again.Result)
	assert.Equal(t, 1, again.VotesReceived)
	assert.Equal(t, 3, again.VotesNeeded)
}

func TestApprovedLeaveMidGameWithTwoPlayersEndsGame(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	room, players, _ := setupStartedGame(t, e, 2)

	req, err := e.RequestLeave(ctx, room.ID, players[1].ID)
	require.NoError(t, err)
	require.NotNil(t, req.RequestID)

	res, err := e.VoteLeave(ctx, *req.RequestID, players[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusApproved, res.Result)
	assert.Equal(t, 1, res.RemainingPlayers)

	// One player cannot continue a round; the room and its live round finish.
	got, err := e.Store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusFinished, got.Status)

	_, err = e.Store.CurrentRound(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
