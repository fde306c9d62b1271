// internal/game/round_test.go
package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

func TestPlaceBetValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)

	parent, child := players[0], players[1]

	_, err := e.PlaceBet(ctx, round.ID, child.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.PlaceBet(ctx, round.ID, child.ID, -50)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.PlaceBet(ctx, round.ID, parent.ID, 100)
	assert.ErrorIs(t, err, ErrValidation, "the parent does not bet")

	_, err = e.PlaceBet(ctx, round.ID, child.ID, child.Chips+1)
	assert.ErrorIs(t, err, ErrValidation, "bet exceeds balance")
}

func TestPlaceBetDuplicateIsSoftRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)

	child := players[1]
	res, err := e.PlaceBet(ctx, round.ID, child.ID, 100)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, 1, res.BetsPlaced)
	assert.Equal(t, 2, res.BetsRequired)
	assert.False(t, res.PhaseChanged)

	dup, err := e.PlaceBet(ctx, round.ID, child.ID, 200)
	require.NoError(t, err)
	assert.True(t, dup.Rejected)
	assert.Equal(t, "bet already placed", dup.Reason)

	// The recorded bet is the original amount.
	bets, err := e.Store.GetBets(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, 100, bets[0].Amount)
}

func TestLastBetOpensParentRolling(t *testing.T) {
	e, _, rec := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)

	_, err := e.PlaceBet(ctx, round.ID, players[1].ID, 100)
	require.NoError(t, err)

	res, err := e.PlaceBet(ctx, round.ID, players[2].ID, 150)
	require.NoError(t, err)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseParentRolling, res.NewPhase)
	assert.True(t, rec.has("bet_placed"))

	r, err := e.Store.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseParentRolling, r.Phase)
	require.NotNil(t, r.CurrentTurnPlayerID)
	assert.Equal(t, round.ParentID, *r.CurrentTurnPlayerID)

	// Betting is closed now.
	late, err := e.PlaceBet(ctx, round.ID, players[1].ID, 100)
	require.NoError(t, err)
	assert.True(t, late.Rejected)
}

func TestRollDiceTurnEnforcement(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)

	// Still betting: nobody may roll.
	res, err := e.RollDice(ctx, round.ID, players[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Rejected)

	placeAllBets(t, e, round, players, nil)

	// Parent's turn; a child's roll request is soft-rejected.
	res, err = e.RollDice(ctx, round.ID, players[1].ID)
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, "not your turn", res.Reason)
}

func TestParentBaraAllowsReRoll(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)
	placeAllBets(t, e, round, players, nil)

	queueDice(e, [3]int{2, 4, 6}, [3]int{2, 3, 5}, [3]int{1, 4, 6})

	// Two baras: the turn stays with the parent, attempts count up.
	for want := 1; want <= 2; want++ {
		res, err := e.RollDice(ctx, round.ID, round.ParentID)
		require.NoError(t, err)
		require.False(t, res.Rejected)
		assert.Equal(t, HandBara, res.Hand.Class)
		assert.Equal(t, want, res.Attempt)
		assert.False(t, res.Decisive)
		assert.False(t, res.PhaseChanged)
	}

	// Third no-hand throw becomes shonben, which settles instantly.
	res, err := e.RollDice(ctx, round.ID, round.ParentID)
	require.NoError(t, err)
	assert.Equal(t, HandShonben, res.Hand.Class)
	assert.Equal(t, 3, res.Attempt)
	assert.True(t, res.Decisive)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseSettlement, res.NewPhase)
}

func TestParentInstantHandSkipsChildren(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)
	placeAllBets(t, e, round, players, nil)

	queueDice(e, [3]int{5, 5, 5})
	res, err := e.RollDice(ctx, round.ID, round.ParentID)
	require.NoError(t, err)
	assert.Equal(t, HandZoro, res.Hand.Class)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseSettlement, res.NewPhase)

	r, err := e.Store.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSettlement, r.Phase)
	assert.Nil(t, r.CurrentTurnPlayerID)
	require.NotNil(t, r.ParentHandClass)
	assert.Equal(t, "zoro", *r.ParentHandClass)
}

func TestChildrenRollInTurnOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)
	placeAllBets(t, e, round, players, nil)

	// Parent rolls a point; children_rolling opens with the first child.
	queueDice(e,
		[3]int{3, 3, 4}, // parent: point 4
		[3]int{2, 2, 6}, // child 1: point 6
		[3]int{2, 4, 6}, // child 2: bara
		[3]int{5, 5, 1}, // child 2: point 1
	)

	res, err := e.RollDice(ctx, round.ID, round.ParentID)
	require.NoError(t, err)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseChildrenRolling, res.NewPhase)
	require.NotNil(t, res.NextTurnPlayerID)
	assert.Equal(t, players[1].ID, *res.NextTurnPlayerID)

	// First child's final hand passes the turn to the second child.
	res, err = e.RollDice(ctx, round.ID, players[1].ID)
	require.NoError(t, err)
	require.True(t, res.Decisive)
	require.NotNil(t, res.NextTurnPlayerID)
	assert.Equal(t, players[2].ID, *res.NextTurnPlayerID)

	// Second child baras once, keeps the turn.
	res, err = e.RollDice(ctx, round.ID, players[2].ID)
	require.NoError(t, err)
	assert.False(t, res.Decisive)

	// Their final hand closes the rolling phase.
	res, err = e.RollDice(ctx, round.ID, players[2].ID)
	require.NoError(t, err)
	require.True(t, res.Decisive)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseSettlement, res.NewPhase)
}

func TestDuplicateRollReplaysRecordedThrow(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, players, round := setupStartedGame(t, e, 3)
	placeAllBets(t, e, round, players, nil)

	queueDice(e,
		[3]int{3, 3, 4}, // parent: point 4
		[3]int{2, 2, 6}, // child 1: point 6
	)

	_, err := e.RollDice(ctx, round.ID, round.ParentID)
	require.NoError(t, err)
	first, err := e.RollDice(ctx, round.ID, players[1].ID)
	require.NoError(t, err)
	require.True(t, first.Decisive)

	// The retry does not consume the dice queue; it echoes the stored roll.
	dup, err := e.RollDice(ctx, round.ID, players[1].ID)
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, first.Dice, dup.Dice)
	assert.Equal(t, first.Hand, dup.Hand)

	rolls, err := e.Store.GetRolls(ctx, round.ID)
	require.NoError(t, err)
	count := 0
	for _, r := range rolls {
		if r.PlayerID == players[1].ID {
			count++
		}
	}
	assert.Equal(t, 1, count, "no second roll row recorded")
}
