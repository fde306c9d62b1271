// internal/game/settle.go
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

// PlayerDelta is one player's line in a settlement report.
type PlayerDelta struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	IsParent   bool      `json:"is_parent"`
	BetAmount  int       `json:"bet_amount"`
	Multiplier int       `json:"multiplier"`
	ChipDelta  int       `json:"chip_delta"`
	NewChips   int       `json:"new_chips"`
}

// SettleResult reports a settlement, either freshly applied or replayed from
// the already-finished round.
type SettleResult struct {
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`

	AlreadySettled bool          `json:"already_settled,omitempty"`
	Results        []PlayerDelta `json:"results,omitempty"`
	ParentDelta    int           `json:"parent_delta"`
	GameOver       bool          `json:"game_over"`
	NextRound      *models.Round `json:"next_round,omitempty"`
}

// SettlementRecord is the history entry pushed to the Redis queue for the
// historian after each settled round.
type SettlementRecord struct {
	RoomID      uuid.UUID     `json:"room_id"`
	RoundID     uuid.UUID     `json:"round_id"`
	RoundNumber int           `json:"round_number"`
	ParentID    uuid.UUID     `json:"parent_id"`
	ParentHand  string        `json:"parent_hand"`
	Results     []PlayerDelta `json:"results"`
	GameOver    bool          `json:"game_over"`
	Timestamp   int64         `json:"timestamp"`
}

// SettleRound computes and applies chip transfers for a round in the
// settlement phase. The whole outcome is applied in one transaction whose
// first effect is flipping the round to finished, so racing settle triggers
// cannot double-charge anyone; the loser of the race replays the recorded
// outcome instead.
//
// Chip balances floor at zero. The parent's delta is the exact negative sum
// of the children's deltas before that clamp, so total chips are conserved
// except when a wipeout caps a debit. That break in zero-sum at the tail of a
// game is an accepted rule, not an accounting bug.
func (e *Engine) SettleRound(ctx context.Context, roundID uuid.UUID) (*SettleResult, error) {
	round, err := e.Store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status == models.RoundStatusFinished {
		return e.replaySettlement(ctx, round)
	}
	if round.Phase != models.PhaseSettlement {
		return &SettleResult{Rejected: true, Reason: "round is not in the settlement phase"}, nil
	}
	if round.ParentHandClass == nil {
		return nil, fmt.Errorf("settlement reached with no parent hand: %w", ErrIntegrity)
	}
	parentHand := ParseHand(*round.ParentHandClass, derefInt(round.ParentHandValue))

	players, err := e.Store.GetPlayers(ctx, round.RoomID)
	if err != nil {
		return nil, err
	}
	bets, err := e.Store.GetBets(ctx, roundID)
	if err != nil {
		return nil, err
	}
	rolls, err := e.Store.GetRolls(ctx, roundID)
	if err != nil {
		return nil, err
	}

	betByPlayer := make(map[uuid.UUID]*models.Bet, len(bets))
	for i := range bets {
		betByPlayer[bets[i].PlayerID] = &bets[i]
	}
	finalRoll := make(map[uuid.UUID]*models.Roll, len(rolls))
	for i := range rolls {
		if rolls[i].IsFinal {
			finalRoll[rolls[i].PlayerID] = &rolls[i]
		}
	}

	var parent *models.Player
	for i := range players {
		if players[i].ID == round.ParentID {
			parent = &players[i]
		}
	}
	if parent == nil {
		return nil, fmt.Errorf("parent has left the room: %w", ErrIntegrity)
	}

	plan := &SettlementPlan{
		RoundID:  roundID,
		RoomID:   round.RoomID,
		NewChips: make(map[uuid.UUID]int, len(players)),
	}
	var results []PlayerDelta
	parentDelta := 0

	for i := range players {
		child := &players[i]
		if child.ID == round.ParentID {
			continue
		}
		bet := betByPlayer[child.ID]
		if bet == nil {
			// Phase only reaches settlement once every child has bet, so a
			// missing bet means the ledger is corrupt. Abort with no chip
			// movement at all rather than settle a partial round.
			return nil, fmt.Errorf("child %s has no bet: %w", child.ID, ErrIntegrity)
		}

		var childHand Hand
		if r := finalRoll[child.ID]; r != nil {
			childHand = ParseHand(r.HandClass, r.HandValue)
		} else if parentHand.InstantSettlement() {
			// The parent's hand ended the round before this child rolled;
			// the child settles as an implicit forfeit.
			childHand = Hand{Class: HandShonben}
		} else {
			return nil, fmt.Errorf("child %s has no final roll: %w", child.ID, ErrIntegrity)
		}

		mult := Multiplier(parentHand, childHand)
		delta := mult * bet.Amount
		parentDelta -= delta

		newChips := child.Chips + delta
		if newChips < 0 {
			newChips = 0
		}
		plan.Bets = append(plan.Bets, BetSettlement{BetID: bet.ID, Multiplier: mult})
		plan.NewChips[child.ID] = newChips
		results = append(results, PlayerDelta{
			PlayerID:   child.ID,
			PlayerName: child.Name,
			BetAmount:  bet.Amount,
			Multiplier: mult,
			ChipDelta:  delta,
			NewChips:   newChips,
		})
	}

	parentChips := parent.Chips + parentDelta
	if parentChips < 0 {
		parentChips = 0
	}
	plan.NewChips[parent.ID] = parentChips
	results = append(results, PlayerDelta{
		PlayerID:   parent.ID,
		PlayerName: parent.Name,
		IsParent:   true,
		ChipDelta:  parentDelta,
		NewChips:   parentChips,
	})

	// Fewer than two chip-positive players ends the game; otherwise the
	// parent role rotates to the next seat and a fresh round opens.
	active := 0
	for _, chips := range plan.NewChips {
		if chips > 0 {
			active++
		}
	}
	if active < 2 {
		plan.GameOver = true
	} else {
		plan.NextRound = &models.Round{
			ID:          uuid.New(),
			RoomID:      round.RoomID,
			RoundNumber: round.RoundNumber + 1,
			Status:      models.RoundStatusPlaying,
			Phase:       models.PhaseBetting,
			ParentID:    nextParent(players, round.ParentID),
		}
	}

	if err := e.Store.ApplySettlement(ctx, plan); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return e.replaySettlement(ctx, round)
		}
		return nil, fmt.Errorf("apply settlement: %w", err)
	}

	e.log().WithFields(logrus.Fields{
		"round":        roundID,
		"parent_delta": parentDelta,
		"game_over":    plan.GameOver,
	}).Info("round settled")

	if e.PublishSettlementFn != nil {
		e.PublishSettlementFn(ctx, SettlementRecord{
			RoomID:      round.RoomID,
			RoundID:     roundID,
			RoundNumber: round.RoundNumber,
			ParentID:    round.ParentID,
			ParentHand:  parentHand.Label(),
			Results:     results,
			GameOver:    plan.GameOver,
			Timestamp:   time.Now().UnixMilli(),
		})
	}
	e.notify(ctx, round.RoomID, "round_settled")

	return &SettleResult{
		Results:     results,
		ParentDelta: parentDelta,
		GameOver:    plan.GameOver,
		NextRound:   plan.NextRound,
	}, nil
}

// replaySettlement rebuilds the report for an already-finished round from the
// settled bets, so duplicate settle triggers observe identical deltas.
func (e *Engine) replaySettlement(ctx context.Context, round *models.Round) (*SettleResult, error) {
	room, err := e.Store.GetRoom(ctx, round.RoomID)
	if err != nil {
		return nil, err
	}
	players, err := e.Store.GetPlayers(ctx, round.RoomID)
	if err != nil {
		return nil, err
	}
	bets, err := e.Store.GetBets(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(players))
	chips := make(map[uuid.UUID]int, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
		chips[p.ID] = p.Chips
	}

	var results []PlayerDelta
	parentDelta := 0
	for _, b := range bets {
		if !b.Settled {
			continue
		}
		delta := b.ResultMultiplier * b.Amount
		parentDelta -= delta
		results = append(results, PlayerDelta{
			PlayerID:   b.PlayerID,
			PlayerName: names[b.PlayerID],
			BetAmount:  b.Amount,
			Multiplier: b.ResultMultiplier,
			ChipDelta:  delta,
			NewChips:   chips[b.PlayerID],
		})
	}
	results = append(results, PlayerDelta{
		PlayerID:   round.ParentID,
		PlayerName: names[round.ParentID],
		IsParent:   true,
		ChipDelta:  parentDelta,
		NewChips:   chips[round.ParentID],
	})

	res := &SettleResult{
		AlreadySettled: true,
		Results:        results,
		ParentDelta:    parentDelta,
		GameOver:       room.Status == models.RoomStatusFinished,
	}
	if next, err := e.Store.CurrentRound(ctx, round.RoomID); err == nil {
		res.NextRound = next
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return res, nil
}

// nextParent rotates the parent role to the next seat by turn order,
// wrapping. Players are already sorted by turn order.
func nextParent(players []models.Player, parentID uuid.UUID) uuid.UUID {
	for i, p := range players {
		if p.ID == parentID {
			return players[(i+1)%len(players)].ID
		}
	}
	return players[0].ID
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
