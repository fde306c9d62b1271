// internal/game/round.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

// BetResult reports the outcome of a bet attempt. Rejected results are
// expected races (wrong phase, duplicate bet), not failures: the caller
// should re-sync its view and move on.
type BetResult struct {
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Bet          *models.Bet `json:"bet,omitempty"`
	PhaseChanged bool        `json:"phase_changed"`
	NewPhase     string      `json:"new_phase,omitempty"`
	BetsPlaced   int         `json:"bets_placed"`
	BetsRequired int         `json:"bets_required"`
}

// PlaceBet records a child player's wager. Betting has no turn pointer;
// children bet concurrently, and whichever bet completes the set flips the
// round to parent_rolling via a conditional update so exactly one does.
func (e *Engine) PlaceBet(ctx context.Context, roundID, playerID uuid.UUID, amount int) (*BetResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("bet amount must be positive: %w", ErrValidation)
	}

	round, err := e.Store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != models.RoundStatusPlaying {
		return &BetResult{Rejected: true, Reason: "round is not in play"}, nil
	}
	if round.Phase != models.PhaseBetting {
		return &BetResult{Rejected: true, Reason: "betting phase is over"}, nil
	}

	player, err := e.Store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.RoomID != round.RoomID {
		return nil, fmt.Errorf("player is not in this room: %w", ErrValidation)
	}
	if player.ID == round.ParentID {
		return nil, fmt.Errorf("the parent does not bet: %w", ErrValidation)
	}
	if amount > player.Chips {
		return nil, fmt.Errorf("bet exceeds chip balance (%d): %w", player.Chips, ErrValidation)
	}

	bet := &models.Bet{
		ID:       uuid.New(),
		RoundID:  roundID,
		PlayerID: playerID,
		Amount:   amount,
	}
	if err := e.Store.InsertBet(ctx, bet); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return &BetResult{Rejected: true, Reason: "bet already placed"}, nil
		}
		return nil, fmt.Errorf("place bet: %w", err)
	}

	players, err := e.Store.GetPlayers(ctx, round.RoomID)
	if err != nil {
		return nil, err
	}
	bets, err := e.Store.GetBets(ctx, roundID)
	if err != nil {
		return nil, err
	}

	required := len(children(players, round.ParentID))
	res := &BetResult{Bet: bet, BetsPlaced: len(bets), BetsRequired: required}

	if len(bets) >= required {
		// Two racing bets may both observe a complete set; the conditional
		// phase flip lets only one of them perform the transition.
		ok, err := e.Store.BeginParentRolling(ctx, roundID, round.ParentID)
		if err != nil {
			return nil, fmt.Errorf("advance to parent_rolling: %w", err)
		}
		if ok {
			res.PhaseChanged = true
			res.NewPhase = models.PhaseParentRolling
			e.log().WithFields(logrus.Fields{"round": roundID, "bets": len(bets)}).
				Info("all bets placed, parent rolling")
		}
	}

	e.notify(ctx, round.RoomID, "bet_placed")
	return res, nil
}

// RollResult reports one dice throw, or echoes the existing final roll when a
// duplicate request arrives after the player's hand was already decided.
type RollResult struct {
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Duplicate bool   `json:"duplicate,omitempty"`
	Dice      [3]int `json:"dice"`
	Hand      Hand   `json:"hand"`
	HandLabel string `json:"hand_label"`
	Attempt   int    `json:"attempt"`
	Decisive  bool   `json:"decisive"`

	PhaseChanged     bool       `json:"phase_changed"`
	NewPhase         string     `json:"new_phase,omitempty"`
	NextTurnPlayerID *uuid.UUID `json:"next_turn_player_id,omitempty"`
}

// RollDice throws for the current-turn player. A plain bara before the third
// attempt keeps the turn with the same player; any other hand is final and
// advances the machine: the parent's hand either settles the round instantly
// or opens children_rolling, and each child's final hand passes the turn down
// the fixed order until settlement.
func (e *Engine) RollDice(ctx context.Context, roundID, playerID uuid.UUID) (*RollResult, error) {
	round, err := e.Store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != models.RoundStatusPlaying {
		return &RollResult{Rejected: true, Reason: "round is not in play"}, nil
	}

	rolls, err := e.Store.GetRolls(ctx, roundID)
	if err != nil {
		return nil, err
	}
	attempt := 1
	for _, r := range rolls {
		if r.PlayerID != playerID {
			continue
		}
		if r.IsFinal {
			// Duplicate request after finality: the turn has usually moved on
			// already, so this check runs before the turn check. Return the
			// recorded roll instead of erroring, the client just lost a race
			// with itself.
			hand := ParseHand(r.HandClass, r.HandValue)
			return &RollResult{
				Duplicate: true,
				Dice:      [3]int{r.Die1, r.Die2, r.Die3},
				Hand:      hand,
				HandLabel: hand.Label(),
				Attempt:   r.Attempt,
				Decisive:  true,
			}, nil
		}
		attempt++
	}

	if round.Phase != models.PhaseParentRolling && round.Phase != models.PhaseChildrenRolling {
		return &RollResult{Rejected: true, Reason: "not a rolling phase"}, nil
	}
	if round.CurrentTurnPlayerID == nil || *round.CurrentTurnPlayerID != playerID {
		return &RollResult{Rejected: true, Reason: "not your turn"}, nil
	}

	d1, d2, d3 := e.RollFn()
	hand := EvaluateHand(d1, d2, d3, attempt >= 3)
	decisive := hand.Decided()

	roll := &models.Roll{
		ID:        uuid.New(),
		RoundID:   roundID,
		PlayerID:  playerID,
		Die1:      d1,
		Die2:      d2,
		Die3:      d3,
		HandClass: string(hand.Class),
		HandValue: hand.Value,
		Attempt:   attempt,
		IsFinal:   decisive,
	}
	if err := e.Store.InsertRoll(ctx, roll); err != nil {
		return nil, fmt.Errorf("record roll: %w", err)
	}

	res := &RollResult{
		Dice:      [3]int{d1, d2, d3},
		Hand:      hand,
		HandLabel: hand.Label(),
		Attempt:   attempt,
		Decisive:  decisive,
	}
	e.log().WithFields(logrus.Fields{
		"round":   roundID,
		"player":  playerID,
		"hand":    hand.Class,
		"attempt": attempt,
	}).Info("dice rolled")

	if !decisive {
		// Re-roll allowed: same player keeps the turn, phase unchanged.
		e.notify(ctx, round.RoomID, "roll_recorded")
		return res, nil
	}

	switch round.Phase {
	case models.PhaseParentRolling:
		if err := e.finishParentRoll(ctx, round, hand, res); err != nil {
			return nil, err
		}
	case models.PhaseChildrenRolling:
		if err := e.finishChildRoll(ctx, round, playerID, rolls, res); err != nil {
			return nil, err
		}
	}

	e.notify(ctx, round.RoomID, "roll_recorded")
	return res, nil
}

// finishParentRoll records the parent's hand and branches: instant-settling
// hands skip straight to settlement, a normal point opens children_rolling
// with the first child on turn.
func (e *Engine) finishParentRoll(ctx context.Context, round *models.Round, hand Hand, res *RollResult) error {
	if hand.InstantSettlement() {
		ok, err := e.Store.RecordParentHand(ctx, round.ID, hand, models.PhaseSettlement, nil)
		if err != nil {
			return fmt.Errorf("record parent hand: %w", err)
		}
		if ok {
			res.PhaseChanged = true
			res.NewPhase = models.PhaseSettlement
		}
		return nil
	}

	players, err := e.Store.GetPlayers(ctx, round.RoomID)
	if err != nil {
		return err
	}
	kids := children(players, round.ParentID)
	if len(kids) == 0 {
		return fmt.Errorf("round has no children: %w", ErrIntegrity)
	}
	first := kids[0].ID
	ok, err := e.Store.RecordParentHand(ctx, round.ID, hand, models.PhaseChildrenRolling, &first)
	if err != nil {
		return fmt.Errorf("record parent hand: %w", err)
	}
	if ok {
		res.PhaseChanged = true
		res.NewPhase = models.PhaseChildrenRolling
		res.NextTurnPlayerID = &first
	}
	return nil
}

// finishChildRoll hands the turn to the next child in fixed order that has no
// final roll yet, or enters settlement after the last child.
func (e *Engine) finishChildRoll(ctx context.Context, round *models.Round, playerID uuid.UUID, priorRolls []models.Roll, res *RollResult) error {
	players, err := e.Store.GetPlayers(ctx, round.RoomID)
	if err != nil {
		return err
	}

	final := make(map[uuid.UUID]bool, len(priorRolls))
	for _, r := range priorRolls {
		if r.IsFinal {
			final[r.PlayerID] = true
		}
	}

	var next *uuid.UUID
	seen := false
	for _, p := range children(players, round.ParentID) {
		if p.ID == playerID {
			seen = true
			continue
		}
		if seen && !final[p.ID] {
			id := p.ID
			next = &id
			break
		}
	}

	ok, err := e.Store.AdvanceChildTurn(ctx, round.ID, playerID, next)
	if err != nil {
		return fmt.Errorf("advance turn: %w", err)
	}
	if !ok {
		return nil
	}
	if next == nil {
		res.PhaseChanged = true
		res.NewPhase = models.PhaseSettlement
	} else {
		res.NextTurnPlayerID = next
	}
	return nil
}
