// internal/database/round.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chinchiro-io/chinchiro/internal/game"
	"github.com/chinchiro-io/chinchiro/internal/models"
)

const roundColumns = `id, room_id, round_number, status, phase, parent_id,
       current_turn_player_id, parent_hand_class, parent_hand_value, created_at`

func scanRound(row pgx.Row, r *models.Round) error {
	return row.Scan(
		&r.ID, &r.RoomID, &r.RoundNumber, &r.Status, &r.Phase, &r.ParentID,
		&r.CurrentTurnPlayerID, &r.ParentHandClass, &r.ParentHandValue, &r.CreatedAt,
	)
}

// ApplyGameStart flips the room to playing, writes the turn orders, and
// inserts round 1. The status flip is conditional; false means another start
// request won and nothing was changed.
func (s *Store) ApplyGameStart(ctx context.Context, roomID uuid.UUID, orders map[uuid.UUID]int, first *models.Round) (bool, error) {
	started := false
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE rooms SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
			roomID, models.RoomStatusPlaying, models.RoomStatusWaiting)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		for playerID, order := range orders {
			if _, err := tx.Exec(ctx,
				`UPDATE players SET turn_order = $2 WHERE id = $1 AND room_id = $3`,
				playerID, order, roomID); err != nil {
				return err
			}
		}
		if err := insertRound(ctx, tx, first); err != nil {
			return err
		}
		started = true
		return nil
	})
	return started, err
}

func insertRound(ctx context.Context, tx pgx.Tx, r *models.Round) error {
	q := `
	INSERT INTO game_rounds (id, room_id, round_number, status, phase, parent_id, current_turn_player_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, q,
		r.ID, r.RoomID, r.RoundNumber, r.Status, r.Phase, r.ParentID, r.CurrentTurnPlayerID,
	)
	return translateErr(err)
}

// GetRound fetches a round by ID.
func (s *Store) GetRound(ctx context.Context, roundID uuid.UUID) (*models.Round, error) {
	var r models.Round
	q := `SELECT ` + roundColumns + ` FROM game_rounds WHERE id = $1`
	if err := scanRound(s.pool.QueryRow(ctx, q, roundID), &r); err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}

// CurrentRound returns the room's round still in play, or game.ErrNotFound.
func (s *Store) CurrentRound(ctx context.Context, roomID uuid.UUID) (*models.Round, error) {
	var r models.Round
	q := `
	SELECT ` + roundColumns + `
	FROM game_rounds
	WHERE room_id = $1 AND status = $2
	ORDER BY round_number DESC
	LIMIT 1
	`
	if err := scanRound(s.pool.QueryRow(ctx, q, roomID, models.RoundStatusPlaying), &r); err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}

// InsertBet appends a child's wager. The (round, player) unique constraint
// surfaces duplicate bets as game.ErrDuplicate.
func (s *Store) InsertBet(ctx context.Context, b *models.Bet) error {
	q := `
	INSERT INTO round_bets (id, game_round_id, player_id, amount)
	VALUES ($1, $2, $3, $4)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, b.ID, b.RoundID, b.PlayerID, b.Amount)
		return translateErr(err)
	})
}

// GetBets returns a round's bets in placement order.
func (s *Store) GetBets(ctx context.Context, roundID uuid.UUID) ([]models.Bet, error) {
	q := `
	SELECT id, game_round_id, player_id, amount, result_multiplier, settled, created_at
	FROM round_bets
	WHERE game_round_id = $1
	ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, q, roundID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var bets []models.Bet
	for rows.Next() {
		var b models.Bet
		if err := rows.Scan(
			&b.ID, &b.RoundID, &b.PlayerID, &b.Amount,
			&b.ResultMultiplier, &b.Settled, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// InsertRoll appends one dice throw.
func (s *Store) InsertRoll(ctx context.Context, r *models.Roll) error {
	q := `
	INSERT INTO player_rolls (id, game_round_id, player_id, die1, die2, die3,
	                          hand_class, hand_value, attempt, is_final)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			r.ID, r.RoundID, r.PlayerID, r.Die1, r.Die2, r.Die3,
			r.HandClass, r.HandValue, r.Attempt, r.IsFinal,
		)
		return translateErr(err)
	})
}

// GetRolls returns a round's rolls in throw order.
func (s *Store) GetRolls(ctx context.Context, roundID uuid.UUID) ([]models.Roll, error) {
	q := `
	SELECT id, game_round_id, player_id, die1, die2, die3,
	       hand_class, hand_value, attempt, is_final, rolled_at
	FROM player_rolls
	WHERE game_round_id = $1
	ORDER BY rolled_at
	`
	rows, err := s.pool.Query(ctx, q, roundID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var rolls []models.Roll
	for rows.Next() {
		var r models.Roll
		if err := rows.Scan(
			&r.ID, &r.RoundID, &r.PlayerID, &r.Die1, &r.Die2, &r.Die3,
			&r.HandClass, &r.HandValue, &r.Attempt, &r.IsFinal, &r.RolledAt,
		); err != nil {
			return nil, err
		}
		rolls = append(rolls, r)
	}
	return rolls, rows.Err()
}

// BeginParentRolling moves betting -> parent_rolling, turn to the parent.
func (s *Store) BeginParentRolling(ctx context.Context, roundID, parentID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
	UPDATE game_rounds
	SET phase = $2, current_turn_player_id = $3
	WHERE id = $1 AND phase = $4`,
		roundID, models.PhaseParentRolling, parentID, models.PhaseBetting)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecordParentHand stores the parent's finalized hand and advances the phase.
func (s *Store) RecordParentHand(ctx context.Context, roundID uuid.UUID, hand game.Hand, nextPhase string, turn *uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
	UPDATE game_rounds
	SET phase = $2, current_turn_player_id = $3, parent_hand_class = $4, parent_hand_value = $5
	WHERE id = $1 AND phase = $6`,
		roundID, nextPhase, turn, string(hand.Class), hand.Value, models.PhaseParentRolling)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AdvanceChildTurn hands the turn from one child to the next, or enters
// settlement when `to` is nil. Conditional on the turn still belonging to
// `from`, which serializes racing duplicate rolls.
func (s *Store) AdvanceChildTurn(ctx context.Context, roundID, from uuid.UUID, to *uuid.UUID) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if to == nil {
		tag, err = s.pool.Exec(ctx, `
		UPDATE game_rounds
		SET phase = $2, current_turn_player_id = NULL
		WHERE id = $1 AND phase = $3 AND current_turn_player_id = $4`,
			roundID, models.PhaseSettlement, models.PhaseChildrenRolling, from)
	} else {
		tag, err = s.pool.Exec(ctx, `
		UPDATE game_rounds
		SET current_turn_player_id = $2
		WHERE id = $1 AND phase = $3 AND current_turn_player_id = $4`,
			roundID, *to, models.PhaseChildrenRolling, from)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplySettlement applies a settlement plan in one transaction. The status
// flip is the first statement; zero rows affected means the round was already
// settled and nothing else runs.
func (s *Store) ApplySettlement(ctx context.Context, plan *game.SettlementPlan) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE game_rounds SET status = $2 WHERE id = $1 AND status = $3`,
			plan.RoundID, models.RoundStatusFinished, models.RoundStatusPlaying)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return game.ErrAlreadySettled
		}

		for _, b := range plan.Bets {
			if _, err := tx.Exec(ctx,
				`UPDATE round_bets SET result_multiplier = $2, settled = TRUE WHERE id = $1`,
				b.BetID, b.Multiplier); err != nil {
				return err
			}
		}
		for playerID, chips := range plan.NewChips {
			if _, err := tx.Exec(ctx,
				`UPDATE players SET chips = $2 WHERE id = $1`,
				playerID, chips); err != nil {
				return err
			}
		}

		if plan.GameOver {
			_, err := tx.Exec(ctx,
				`UPDATE rooms SET status = $2, updated_at = NOW() WHERE id = $1`,
				plan.RoomID, models.RoomStatusFinished)
			return err
		}
		return insertRound(ctx, tx, plan.NextRound)
	})
}
