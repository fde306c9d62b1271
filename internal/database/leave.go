// internal/database/leave.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chinchiro-io/chinchiro/internal/game"
	"github.com/chinchiro-io/chinchiro/internal/models"
)

const leaveRequestColumns = `id, room_id, requester_id, status, created_at`

func scanLeaveRequest(row pgx.Row, r *models.LeaveRequest) error {
	return row.Scan(&r.ID, &r.RoomID, &r.RequesterID, &r.Status, &r.CreatedAt)
}

// PendingLeaveRequest returns the room's pending request, or game.ErrNotFound.
func (s *Store) PendingLeaveRequest(ctx context.Context, roomID uuid.UUID) (*models.LeaveRequest, error) {
	var r models.LeaveRequest
	q := `
	SELECT ` + leaveRequestColumns + `
	FROM leave_requests
	WHERE room_id = $1 AND status = $2
	LIMIT 1
	`
	if err := scanLeaveRequest(s.pool.QueryRow(ctx, q, roomID, models.LeaveStatusPending), &r); err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}

// GetLeaveRequest fetches a leave request by ID.
func (s *Store) GetLeaveRequest(ctx context.Context, requestID uuid.UUID) (*models.LeaveRequest, error) {
	var r models.LeaveRequest
	q := `SELECT ` + leaveRequestColumns + ` FROM leave_requests WHERE id = $1`
	if err := scanLeaveRequest(s.pool.QueryRow(ctx, q, requestID), &r); err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}

// CreateLeaveRequest inserts a pending request. A partial unique index on
// (room_id) WHERE status = 'pending' keeps at most one pending per room;
// losing that race surfaces as game.ErrDuplicate.
func (s *Store) CreateLeaveRequest(ctx context.Context, req *models.LeaveRequest) error {
	q := `
	INSERT INTO leave_requests (id, room_id, requester_id, status)
	VALUES ($1, $2, $3, $4)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, req.ID, req.RoomID, req.RequesterID, req.Status)
		return translateErr(err)
	})
}

// UpsertLeaveVote records a vote, overwriting any prior vote by the same
// player on the same request.
func (s *Store) UpsertLeaveVote(ctx context.Context, v *models.LeaveVote) error {
	q := `
	INSERT INTO leave_votes (leave_request_id, voter_id, approved)
	VALUES ($1, $2, $3)
	ON CONFLICT (leave_request_id, voter_id)
	DO UPDATE SET approved = EXCLUDED.approved
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, v.RequestID, v.VoterID, v.Approved)
		return translateErr(err)
	})
}

// GetLeaveVotes returns all votes on a request.
func (s *Store) GetLeaveVotes(ctx context.Context, requestID uuid.UUID) ([]models.LeaveVote, error) {
	q := `
	SELECT leave_request_id, voter_id, approved, created_at
	FROM leave_votes
	WHERE leave_request_id = $1
	ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, q, requestID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var votes []models.LeaveVote
	for rows.Next() {
		var v models.LeaveVote
		if err := rows.Scan(&v.RequestID, &v.VoterID, &v.Approved, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// SetLeaveStatus conditionally finalizes a request.
func (s *Store) SetLeaveStatus(ctx context.Context, requestID uuid.UUID, from, to string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leave_requests SET status = $2 WHERE id = $1 AND status = $3`,
		requestID, to, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyRemoval deletes a player and runs the post-removal bookkeeping in one
// transaction: host succession, forced game over, or room deletion. Round,
// bet, roll, and vote rows hang off the room/round FKs with ON DELETE
// CASCADE, so deleting the room is a single statement.
func (s *Store) ApplyRemoval(ctx context.Context, plan *game.RemovalPlan) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM players WHERE id = $1 AND room_id = $2`,
			plan.PlayerID, plan.RoomID); err != nil {
			return err
		}

		if plan.DeleteRoom {
			_, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, plan.RoomID)
			return err
		}

		if plan.NewHostID != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE players SET is_host = TRUE WHERE id = $1`, *plan.NewHostID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE rooms SET host_id = $2, updated_at = NOW() WHERE id = $1`,
				plan.RoomID, *plan.NewHostID); err != nil {
				return err
			}
		}

		if plan.FinishGame {
			if _, err := tx.Exec(ctx,
				`UPDATE game_rounds SET status = $2 WHERE room_id = $1 AND status = $3`,
				plan.RoomID, models.RoundStatusFinished, models.RoundStatusPlaying); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE rooms SET status = $2, updated_at = NOW() WHERE id = $1`,
				plan.RoomID, models.RoomStatusFinished); err != nil {
				return err
			}
		}
		return nil
	})
}
