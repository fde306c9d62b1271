// internal/database/player.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

const playerColumns = `id, room_id, user_id, name, is_host, chips, turn_order, created_at`

func scanPlayer(row pgx.Row, p *models.Player) error {
	return row.Scan(
		&p.ID, &p.RoomID, &p.UserID, &p.Name,
		&p.IsHost, &p.Chips, &p.TurnOrder, &p.CreatedAt,
	)
}

// GetPlayers returns a room's players ordered by turn order, then join order.
// Before the game starts every turn_order is zero, so this is join order.
func (s *Store) GetPlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	q := `
	SELECT ` + playerColumns + `
	FROM players
	WHERE room_id = $1
	ORDER BY turn_order, created_at
	`
	rows, err := s.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := scanPlayer(rows, &p); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// GetPlayer fetches a player by ID.
func (s *Store) GetPlayer(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	var p models.Player
	q := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	if err := scanPlayer(s.pool.QueryRow(ctx, q, playerID), &p); err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}

// InsertPlayer seats a player in a room.
func (s *Store) InsertPlayer(ctx context.Context, p *models.Player) error {
	q := `
	INSERT INTO players (id, room_id, user_id, name, is_host, chips, turn_order)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			p.ID, p.RoomID, p.UserID, p.Name, p.IsHost, p.Chips, p.TurnOrder,
		)
		return translateErr(err)
	})
}

// SetAllChips sets every seat's balance and records the value as the room's
// configured initial chips. Pre-game only; the engine enforces that.
func (s *Store) SetAllChips(ctx context.Context, roomID uuid.UUID, chips int) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET chips = $2 WHERE room_id = $1`, roomID, chips); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE rooms SET initial_chips = $2, updated_at = NOW() WHERE id = $1`, roomID, chips)
		return err
	})
}
